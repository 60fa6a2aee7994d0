package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"friendfeed/internal/models"
)

func (p *Caller) users(ctx context.Context, path, key string, query url.Values) ([]wireUser, int, error) {
	body, err := p.do(ctx, call{method: http.MethodGet, path: path, query: query})
	if err != nil {
		return nil, 0, err
	}
	wire, count, err := decodeList[wireUser](body, key)
	if err != nil {
		return nil, 0, &TransportError{Method: http.MethodGet, Path: path, Err: fmt.Errorf("decode %s: %w", key, err)}
	}
	return wire, count, nil
}

// ListFriends fetches the current user's friends, de-duplicated by username.
func (p *Caller) ListFriends(ctx context.Context) ([]models.Friend, error) {
	wire, _, err := p.users(ctx, "/api/friends", "friends", nil)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(wire))
	friends := make([]models.Friend, 0, len(wire))
	for _, w := range wire {
		f := w.friend()
		if f.Username == "" {
			continue
		}
		if _, dup := seen[f.Username]; dup {
			continue
		}
		seen[f.Username] = struct{}{}
		friends = append(friends, f)
	}
	return friends, nil
}

// ListFriendRequests fetches inbound requests and the server's pending count.
func (p *Caller) ListFriendRequests(ctx context.Context) ([]models.FriendRequest, int, error) {
	wire, count, err := p.users(ctx, "/api/friends/requests", "requests", nil)
	if err != nil {
		return nil, 0, err
	}
	requests := make([]models.FriendRequest, 0, len(wire))
	for _, w := range wire {
		if r := w.request(); r.Username != "" {
			requests = append(requests, r)
		}
	}
	return requests, count, nil
}

// ListSuggestions fetches people the current user may know.
func (p *Caller) ListSuggestions(ctx context.Context) ([]models.Suggestion, error) {
	wire, _, err := p.users(ctx, "/api/friends/suggestions", "suggestions", nil)
	if err != nil {
		return nil, err
	}
	out := make([]models.Suggestion, 0, len(wire))
	for _, w := range wire {
		if s := w.suggestion(); s.Username != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// SearchUsers looks users up by name.
func (p *Caller) SearchUsers(ctx context.Context, query string) ([]models.UserResult, error) {
	wire, _, err := p.users(ctx, "/api/friends/search", "users", url.Values{"q": {query}})
	if err != nil {
		return nil, err
	}
	out := make([]models.UserResult, 0, len(wire))
	for _, w := range wire {
		if r := w.result(); r.Username != "" {
			out = append(out, r)
		}
	}
	return out, nil
}

type friendRequestBody struct {
	TargetUsername string `json:"target_username"`
}

// SendFriendRequest asks username to become a friend.
func (p *Caller) SendFriendRequest(ctx context.Context, username string) error {
	_, err := p.do(ctx, call{
		method: http.MethodPost,
		path:   "/api/friends/request",
		body:   friendRequestBody{TargetUsername: username},
	})
	return err
}

type removeFriendBody struct {
	FriendUsername string `json:"friend_username"`
}

// RemoveFriend ends a friendship.
func (p *Caller) RemoveFriend(ctx context.Context, username string) error {
	_, err := p.do(ctx, call{
		method: http.MethodPost,
		path:   "/api/friends/remove",
		body:   removeFriendBody{FriendUsername: username},
	})
	return err
}

type respondBody struct {
	RequesterUsername string `json:"requester_username"`
	Action            string `json:"action"`
}

// RespondToFriendRequest accepts or rejects the request sent by username.
func (p *Caller) RespondToFriendRequest(ctx context.Context, username, action string) error {
	_, err := p.do(ctx, call{
		method: http.MethodPost,
		path:   "/api/friends/respond",
		body:   respondBody{RequesterUsername: username, Action: action},
	})
	return err
}
