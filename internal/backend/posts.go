package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"friendfeed/internal/models"
)

// ListPosts fetches the public feed from /api/posts.
func (p *Caller) ListPosts(ctx context.Context) ([]models.Post, error) {
	return p.feed(ctx, "/api/posts")
}

// Timeline fetches the personal feed from /api/timeline.
func (p *Caller) Timeline(ctx context.Context) ([]models.Post, error) {
	return p.feed(ctx, "/api/timeline")
}

func (p *Caller) feed(ctx context.Context, path string) ([]models.Post, error) {
	body, err := p.do(ctx, call{method: http.MethodGet, path: path})
	if err != nil {
		return nil, err
	}
	wire, _, err := decodeList[wirePost](body, "posts")
	if err != nil {
		return nil, &TransportError{Method: http.MethodGet, Path: path, Err: fmt.Errorf("decode posts: %w", err)}
	}
	posts := make([]models.Post, 0, len(wire))
	for _, w := range wire {
		posts = append(posts, w.record())
	}
	return posts, nil
}

type createPostRequest struct {
	Content  string `json:"content"`
	UserName string `json:"user_name,omitempty"`
}

// CreatePost publishes a post. author may be empty, the backend then uses the session user.
func (p *Caller) CreatePost(ctx context.Context, content, author string) error {
	_, err := p.do(ctx, call{
		method: http.MethodPost,
		path:   "/api/posts",
		body:   createPostRequest{Content: content, UserName: author},
	})
	return err
}

// ListComments fetches the comments of one post.
func (p *Caller) ListComments(ctx context.Context, postID int64) ([]models.Comment, error) {
	const path = "/api/comments"
	body, err := p.do(ctx, call{
		method: http.MethodGet,
		path:   path,
		query:  url.Values{"post_id": {strconv.FormatInt(postID, 10)}},
	})
	if err != nil {
		return nil, err
	}
	wire, _, err := decodeList[wireComment](body, "comments")
	if err != nil {
		return nil, &TransportError{Method: http.MethodGet, Path: path, Err: fmt.Errorf("decode comments: %w", err)}
	}
	comments := make([]models.Comment, 0, len(wire))
	for _, w := range wire {
		comments = append(comments, w.record(postID))
	}
	return comments, nil
}

type createCommentRequest struct {
	PostID   int64  `json:"post_id"`
	Content  string `json:"content"`
	UserName string `json:"user_name,omitempty"`
}

// CreateComment adds a comment to a post.
func (p *Caller) CreateComment(ctx context.Context, postID int64, content, author string) error {
	_, err := p.do(ctx, call{
		method: http.MethodPost,
		path:   "/api/comments",
		body:   createCommentRequest{PostID: postID, Content: content, UserName: author},
	})
	return err
}

type likeStatusResponse struct {
	Liked bool `json:"liked"`
}

// LikeStatus reports whether the current user likes a post.
func (p *Caller) LikeStatus(ctx context.Context, postID int64) (bool, error) {
	var out likeStatusResponse
	err := p.getJSON(ctx, "/api/likes/status",
		url.Values{"post_id": {strconv.FormatInt(postID, 10)}}, &out)
	return out.Liked, err
}

type toggleLikeRequest struct {
	PostID int64 `json:"post_id"`
}

type toggleLikeResponse struct {
	Liked bool `json:"liked"`
}

// ToggleLike flips the like on a post and returns the resulting state.
func (p *Caller) ToggleLike(ctx context.Context, postID int64) (bool, error) {
	const path = "/api/likes/toggle"
	body, err := p.do(ctx, call{
		method: http.MethodPost,
		path:   path,
		body:   toggleLikeRequest{PostID: postID},
	})
	if err != nil {
		return false, err
	}
	var out toggleLikeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return false, &TransportError{Method: http.MethodPost, Path: path, Err: fmt.Errorf("decode like: %w", err)}
	}
	return out.Liked, nil
}
