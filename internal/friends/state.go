package friends

import (
	"slices"
	"strings"
	"time"

	"friendfeed/internal/models"
	"friendfeed/internal/notify"
)

// Tab is one section of the friends page.
type Tab string

const (
	TabFriends     Tab = "friends"
	TabRequests    Tab = "requests"
	TabSuggestions Tab = "suggestions"
	TabSearch      Tab = "search"
)

// Tabs lists the page sections in display order.
var Tabs = []Tab{TabFriends, TabRequests, TabSuggestions, TabSearch}

// ParseTab validates a tab name.
func ParseTab(s string) (Tab, error) {
	t := Tab(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(Tabs, t) {
		return "", ErrUnknownTab
	}
	return t, nil
}

// RequestStatus is where an inbound request card is in its lifecycle.
// pending moves to accepted or declined and never back.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestDeclined RequestStatus = "declined"
)

// StatusFilter narrows the friend list by presence.
type StatusFilter string

const (
	StatusAll    StatusFilter = "all"
	StatusOnline StatusFilter = "online"
)

// FriendCard is a friend on the page. LeavingAt is set once the friend was removed
// and the card is fading out.
type FriendCard struct {
	models.Friend
	LeavingAt time.Time `json:"leaving_at,omitzero"`
}

// Leaving reports whether the card is on its way out.
func (c FriendCard) Leaving() bool { return !c.LeavingAt.IsZero() }

// RequestCard is an inbound friend request.
type RequestCard struct {
	models.FriendRequest
	Status     RequestStatus `json:"status"`
	ResolvedAt time.Time     `json:"resolved_at,omitzero"`
}

// Pending reports whether the request can still be answered.
func (c RequestCard) Pending() bool { return c.Status == "" || c.Status == RequestPending }

// Label is the text that replaces the Accept/Decline buttons once resolved.
func (c RequestCard) Label() string {
	switch c.Status {
	case RequestAccepted:
		return "Accepted"
	case RequestDeclined:
		return "Declined"
	default:
		return ""
	}
}

// Fading reports whether a resolved card has shown its label long enough to fade.
func (c RequestCard) Fading(now time.Time, delay time.Duration) bool {
	return !c.Pending() && !now.Before(c.ResolvedAt.Add(delay))
}

// SuggestionCard is a suggested friend. Dismissal only lives in this view-model.
type SuggestionCard struct {
	models.Suggestion
	DismissedAt time.Time `json:"dismissed_at,omitzero"`
}

// Dismissed reports whether the card is fading out.
func (c SuggestionCard) Dismissed() bool { return !c.DismissedAt.IsZero() }

// Badge is the pending-request counter shown on the tab and in the navbar.
type Badge struct {
	Count int `json:"count"`
}

// Hidden reports whether the badge should not be shown.
func (b Badge) Hidden() bool { return b.Count <= 0 }

func (b *Badge) decrement() { b.Count = max(0, b.Count-1) }

// Filter is the local friend-list filter.
type Filter struct {
	Text   string       `json:"text,omitempty"`
	Status StatusFilter `json:"status,omitempty"`
}

// Confirmation is a destructive action waiting for the user to agree.
type Confirmation struct {
	Action   string `json:"action"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

// State is the friends page's view-model. Sent holds usernames with an outbound
// request made from this page.
type State struct {
	Tab         Tab                 `json:"tab"`
	Friends     []FriendCard        `json:"friends"`
	Requests    []RequestCard       `json:"requests"`
	Badge       Badge               `json:"badge"`
	Suggestions []SuggestionCard    `json:"suggestions"`
	Query       string              `json:"query,omitempty"`
	Results     []models.UserResult `json:"results,omitempty"`
	Sent        map[string]bool     `json:"sent,omitempty"`
	Filter      Filter              `json:"filter"`
	Confirm     *Confirmation       `json:"confirm,omitempty"`
	Toast       notify.Box          `json:"toast"`
	LoadedAt    time.Time           `json:"loaded_at,omitzero"`
}

// CurrentTab defaults to the friend list.
func (s *State) CurrentTab() Tab {
	if s.Tab == "" {
		return TabFriends
	}
	return s.Tab
}

// RequestSent reports whether username already has an outbound request.
func (s *State) RequestSent(username string) bool { return s.Sent[username] }

func (s *State) markSent(username string) {
	if s.Sent == nil {
		s.Sent = make(map[string]bool)
	}
	s.Sent[username] = true
}

func (s *State) friend(username string) *FriendCard {
	for i := range s.Friends {
		if s.Friends[i].Username == username {
			return &s.Friends[i]
		}
	}
	return nil
}

func (s *State) request(username string) *RequestCard {
	for i := range s.Requests {
		if s.Requests[i].Username == username {
			return &s.Requests[i]
		}
	}
	return nil
}

func (s *State) suggestion(username string) *SuggestionCard {
	for i := range s.Suggestions {
		if s.Suggestions[i].Username == username && !s.Suggestions[i].Dismissed() {
			return &s.Suggestions[i]
		}
	}
	return nil
}

// VisibleFriends applies the local text and presence filters.
func (s *State) VisibleFriends() []FriendCard {
	text := strings.ToLower(strings.TrimSpace(s.Filter.Text))
	out := make([]FriendCard, 0, len(s.Friends))
	for _, f := range s.Friends {
		if s.Filter.Status == StatusOnline && !f.Online {
			continue
		}
		if text != "" &&
			!strings.Contains(strings.ToLower(f.DisplayName), text) &&
			!strings.Contains(strings.ToLower(f.Username), text) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Prune drops cards whose exit animation has finished: resolved requests after
// delay+fade, removed friends and dismissed suggestions after fade.
func (s *State) Prune(now time.Time, delay, fade time.Duration) {
	s.Requests = slices.DeleteFunc(s.Requests, func(c RequestCard) bool {
		return !c.Pending() && !now.Before(c.ResolvedAt.Add(delay+fade))
	})
	s.Friends = slices.DeleteFunc(s.Friends, func(c FriendCard) bool {
		return c.Leaving() && !now.Before(c.LeavingAt.Add(fade))
	})
	s.Suggestions = slices.DeleteFunc(s.Suggestions, func(c SuggestionCard) bool {
		return c.Dismissed() && !now.Before(c.DismissedAt.Add(fade))
	})
}
