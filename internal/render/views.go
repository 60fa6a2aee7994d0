package render

import (
	"time"

	"friendfeed/internal/friends"
	"friendfeed/internal/models"
	"friendfeed/internal/notify"
	"friendfeed/internal/timeline"
)

// ToastView is a toast ready for display.
type ToastView struct {
	ID          string
	Page        string
	Message     string
	Severity    notify.Severity
	Icon        string
	Color       string
	ExpiresInMs int64
}

// NewToastView returns nil when box holds no live toast.
func NewToastView(box *notify.Box, now time.Time) *ToastView {
	t := box.Active(now)
	if t == nil {
		return nil
	}
	return &ToastView{
		ID:          t.ID,
		Page:        t.Page,
		Message:     t.Message,
		Severity:    t.Severity,
		Icon:        t.Severity.Icon(),
		Color:       t.Severity.Color(),
		ExpiresInMs: t.ExpiresAt.Sub(now).Milliseconds(),
	}
}

// TimelineView is everything the timeline page shows.
type TimelineView struct {
	Username string
	Posts    []timeline.PostView
	Draft    string
	Toast    *ToastView
}

// NewTimelineView derives the page view from state.
func NewTimelineView(st *timeline.State, username string, now time.Time) TimelineView {
	return TimelineView{
		Username: username,
		Posts:    st.Posts,
		Draft:    st.Draft,
		Toast:    NewToastView(&st.Toast, now),
	}
}

// FriendCardView is a friend card plus its animation state.
type FriendCardView struct {
	friends.FriendCard
	Fading bool
}

// RequestCardView is a request card plus its animation state.
type RequestCardView struct {
	friends.RequestCard
	Fading bool
}

// SuggestionCardView is a suggestion card plus whether a request went out.
type SuggestionCardView struct {
	friends.SuggestionCard
	Sent       bool
	Cancelable bool
}

// ResultView is a search result plus whether a request went out.
type ResultView struct {
	models.UserResult
	Sent       bool
	Cancelable bool
}

// TabView is one tab button.
type TabView struct {
	Name   friends.Tab
	Label  string
	Active bool
}

// FriendsView is everything the friends page shows.
type FriendsView struct {
	Username    string
	Tabs        []TabView
	Tab         friends.Tab
	Friends     []FriendCardView
	FriendCount int
	Filter      friends.Filter
	Requests    []RequestCardView
	Badge       friends.Badge
	Suggestions []SuggestionCardView
	Query       string
	Results     []ResultView
	Searched    bool
	Confirm     *friends.Confirmation
	Toast       *ToastView
	LocalCancel bool
}

var tabLabels = map[friends.Tab]string{
	friends.TabFriends:     "All Friends",
	friends.TabRequests:    "Friend Requests",
	friends.TabSuggestions: "Suggestions",
	friends.TabSearch:      "Find Friends",
}

// FriendsOptions carry the controller settings the page reflects.
type FriendsOptions struct {
	CardDelay   time.Duration
	LocalCancel bool
}

// NewFriendsView derives the page view from state.
func NewFriendsView(st *friends.State, username string, now time.Time, opts FriendsOptions) FriendsView {
	current := st.CurrentTab()
	v := FriendsView{
		Username:    username,
		Tab:         current,
		FriendCount: len(st.Friends),
		Filter:      st.Filter,
		Badge:       st.Badge,
		Query:       st.Query,
		Searched:    st.Query != "",
		Confirm:     st.Confirm,
		Toast:       NewToastView(&st.Toast, now),
		LocalCancel: opts.LocalCancel,
	}
	for _, t := range friends.Tabs {
		v.Tabs = append(v.Tabs, TabView{Name: t, Label: tabLabels[t], Active: t == current})
	}
	for _, f := range st.VisibleFriends() {
		v.Friends = append(v.Friends, FriendCardView{FriendCard: f, Fading: f.Leaving()})
	}
	for _, r := range st.Requests {
		v.Requests = append(v.Requests, RequestCardView{RequestCard: r, Fading: r.Fading(now, opts.CardDelay)})
	}
	for _, s := range st.Suggestions {
		sent := st.RequestSent(s.Username)
		v.Suggestions = append(v.Suggestions, SuggestionCardView{
			SuggestionCard: s, Sent: sent, Cancelable: sent && opts.LocalCancel,
		})
	}
	for _, r := range st.Results {
		sent := st.RequestSent(r.Username)
		v.Results = append(v.Results, ResultView{UserResult: r, Sent: sent, Cancelable: sent && opts.LocalCancel})
	}
	return v
}

// PageMeta feeds the shared header.
type PageMeta struct {
	Title    string
	Page     string
	Username string
	NavBadge *friends.Badge
}

// Meta describes the timeline page for the header.
func (v TimelineView) Meta() PageMeta {
	return PageMeta{Title: "Timeline", Page: timeline.Page, Username: v.Username}
}

// Meta describes the friends page for the header; the navbar repeats the badge.
func (v FriendsView) Meta() PageMeta {
	b := v.Badge
	return PageMeta{Title: "Friends", Page: friends.Page, Username: v.Username, NavBadge: &b}
}
