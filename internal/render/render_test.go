package render

import (
	"context"
	"io/fs"
	"strings"
	"testing"
	"time"

	"friendfeed/internal/friends"
	"friendfeed/internal/models"
	"friendfeed/internal/notify"
	"friendfeed/internal/timeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	require.NoError(t, err)
	return r
}

func render(t *testing.T, r *Renderer, name string, data any) string {
	t.Helper()
	var sb strings.Builder
	require.NoError(t, r.Render(&sb, name, data))
	return sb.String()
}

func TestTimelinePage(t *testing.T) {
	r := newRenderer(t)
	n := notify.NewNotifier(5*time.Second, notify.WithClock(func() time.Time { return now }))

	st := &timeline.State{Posts: []timeline.PostView{
		{Post: models.Post{ID: 1, Author: "bob", Content: "<b>hi</b>", LikeCount: 3}, Liked: true,
			Comments:        []models.Comment{{ID: 9, Author: "carol", Content: "nice", CreatedAt: "6/1/2024, 12:00:00 PM"}},
			CommentsVisible: true},
		{Post: models.Post{ID: 2, Content: "anon", CommentCount: 1}},
	}}
	n.Show(context.Background(), &st.Toast, timeline.Page, "Post shared", notify.Success)

	html := render(t, r, PageTimeline, NewTimelineView(st, "alice", now))

	assert.Contains(t, html, "<title>Timeline · friendfeed</title>")
	assert.Contains(t, html, "&lt;b&gt;hi&lt;/b&gt;")
	assert.NotContains(t, html, "<b>hi</b>")
	assert.Contains(t, html, `class="like-btn liked"`)
	assert.Contains(t, html, "Liked <span class=\"like-count\">3</span>")
	assert.Contains(t, html, "Like <span class=\"like-count\">0</span>")
	assert.Contains(t, html, "6/1/2024, 12:00:00 PM")
	assert.Contains(t, html, `<section class="comments" id="comments-1">`)
	assert.Contains(t, html, `<section class="comments" id="comments-2" hidden>`)
	assert.Contains(t, html, "Anonymous")
	assert.Contains(t, html, "1 Comment<")
	assert.Contains(t, html, "fa-check-circle")
	assert.Contains(t, html, "#42b883")
	assert.Contains(t, html, `data-expires-in="5000"`)
}

func TestToast_ExpiredIsNotRendered(t *testing.T) {
	r := newRenderer(t)
	var box notify.Box
	notify.NewNotifier(time.Second, notify.WithClock(func() time.Time { return now })).
		Show(context.Background(), &box, "friends", "gone soon", notify.Error)

	assert.NotNil(t, NewToastView(&box, now.Add(999*time.Millisecond)))
	assert.Nil(t, NewToastView(&box, now.Add(time.Second)))
	assert.Empty(t, render(t, r, FragmentToast, NewToastView(&box, now.Add(time.Second))))

	html := render(t, r, FragmentToast, NewToastView(&box, now))
	assert.Contains(t, html, "fa-times-circle")
	assert.Contains(t, html, "#e74c3c")
	assert.Contains(t, html, "/toast/friends/"+box.Current.ID+"/dismiss")
}

func TestFriendsPage(t *testing.T) {
	r := newRenderer(t)
	st := &friends.State{
		Tab: friends.TabRequests,
		Friends: []friends.FriendCard{
			{Friend: models.Friend{Username: "bob", DisplayName: "Bob", Online: true}},
			{Friend: models.Friend{Username: "carol", DisplayName: "Carol"}, LeavingAt: now},
		},
		Requests: []friends.RequestCard{
			{FriendRequest: models.FriendRequest{Username: "dave"}, Status: friends.RequestPending},
			{FriendRequest: models.FriendRequest{Username: "erin"}, Status: friends.RequestAccepted, ResolvedAt: now.Add(-2 * time.Second)},
		},
		Badge:       friends.Badge{Count: 1},
		Suggestions: []friends.SuggestionCard{{Suggestion: models.Suggestion{Username: "frank", DisplayName: "Frank", MutualFriends: 1}}},
		Sent:        map[string]bool{"frank": true},
		Confirm:     &friends.Confirmation{Action: "remove", Username: "bob", Message: "Remove Bob?"},
	}

	view := NewFriendsView(st, "alice", now, FriendsOptions{CardDelay: time.Second, LocalCancel: true})
	html := render(t, r, PageFriends, view)

	assert.Contains(t, html, `class="tab-btn active" data-tab="requests"`)
	assert.Contains(t, html, `<span class="tab-badge">1</span>`)
	assert.Contains(t, html, `<span class="notification-badge">1</span>`)
	assert.Contains(t, html, "accept-request-btn")
	assert.Contains(t, html, `<div class="request-card fading" id="request-erin">`)
	assert.Contains(t, html, ">Accepted</button>")
	assert.Contains(t, html, `<div class="friend-card fading" id="friend-carol">`)
	assert.Contains(t, html, "1 mutual friend<")
	assert.Contains(t, html, "Request Sent")
	assert.Contains(t, html, "/friends/requests/frank/cancel")
	assert.Contains(t, html, "Remove Bob?")
	assert.Contains(t, html, `action="/friends/bob/remove"`)
	assert.Contains(t, html, `<div id="search-results" class="search-results-grid" hidden>`)
}

func TestBadge_HiddenAtZero(t *testing.T) {
	r := newRenderer(t)
	assert.Equal(t, `<span class="tab-badge" hidden>0</span>`, render(t, r, FragmentBadge, friends.Badge{}))
	assert.Equal(t, `<span class="tab-badge">2</span>`, render(t, r, FragmentBadge, friends.Badge{Count: 2}))
}

func TestFriendsList_AppliesFilter(t *testing.T) {
	r := newRenderer(t)
	st := &friends.State{
		Friends: []friends.FriendCard{
			{Friend: models.Friend{Username: "bob", DisplayName: "Bob", Online: true}},
			{Friend: models.Friend{Username: "carol", DisplayName: "Carol"}},
		},
		Filter: friends.Filter{Status: friends.StatusOnline},
	}

	html := render(t, r, FragmentFriendsList, NewFriendsView(st, "", now, FriendsOptions{}))
	assert.Contains(t, html, "friend-bob")
	assert.NotContains(t, html, "friend-carol")
	assert.Contains(t, html, `data-count="2"`)
}

func TestSearchResults(t *testing.T) {
	r := newRenderer(t)
	st := &friends.State{
		Query: "zz",
	}
	html := render(t, r, FragmentResults, NewFriendsView(st, "", now, FriendsOptions{}))
	assert.Contains(t, html, `No users found for "zz".`)

	st.Results = []models.UserResult{
		{Username: "gina", DisplayName: "Gina", IsFriend: true},
		{Username: "hank", DisplayName: "Hank"},
	}
	html = render(t, r, FragmentResults, NewFriendsView(st, "", now, FriendsOptions{}))
	assert.Contains(t, html, `<span class="friend-label">Friends</span>`)
	assert.Contains(t, html, `name="username" value="hank"`)
}

func TestRenderParts_UnknownTemplate(t *testing.T) {
	r := newRenderer(t)
	var sb strings.Builder
	err := r.RenderParts(&sb,
		Part{Name: FragmentBadge, Data: friends.Badge{Count: 1}},
		Part{Name: "nope", Data: nil},
	)
	require.Error(t, err)
	assert.Equal(t, `<span class="tab-badge">1</span>`, sb.String())
}

func TestStatic(t *testing.T) {
	css, err := fs.ReadFile(Static(), "app.css")
	require.NoError(t, err)
	assert.Contains(t, string(css), ".fading")
}
