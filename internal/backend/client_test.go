package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"unicode/utf8"

	"friendfeed/internal/models"
	"friendfeed/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCaller(t *testing.T) (*testutil.FakeBackend, *Caller) {
	t.Helper()
	fake := testutil.NewFakeBackend(t)
	client := NewClient(fake.URL()+"/", 2*time.Second, "session_id")
	return fake, client.As(Credentials{SessionToken: "tok-123", Username: "alice"})
}

func TestCaller_ForwardsCredentials(t *testing.T) {
	fake, caller := newCaller(t)

	_, err := caller.ListPosts(context.Background())
	require.NoError(t, err)

	calls := fake.Calls("/api/posts")
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Cookie, "session_id=tok-123")
	assert.Contains(t, calls[0].Cookie, "username=alice")
}

func TestCaller_PostsAndComments(t *testing.T) {
	fake, caller := newCaller(t)
	ctx := context.Background()

	id := fake.AddPost("bob", "hello world", 3)
	fake.AddComment(id, "carol", "nice", 1700000000)
	fake.AddComment(id, "dave", "agreed", "2024-03-01 12:30:00")
	fake.AddComment(id, "erin", "odd", "yesterday-ish")

	posts, err := caller.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, models.Post{
		ID: id, Author: "bob", Content: "hello world", LikeCount: 3, CommentCount: 3,
		CreatedAt: "2024-03-01 10:00:00",
	}, posts[0])

	comments, err := caller.ListComments(ctx, id)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, id, comments[0].PostID)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), comments[0].Posted)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC), comments[1].Posted)
	assert.True(t, comments[2].Posted.IsZero())
	assert.Equal(t, "yesterday-ish", comments[2].RawCreatedAt)

	require.NoError(t, caller.CreateComment(ctx, id, "more", ""))
	body := fake.Calls("/api/comments")[1].Body
	assert.Equal(t, float64(id), body["post_id"])
	assert.Equal(t, "more", body["content"])
	assert.NotContains(t, body, "user_name")
}

func TestCaller_TimelineEnvelope(t *testing.T) {
	fake, caller := newCaller(t)
	fake.UseTimelineEnvelope = true
	fake.AddPost("bob", "from timeline", 0)

	posts, err := caller.Timeline(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "from timeline", posts[0].Content)
}

func TestCaller_Likes(t *testing.T) {
	fake, caller := newCaller(t)
	ctx := context.Background()
	id := fake.AddPost("bob", "like me", 0)

	liked, err := caller.LikeStatus(ctx, id)
	require.NoError(t, err)
	assert.False(t, liked)

	liked, err = caller.ToggleLike(ctx, id)
	require.NoError(t, err)
	assert.True(t, liked)

	liked, err = caller.LikeStatus(ctx, id)
	require.NoError(t, err)
	assert.True(t, liked)
}

func TestCaller_CreatePostPlainTextBody(t *testing.T) {
	fake, caller := newCaller(t)

	require.NoError(t, caller.CreatePost(context.Background(), "first!", "alice"))
	assert.Len(t, fake.Posts, 1)
	assert.Equal(t, "alice", fake.Posts[0].UserName)
}

func TestCaller_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name        string
		failure     testutil.Failure
		wantCode    string
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "Rejected in 200",
			failure:     testutil.Failure{Status: http.StatusOK, Message: "Already friends", Envelope: true},
			wantCode:    models.CodeBackendRejected,
			wantMessage: "Already friends",
		},
		{
			name:        "Rejected with 400",
			failure:     testutil.Failure{Status: http.StatusBadRequest, Message: "User not found", Envelope: true},
			wantCode:    models.CodeBackendRejected,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "User not found",
		},
		{
			name:        "Plain text 500",
			failure:     testutil.Failure{Status: http.StatusInternalServerError, Message: "database is locked"},
			wantCode:    models.CodeBackendUnavailable,
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "database is locked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake, caller := newCaller(t)
			fake.Fail("/api/friends/request", tt.failure)

			err := caller.SendFriendRequest(context.Background(), "bob")
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, models.CodeOf(err))
			assert.Equal(t, tt.wantMessage, Message(err, "fallback"))

			var te *TransportError
			if tt.wantStatus != 0 {
				require.True(t, errors.As(err, &te))
				assert.Equal(t, tt.wantStatus, te.Status)
			}
		})
	}
}

func TestCaller_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	caller := NewClient(srv.URL, time.Second, "session_id").As(Credentials{})
	_, err := caller.ListFriends(context.Background())

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.NotNil(t, te.Err)
	assert.Equal(t, "Failed to load friends", Message(err, "Failed to load friends"))
}

func TestCaller_FriendsEndpoints(t *testing.T) {
	fake, caller := newCaller(t)
	ctx := context.Background()
	fake.Friends = []testutil.FakeUser{
		{ID: 1, Username: "bob", Online: true},
		{ID: 1, Username: "bob", Online: true},
		{ID: 2, Username: "carol"},
	}
	fake.Requests = []testutil.FakeUser{{ID: 3, Username: "dave", ProfilePic: "/img/dave.png"}}
	fake.Suggestions = []testutil.FakeUser{{ID: 4, Username: "erin", MutualFriends: 2}}
	fake.Directory = []testutil.FakeUser{{ID: 5, Username: "frank", HasPendingRequest: true}}

	friends, err := caller.ListFriends(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Friend{
		{Username: "bob", DisplayName: "bob", Online: true},
		{Username: "carol", DisplayName: "carol"},
	}, friends)

	requests, count, err := caller.ListFriendRequests(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, []models.FriendRequest{{Username: "dave", ProfileImage: "/img/dave.png"}}, requests)

	suggestions, err := caller.ListSuggestions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Suggestion{{Username: "erin", DisplayName: "erin", MutualFriends: 2}}, suggestions)

	results, err := caller.SearchUsers(ctx, "fr")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].HasPendingRequest)
	assert.Equal(t, "q=fr", fake.Calls("/api/friends/search")[0].Query)

	require.NoError(t, caller.RespondToFriendRequest(ctx, "dave", "accept"))
	assert.Equal(t, map[string]any{"requester_username": "dave", "action": "accept"},
		fake.Calls("/api/friends/respond")[0].Body)

	require.NoError(t, caller.RemoveFriend(ctx, "carol"))
	assert.Equal(t, "carol", fake.Calls("/api/friends/remove")[0].Body["friend_username"])
}

func TestCaller_CurrentUser(t *testing.T) {
	fake, caller := newCaller(t)
	ctx := context.Background()

	name, err := caller.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", name)

	fake.Username = ""
	_, err = caller.CurrentUser(ctx)
	assert.True(t, IsUnauthorized(err))

	require.NoError(t, caller.Logout(ctx))
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		raw     string
		want    time.Time
		wantRaw string
	}{
		{"Epoch seconds", `1700000000`, time.Unix(1700000000, 0).UTC(), "1700000000"},
		{"Fractional epoch", `1700000000.5`, time.Unix(1700000000, 5e8).UTC(), "1700000000.5"},
		{"SQL datetime", `"2024-01-02 03:04:05"`, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "2024-01-02 03:04:05"},
		{"RFC 3339 with zone", `"2024-01-02T03:04:05+02:00"`, time.Date(2024, 1, 2, 1, 4, 5, 0, time.UTC), "2024-01-02T03:04:05+02:00"},
		{"Date only", `"2024-01-02"`, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "2024-01-02"},
		{"Unparseable", `"last tuesday"`, time.Time{}, "last tuesday"},
		{"Null", `null`, time.Time{}, ""},
	}
	for _, tt := range tests {
		got, raw := ParseTimestamp(json.RawMessage(tt.raw))
		assert.True(t, tt.want.Equal(got), tt.name)
		assert.Equal(t, tt.wantRaw, raw, tt.name)
	}
}

func TestDecodeList(t *testing.T) {
	t.Parallel()
	items, count, err := decodeList[wireUser]([]byte(`{"friends":[{"username":"a"}],"count":"7"}`), "friends")
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 7, count)

	items, count, err = decodeList[wireUser]([]byte(`[{"username":"a"},{"username":"b"}]`), "friends")
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 2, count)

	items, count, err = decodeList[wireUser]([]byte(`{"friends":null}`), "friends")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, count)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 200))
	assert.Equal(t, "abc", truncate("abcdef", 3))

	// "é" is two bytes; a cut at byte 4 would land inside the second one.
	got := truncate("aéé", 4)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "aé", got)

	got = truncate("日本語", 5)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "日", got)
	assert.LessOrEqual(t, len(got), 5)
}
