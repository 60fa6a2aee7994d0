package timeline

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"friendfeed/internal/models"
	"friendfeed/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) ListPosts(ctx context.Context) ([]models.Post, error) {
	args := m.Called(ctx)
	posts, _ := args.Get(0).([]models.Post)
	return posts, args.Error(1)
}

func (m *mockAPI) Timeline(ctx context.Context) ([]models.Post, error) {
	args := m.Called(ctx)
	posts, _ := args.Get(0).([]models.Post)
	return posts, args.Error(1)
}

func (m *mockAPI) CreatePost(ctx context.Context, content, author string) error {
	return m.Called(ctx, content, author).Error(0)
}

func (m *mockAPI) ListComments(ctx context.Context, postID int64) ([]models.Comment, error) {
	args := m.Called(ctx, postID)
	comments, _ := args.Get(0).([]models.Comment)
	return comments, args.Error(1)
}

func (m *mockAPI) CreateComment(ctx context.Context, postID int64, content, author string) error {
	return m.Called(ctx, postID, content, author).Error(0)
}

func (m *mockAPI) LikeStatus(ctx context.Context, postID int64) (bool, error) {
	args := m.Called(ctx, postID)
	return args.Bool(0), args.Error(1)
}

func (m *mockAPI) ToggleLike(ctx context.Context, postID int64) (bool, error) {
	args := m.Called(ctx, postID)
	return args.Bool(0), args.Error(1)
}

var testNow = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func newController(t *testing.T, api API) *Controller {
	t.Helper()
	cairo, err := time.LoadLocation("Africa/Cairo")
	require.NoError(t, err)
	clock := func() time.Time { return testNow }
	return New(api, Options{
		Notifier: notify.NewNotifier(5*time.Second, notify.WithClock(clock)),
		Location: cairo,
		Now:      clock,
	})
}

func seededState() *State {
	return &State{Posts: []PostView{
		{Post: models.Post{ID: 1, Author: "bob", Content: "one", LikeCount: 2}},
		{Post: models.Post{ID: 2, Author: "carol", Content: "two"}},
	}}
}

func TestLoadPosts_ReplacesFeedAndHydrates(t *testing.T) {
	api := new(mockAPI)
	api.On("ListPosts", mock.Anything).Return([]models.Post{
		{ID: 7, Author: "bob", Content: "hi", LikeCount: 4, CommentCount: 9},
		{ID: 8, Author: "dana", Content: "yo"},
	}, nil)
	api.On("LikeStatus", mock.Anything, int64(7)).Return(true, nil)
	api.On("LikeStatus", mock.Anything, int64(8)).Return(false, errors.New("boom"))
	api.On("ListComments", mock.Anything, int64(7)).Return([]models.Comment{
		{ID: 1, PostID: 7, Author: "eve", Content: "first", Posted: testNow},
		{ID: 2, PostID: 7, Author: "finn", Content: "odd", RawCreatedAt: "sometime"},
	}, nil)
	api.On("ListComments", mock.Anything, int64(8)).Return(nil, errors.New("boom"))

	st := seededState()
	st.Posts[0].CommentsVisible = true
	c := newController(t, api)
	require.NoError(t, c.LoadPosts(context.Background(), st))

	require.Len(t, st.Posts, 2)
	assert.Equal(t, int64(7), st.Posts[0].ID)
	assert.True(t, st.Posts[0].Liked)
	assert.False(t, st.Posts[0].CommentsVisible)
	require.Len(t, st.Posts[0].Comments, 2)
	assert.Equal(t, "1/15/2024, 12:00:00 PM", st.Posts[0].Comments[0].CreatedAt)
	assert.Equal(t, "sometime", st.Posts[0].Comments[1].CreatedAt)
	assert.Equal(t, 2, st.Posts[0].CommentCount)

	assert.False(t, st.Posts[1].Liked)
	assert.Empty(t, st.Posts[1].Comments)
	assert.Equal(t, testNow, st.LoadedAt)
	api.AssertNotCalled(t, "Timeline", mock.Anything)
}

func TestLoadPosts_PersonalFeed(t *testing.T) {
	api := new(mockAPI)
	api.On("Timeline", mock.Anything).Return([]models.Post{}, nil)

	c := New(api, Options{UseTimelineFeed: true})
	st := seededState()
	require.NoError(t, c.LoadPosts(context.Background(), st))

	assert.Empty(t, st.Posts)
	api.AssertNotCalled(t, "ListPosts", mock.Anything)
}

func TestLoadPosts_FailureKeepsFeed(t *testing.T) {
	api := new(mockAPI)
	api.On("ListPosts", mock.Anything).Return(nil, errors.New("connection refused"))

	st := seededState()
	before := append([]PostView{}, st.Posts...)
	err := newController(t, api).LoadPosts(context.Background(), st)

	require.Error(t, err)
	assert.Equal(t, before, st.Posts)
	toast := st.Toast.Active(testNow)
	require.NotNil(t, toast)
	assert.Equal(t, notify.Error, toast.Severity)
}

func TestSubmitPost_BlankContentNeverCallsBackend(t *testing.T) {
	for _, content := range []string{"", "   ", "\n\t "} {
		api := new(mockAPI)
		st := seededState()

		err := newController(t, api).SubmitPost(context.Background(), st, content, "alice")

		assert.ErrorIs(t, err, ErrEmptyContent)
		api.AssertNotCalled(t, "CreatePost", mock.Anything, mock.Anything, mock.Anything)
		assert.Len(t, st.Posts, 2)
	}
}

func TestSubmitPost_SuccessClearsDraftAndReloads(t *testing.T) {
	api := new(mockAPI)
	api.On("CreatePost", mock.Anything, "hello there", "alice").Return(nil).Once()
	api.On("ListPosts", mock.Anything).Return([]models.Post{{ID: 3, Author: "alice", Content: "hello there"}}, nil).Once()
	api.On("LikeStatus", mock.Anything, int64(3)).Return(false, nil)
	api.On("ListComments", mock.Anything, int64(3)).Return([]models.Comment{}, nil)

	st := &State{Draft: "  hello there  "}
	require.NoError(t, newController(t, api).SubmitPost(context.Background(), st, st.Draft, " alice "))

	assert.Empty(t, st.Draft)
	require.Len(t, st.Posts, 1)
	assert.Equal(t, "hello there", st.Posts[0].Content)
	assert.Equal(t, notify.Success, st.Toast.Active(testNow).Severity)
	api.AssertExpectations(t)
}

func TestSubmitPost_ReloadFailureStillSucceeds(t *testing.T) {
	api := new(mockAPI)
	api.On("CreatePost", mock.Anything, "hello", "alice").Return(nil).Once()
	api.On("ListPosts", mock.Anything).Return(nil, errors.New("dial tcp: refused")).Once()

	st := seededState()
	err := newController(t, api).SubmitPost(context.Background(), st, "hello", "alice")

	require.NoError(t, err)
	assert.Empty(t, st.Draft)
	assert.Len(t, st.Posts, 2)
	toast := st.Toast.Active(testNow)
	require.NotNil(t, toast)
	assert.Equal(t, notify.Warning, toast.Severity)
	assert.Equal(t, "Post shared, but the feed could not be refreshed", toast.Message)
	api.AssertExpectations(t)
}

func TestSubmitPost_FailureKeepsDraft(t *testing.T) {
	api := new(mockAPI)
	api.On("CreatePost", mock.Anything, "draft", "").Return(models.NewBackendRejectedError("Too long"))

	st := seededState()
	err := newController(t, api).SubmitPost(context.Background(), st, "draft", "")

	require.Error(t, err)
	assert.Equal(t, "draft", st.Draft)
	assert.Equal(t, "Failed to create post: Too long", st.Toast.Active(testNow).Message)
	api.AssertNotCalled(t, "ListPosts", mock.Anything)
}

func TestToggleLike_CountFollowsServerFlag(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		liked     bool
		server    bool
		wantCount int
	}{
		{"Like increments", 2, false, true, 3},
		{"Unlike decrements", 2, true, false, 1},
		{"Unlike at zero clamps", 0, true, false, 0},
		{"Server says liked again", 5, true, true, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(mockAPI)
			api.On("ToggleLike", mock.Anything, int64(1)).Return(tt.server, nil)

			st := seededState()
			st.Posts[0].LikeCount = tt.count
			st.Posts[0].Liked = tt.liked
			require.NoError(t, newController(t, api).ToggleLike(context.Background(), st, 1))

			assert.Equal(t, tt.wantCount, st.Posts[0].LikeCount)
			assert.Equal(t, tt.server, st.Posts[0].Liked)
		})
	}
}

func TestToggleLike_FailureLeavesStateUnchanged(t *testing.T) {
	api := new(mockAPI)
	api.On("ToggleLike", mock.Anything, int64(1)).Return(false, models.NewBackendRejectedError("Post not found"))

	st := seededState()
	before := st.Posts[0]
	err := newController(t, api).ToggleLike(context.Background(), st, 1)

	require.Error(t, err)
	assert.Equal(t, before, st.Posts[0])
}

func TestToggleLike_UnknownPost(t *testing.T) {
	api := new(mockAPI)
	err := newController(t, api).ToggleLike(context.Background(), seededState(), 99)

	assert.ErrorIs(t, err, ErrUnknownPost)
	api.AssertNotCalled(t, "ToggleLike", mock.Anything, mock.Anything)
}

func TestSubmitComment(t *testing.T) {
	t.Run("Whitespace never calls backend", func(t *testing.T) {
		api := new(mockAPI)
		err := newController(t, api).SubmitComment(context.Background(), seededState(), 1, "   ", "")
		assert.ErrorIs(t, err, ErrEmptyContent)
		api.AssertNotCalled(t, "CreateComment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Success reloads comments", func(t *testing.T) {
		api := new(mockAPI)
		api.On("CreateComment", mock.Anything, int64(2), "nice", "alice").Return(nil)
		api.On("ListComments", mock.Anything, int64(2)).Return([]models.Comment{
			{ID: 5, PostID: 2, Author: "alice", Content: "nice", Posted: testNow},
		}, nil)

		st := seededState()
		st.Posts[1].CommentDraft = "nice"
		require.NoError(t, newController(t, api).SubmitComment(context.Background(), st, 2, "nice", "alice"))

		assert.Empty(t, st.Posts[1].CommentDraft)
		require.Len(t, st.Posts[1].Comments, 1)
		assert.Equal(t, 1, st.Posts[1].CommentCount)
	})

	t.Run("Failure keeps draft and shows message", func(t *testing.T) {
		api := new(mockAPI)
		api.On("CreateComment", mock.Anything, int64(2), "nice", "").Return(errors.New("timeout"))

		st := seededState()
		err := newController(t, api).SubmitComment(context.Background(), st, 2, "nice", "")

		require.Error(t, err)
		assert.Equal(t, "nice", st.Posts[1].CommentDraft)
		assert.Equal(t, "Failed to add comment: please try again", st.Toast.Active(testNow).Message)
	})
}

func TestToggleCommentsVisibility(t *testing.T) {
	t.Parallel()
	c := New(new(mockAPI), Options{})
	st := seededState()

	require.NoError(t, c.ToggleCommentsVisibility(st, 2))
	assert.True(t, st.Posts[1].CommentsVisible)
	require.NoError(t, c.ToggleCommentsVisibility(st, 2))
	assert.False(t, st.Posts[1].CommentsVisible)
	assert.ErrorIs(t, c.ToggleCommentsVisibility(st, 42), ErrUnknownPost)
}

func TestFormatTimestamp(t *testing.T) {
	t.Parallel()
	cairo, err := time.LoadLocation("Africa/Cairo")
	require.NoError(t, err)

	assert.Equal(t, "1/15/2024, 12:00:00 PM", FormatTimestamp(models.Comment{Posted: testNow}, cairo))
	assert.Equal(t, "raw value", FormatTimestamp(models.Comment{RawCreatedAt: "raw value"}, cairo))
	assert.Empty(t, FormatTimestamp(models.Comment{}, cairo))
}
