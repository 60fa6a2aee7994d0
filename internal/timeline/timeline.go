// Package timeline drives the post feed: loading posts, likes and comments, and
// submitting new posts and comments. All mutations go through a State value that the
// renderer turns into markup.
package timeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"friendfeed/internal/backend"
	"friendfeed/internal/models"
	"friendfeed/internal/notify"
	"friendfeed/internal/observability"
)

// Page names the toast slot owned by the timeline.
const Page = "timeline"

// DisplayLayout is how comment timestamps are shown.
const DisplayLayout = "1/2/2006, 3:04:05 PM"

var (
	// ErrEmptyContent rejects posts and comments that are blank after trimming.
	ErrEmptyContent = models.NewValidationError("content must not be empty")
	// ErrUnknownPost is returned for a post id that is not on the page.
	ErrUnknownPost = &models.AppError{Code: models.CodeNotFound, Message: "post not found"}
)

// API is the slice of the backend the timeline needs.
type API interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
	Timeline(ctx context.Context) ([]models.Post, error)
	CreatePost(ctx context.Context, content, author string) error
	ListComments(ctx context.Context, postID int64) ([]models.Comment, error)
	CreateComment(ctx context.Context, postID int64, content, author string) error
	LikeStatus(ctx context.Context, postID int64) (bool, error)
	ToggleLike(ctx context.Context, postID int64) (bool, error)
}

// PostView is a post plus the per-post UI state.
type PostView struct {
	models.Post
	Liked           bool             `json:"liked"`
	Comments        []models.Comment `json:"comments"`
	CommentsVisible bool             `json:"comments_visible"`
	CommentDraft    string           `json:"comment_draft,omitempty"`
}

// State is the timeline page's view-model.
type State struct {
	Posts    []PostView `json:"posts"`
	Draft    string     `json:"draft,omitempty"`
	Toast    notify.Box `json:"toast"`
	LoadedAt time.Time  `json:"loaded_at,omitzero"`
}

// Post returns the view of post id, or nil.
func (s *State) Post(id int64) *PostView {
	for i := range s.Posts {
		if s.Posts[i].ID == id {
			return &s.Posts[i]
		}
	}
	return nil
}

// Options configure a Controller.
type Options struct {
	Notifier *notify.Notifier
	Location *time.Location
	// UseTimelineFeed reads the personal feed instead of the public one.
	UseTimelineFeed bool
	Now             func() time.Time
}

// Controller runs timeline operations for one user.
type Controller struct {
	api      API
	notifier *notify.Notifier
	loc      *time.Location
	personal bool
	now      func() time.Time
	log      *slog.Logger
}

// New creates a Controller calling api.
func New(api API, opts Options) *Controller {
	c := &Controller{
		api:      api,
		notifier: opts.Notifier,
		loc:      opts.Location,
		personal: opts.UseTimelineFeed,
		now:      opts.Now,
		log:      observability.GlobalLogger.With(slog.String("component", "timeline")),
	}
	if c.notifier == nil {
		c.notifier = notify.NewNotifier(notify.DefaultTTL)
	}
	if c.loc == nil {
		c.loc = time.UTC
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// LoadPosts replaces the feed. Each post's like state and comments are fetched too.
// On failure the previous feed is kept.
func (c *Controller) LoadPosts(ctx context.Context, st *State) error {
	fetch := c.api.ListPosts
	if c.personal {
		fetch = c.api.Timeline
	}
	posts, err := fetch(ctx)
	if err != nil {
		c.log.ErrorContext(ctx, "load posts", slog.String("error", err.Error()))
		c.notifier.Show(ctx, &st.Toast, Page, "Could not load posts", notify.Error)
		return fmt.Errorf("load posts: %w", err)
	}

	views := make([]PostView, len(posts))
	var wg sync.WaitGroup
	for i, p := range posts {
		views[i] = PostView{Post: p}
		wg.Add(1)
		go func(v *PostView) {
			defer wg.Done()
			c.hydrate(ctx, v)
		}(&views[i])
	}
	wg.Wait()

	st.Posts = views
	st.LoadedAt = c.now()
	return nil
}

// hydrate fills in like state and comments. Failures only cost that post its extras.
func (c *Controller) hydrate(ctx context.Context, v *PostView) {
	if liked, err := c.api.LikeStatus(ctx, v.ID); err != nil {
		c.log.WarnContext(ctx, "like status", slog.Int64("post_id", v.ID), slog.String("error", err.Error()))
	} else {
		v.Liked = liked
	}
	if comments, err := c.api.ListComments(ctx, v.ID); err != nil {
		c.log.WarnContext(ctx, "load comments", slog.Int64("post_id", v.ID), slog.String("error", err.Error()))
	} else {
		c.setComments(v, comments)
	}
}

// SubmitPost publishes content and reloads the feed. Blank content never reaches the backend.
func (c *Controller) SubmitPost(ctx context.Context, st *State, content, author string) error {
	text := strings.TrimSpace(content)
	if text == "" {
		return ErrEmptyContent
	}

	if err := c.api.CreatePost(ctx, text, strings.TrimSpace(author)); err != nil {
		st.Draft = content
		c.log.ErrorContext(ctx, "create post", slog.String("error", err.Error()))
		c.notifier.Show(ctx, &st.Toast, Page,
			"Failed to create post: "+backend.Message(err, "please try again"), notify.Error)
		return fmt.Errorf("create post: %w", err)
	}

	st.Draft = ""
	if err := c.LoadPosts(ctx, st); err != nil {
		// The post exists; only the refreshed feed is missing.
		c.log.WarnContext(ctx, "reload posts after create", slog.String("error", err.Error()))
		c.notifier.Show(ctx, &st.Toast, Page, "Post shared, but the feed could not be refreshed", notify.Warning)
		return nil
	}
	c.notifier.Show(ctx, &st.Toast, Page, "Post shared", notify.Success)
	return nil
}

// ToggleLike flips the like on postID. The count moves by one in the direction the
// backend reports and never drops below zero. Failures leave the post untouched.
func (c *Controller) ToggleLike(ctx context.Context, st *State, postID int64) error {
	post := st.Post(postID)
	if post == nil {
		return fmt.Errorf("post %d: %w", postID, ErrUnknownPost)
	}

	liked, err := c.api.ToggleLike(ctx, postID)
	if err != nil {
		c.log.ErrorContext(ctx, "toggle like", slog.Int64("post_id", postID), slog.String("error", err.Error()))
		return fmt.Errorf("toggle like: %w", err)
	}

	post.Liked = liked
	if liked {
		post.LikeCount++
	} else {
		post.LikeCount = max(0, post.LikeCount-1)
	}
	return nil
}

// LoadComments replaces the comment list of postID.
func (c *Controller) LoadComments(ctx context.Context, st *State, postID int64) error {
	post := st.Post(postID)
	if post == nil {
		return fmt.Errorf("post %d: %w", postID, ErrUnknownPost)
	}

	comments, err := c.api.ListComments(ctx, postID)
	if err != nil {
		c.log.ErrorContext(ctx, "load comments", slog.Int64("post_id", postID), slog.String("error", err.Error()))
		c.notifier.Show(ctx, &st.Toast, Page, "Could not load comments", notify.Error)
		return fmt.Errorf("load comments: %w", err)
	}
	c.setComments(post, comments)
	return nil
}

// SubmitComment adds a comment to postID and reloads its comments.
func (c *Controller) SubmitComment(ctx context.Context, st *State, postID int64, content, author string) error {
	text := strings.TrimSpace(content)
	if text == "" {
		return ErrEmptyContent
	}
	post := st.Post(postID)
	if post == nil {
		return fmt.Errorf("post %d: %w", postID, ErrUnknownPost)
	}

	if err := c.api.CreateComment(ctx, postID, text, strings.TrimSpace(author)); err != nil {
		post.CommentDraft = content
		c.log.ErrorContext(ctx, "create comment", slog.Int64("post_id", postID), slog.String("error", err.Error()))
		c.notifier.Show(ctx, &st.Toast, Page,
			"Failed to add comment: "+backend.Message(err, "please try again"), notify.Error)
		return fmt.Errorf("create comment: %w", err)
	}

	post.CommentDraft = ""
	return c.LoadComments(ctx, st, postID)
}

// ToggleCommentsVisibility shows or hides the comment section of postID.
func (c *Controller) ToggleCommentsVisibility(st *State, postID int64) error {
	post := st.Post(postID)
	if post == nil {
		return fmt.Errorf("post %d: %w", postID, ErrUnknownPost)
	}
	post.CommentsVisible = !post.CommentsVisible
	return nil
}

func (c *Controller) setComments(post *PostView, comments []models.Comment) {
	out := make([]models.Comment, len(comments))
	for i, cm := range comments {
		cm.CreatedAt = FormatTimestamp(cm, c.loc)
		out[i] = cm
	}
	post.Comments = out
	post.CommentCount = len(out)
}

// FormatTimestamp renders a comment's time in loc, or its raw text when it could not be parsed.
func FormatTimestamp(cm models.Comment, loc *time.Location) string {
	if cm.Posted.IsZero() {
		return cm.RawCreatedAt
	}
	return cm.Posted.In(loc).Format(DisplayLayout)
}
