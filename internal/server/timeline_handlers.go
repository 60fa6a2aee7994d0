package server

import (
	"friendfeed/internal/featureflags"
	"friendfeed/internal/render"
	"friendfeed/internal/session"
	"friendfeed/internal/timeline"

	"github.com/gofiber/fiber/v2"
)

const timelinePath = "/timeline"

func (s *Server) timelineController(c *fiber.Ctx, st *session.State) *timeline.Controller {
	return timeline.New(s.caller(c, st), timeline.Options{
		Notifier:        s.toasts,
		Location:        s.loc,
		UseTimelineFeed: s.flags.Enabled(featureflags.TimelineFeed, s.username(c, st)),
		Now:             s.now,
	})
}

// replyTimeline answers with the feed; postID narrows fragments to one post when set.
func (s *Server) replyTimeline(c *fiber.Ctx, st *session.State, err error, postID int64, fragment string) error {
	view := render.NewTimelineView(&st.Timeline, s.username(c, st), s.now())

	var fragments []render.Part
	switch fragment {
	case render.FragmentFeed:
		fragments = append(fragments, render.Part{Name: render.FragmentFeed, Data: view})
	case render.FragmentPost, render.FragmentComments:
		if post := st.Timeline.Post(postID); post != nil {
			fragments = append(fragments, render.Part{Name: fragment, Data: *post})
		}
	}
	fragments = append(fragments, render.Part{Name: render.FragmentToast, Data: view.Toast})

	return s.send(c, reply{
		path:      timelinePath,
		model:     &st.Timeline,
		page:      render.Part{Name: render.PageTimeline, Data: view},
		fragments: fragments,
	}, err)
}

// TimelinePage refreshes the identity and the feed and renders the page.
func (s *Server) TimelinePage(c *fiber.Ctx) error {
	st := sessionState(c)
	s.refreshIdentity(c, st)
	// A failed load keeps the previous feed and shows a toast; the page still renders.
	_ = s.timelineController(c, st).LoadPosts(c.UserContext(), &st.Timeline)
	return s.replyTimeline(c, st, nil, 0, render.FragmentFeed)
}

// SubmitPost publishes a post.
func (s *Server) SubmitPost(c *fiber.Ctx) error {
	st := sessionState(c)
	var req contentRequest
	if err := parseBody(c, &req); err != nil {
		return s.replyTimeline(c, st, err, 0, render.FragmentFeed)
	}
	err := s.timelineController(c, st).SubmitPost(c.UserContext(), &st.Timeline, req.Content, s.username(c, st))
	return s.replyTimeline(c, st, err, 0, render.FragmentFeed)
}

// ToggleLike flips the current user's like on a post.
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	st := sessionState(c)
	id, err := parsePostID(c)
	if err == nil {
		err = s.timelineController(c, st).ToggleLike(c.UserContext(), &st.Timeline, id)
	}
	return s.replyTimeline(c, st, err, id, render.FragmentPost)
}

// LoadComments reloads one post's comments.
func (s *Server) LoadComments(c *fiber.Ctx) error {
	st := sessionState(c)
	id, err := parsePostID(c)
	if err == nil {
		err = s.timelineController(c, st).LoadComments(c.UserContext(), &st.Timeline, id)
	}
	return s.replyTimeline(c, st, err, id, render.FragmentComments)
}

// SubmitComment adds a comment to a post.
func (s *Server) SubmitComment(c *fiber.Ctx) error {
	st := sessionState(c)
	id, err := parsePostID(c)
	var req contentRequest
	if err == nil {
		err = parseBody(c, &req)
	}
	if err == nil {
		err = s.timelineController(c, st).SubmitComment(c.UserContext(), &st.Timeline, id, req.Content, s.username(c, st))
	}
	return s.replyTimeline(c, st, err, id, render.FragmentPost)
}

// ToggleComments shows or hides a post's comment section.
func (s *Server) ToggleComments(c *fiber.Ctx) error {
	st := sessionState(c)
	id, err := parsePostID(c)
	if err == nil {
		err = s.timelineController(c, st).ToggleCommentsVisibility(&st.Timeline, id)
	}
	return s.replyTimeline(c, st, err, id, render.FragmentComments)
}
