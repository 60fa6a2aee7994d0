package server

import (
	"friendfeed/internal/featureflags"
	"friendfeed/internal/friends"
	"friendfeed/internal/render"
	"friendfeed/internal/session"

	"github.com/gofiber/fiber/v2"
)

const friendsPath = "/friends"

// friendsController builds the controller for this request and drops cards whose
// exit animation finished since the last request.
func (s *Server) friendsController(c *fiber.Ctx, st *session.State) *friends.Controller {
	ctl := friends.New(s.caller(c, st), friends.Options{
		Notifier:    s.toasts,
		CardDelay:   s.config.RequestCardDelay(),
		Fade:        s.config.Fade(),
		LocalCancel: s.flags.Enabled(featureflags.LocalRequestCancel, s.username(c, st)),
		Now:         s.now,
	})
	ctl.Prune(&st.Friends)
	return ctl
}

func (s *Server) replyFriends(c *fiber.Ctx, st *session.State, ctl *friends.Controller, err error, fragments ...string) error {
	view := render.NewFriendsView(&st.Friends, s.username(c, st), s.now(), render.FriendsOptions{
		CardDelay:   ctl.CardDelay(),
		LocalCancel: ctl.LocalCancelEnabled(),
	})

	parts := make([]render.Part, 0, len(fragments)+1)
	for _, name := range fragments {
		switch name {
		case render.FragmentBadge:
			parts = append(parts, render.Part{Name: name, Data: view.Badge})
		case render.FragmentConfirm:
			parts = append(parts, render.Part{Name: name, Data: view.Confirm})
		default:
			parts = append(parts, render.Part{Name: name, Data: view})
		}
	}
	if len(fragments) == 0 || fragments[0] != render.PageFriends {
		parts = append(parts, render.Part{Name: render.FragmentToast, Data: view.Toast})
	}

	return s.send(c, reply{
		path:      friendsPath,
		model:     &st.Friends,
		page:      render.Part{Name: render.PageFriends, Data: view},
		fragments: parts,
	}, err)
}

// FriendsPage refreshes the identity and all three collections and renders the page.
func (s *Server) FriendsPage(c *fiber.Ctx) error {
	st := sessionState(c)
	s.refreshIdentity(c, st)
	ctl := s.friendsController(c, st)
	// Load failures are toasted per collection; the page still renders.
	_ = ctl.LoadAll(c.UserContext(), &st.Friends)
	return s.replyFriends(c, st, ctl, nil, render.PageFriends)
}

// SetTab switches the visible section.
func (s *Server) SetTab(c *fiber.Ctx) error {
	st := sessionState(c)
	ctl := s.friendsController(c, st)
	err := ctl.SetTab(&st.Friends, c.Params("tab"))
	return s.replyFriends(c, st, ctl, err, render.PageFriends)
}

// FilterFriends applies the local name and presence filters.
func (s *Server) FilterFriends(c *fiber.Ctx) error {
	st := sessionState(c)
	ctl := s.friendsController(c, st)
	ctl.SetFilterText(&st.Friends, c.Query("q"))
	err := ctl.SetStatusFilter(&st.Friends, c.Query("status"))
	return s.replyFriends(c, st, ctl, err, render.FragmentFriendsList)
}

// SearchUsers looks for people to add.
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	st := sessionState(c)
	ctl := s.friendsController(c, st)
	err := ctl.SearchUsers(c.UserContext(), &st.Friends, c.Query("q"))
	if err == nil {
		st.Friends.Tab = friends.TabSearch
	}
	return s.replyFriends(c, st, ctl, err, render.FragmentResults)
}

// SendFriendRequest asks the backend to send a request to the posted username.
func (s *Server) SendFriendRequest(c *fiber.Ctx) error {
	st := sessionState(c)
	ctl := s.friendsController(c, st)
	var req usernameRequest
	err := parseBody(c, &req)
	if err == nil {
		err = ctl.SendFriendRequest(c.UserContext(), &st.Friends, req.Username)
	}
	return s.replyFriends(c, st, ctl, err, render.FragmentSuggestions, render.FragmentResults)
}

// RespondToFriendRequest accepts or declines an inbound request.
func (s *Server) RespondToFriendRequest(c *fiber.Ctx) error {
	st := sessionState(c)
	ctl := s.friendsController(c, st)
	var req respondRequest
	err := parseBody(c, &req)
	if err == nil {
		err = ctl.RespondToFriendRequest(c.UserContext(), &st.Friends, c.Params("username"), req.Action)
	}
	return s.replyFriends(c, st, ctl, err, render.FragmentRequests, render.FragmentBadge, render.FragmentFriendsList)
}

// CancelFriendRequest withdraws an outbound request on the page.
func (s *Server) CancelFriendRequest(c *fiber.Ctx) error {
	st := sessionState(c)
	ctl := s.friendsController(c, st)
	err := ctl.CancelFriendRequest(c.UserContext(), &st.Friends, c.Params("username"))
	return s.replyFriends(c, st, ctl, err, render.FragmentSuggestions, render.FragmentResults)
}

// RemoveFriend asks for confirmation first, then removes the friend.
func (s *Server) RemoveFriend(c *fiber.Ctx) error {
	st := sessionState(c)
	ctl := s.friendsController(c, st)
	var req removeRequest
	err := parseBody(c, &req)
	if err == nil {
		err = ctl.RemoveFriend(c.UserContext(), &st.Friends, c.Params("username"), req.Confirm)
	}
	return s.replyFriends(c, st, ctl, err, render.FragmentConfirm, render.FragmentFriendsList)
}

// CancelConfirmation closes the confirmation dialog.
func (s *Server) CancelConfirmation(c *fiber.Ctx) error {
	st := sessionState(c)
	ctl := s.friendsController(c, st)
	ctl.CancelConfirmation(&st.Friends)
	return s.replyFriends(c, st, ctl, nil, render.FragmentConfirm)
}

// DismissSuggestion hides a suggestion on the page.
func (s *Server) DismissSuggestion(c *fiber.Ctx) error {
	st := sessionState(c)
	ctl := s.friendsController(c, st)
	err := ctl.DismissSuggestion(&st.Friends, c.Params("username"))
	return s.replyFriends(c, st, ctl, err, render.FragmentSuggestions)
}

// OpenChat announces a chat with a friend.
func (s *Server) OpenChat(c *fiber.Ctx) error {
	st := sessionState(c)
	ctl := s.friendsController(c, st)
	err := ctl.OpenChat(c.UserContext(), &st.Friends, c.Params("username"))
	return s.replyFriends(c, st, ctl, err)
}
