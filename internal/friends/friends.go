// Package friends drives the friends page: the friend list, inbound requests,
// suggestions and user search.
package friends

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"friendfeed/internal/backend"
	"friendfeed/internal/models"
	"friendfeed/internal/notify"
	"friendfeed/internal/observability"
)

// Page names the toast slot owned by the friends page.
const Page = "friends"

// Request actions understood by the backend.
const (
	ActionAccept = "accept"
	ActionReject = "reject"
)

// Default card timings.
const (
	DefaultCardDelay = time.Second
	DefaultFade      = 300 * time.Millisecond
)

var (
	ErrEmptyUsername        = models.NewValidationError("username must not be empty")
	ErrInvalidAction        = models.NewValidationError("action must be accept or reject")
	ErrUnknownTab           = models.NewValidationError("unknown tab")
	ErrInvalidFilter        = models.NewValidationError("status filter must be all or online")
	ErrRequestResolved      = models.NewValidationError("friend request already answered")
	ErrUnknownRequest       = &models.AppError{Code: models.CodeNotFound, Message: "friend request not found"}
	ErrUnknownFriend        = &models.AppError{Code: models.CodeNotFound, Message: "friend not found"}
	ErrUnknownSuggestion    = &models.AppError{Code: models.CodeNotFound, Message: "suggestion not found"}
	ErrFeatureDisabled      = &models.AppError{Code: models.CodeNotFound, Message: "feature not enabled"}
	ErrConfirmationRequired = &models.AppError{Code: models.CodeConfirmationRequired, Message: "confirmation required"}
)

// API is the slice of the backend the friends page needs.
type API interface {
	ListFriends(ctx context.Context) ([]models.Friend, error)
	ListFriendRequests(ctx context.Context) ([]models.FriendRequest, int, error)
	ListSuggestions(ctx context.Context) ([]models.Suggestion, error)
	SearchUsers(ctx context.Context, query string) ([]models.UserResult, error)
	SendFriendRequest(ctx context.Context, username string) error
	RemoveFriend(ctx context.Context, username string) error
	RespondToFriendRequest(ctx context.Context, username, action string) error
}

// Options configure a Controller.
type Options struct {
	Notifier *notify.Notifier
	// CardDelay is how long a resolved request shows its label before fading.
	CardDelay time.Duration
	Fade      time.Duration
	// LocalCancel enables cancelling outbound requests on the page only.
	LocalCancel bool
	Now         func() time.Time
}

// Controller runs friends-page operations for one user.
type Controller struct {
	api         API
	notifier    *notify.Notifier
	delay       time.Duration
	fade        time.Duration
	localCancel bool
	now         func() time.Time
	log         *slog.Logger
}

// New creates a Controller calling api.
func New(api API, opts Options) *Controller {
	c := &Controller{
		api:         api,
		notifier:    opts.Notifier,
		delay:       opts.CardDelay,
		fade:        opts.Fade,
		localCancel: opts.LocalCancel,
		now:         opts.Now,
		log:         observability.GlobalLogger.With(slog.String("component", "friends")),
	}
	if c.notifier == nil {
		c.notifier = notify.NewNotifier(notify.DefaultTTL)
	}
	if c.delay <= 0 {
		c.delay = DefaultCardDelay
	}
	if c.fade <= 0 {
		c.fade = DefaultFade
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// CardDelay and Fade expose the timings the renderer animates with.
func (c *Controller) CardDelay() time.Duration { return c.delay }
func (c *Controller) Fade() time.Duration      { return c.fade }

// LocalCancelEnabled reports whether outbound requests can be cancelled.
func (c *Controller) LocalCancelEnabled() bool { return c.localCancel }

// Prune removes cards whose exit animation is over.
func (c *Controller) Prune(st *State) {
	st.Prune(c.now(), c.delay, c.fade)
}

// LoadAll loads the three collections shown on the page. Each failure is toasted
// on its own; the first error is returned.
func (c *Controller) LoadAll(ctx context.Context, st *State) error {
	// Outbound requests are only known from the backend's search answers; a reload
	// forgets the ones sent from this page.
	st.Sent = nil
	for _, r := range st.Results {
		if r.HasPendingRequest {
			st.markSent(r.Username)
		}
	}

	var first error
	for _, load := range []func(context.Context, *State) error{
		c.LoadFriends, c.LoadFriendRequests, c.LoadFriendSuggestions,
	} {
		if err := load(ctx, st); err != nil && first == nil {
			first = err
		}
	}
	st.LoadedAt = c.now()
	return first
}

// LoadFriends replaces the friend list.
func (c *Controller) LoadFriends(ctx context.Context, st *State) error {
	if err := c.fetchFriends(ctx, st); err != nil {
		c.fail(ctx, st, "load friends", err, "Failed to load friends")
		return err
	}
	return nil
}

func (c *Controller) fetchFriends(ctx context.Context, st *State) error {
	friends, err := c.api.ListFriends(ctx)
	if err != nil {
		return fmt.Errorf("load friends: %w", err)
	}
	cards := make([]FriendCard, len(friends))
	for i, f := range friends {
		cards[i] = FriendCard{Friend: f}
	}
	st.Friends = cards
	return nil
}

// LoadFriendRequests replaces the inbound requests and resets the badge to the
// server's pending count.
func (c *Controller) LoadFriendRequests(ctx context.Context, st *State) error {
	requests, count, err := c.api.ListFriendRequests(ctx)
	if err != nil {
		err = fmt.Errorf("load friend requests: %w", err)
		c.fail(ctx, st, "load friend requests", err, "Failed to load friend requests")
		return err
	}
	cards := make([]RequestCard, len(requests))
	for i, r := range requests {
		cards[i] = RequestCard{FriendRequest: r, Status: RequestPending}
	}
	st.Requests = cards
	st.Badge.Count = max(0, count)
	return nil
}

// LoadFriendSuggestions replaces the suggestions. Dismissed cards come back.
func (c *Controller) LoadFriendSuggestions(ctx context.Context, st *State) error {
	suggestions, err := c.api.ListSuggestions(ctx)
	if err != nil {
		err = fmt.Errorf("load suggestions: %w", err)
		c.fail(ctx, st, "load suggestions", err, "Failed to load suggestions")
		return err
	}
	cards := make([]SuggestionCard, len(suggestions))
	for i, s := range suggestions {
		cards[i] = SuggestionCard{Suggestion: s}
	}
	st.Suggestions = cards
	return nil
}

// SendFriendRequest asks username to be friends. A repeat for a username that
// already has a request from this page does nothing.
func (c *Controller) SendFriendRequest(ctx context.Context, st *State, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrEmptyUsername
	}
	if st.RequestSent(username) {
		return nil
	}

	if err := c.api.SendFriendRequest(ctx, username); err != nil {
		c.log.ErrorContext(ctx, "send friend request",
			slog.String("target", username), slog.String("error", err.Error()))
		c.notifier.Show(ctx, &st.Toast, Page,
			backend.Message(err, "Failed to send friend request"), notify.Error)
		return fmt.Errorf("send friend request: %w", err)
	}

	st.markSent(username)
	c.notifier.Show(ctx, &st.Toast, Page, fmt.Sprintf("Friend request sent to %s!", username), notify.Success)
	return nil
}

// RespondToFriendRequest accepts or rejects the pending request from username.
// An accepted friend shows up through a fresh friend list.
func (c *Controller) RespondToFriendRequest(ctx context.Context, st *State, username, action string) error {
	action = strings.ToLower(strings.TrimSpace(action))
	if action != ActionAccept && action != ActionReject {
		return ErrInvalidAction
	}
	card := st.request(username)
	if card == nil {
		return fmt.Errorf("request from %q: %w", username, ErrUnknownRequest)
	}
	if !card.Pending() {
		return fmt.Errorf("request from %q: %w", username, ErrRequestResolved)
	}

	if err := c.api.RespondToFriendRequest(ctx, username, action); err != nil {
		c.log.ErrorContext(ctx, "respond to friend request",
			slog.String("requester", username), slog.String("action", action), slog.String("error", err.Error()))
		c.notifier.Show(ctx, &st.Toast, Page,
			backend.Message(err, "Failed to respond to friend request"), notify.Error)
		return fmt.Errorf("respond to friend request: %w", err)
	}

	card.ResolvedAt = c.now()
	st.Badge.decrement()
	if action == ActionReject {
		card.Status = RequestDeclined
		c.notifier.Show(ctx, &st.Toast, Page, fmt.Sprintf("Friend request from %s declined.", username), notify.Info)
		return nil
	}

	card.Status = RequestAccepted
	if err := c.fetchFriends(ctx, st); err != nil {
		c.log.WarnContext(ctx, "reload friends after accept", slog.String("error", err.Error()))
	}
	c.notifier.Show(ctx, &st.Toast, Page, fmt.Sprintf("You are now friends with %s!", username), notify.Success)
	return nil
}

// RemoveFriend ends a friendship. The first call only records a pending
// confirmation and returns ErrConfirmationRequired; the backend is called once
// confirmed is true.
func (c *Controller) RemoveFriend(ctx context.Context, st *State, username string, confirmed bool) error {
	card := st.friend(username)
	if card == nil || card.Leaving() {
		return fmt.Errorf("friend %q: %w", username, ErrUnknownFriend)
	}
	if !confirmed {
		st.Confirm = &Confirmation{
			Action:   "remove",
			Username: username,
			Message:  fmt.Sprintf("Are you sure you want to remove %s from your friends?", card.DisplayName),
		}
		return ErrConfirmationRequired
	}
	st.Confirm = nil

	if err := c.api.RemoveFriend(ctx, username); err != nil {
		c.log.ErrorContext(ctx, "remove friend", slog.String("friend", username), slog.String("error", err.Error()))
		c.notifier.Show(ctx, &st.Toast, Page, backend.Message(err, "Failed to remove friend"), notify.Error)
		return fmt.Errorf("remove friend: %w", err)
	}

	card.LeavingAt = c.now()
	delete(st.Sent, username)
	c.notifier.Show(ctx, &st.Toast, Page, fmt.Sprintf("%s was removed from your friends.", card.DisplayName), notify.Success)
	return nil
}

// CancelConfirmation closes a pending confirmation dialog.
func (c *Controller) CancelConfirmation(st *State) {
	st.Confirm = nil
}

// SearchUsers replaces the search results. Users who already have a request
// from the current user are marked as sent.
func (c *Controller) SearchUsers(ctx context.Context, st *State, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		c.notifier.Show(ctx, &st.Toast, Page, "Please enter search criteria.", notify.Warning)
		return nil
	}

	results, err := c.api.SearchUsers(ctx, query)
	if err != nil {
		err = fmt.Errorf("search users: %w", err)
		c.fail(ctx, st, "search users", err, "Search failed")
		return err
	}

	st.Query = query
	st.Results = results
	for _, r := range results {
		if r.HasPendingRequest {
			st.markSent(r.Username)
		} else {
			delete(st.Sent, r.Username)
		}
	}
	c.notifier.Show(ctx, &st.Toast, Page,
		fmt.Sprintf("Search completed! Found %d potential friends.", len(results)), notify.Success)
	return nil
}

// SetTab switches the visible section.
func (c *Controller) SetTab(st *State, tab string) error {
	t, err := ParseTab(tab)
	if err != nil {
		return err
	}
	st.Tab = t
	return nil
}

// SetFilterText narrows the friend list by name.
func (c *Controller) SetFilterText(st *State, text string) {
	st.Filter.Text = strings.TrimSpace(text)
}

// SetStatusFilter narrows the friend list by presence. Blank means all.
func (c *Controller) SetStatusFilter(st *State, status string) error {
	switch StatusFilter(strings.ToLower(strings.TrimSpace(status))) {
	case "", StatusAll:
		st.Filter.Status = StatusAll
	case StatusOnline:
		st.Filter.Status = StatusOnline
	default:
		return ErrInvalidFilter
	}
	return nil
}

// DismissSuggestion fades a suggestion out. Nothing is sent to the backend.
func (c *Controller) DismissSuggestion(st *State, username string) error {
	card := st.suggestion(username)
	if card == nil {
		return fmt.Errorf("suggestion %q: %w", username, ErrUnknownSuggestion)
	}
	card.DismissedAt = c.now()
	return nil
}

// OpenChat tells the user a chat with username is being opened.
func (c *Controller) OpenChat(ctx context.Context, st *State, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ErrEmptyUsername
	}
	name := username
	if card := st.friend(username); card != nil && card.DisplayName != "" {
		name = card.DisplayName
	}
	c.notifier.Show(ctx, &st.Toast, Page, fmt.Sprintf("Opening chat with %s...", name), notify.Info)
	return nil
}

// CancelFriendRequest withdraws an outbound request on this page only. The
// backend has no cancel endpoint, so the request itself stays open there.
func (c *Controller) CancelFriendRequest(ctx context.Context, st *State, username string) error {
	if !c.localCancel {
		return ErrFeatureDisabled
	}
	username = strings.TrimSpace(username)
	if !st.RequestSent(username) {
		return fmt.Errorf("request to %q: %w", username, ErrUnknownRequest)
	}
	delete(st.Sent, username)
	c.notifier.Show(ctx, &st.Toast, Page, fmt.Sprintf("Friend request to %s cancelled.", username), notify.Info)
	return nil
}

func (c *Controller) fail(ctx context.Context, st *State, op string, err error, fallback string) {
	c.log.ErrorContext(ctx, op, slog.String("error", err.Error()))
	c.notifier.Show(ctx, &st.Toast, Page, fallback, notify.Error)
}
