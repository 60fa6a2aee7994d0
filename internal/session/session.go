// Package session keeps one view-model per browser session.
//
// A session's State stands in for what the browser page would otherwise hold in
// its markup: the loaded posts and friend cards, drafts, pending confirmations
// and the current toasts. Handlers load it, run one controller operation, render
// from it and save it back while holding the session's lock.
package session

import (
	"context"
	"errors"
	"time"

	"friendfeed/internal/friends"
	"friendfeed/internal/timeline"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Load for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// State is everything one browser session shows.
type State struct {
	ID        string         `json:"id"`
	Username  string         `json:"username,omitempty"`
	Timeline  timeline.State `json:"timeline"`
	Friends   friends.State  `json:"friends"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// New starts an empty session.
func New(now time.Time) *State {
	return &State{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
}

// Store persists session state.
type Store interface {
	Load(ctx context.Context, id string) (*State, error)
	Save(ctx context.Context, st *State) error
	Delete(ctx context.Context, id string) error
}
