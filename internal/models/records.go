// Package models holds the view records rendered by the timeline and friends pages.
package models

import "time"

// Post is one feed entry.
type Post struct {
	ID           int64  `json:"id"`
	Author       string `json:"author"`
	Content      string `json:"content"`
	LikeCount    int    `json:"like_count"`
	CommentCount int    `json:"comment_count"`
	CreatedAt    string `json:"created_at"`
}

// Comment belongs to a post. Posted is zero when the backend timestamp could not be parsed,
// in which case CreatedAt shows RawCreatedAt verbatim.
type Comment struct {
	ID           int64     `json:"id"`
	PostID       int64     `json:"post_id"`
	Author       string    `json:"author"`
	Content      string    `json:"content"`
	Posted       time.Time `json:"posted,omitzero"`
	RawCreatedAt string    `json:"raw_created_at,omitempty"`
	CreatedAt    string    `json:"created_at"`
}

// Friend is an accepted connection of the current user.
type Friend struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Online      bool   `json:"online"`
}

// FriendRequest is an inbound request awaiting a response.
type FriendRequest struct {
	Username     string `json:"username"`
	ProfileImage string `json:"profile_image,omitempty"`
}

// Suggestion is a user the current user may want to befriend.
type Suggestion struct {
	Username      string `json:"username"`
	DisplayName   string `json:"display_name"`
	MutualFriends int    `json:"mutual_friends"`
}

// UserResult is one row of a user search.
type UserResult struct {
	Username          string `json:"username"`
	DisplayName       string `json:"display_name"`
	ProfileImage      string `json:"profile_image,omitempty"`
	Bio               string `json:"bio,omitempty"`
	IsFriend          bool   `json:"is_friend"`
	HasPendingRequest bool   `json:"has_pending_request"`
}
