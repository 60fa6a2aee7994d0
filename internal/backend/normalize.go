package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"friendfeed/internal/models"
)

// flexInt accepts a JSON number, a numeric string, or null.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("flexInt: %q is not an integer", s)
		}
		*f = flexInt(n)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*f = flexInt(i)
		return nil
	}
	v, err := n.Float64()
	if err != nil {
		return err
	}
	*f = flexInt(int64(v))
	return nil
}

type wirePost struct {
	ID           flexInt `json:"id"`
	UserName     string  `json:"user_name"`
	Username     string  `json:"username"`
	Content      string  `json:"content"`
	Timestamp    string  `json:"timestamp"`
	CreatedAt    string  `json:"created_at"`
	LikeCount    flexInt `json:"like_count"`
	CommentCount flexInt `json:"comment_count"`
}

func (w wirePost) record() models.Post {
	created := w.Timestamp
	if created == "" {
		created = w.CreatedAt
	}
	count := int(w.LikeCount)
	if count < 0 {
		count = 0
	}
	comments := int(w.CommentCount)
	if comments < 0 {
		comments = 0
	}
	return models.Post{
		ID:           int64(w.ID),
		Author:       firstNonEmpty(w.UserName, w.Username),
		Content:      w.Content,
		LikeCount:    count,
		CommentCount: comments,
		CreatedAt:    created,
	}
}

type wireComment struct {
	ID        flexInt         `json:"id"`
	PostID    flexInt         `json:"post_id"`
	UserName  string          `json:"user_name"`
	Username  string          `json:"username"`
	Content   string          `json:"content"`
	CreatedAt json.RawMessage `json:"created_at"`
}

func (w wireComment) record(postID int64) models.Comment {
	posted, raw := ParseTimestamp(w.CreatedAt)
	if w.PostID != 0 {
		postID = int64(w.PostID)
	}
	return models.Comment{
		ID:           int64(w.ID),
		PostID:       postID,
		Author:       firstNonEmpty(w.UserName, w.Username),
		Content:      w.Content,
		Posted:       posted,
		RawCreatedAt: raw,
	}
}

type wireUser struct {
	Username          string  `json:"username"`
	UserName          string  `json:"user_name"`
	DisplayName       string  `json:"display_name"`
	Name              string  `json:"name"`
	ProfilePic        string  `json:"profile_pic"`
	ProfileImage      string  `json:"profile_image"`
	Bio               string  `json:"bio"`
	Online            bool    `json:"online"`
	IsOnline          bool    `json:"is_online"`
	IsFriend          bool    `json:"is_friend"`
	HasPendingRequest bool    `json:"has_pending_request"`
	MutualFriends     flexInt `json:"mutual_friends"`
}

func (w wireUser) username() string { return firstNonEmpty(w.Username, w.UserName) }

func (w wireUser) displayName() string {
	return firstNonEmpty(w.DisplayName, w.Name, w.username())
}

func (w wireUser) friend() models.Friend {
	return models.Friend{
		Username:    w.username(),
		DisplayName: w.displayName(),
		Online:      w.Online || w.IsOnline,
	}
}

func (w wireUser) request() models.FriendRequest {
	return models.FriendRequest{
		Username:     w.username(),
		ProfileImage: firstNonEmpty(w.ProfileImage, w.ProfilePic),
	}
}

func (w wireUser) suggestion() models.Suggestion {
	return models.Suggestion{
		Username:      w.username(),
		DisplayName:   w.displayName(),
		MutualFriends: int(w.MutualFriends),
	}
}

func (w wireUser) result() models.UserResult {
	return models.UserResult{
		Username:          w.username(),
		DisplayName:       w.displayName(),
		ProfileImage:      firstNonEmpty(w.ProfileImage, w.ProfilePic),
		Bio:               w.Bio,
		IsFriend:          w.IsFriend,
		HasPendingRequest: w.HasPendingRequest,
	}
}

// decodeList reads either a bare JSON array or an object holding the array under key.
// count is the envelope's "count" when present, else the list length.
func decodeList[T any](body []byte, key string) ([]T, int, error) {
	body = bytes.TrimSpace(body)
	var items []T
	if len(body) == 0 || string(body) == "null" {
		return items, 0, nil
	}
	if body[0] == '[' {
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, 0, err
		}
		return items, len(items), nil
	}

	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, 0, err
	}
	if raw, ok := env[key]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, 0, fmt.Errorf("field %q: %w", key, err)
		}
	}
	count := len(items)
	if raw, ok := env["count"]; ok {
		var n flexInt
		if err := json.Unmarshal(raw, &n); err == nil && n >= 0 {
			count = int(n)
		}
	}
	return items, count, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp interprets a backend timestamp. Numbers are epoch seconds. Strings get their
// first space replaced by "T" and are read as RFC 3339 or zone-less ISO in UTC.
// raw is the original value as text; posted is zero when it cannot be parsed.
func ParseTimestamp(value json.RawMessage) (posted time.Time, raw string) {
	value = bytes.TrimSpace(value)
	if len(value) == 0 || string(value) == "null" {
		return time.Time{}, ""
	}
	if value[0] != '"' {
		var secs float64
		if err := json.Unmarshal(value, &secs); err != nil {
			return time.Time{}, string(value)
		}
		whole := int64(secs)
		nanos := int64((secs - float64(whole)) * float64(time.Second))
		return time.Unix(whole, nanos).UTC(), string(value)
	}

	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return time.Time{}, string(value)
	}
	iso := strings.Replace(strings.TrimSpace(s), " ", "T", 1)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, iso, time.UTC); err == nil {
			return t.UTC(), s
		}
	}
	return time.Time{}, s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
