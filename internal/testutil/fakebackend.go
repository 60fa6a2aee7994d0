// Package testutil provides an in-memory stand-in for the social backend API.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// FakePost mirrors the backend's post JSON.
type FakePost struct {
	ID           int64  `json:"id"`
	UserName     string `json:"user_name"`
	Content      string `json:"content"`
	Timestamp    string `json:"timestamp"`
	LikeCount    int    `json:"like_count"`
	CommentCount int    `json:"comment_count"`
}

// FakeComment mirrors the backend's comment JSON. CreatedAt may be a string or a number.
type FakeComment struct {
	ID        int64  `json:"id"`
	UserName  string `json:"user_name"`
	Content   string `json:"content"`
	CreatedAt any    `json:"created_at,omitempty"`
}

// FakeUser mirrors the backend's user JSON.
type FakeUser struct {
	ID                int64  `json:"id"`
	Username          string `json:"username"`
	Email             string `json:"email,omitempty"`
	ProfilePic        string `json:"profile_pic,omitempty"`
	Bio               string `json:"bio,omitempty"`
	Online            bool   `json:"online,omitempty"`
	IsFriend          bool   `json:"is_friend"`
	HasPendingRequest bool   `json:"has_pending_request"`
	MutualFriends     int    `json:"mutual_friends,omitempty"`
}

// Failure makes an endpoint answer with an error.
type Failure struct {
	Status  int
	Message string
	// Envelope answers {success:false,message} instead of a plain-text body.
	Envelope bool
}

// Call is one request the fake received.
type Call struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
	Cookie string
}

// FakeBackend is an httptest server that speaks the backend's API.
type FakeBackend struct {
	Server *httptest.Server

	mu          sync.Mutex
	nextID      int64
	Posts       []FakePost
	Comments    map[int64][]FakeComment
	Likes       map[int64]bool
	Friends     []FakeUser
	Requests    []FakeUser
	Suggestions []FakeUser
	Directory   []FakeUser
	Username    string
	// UseTimelineEnvelope makes /api/timeline answer {posts:[...]}.
	UseTimelineEnvelope bool

	failures map[string]Failure
	calls    []Call
}

// NewFakeBackend starts a fake backend that is closed when the test ends.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()
	f := &FakeBackend{
		nextID:   1000,
		Comments: make(map[int64][]FakeComment),
		Likes:    make(map[int64]bool),
		Username: "alice",
		failures: make(map[string]Failure),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/posts", f.listPosts)
	mux.HandleFunc("GET /api/timeline", f.timeline)
	mux.HandleFunc("POST /api/posts", f.createPost)
	mux.HandleFunc("GET /api/comments", f.listComments)
	mux.HandleFunc("POST /api/comments", f.createComment)
	mux.HandleFunc("GET /api/likes/status", f.likeStatus)
	mux.HandleFunc("POST /api/likes/toggle", f.toggleLike)
	mux.HandleFunc("GET /api/friends", f.listFriends)
	mux.HandleFunc("GET /api/friends/requests", f.listRequests)
	mux.HandleFunc("GET /api/friends/suggestions", f.listSuggestions)
	mux.HandleFunc("GET /api/friends/search", f.search)
	mux.HandleFunc("POST /api/friends/request", f.sendRequest)
	mux.HandleFunc("POST /api/friends/respond", f.respond)
	mux.HandleFunc("POST /api/friends/remove", f.remove)
	mux.HandleFunc("GET /api/user/current", f.currentUser)
	mux.HandleFunc("POST /api/logout", f.logout)

	f.Server = httptest.NewServer(f.record(mux))
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the fake's base URL.
func (f *FakeBackend) URL() string { return f.Server.URL }

// Fail makes every request to path fail until Recover is called.
func (f *FakeBackend) Fail(path string, failure Failure) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[path] = failure
}

// Recover clears the failure injected for path.
func (f *FakeBackend) Recover(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failures, path)
}

// Calls returns the requests received for path.
func (f *FakeBackend) Calls(path string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// CallCount is the number of requests received for path.
func (f *FakeBackend) CallCount(path string) int { return len(f.Calls(path)) }

// TotalCalls is the number of requests received overall.
func (f *FakeBackend) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// AddPost seeds a post and returns its id.
func (f *FakeBackend) AddPost(author, content string, likes int) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.Posts = append(f.Posts, FakePost{
		ID:        f.nextID,
		UserName:  author,
		Content:   content,
		Timestamp: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC).Format("2006-01-02 15:04:05"),
		LikeCount: likes,
	})
	return f.nextID
}

// AddComment seeds a comment on a post.
func (f *FakeBackend) AddComment(postID int64, author, content string, createdAt any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.Comments[postID] = append(f.Comments[postID], FakeComment{
		ID: f.nextID, UserName: author, Content: content, CreatedAt: createdAt,
	})
	f.bumpCommentCount(postID)
}

// SeedRandom fills the fake with n random posts, friends, requests and suggestions.
func (f *FakeBackend) SeedRandom(n int) {
	for i := 0; i < n; i++ {
		f.AddPost(gofakeit.Username(), gofakeit.Sentence(8), gofakeit.Number(0, 50))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < n; i++ {
		f.Friends = append(f.Friends, FakeUser{ID: int64(i + 1), Username: gofakeit.Username(), Online: i%2 == 0, IsFriend: true})
		f.Requests = append(f.Requests, FakeUser{ID: int64(100 + i), Username: gofakeit.Username(), ProfilePic: gofakeit.URL()})
		f.Suggestions = append(f.Suggestions, FakeUser{ID: int64(200 + i), Username: gofakeit.Username(), MutualFriends: gofakeit.Number(0, 9)})
	}
}

func (f *FakeBackend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := Call{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Cookie: r.Header.Get("Cookie")}
		if r.Body != nil && r.Method == http.MethodPost {
			_ = json.NewDecoder(r.Body).Decode(&c.Body)
		}
		f.mu.Lock()
		f.calls = append(f.calls, c)
		failure, failing := f.failures[r.URL.Path]
		f.mu.Unlock()

		if failing {
			if failure.Envelope {
				writeJSON(w, failure.Status, map[string]any{"success": false, "message": failure.Message})
				return
			}
			http.Error(w, failure.Message, failure.Status)
			return
		}
		r = r.WithContext(withCall(r.Context(), c))
		next.ServeHTTP(w, r)
	})
}

func (f *FakeBackend) listPosts(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, append([]FakePost{}, f.Posts...))
}

func (f *FakeBackend) timeline(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	posts := append([]FakePost{}, f.Posts...)
	if f.UseTimelineEnvelope {
		writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (f *FakeBackend) createPost(w http.ResponseWriter, r *http.Request) {
	body := callFrom(r.Context()).Body
	content, _ := body["content"].(string)
	if strings.TrimSpace(content) == "" {
		http.Error(w, "content is required", http.StatusBadRequest)
		return
	}
	author, _ := body["user_name"].(string)
	if author == "" {
		author = f.currentUsername()
	}
	f.AddPost(author, content, 0)
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write([]byte("Post created"))
}

func (f *FakeBackend) listComments(w http.ResponseWriter, r *http.Request) {
	postID, err := strconv.ParseInt(r.URL.Query().Get("post_id"), 10, 64)
	if err != nil {
		http.Error(w, "post_id is required", http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, append([]FakeComment{}, f.Comments[postID]...))
}

func (f *FakeBackend) createComment(w http.ResponseWriter, r *http.Request) {
	body := callFrom(r.Context()).Body
	postID, _ := body["post_id"].(float64)
	content, _ := body["content"].(string)
	author, _ := body["user_name"].(string)
	if author == "" {
		author = f.currentUsername()
	}
	f.AddComment(int64(postID), author, content, time.Now().UTC().Format("2006-01-02 15:04:05"))
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "Comment added"})
}

func (f *FakeBackend) likeStatus(w http.ResponseWriter, r *http.Request) {
	postID, _ := strconv.ParseInt(r.URL.Query().Get("post_id"), 10, 64)
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"liked": f.Likes[postID], "post_id": postID})
}

func (f *FakeBackend) toggleLike(w http.ResponseWriter, r *http.Request) {
	postID, _ := callFrom(r.Context()).Body["post_id"].(float64)
	id := int64(postID)
	f.mu.Lock()
	defer f.mu.Unlock()
	liked := !f.Likes[id]
	f.Likes[id] = liked
	for i := range f.Posts {
		if f.Posts[i].ID != id {
			continue
		}
		if liked {
			f.Posts[i].LikeCount++
		} else if f.Posts[i].LikeCount > 0 {
			f.Posts[i].LikeCount--
		}
	}
	msg := "Post unliked"
	if liked {
		msg = "Post liked"
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "liked": liked, "message": msg})
}

func (f *FakeBackend) listFriends(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"friends": append([]FakeUser{}, f.Friends...), "count": len(f.Friends)})
}

func (f *FakeBackend) listRequests(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"requests": append([]FakeUser{}, f.Requests...), "count": len(f.Requests)})
}

func (f *FakeBackend) listSuggestions(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.Suggestions))
	for _, s := range f.Suggestions {
		out = append(out, map[string]any{"username": s.Username, "mutual_friends": s.MutualFriends})
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": out, "count": len(out)})
}

func (f *FakeBackend) search(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	f.mu.Lock()
	defer f.mu.Unlock()
	var users []FakeUser
	for _, u := range append(append([]FakeUser{}, f.Directory...), f.Suggestions...) {
		if strings.Contains(strings.ToLower(u.Username), q) {
			users = append(users, u)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users, "count": len(users), "query": q, "type": "users"})
}

func (f *FakeBackend) sendRequest(w http.ResponseWriter, r *http.Request) {
	target, _ := callFrom(r.Context()).Body["target_username"].(string)
	if target == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "target_username is required"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Friend request sent"})
}

func (f *FakeBackend) respond(w http.ResponseWriter, r *http.Request) {
	body := callFrom(r.Context()).Body
	requester, _ := body["requester_username"].(string)
	action, _ := body["action"].(string)

	f.mu.Lock()
	defer f.mu.Unlock()
	idx := -1
	for i, u := range f.Requests {
		if u.Username == requester {
			idx = i
			break
		}
	}
	if idx < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "No pending request from " + requester})
		return
	}
	user := f.Requests[idx]
	f.Requests = append(f.Requests[:idx], f.Requests[idx+1:]...)
	if action == "accept" {
		user.IsFriend = true
		f.Friends = append(f.Friends, user)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Friend request " + action + "ed"})
}

func (f *FakeBackend) remove(w http.ResponseWriter, r *http.Request) {
	name, _ := callFrom(r.Context()).Body["friend_username"].(string)
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, u := range f.Friends {
		if u.Username == name {
			f.Friends = append(f.Friends[:i], f.Friends[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Friend removed"})
			return
		}
	}
	writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Not friends with " + name})
}

func (f *FakeBackend) currentUser(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Username == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Not authenticated"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "username": f.Username})
}

func (f *FakeBackend) logout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Logged out"})
}

func (f *FakeBackend) currentUsername() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Username
}

// bumpCommentCount must be called with f.mu held.
func (f *FakeBackend) bumpCommentCount(postID int64) {
	for i := range f.Posts {
		if f.Posts[i].ID == postID {
			f.Posts[i].CommentCount = len(f.Comments[postID])
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
