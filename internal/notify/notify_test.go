package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"friendfeed/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishToast(ctx context.Context, sessionID string, payload []byte) error {
	args := m.Called(ctx, sessionID, payload)
	return args.Error(0)
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestNotifier_ShowReplacesCurrentToast(t *testing.T) {
	t.Parallel()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	n := NewNotifier(5*time.Second, WithClock(fixedClock(start)))

	var box Box
	first := n.Show(context.Background(), &box, "friends", "one", Info)
	second := n.Show(context.Background(), &box, "friends", "two", Success)

	require.NotNil(t, box.Current)
	assert.Equal(t, second.ID, box.Current.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "two", box.Active(start).Message)
}

func TestBox_ActiveExpires(t *testing.T) {
	t.Parallel()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	n := NewNotifier(5*time.Second, WithClock(fixedClock(start)))

	var box Box
	n.Show(context.Background(), &box, "timeline", "saved", Success)

	assert.NotNil(t, box.Active(start.Add(4999*time.Millisecond)))
	assert.Nil(t, box.Active(start.Add(5*time.Second)))
}

func TestBox_DismissIgnoresStaleID(t *testing.T) {
	t.Parallel()
	n := NewNotifier(time.Minute)

	var box Box
	old := n.Show(context.Background(), &box, "timeline", "old", Info)
	current := n.Show(context.Background(), &box, "timeline", "new", Info)

	assert.False(t, box.Dismiss(old.ID))
	assert.Equal(t, current.ID, box.Current.ID)
	assert.True(t, box.Dismiss(current.ID))
	assert.Nil(t, box.Current)

	var empty *Box
	assert.False(t, empty.Dismiss("x"))
	assert.Nil(t, empty.Active(time.Now()))
}

func TestSeverity(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in    string
		want  Severity
		icon  string
		color string
	}{
		{"success", Success, "check-circle", "#42b883"},
		{"WARNING", Warning, "exclamation-triangle", "#f39c12"},
		{"error", Error, "times-circle", "#e74c3c"},
		{"info", Info, "info-circle", "#0e4bf1"},
		{"shout", Info, "info-circle", "#0e4bf1"},
	}
	for _, tt := range tests {
		s := ParseSeverity(tt.in)
		assert.Equal(t, tt.want, s)
		assert.Equal(t, tt.icon, s.Icon())
		assert.Equal(t, tt.color, s.Color())
	}
}

func TestNotifier_PublishesToSession(t *testing.T) {
	t.Parallel()
	pub := new(mockPublisher)
	pub.On("PublishToast", mock.Anything, "sess-1", mock.Anything).Return(errors.New("redis down")).Once()

	n := NewNotifier(time.Second, WithPublisher(pub))
	ctx := observability.WithSessionID(context.Background(), "sess-1")

	var box Box
	toast := n.Show(ctx, &box, "friends", "hi", Warning)

	pub.AssertExpectations(t)
	payload := pub.Calls[0].Arguments.Get(2).([]byte)
	var ev struct {
		Type    string `json:"type"`
		Payload Toast  `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(payload, &ev))
	assert.Equal(t, EventToast, ev.Type)
	assert.Equal(t, toast.ID, ev.Payload.ID)
	assert.Equal(t, Warning, ev.Payload.Severity)
	assert.Equal(t, "friends", ev.Payload.Page)

	// Without a session there is nobody to push to.
	n.Show(context.Background(), &box, "friends", "quiet", Info)
	pub.AssertNumberOfCalls(t, "PublishToast", 1)
}
