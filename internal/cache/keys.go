package cache

import "time"

const (
	SessionKeyPrefix   = "session:"
	ToastChannelPrefix = "toasts:session:"
	RateLimitKeyPrefix = "ratelimit:"
)

// ToastChannelPattern matches every session's toast channel.
const ToastChannelPattern = ToastChannelPrefix + "*"

// DefaultSessionTTL applies when no TTL is configured.
const DefaultSessionTTL = 24 * time.Hour

func SessionKey(sessionID string) string {
	return SessionKeyPrefix + sessionID
}

func ToastChannel(sessionID string) string {
	return ToastChannelPrefix + sessionID
}

// SessionFromChannel extracts the session id from a toast channel name.
func SessionFromChannel(channel string) (string, bool) {
	if len(channel) <= len(ToastChannelPrefix) || channel[:len(ToastChannelPrefix)] != ToastChannelPrefix {
		return "", false
	}
	return channel[len(ToastChannelPrefix):], true
}

func RateLimitKey(scope, subject string) string {
	return RateLimitKeyPrefix + scope + ":" + subject
}
