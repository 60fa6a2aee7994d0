// Package featureflags turns the FEATURE_FLAGS setting into per-user switches.
//
// The setting is a comma separated list of name=value pairs, for example
// "timeline_feed=25%,local_request_cancel=off". Values are on/off (also
// true/false and 1/0) or a percentage rolled out deterministically by username.
package featureflags

import (
	"hash/fnv"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Flags read by the page controllers.
const (
	// TimelineFeed reads the personal /api/timeline feed instead of /api/posts.
	TimelineFeed = "timeline_feed"
	// LocalRequestCancel lets users withdraw outbound requests on the page only.
	LocalRequestCancel = "local_request_cancel"
)

// Known lists every flag the service understands.
var Known = []string{TimelineFeed, LocalRequestCancel}

// Set holds parsed flag values.
type Set struct {
	values map[string]string
}

// Parse reads a FEATURE_FLAGS value. Malformed pairs are skipped.
func Parse(raw string) *Set {
	values := make(map[string]string)
	for pair := range strings.SplitSeq(raw, ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name, value = normalize(name), normalize(value)
		if name == "" || value == "" {
			continue
		}
		values[name] = value
	}
	return &Set{values: values}
}

// Enabled reports whether name is on for username. Unknown flags are off, and a
// partial rollout is off for anonymous users.
func (s *Set) Enabled(name, username string) bool {
	if s == nil {
		return false
	}
	value, ok := s.values[normalize(name)]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	switch {
	case err != nil || pct <= 0:
		return false
	case pct >= 100:
		return true
	case username == "":
		return false
	}
	return bucket(name, username) < pct
}

// Names returns the configured flag names, sorted.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(s.values))
}

// Raw returns a copy of the configured values.
func (s *Set) Raw() map[string]string {
	if s == nil {
		return map[string]string{}
	}
	return maps.Clone(s.values)
}

// For evaluates every known and configured flag for username.
func (s *Set) For(username string) map[string]bool {
	out := make(map[string]bool, len(Known))
	for _, name := range Known {
		out[name] = s.Enabled(name, username)
	}
	for _, name := range s.Names() {
		out[name] = s.Enabled(name, username)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name, username string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + username))
	return int(h.Sum32() % 100)
}
