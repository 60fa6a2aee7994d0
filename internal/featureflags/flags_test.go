package featureflags

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled_OnOff(t *testing.T) {
	s := Parse("a=on,b=off,c=true,d=false,e=1,f=0,g=maybe")

	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, s.Enabled(name, "alice"), name)
	}
	for _, name := range []string{"b", "d", "f", "g", "missing"} {
		assert.False(t, s.Enabled(name, "alice"), name)
	}
}

func TestEnabled_Rollout(t *testing.T) {
	s := Parse("always=100%,never=0%,canary=25%,broken=x%")

	assert.True(t, s.Enabled("always", ""))
	assert.False(t, s.Enabled("never", "alice"))
	assert.False(t, s.Enabled("broken", "alice"))
	assert.False(t, s.Enabled("canary", ""), "partial rollout needs a user")

	first := s.Enabled("canary", "alice")
	for range 5 {
		assert.Equal(t, first, s.Enabled("CANARY", "alice"))
	}

	on := 0
	for i := range 1000 {
		if s.Enabled("canary", fmt.Sprintf("user-%d", i)) {
			on++
		}
	}
	assert.InDelta(t, 250, on, 80)
}

func TestParse_SkipsMalformedPairs(t *testing.T) {
	s := Parse(" bad ,Timeline_Feed=ON, y = 20% ,=on,z=")

	assert.Equal(t, map[string]string{"timeline_feed": "on", "y": "20%"}, s.Raw())
	assert.Equal(t, []string{"timeline_feed", "y"}, s.Names())
}

func TestFor_IncludesKnownFlags(t *testing.T) {
	got := Parse("timeline_feed=on,extra=off").For("alice")

	assert.Equal(t, map[string]bool{
		TimelineFeed:       true,
		LocalRequestCancel: false,
		"extra":            false,
	}, got)

	var nilSet *Set
	assert.False(t, nilSet.Enabled(TimelineFeed, "alice"))
	assert.Empty(t, nilSet.Raw())
}
