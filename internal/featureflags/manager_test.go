package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, m.Enabled(name, 1), name)
	}
	for _, name := range []string{"b", "d", "f", "unknown"} {
		assert.False(t, m.Enabled(name, 1), name)
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,broken=x%")

	assert.True(t, m.Enabled("always", 1))
	assert.False(t, m.Enabled("never", 1))
	assert.False(t, m.Enabled("broken", 1))

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", 42), "rollout must be deterministic per user")
	}
	assert.False(t, m.Enabled("canary", 0), "percentage rollout requires a user")

	enabled := 0
	for id := uint(1); id <= 1000; id++ {
		if m.Enabled("canary", id) {
			enabled++
		}
	}
	assert.InDelta(t, 250, enabled, 80)
}

func TestDefaultsAndOverrides(t *testing.T) {
	m := NewManager("")
	assert.True(t, m.Enabled(MediaUploads, 1))
	assert.True(t, m.Enabled(VideoUploads, 1))
	assert.True(t, m.Enabled(FollowerLists, 1))

	m = NewManager("video_uploads=off, FOLLOWER_LISTS = Off")
	assert.True(t, m.Enabled(MediaUploads, 1))
	assert.False(t, m.Enabled(VideoUploads, 1))
	assert.False(t, m.Enabled(FollowerLists, 1))

	var nilManager *Manager
	assert.False(t, nilManager.Enabled(MediaUploads, 1))
}

func TestParseAndSnapshot(t *testing.T) {
	m := NewManager(" bad ,x=on, y = 20% ,z=off, =on, w= ")

	raw := m.Raw()
	assert.Len(t, raw, 3+len(defaults))
	assert.Equal(t, "on", raw["x"])
	assert.Equal(t, "20%", raw["y"])
	assert.Equal(t, "off", raw["z"])

	raw["x"] = "off"
	assert.True(t, m.Enabled("x", 1), "Raw must return a copy")

	snap := m.Snapshot(123)
	assert.Len(t, snap, 3+len(defaults))
	assert.True(t, snap[MediaUploads])
}
