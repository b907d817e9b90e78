package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabled_Switches(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, m.Enabled(name, 1), name)
	}
	for _, name := range []string{"b", "d", "f", "missing"} {
		assert.False(t, m.Enabled(name, 1), name)
	}
}

func TestEnabled_Rollout(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,over=250%")

	assert.True(t, m.Enabled("always", 0))
	assert.True(t, m.Enabled("over", 7))
	assert.False(t, m.Enabled("never", 1))
	assert.False(t, m.Enabled("canary", 0), "partial rollouts skip anonymous users")

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", 42))
	}

	enabled := 0
	for uid := uint(1); uid <= 1000; uid++ {
		if m.Enabled("canary", uid) {
			enabled++
		}
	}
	assert.InDelta(t, 250, enabled, 80)
}

func TestNewManager_Parsing(t *testing.T) {
	m := NewManager(" bad , Live_Feed = ON , y = 20% ,z=maybe,=on")

	assert.Equal(t, []string{"live_feed", "y"}, m.Names())
	assert.Equal(t, []string{"bad", "z=maybe", "=on"}, m.Invalid())
	assert.True(t, m.Enabled(LiveFeed, 0))
	assert.Len(t, m.Snapshot(123), 2)
}

func TestNilManager(t *testing.T) {
	var m *Manager
	assert.False(t, m.Enabled(LiveFeed, 1))
}
