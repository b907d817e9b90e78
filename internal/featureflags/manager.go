// Package featureflags evaluates runtime switches from the FEATURE_FLAGS setting.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// LiveFeed turns on the /ws/feed endpoint and post_created fan-out.
const LiveFeed = "live_feed"

type flag struct {
	raw     string
	on      bool
	percent int // -1 when the flag is a plain switch
}

// Manager holds flags parsed from a comma separated key=value list,
// e.g. "live_feed=on,comment_limits=25%".
type Manager struct {
	flags   map[string]flag
	invalid []string
}

// NewManager parses raw once. Entries it cannot understand are kept in Invalid.
func NewManager(raw string) *Manager {
	m := &Manager{flags: make(map[string]flag)}

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		key, value = normalize(key), normalize(value)
		if !ok || key == "" || value == "" {
			m.invalid = append(m.invalid, pair)
			continue
		}
		f, err := parseValue(value)
		if err != nil {
			m.invalid = append(m.invalid, pair)
			continue
		}
		m.flags[key] = f
	}

	return m
}

func parseValue(value string) (flag, error) {
	switch value {
	case "on", "true", "1":
		return flag{raw: value, on: true, percent: -1}, nil
	case "off", "false", "0":
		return flag{raw: value, percent: -1}, nil
	}
	if pctRaw, ok := strings.CutSuffix(value, "%"); ok {
		pct, err := strconv.Atoi(pctRaw)
		if err != nil {
			return flag{}, err
		}
		return flag{raw: value, percent: min(max(pct, 0), 100)}, nil
	}
	return flag{}, fmt.Errorf("unsupported flag value %q", value)
}

// Enabled reports whether name is on for userID. Percentage rollouts hash
// the flag and user so a user stays in the same bucket; anonymous callers
// (userID 0) only see fully rolled out flags.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	f, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}
	switch {
	case f.percent < 0:
		return f.on
	case f.percent == 0:
		return false
	case f.percent == 100:
		return true
	case userID == 0:
		return false
	}
	return rolloutBucket(name, userID) < f.percent
}

// Names returns the configured flag names in order.
func (m *Manager) Names() []string {
	out := make([]string, 0, len(m.flags))
	for k := range m.flags {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Invalid returns the entries that were skipped while parsing.
func (m *Manager) Invalid() []string {
	return append([]string(nil), m.invalid...)
}

// Snapshot evaluates every flag for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + strconv.FormatUint(uint64(userID), 10)))
	return int(h.Sum32() % 100)
}
