package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    command
		wantErr bool
	}{
		{"up", []string{"up"}, command{name: "up"}, false},
		{"case and spaces", []string{" Status "}, command{name: "status"}, false},
		{"auto", []string{"auto"}, command{name: "auto"}, false},
		{"down with version", []string{"down", "2"}, command{name: "down", version: 2}, false},
		{"down without version", []string{"down"}, command{}, true},
		{"down with zero", []string{"down", "0"}, command{}, true},
		{"down with text", []string{"down", "latest"}, command{}, true},
		{"down with extra", []string{"down", "1", "2"}, command{}, true},
		{"up with extra", []string{"up", "3"}, command{}, true},
		{"unknown", []string{"sideways"}, command{}, true},
		{"empty", nil, command{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCommand(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
