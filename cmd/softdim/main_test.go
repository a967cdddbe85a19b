package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/softdim/internal/config"
)

func TestParseBrightness(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		current float64
		floor   float64
		want    float64
		wantErr bool
	}{
		{name: "absolute", arg: "40", current: 1, floor: 0.1, want: 0.4},
		{name: "absolute with percent sign", arg: "40%", current: 1, floor: 0.1, want: 0.4},
		{name: "relative up", arg: "+10", current: 0.5, floor: 0.1, want: 0.6},
		{name: "relative down", arg: "-5%", current: 0.5, floor: 0.1, want: 0.45},
		{name: "relative capped", arg: "+30", current: 0.9, floor: 0.1, want: 1},
		{name: "held at floor", arg: "5", current: 1, floor: 0.1, want: 0.1},
		{name: "relative held at floor", arg: "-50", current: 0.3, floor: 0.2, want: 0.2},
		{name: "out of range", arg: "150", wantErr: true},
		{name: "not a number", arg: "bright", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseBrightness(tt.arg, tt.current, tt.floor)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestGenerateStatus(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*config.Settings)
		wantText  string
		wantClass string
	}{
		{
			name:      "full brightness",
			mutate:    func(s *config.Settings) {},
			wantText:  "100%",
			wantClass: "full",
		},
		{
			name:      "dimmed",
			mutate:    func(s *config.Settings) { s.CurrentBrightness = 0.6 },
			wantText:  "60%",
			wantClass: "dimmed",
		},
		{
			name: "disabled wins",
			mutate: func(s *config.Settings) {
				s.CurrentBrightness = 0.6
				s.Enabled = false
			},
			wantText:  "60%",
			wantClass: "disabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := config.DefaultSettings()
			tt.mutate(s)

			status := generateStatus(s, time.Time{})
			assert.Equal(t, tt.wantText, status.Text)
			assert.Equal(t, tt.wantClass, status.Class)
			assert.Equal(t, tt.wantClass, status.Alt)
			assert.NotContains(t, status.Tooltip, "Changed")
		})
	}
}

func TestGenerateStatus_Tooltip(t *testing.T) {
	s := config.DefaultSettings()
	s.CurrentBrightness = 0.5
	s.UseBacklight = true
	s.Monitors = "external"

	status := generateStatus(s, time.Now().Add(-3*time.Minute))
	assert.Contains(t, status.Tooltip, "Brightness: 50% (min 10%)")
	assert.Contains(t, status.Tooltip, "Backend: backlight")
	assert.Contains(t, status.Tooltip, "Monitors: external")
	assert.Contains(t, status.Tooltip, "Changed 3 minutes ago")
	assert.Equal(t, 50, status.Percentage)
}

func TestWriteSettings(t *testing.T) {
	s := config.DefaultSettings()

	t.Run("plain single key prints the bare value", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeSettings(&buf, s, []config.Key{config.KeyMonitors}, "plain"))
		assert.Equal(t, "all\n", buf.String())
	})

	t.Run("plain lists every key", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeSettings(&buf, s, config.Keys(), "plain"))
		assert.Contains(t, buf.String(), "min-brightness = 0.1\n")
		assert.Contains(t, buf.String(), "enabled = true\n")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeSettings(&buf, s, config.Keys(), "json"))
		var got map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "when-correcting", got["prevent-unredirect"])
		assert.Equal(t, 0.1, got["min-brightness"])
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeSettings(&buf, s, []config.Key{config.KeyUseBacklight}, "yaml"))
		var got map[string]any
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, false, got["use-backlight"])
	})

	t.Run("unknown format", func(t *testing.T) {
		var buf bytes.Buffer
		assert.Error(t, writeSettings(&buf, s, config.Keys(), "xml"))
	})
}
