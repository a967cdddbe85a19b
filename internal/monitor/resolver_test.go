package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/softdim/internal/config"
	"github.com/jmylchreest/softdim/internal/settings"
)

type fakeTopology struct {
	monitors []Handle
	primary  int
}

func (f *fakeTopology) Monitors() []Handle { return f.monitors }
func (f *fakeTopology) PrimaryIndex() int  { return f.primary }
func (f *fakeTopology) MonitorForConnector(connector string) int {
	for _, m := range f.monitors {
		if m.Connector == connector {
			return m.Index
		}
	}
	return -1
}

type fakeSource struct {
	identities []Identity
	err        error
}

func (f *fakeSource) QueryMonitors(ctx context.Context) ([]Identity, error) {
	return f.identities, f.err
}

// loop collects dispatched callbacks so tests control when they run.
type loop struct {
	ch chan func()
}

func newLoop() *loop {
	return &loop{ch: make(chan func(), 16)}
}

func (l *loop) dispatch(fn func()) {
	l.ch <- fn
}

func (l *loop) runOne(t *testing.T) {
	t.Helper()
	select {
	case fn := <-l.ch:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatched callback")
	}
}

func twoMonitors() *fakeTopology {
	return &fakeTopology{
		monitors: []Handle{
			{Index: 0, Geometry: Rect{0, 0, 1920, 1080}, Connector: "eDP-1"},
			{Index: 1, Geometry: Rect{1920, 0, 2560, 1440}, Connector: "DP-2"},
		},
	}
}

func twoIdentities() *fakeSource {
	// Reported in a different order than the topology indices
	return &fakeSource{identities: []Identity{
		{Name: "Dell U2720Q", Connector: "DP-2"},
		{Name: "Built-in display", Connector: "eDP-1"},
		{Name: "Unplugged", Connector: "HDMI-1"},
	}}
}

func newResolver(t *testing.T, topo *fakeTopology, src *fakeSource, selection config.Monitors) (*Resolver, *settings.FileStore, *loop) {
	t.Helper()
	initial := config.DefaultSettings()
	initial.Monitors = string(selection)
	s := settings.NewMemoryStore(initial, nil)
	l := newLoop()
	return NewResolver(topo, src, s, l.dispatch, nil), s, l
}

func TestRect_String(t *testing.T) {
	assert.Equal(t, "1920x1080@0,0", Rect{0, 0, 1920, 1080}.String())
}

func TestResolver_SelectAll(t *testing.T) {
	r, _, _ := newResolver(t, twoMonitors(), twoIdentities(), config.MonitorsAll)

	selected, err := r.Select()
	require.NoError(t, err)
	assert.Len(t, selected, 2)
}

func TestResolver_NotReadyBeforeResolution(t *testing.T) {
	r, _, _ := newResolver(t, twoMonitors(), twoIdentities(), config.MonitorsBuiltin)

	_, err := r.Select()
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Nil(t, r.Names())
}

func TestResolver_ResolveMapsConnectorsToIndices(t *testing.T) {
	r, _, l := newResolver(t, twoMonitors(), twoIdentities(), config.MonitorsAll)

	var done int
	r.Resolve(context.Background(), func() { done++ })
	l.runOne(t)

	assert.Equal(t, 1, done)
	assert.Equal(t, []string{"Built-in display", "Dell U2720Q"}, r.Names())
}

func TestResolver_FailureKeepsPreviousMapping(t *testing.T) {
	src := twoIdentities()
	r, _, l := newResolver(t, twoMonitors(), src, config.MonitorsAll)

	r.Resolve(context.Background(), nil)
	l.runOne(t)
	require.Len(t, r.Names(), 2)

	src.err = errors.New("DisplayConfig unavailable")
	var done int
	r.Resolve(context.Background(), func() { done++ })
	l.runOne(t)

	assert.Equal(t, 0, done)
	assert.Equal(t, []string{"Built-in display", "Dell U2720Q"}, r.Names())
}

func TestResolver_CancelledContextDropsResult(t *testing.T) {
	r, _, l := newResolver(t, twoMonitors(), twoIdentities(), config.MonitorsAll)

	ctx, cancel := context.WithCancel(context.Background())
	var done int
	r.Resolve(ctx, func() { done++ })
	cancel()
	l.runOne(t)

	assert.Equal(t, 0, done)
	assert.Nil(t, r.Names())
}

func TestResolver_AutoPinsPrimaryThenSelects(t *testing.T) {
	r, s, l := newResolver(t, twoMonitors(), twoIdentities(), config.MonitorsBuiltin)
	r.Resolve(context.Background(), nil)
	l.runOne(t)

	var pinned int
	s.Connect(config.KeyBuiltinMonitor, func() { pinned++ })

	// First pass pins and defers
	selected, err := r.Select()
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Empty(t, selected)
	assert.Equal(t, "Built-in display", s.String(config.KeyBuiltinMonitor))
	assert.Equal(t, 1, pinned)

	// Second pass selects exactly the pinned monitor
	selected, err = r.Select()
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, 0, selected[0].Index)
	assert.Equal(t, 1, pinned)
}

func TestResolver_SelectBuiltinAndExternal(t *testing.T) {
	tests := []struct {
		selection config.Monitors
		want      []int
	}{
		{config.MonitorsBuiltin, []int{1}},
		{config.MonitorsExternal, []int{0}},
	}

	for _, tt := range tests {
		t.Run(string(tt.selection), func(t *testing.T) {
			topo := twoMonitors()
			topo.primary = 1
			r, s, l := newResolver(t, topo, twoIdentities(), tt.selection)
			require.NoError(t, s.SetString(config.KeyBuiltinMonitor, "Dell U2720Q"))
			r.Resolve(context.Background(), nil)
			l.runOne(t)

			selected, err := r.Select()
			require.NoError(t, err)
			var got []int
			for _, m := range selected {
				got = append(got, m.Index)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_UnknownSelection(t *testing.T) {
	r, _, _ := newResolver(t, twoMonitors(), twoIdentities(), config.Monitors("left-side"))

	_, err := r.Select()
	assert.ErrorIs(t, err, ErrUnknownSelection)
}

func TestResolver_UnnamedPrimaryDoesNotPin(t *testing.T) {
	src := &fakeSource{identities: []Identity{{Name: "Dell U2720Q", Connector: "DP-2"}}}
	r, s, l := newResolver(t, twoMonitors(), src, config.MonitorsBuiltin)
	r.Resolve(context.Background(), nil)
	l.runOne(t)

	_, err := r.Select()
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Empty(t, s.String(config.KeyBuiltinMonitor))
}

func TestModelName(t *testing.T) {
	tests := []struct {
		manufacturer, model, connector string
		want                           string
	}{
		{"Dell Inc.", "DELL U2720Q", "DP-2", "Dell Inc. DELL U2720Q"},
		{"", "0x0a5d", "eDP-1", "0x0a5d"},
		{"BOE ", "", "eDP-1", "BOE"},
		{"", "", "HDMI-A-1", "HDMI-A-1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ModelName(tt.manufacturer, tt.model, tt.connector))
	}
}
