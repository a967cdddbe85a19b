package monitor

import (
	"context"
	"log/slog"

	"github.com/jmylchreest/softdim/internal/config"
	"github.com/jmylchreest/softdim/internal/settings"
)

// Resolver keeps the index → monitor name mapping for the current topology
// and classifies monitors for the overlay set.
//
// All methods except the query itself run on the event loop; the query runs
// in its own goroutine and its result is handed back through dispatch.
type Resolver struct {
	topology Topology
	source   IdentitySource
	settings settings.Store
	dispatch func(func())
	logger   *slog.Logger

	// names[i] is the name of monitor i; nil until the first resolution
	names []string
}

// NewResolver creates a resolver. dispatch must run its argument on the
// event loop that owns the resolver.
func NewResolver(topology Topology, source IdentitySource, s settings.Store, dispatch func(func()), logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}
	return &Resolver{
		topology: topology,
		source:   source,
		settings: s,
		dispatch: dispatch,
		logger:   logger,
	}
}

// Resolve starts one identity query. When it completes successfully the
// mapping is replaced and done is called on the event loop. A failed query
// is logged and leaves the previous mapping in place. If ctx is cancelled
// before completion is delivered, the result is dropped.
//
// Overlapping calls are allowed; each completion overwrites the mapping.
func (r *Resolver) Resolve(ctx context.Context, done func()) {
	go func() {
		identities, err := r.source.QueryMonitors(ctx)
		r.dispatch(func() {
			if ctx.Err() != nil {
				r.logger.Debug("dropping monitor resolution after shutdown")
				return
			}
			if err != nil {
				r.logger.Warn("cannot get monitor config", "error", err)
				return
			}
			r.apply(identities)
			if done != nil {
				done()
			}
		})
	}()
}

// apply maps identities onto current monitor indices.
func (r *Resolver) apply(identities []Identity) {
	names := make([]string, len(r.topology.Monitors()))
	for _, id := range identities {
		index := r.topology.MonitorForConnector(id.Connector)
		r.logger.Debug("resolved monitor", "name", id.Name, "connector", id.Connector, "index", index)
		if index >= 0 && index < len(names) {
			names[index] = id.Name
		}
	}
	r.names = names
}

// Names returns a copy of the index → name mapping, or nil if unresolved.
func (r *Resolver) Names() []string {
	if r.names == nil {
		return nil
	}
	return append([]string(nil), r.names...)
}

// Select returns the monitors that should carry an overlay under the current
// monitors setting.
//
// For built-in and external selection the resolver needs identities. If none
// are resolved yet it returns ErrNotReady. If no built-in monitor has been
// pinned, it pins the primary monitor's name and returns ErrNotReady; the
// settings change triggers the next pass.
func (r *Resolver) Select() ([]Handle, error) {
	monitors := r.topology.Monitors()
	selection := config.Monitors(r.settings.String(config.KeyMonitors))

	switch selection {
	case config.MonitorsAll:
		return monitors, nil
	case config.MonitorsBuiltin, config.MonitorsExternal:
	default:
		r.logger.Warn("unhandled monitors setting", "monitors", selection)
		return nil, ErrUnknownSelection
	}

	if r.names == nil {
		r.logger.Debug("skipping selection, monitor names not resolved yet")
		return nil, ErrNotReady
	}

	builtin := r.settings.String(config.KeyBuiltinMonitor)
	if builtin == "" {
		primary := r.topology.PrimaryIndex()
		if primary < 0 || primary >= len(r.names) || r.names[primary] == "" {
			r.logger.Debug("no built-in monitor and primary monitor unnamed", "primary", primary)
			return nil, ErrNotReady
		}
		builtin = r.names[primary]
		r.logger.Info("no built-in monitor pinned, pinning primary", "name", builtin)
		if err := r.settings.SetString(config.KeyBuiltinMonitor, builtin); err != nil {
			r.logger.Warn("failed to pin built-in monitor", "name", builtin, "error", err)
		}
		return nil, ErrNotReady
	}

	var selected []Handle
	for i, m := range monitors {
		var name string
		if i < len(r.names) {
			name = r.names[i]
		}
		isBuiltin := name == builtin
		if (selection == config.MonitorsBuiltin) == isBuiltin {
			selected = append(selected, m)
		}
	}
	return selected, nil
}
