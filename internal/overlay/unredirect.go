package overlay

import (
	"log/slog"

	"github.com/jmylchreest/softdim/internal/config"
	"github.com/jmylchreest/softdim/internal/settings"
)

// BypassControl toggles the compositor's direct-scanout bypass for the
// whole display.
type BypassControl interface {
	SuppressBypass() error
	AllowBypass() error
}

// Policy tracks whether bypass is suppressed and applies the
// prevent-unredirect setting on every overlay show or hide.
type Policy struct {
	control  BypassControl
	settings settings.Store
	logger   *slog.Logger

	suppressed bool
}

// NewPolicy creates a policy. A nil control makes every transition a
// bookkeeping-only change.
func NewPolicy(control BypassControl, s settings.Store, logger *slog.Logger) *Policy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{
		control:  control,
		settings: s,
		logger:   logger,
	}
}

// Suppressed reports whether bypass is currently suppressed.
func (p *Policy) Suppressed() bool {
	return p.suppressed
}

// Mode returns the configured mode, mapping unknown values to never.
func (p *Policy) Mode() config.Unredirect {
	mode := config.Unredirect(p.settings.String(config.KeyPreventUnredirect))
	switch mode {
	case config.UnredirectAlways, config.UnredirectWhenCorrecting, config.UnredirectNever:
		return mode
	}
	p.logger.Warn("unexpected prevent-unredirect value, treating as never", "prevent-unredirect", mode)
	return config.UnredirectNever
}

// Evaluate moves bypass suppression to the state the current mode wants.
// dimming is true while at least one overlay is visible with opacity above
// zero. forceRelease turns suppression off regardless of mode.
func (p *Policy) Evaluate(dimming, forceRelease bool) {
	var want bool
	switch p.Mode() {
	case config.UnredirectAlways:
		want = true
	case config.UnredirectWhenCorrecting:
		want = dimming
	}
	if forceRelease {
		want = false
	}

	if want == p.suppressed {
		return
	}
	if want {
		p.suppress()
	} else {
		p.allow()
	}
}

func (p *Policy) suppress() {
	p.logger.Debug("disabling unredirects", "prevent-unredirect", p.settings.String(config.KeyPreventUnredirect))
	if p.control != nil {
		if err := p.control.SuppressBypass(); err != nil {
			p.logger.Warn("failed to suppress bypass", "error", err)
			return
		}
	}
	p.suppressed = true
}

func (p *Policy) allow() {
	p.logger.Debug("enabling unredirects", "prevent-unredirect", p.settings.String(config.KeyPreventUnredirect))
	if p.control != nil {
		if err := p.control.AllowBypass(); err != nil {
			// Stay suppressed so the next evaluation retries the release
			p.logger.Warn("failed to allow bypass", "error", err)
			return
		}
	}
	p.suppressed = false
}
