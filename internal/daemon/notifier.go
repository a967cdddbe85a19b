package daemon

import (
	"log/slog"
	"sync"
	"time"

	godbus "github.com/godbus/dbus/v5"

	"github.com/jmylchreest/softdim/internal/dbus"
)

// NotificationLevel indicates the severity of an internal notification.
type NotificationLevel int

const (
	// NotificationLevelInfo is for informational messages (low urgency).
	NotificationLevelInfo NotificationLevel = iota
	// NotificationLevelWarning is for warning messages (normal urgency).
	NotificationLevelWarning
	// NotificationLevelError is for error messages (critical urgency).
	NotificationLevelError
)

// InternalNotifier tells the user about problems the daemon can only log
// otherwise, such as a settings file it had to reject. The same key is sent
// at most once per interval.
type InternalNotifier struct {
	mu     sync.Mutex
	logger *slog.Logger

	send func(*dbus.Notification) error
	now  func() time.Time

	lastNotifyTime map[string]time.Time
	minInterval    time.Duration
}

// NewInternalNotifier creates a notifier that posts through send. A nil send
// only logs.
func NewInternalNotifier(send func(*dbus.Notification) error, logger *slog.Logger) *InternalNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &InternalNotifier{
		logger:         logger,
		send:           send,
		now:            time.Now,
		lastNotifyTime: make(map[string]time.Time),
		minInterval:    30 * time.Second,
	}
}

// SetMinInterval sets the minimum interval between notifications with the
// same key.
func (n *InternalNotifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
}

// Notify sends a notification unless one with the same key went out within
// the minimum interval.
func (n *InternalNotifier) Notify(key, summary, body string, level NotificationLevel) {
	n.mu.Lock()
	now := n.now()
	if last, ok := n.lastNotifyTime[key]; ok && now.Sub(last) < n.minInterval {
		n.mu.Unlock()
		n.logger.Debug("internal notification rate-limited", "key", key)
		return
	}
	n.lastNotifyTime[key] = now
	send := n.send
	n.mu.Unlock()

	if send == nil {
		n.logger.Debug("internal notification skipped: no sender", "summary", summary)
		return
	}

	urgency := byte(1)
	icon := "dialog-warning"
	switch level {
	case NotificationLevelInfo:
		urgency, icon = 0, "dialog-information"
	case NotificationLevelError:
		urgency, icon = 2, "dialog-error"
	}

	notification := &dbus.Notification{
		AppName: "softdimd",
		AppIcon: icon,
		Summary: summary,
		Body:    body,
		Hints: map[string]godbus.Variant{
			"urgency":   godbus.MakeVariant(urgency),
			"category":  godbus.MakeVariant("device"),
			"transient": godbus.MakeVariant(true),
		},
		ExpireTimeout: 5000,
	}

	if err := send(notification); err != nil {
		n.logger.Warn("failed to send internal notification", "key", key, "error", err)
	}
}

// NotifySettingsError reports a settings file that failed to load.
func (n *InternalNotifier) NotifySettingsError(err error) {
	n.Notify(
		"settings-error",
		"Settings Error",
		"softdim kept the previous settings: "+err.Error(),
		NotificationLevelWarning,
	)
}

// NotifyThemeError reports an overlay theme that failed to load.
func (n *InternalNotifier) NotifyThemeError(err error) {
	n.Notify(
		"theme-error",
		"Theme Error",
		"Failed to load overlay theme: "+err.Error(),
		NotificationLevelWarning,
	)
}

// NotifyEnableError reports that dimming could not be switched on.
func (n *InternalNotifier) NotifyEnableError(err error) {
	n.Notify(
		"enable-error",
		"Dimming Unavailable",
		err.Error(),
		NotificationLevelError,
	)
}
