package dbus

import (
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
)

// D-Bus names for the desktop notification service.
const (
	NotificationsDest      = "org.freedesktop.Notifications"
	NotificationsPath      = "/org/freedesktop/Notifications"
	NotificationsInterface = "org.freedesktop.Notifications"
)

// Notification is one outgoing org.freedesktop.Notifications.Notify call.
type Notification struct {
	AppName       string
	AppIcon       string
	Summary       string
	Body          string
	Hints         map[string]dbus.Variant
	ExpireTimeout int32 // -1 = server default, 0 = never expire
}

// Notifications posts desktop notifications to whichever daemon owns the
// notification service.
type Notifications struct {
	conn   *dbus.Conn
	logger *slog.Logger
}

// NewNotifications creates a notification client on conn.
func NewNotifications(conn *dbus.Conn, logger *slog.Logger) *Notifications {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifications{conn: conn, logger: logger}
}

// Send posts n and returns the id assigned by the notification daemon.
func (c *Notifications) Send(n *Notification) (uint32, error) {
	hints := n.Hints
	if hints == nil {
		hints = map[string]dbus.Variant{}
	}

	obj := c.conn.Object(NotificationsDest, dbus.ObjectPath(NotificationsPath))
	var id uint32
	err := obj.Call(NotificationsInterface+".Notify", 0,
		n.AppName,
		uint32(0),
		n.AppIcon,
		n.Summary,
		n.Body,
		[]string{},
		hints,
		n.ExpireTimeout,
	).Store(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to send notification: %w", err)
	}

	c.logger.Debug("notification sent", "id", id, "summary", n.Summary)
	return id, nil
}
