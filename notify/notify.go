// Package notify implements the Notifier: best-effort
// desktop notification delivery describing a kill event over D-Bus.
// Grounded on original_source/src/notify/mod.rs's dbus-notify
// feature, reimplemented directly on the wire protocol via
// github.com/godbus/dbus/v5 (the desktop-notification client library
// present in the example pack, from DataDog-datadog-agent's go.mod).
package notify

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/godbus/dbus/v5"

	"github.com/oomguard/oomguard/killer"
	"github.com/oomguard/oomguard/procfs"
)

const (
	notifyInterface = "org.freedesktop.Notifications"
	notifyPath = "/org/freedesktop/Notifications"
)

// Event is what the Notifier renders about one termination attempt.
type Event struct {
	Record procfs.Record
	Outcome killer.Outcome
	Level killer.Level
	Duration time.Duration
}

// Notifier delivers desktop notifications. Every method is
// best-effort: failure is logged and swallowed, never propagated onto
// the critical termination path.
type Notifier struct {
	enabled bool
	logf func(format string, args ...any)
	connect func() (*dbus.Conn, error)
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithLogf installs a logging sink; nil disables logging.
func WithLogf(logf func(string, ...any)) Option {
	return func(n *Notifier) { n.logf = logf }
}

// New returns a Notifier. enabled mirrors the config `notify` option;
// when false, Notify is a silent no-op so callers don't need their
// own conditional.
func New(enabled bool, opts ...Option) *Notifier {
	n := &Notifier{
		enabled: enabled,
		logf: func(string, ...any) {},
		connect: dbus.SessionBus,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify sends one best-effort desktop notification describing ev.
func (n *Notifier) Notify(ev Event) {
	if !n.enabled {
		return
	}
	conn, err := n.connect()
	if err != nil {
		n.logf("notify: dbus connection unavailable: %v", err)
		return
	}
	defer conn.Close()

	summary, body := renderNotification(ev)
	obj := conn.Object(notifyInterface, dbus.ObjectPath(notifyPath))
	call := obj.Call(notifyInterface+".Notify", 0,
		"oomguard", // app_name
		uint32(0), // replaces_id
		"dialog-warning", // app_icon
		summary, // summary
		body, // body
		[]string{}, // actions
		map[string]dbus.Variant{}, // hints
		int32(6000), // expire_timeout (ms)
	)
	if call.Err != nil {
		n.logf("notify: Notify call failed: %v", call.Err)
	}
}

func renderNotification(ev Event) (summary, body string) {
	verb := "terminated"
	if ev.Outcome != killer.Killed {
		verb = ev.Outcome.String()
	}
	summary = fmt.Sprintf("oomguard %s %s", verb, ev.Record.Comm)
	body = fmt.Sprintf("PID %d, RSS %s, OOM score %d",
		ev.Record.PID, humanize.IBytes(ev.Record.RSSKiB*1024), ev.Record.OOMScore)
	return summary, body
}
