package notify

import (
	"fmt"
	"time"

	"github.com/rgeorgiev/filemon/internal/utils"
	"github.com/rgeorgiev/filemon/pkg/telegram"
)

// Event describes a detected file creation.
type Event struct {
	Path string
	Ext  string
	Time time.Time
}

// Messenger is the outbound message sink, satisfied by *telegram.Client.
type Messenger interface {
	SendMessage(text string) error
}

// Notifier formats file events and daemon lifecycle changes into chat
// messages. Each delivery is a single attempt; the caller decides what to
// log on failure.
type Notifier struct {
	messenger Messenger
	env       string
	desktop   bool
}

// New creates a Notifier reporting for the named environment. When desktop
// is true, messages are mirrored as desktop notifications.
func New(m Messenger, env string, desktop bool) *Notifier {
	return &Notifier{messenger: m, env: env, desktop: desktop}
}

// FileDetected reports a new monitored file.
func (n *Notifier) FileDetected(ev Event) error {
	text := fmt.Sprintf(
		"*⚠️ Alert\\! A new monitored file was detected ⚠️*\n\n*Environment:* %s\n%s",
		telegram.EscapeMarkdownV2(n.env),
		telegram.EscapeMarkdownV2(ev.Path),
	)
	utils.SendNotification(n.desktop, "filemon", fmt.Sprintf("New monitored file: %s", ev.Path))
	return n.messenger.SendMessage(text)
}

// Startup announces that monitoring has begun.
func (n *Notifier) Startup() error {
	text := fmt.Sprintf("*ℹ️ File monitoring started \\(%s\\) ℹ️*", telegram.EscapeMarkdownV2(n.env))
	return n.messenger.SendMessage(text)
}

// Shutdown announces a clean, signal-driven stop.
func (n *Notifier) Shutdown() error {
	return n.messenger.SendMessage("*🛑 File monitoring stopped 🛑*")
}

// Crashed announces an unrecoverable watcher failure.
func (n *Notifier) Crashed(err error) error {
	text := fmt.Sprintf("*⚠️ File monitoring crashed ⚠️*\n\n%s", telegram.EscapeMarkdownV2(err.Error()))
	return n.messenger.SendMessage(text)
}
