package notify

import (
	"context"
	"os/exec"
	"strings"

	"github.com/Nomadcxx/jellyhook/internal/apperr"
	"github.com/Nomadcxx/jellyhook/internal/event"
)

// DesktopNotifier runs a notify-send compatible command with the title
// and body as arguments. No shell is involved.
type DesktopNotifier struct {
	command string
	path    string
	enabled bool
}

// NewDesktopNotifier resolves command on PATH. The channel stays disabled
// when it is not wanted or the command cannot be found.
func NewDesktopNotifier(command string, enabled bool) *DesktopNotifier {
	command = strings.TrimSpace(command)
	if command == "" {
		command = "notify-send"
	}
	n := &DesktopNotifier{command: command}
	if !enabled {
		return n
	}
	if path, err := exec.LookPath(command); err == nil {
		n.path = path
		n.enabled = true
	}
	return n
}

func (n *DesktopNotifier) Name() string {
	return "desktop"
}

func (n *DesktopNotifier) Enabled() bool {
	return n.enabled
}

func (n *DesktopNotifier) Ping(ctx context.Context) error {
	if !n.enabled {
		return apperr.Errorf(apperr.ServiceUnavailable, "desktop ping", "%s not found on PATH", n.command)
	}
	return nil
}

func (n *DesktopNotifier) Notify(ctx context.Context, msg Message, _ event.Event) error {
	cmd := exec.CommandContext(ctx, n.path, msg.Title, msg.PlainText())
	if out, err := cmd.CombinedOutput(); err != nil {
		return apperr.Errorf(apperr.ServiceUnavailable, "desktop notify", "%s: %v: %s",
			n.command, err, strings.TrimSpace(string(out)))
	}
	return nil
}

var _ Notifier = (*DesktopNotifier)(nil)
