package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// TerminalChannel prints notifications to the terminal. Used in watch
// mode so alerts are visible even when no remote channel is configured.
type TerminalChannel struct {
	colorEnabled bool
	bellEnabled  bool
	mu           sync.Mutex
}

// NewTerminalChannel creates a terminal notification channel.
func NewTerminalChannel(colorEnabled, bellEnabled bool) *TerminalChannel {
	return &TerminalChannel{
		colorEnabled: colorEnabled,
		bellEnabled:  bellEnabled,
	}
}

// Name returns the name of the channel.
func (t *TerminalChannel) Name() string {
	return "terminal"
}

// IsEnabled returns whether the channel is enabled.
func (t *TerminalChannel) IsEnabled() bool {
	return true
}

// Send prints the notification.
func (t *TerminalChannel) Send(ctx context.Context, n Notification) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bellEnabled && n.Type == NotificationAlert {
		fmt.Print("\a")
	}

	var color, reset string
	if t.colorEnabled {
		reset = "\033[0m"
		switch n.Type {
		case NotificationAlert:
			color = "\033[33m" // Yellow
		case NotificationError:
			color = "\033[31m" // Red
		default:
			color = "\033[36m" // Cyan
		}
	}

	fmt.Printf("%s[%s] %s%s\n", color, n.Timestamp.Format("15:04:05"), n.Title, reset)
	for _, line := range strings.Split(strings.TrimRight(n.Message, "\n"), "\n") {
		fmt.Printf("    %s\n", line)
	}
	return nil
}
