// Package notifier provides build notification functionality
package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/zuzpack/zuz/pkg/logger"
)

// SendFunc delivers one desktop notification
type SendFunc func(title, message string) error

// BuildNotifier sends desktop notifications about finished builds
type BuildNotifier struct {
	enabled bool
	send    SendFunc
	logger  logger.Logger
}

// Config represents notification configuration
type Config struct {
	Enabled bool
	// Send replaces the desktop notification, mainly for tests
	Send SendFunc
}

// New creates a new build notifier
func New(config Config, log logger.Logger) *BuildNotifier {
	if log == nil {
		log = logger.Discard()
	}
	send := config.Send
	if send == nil {
		send = func(title, message string) error {
			return beeep.Notify(title, message, "")
		}
	}
	return &BuildNotifier{
		enabled: config.Enabled,
		send:    send,
		logger:  log,
	}
}

// NotifyBuildSuccess notifies that a package was built
func (n *BuildNotifier) NotifyBuildSuccess(pkg string, entryPoints int, duration time.Duration) {
	if !n.enabled {
		return
	}
	message := fmt.Sprintf("%s: %d entry points built in %s", pkg, entryPoints, formatDuration(duration))
	n.sendNotification("✅ Build Succeeded", message)
}

// NotifyBuildFailure notifies that a build failed
func (n *BuildNotifier) NotifyBuildFailure(pkg string, err error) {
	if !n.enabled {
		return
	}
	reason := "unknown error"
	if err != nil {
		// desktop notifications show one line
		reason, _, _ = strings.Cut(err.Error(), "\n")
	}
	n.sendNotification("❌ Build Failed", fmt.Sprintf("%s: %s", pkg, reason))
}

func (n *BuildNotifier) sendNotification(title, message string) {
	if err := n.send(title, message); err != nil {
		n.logger.Debug("Failed to send notification", logger.WithError(err))
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
