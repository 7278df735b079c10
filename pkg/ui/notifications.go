package ui

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"followscan/pkg/config"
	"followscan/pkg/models"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender uses notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}

// MacOSNotificationSender uses osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// WindowsNotificationSender uses a PowerShell toast
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	escape := strings.NewReplacer("<", "&lt;", ">", "&gt;", "&", "&amp;")
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$xml = @"
<toast><visual><binding template="ToastText02">
	<text id="1">%s</text>
	<text id="2">%s</text>
</binding></visual></toast>
"@
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml($xml)
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("followscan").Show($toast)
	`, escape.Replace(title), escape.Replace(message))
	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

// Notifier sends scan notifications according to the notification settings.
// The terminal type prints to out, desktop also raises an OS notification.
type Notifier struct {
	sender NotificationSender
	cfg    config.NotificationConfig
	out    io.Writer
}

// NewNotifier picks the sender of the current OS
func NewNotifier(cfg config.NotificationConfig) *Notifier {
	var sender NotificationSender
	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	case "windows":
		sender = &WindowsNotificationSender{}
	}
	return NewNotifierWithSender(cfg, sender, os.Stdout)
}

// NewNotifierWithSender creates a notifier over sender; nil disables desktop delivery
func NewNotifierWithSender(cfg config.NotificationConfig, sender NotificationSender, out io.Writer) *Notifier {
	return &Notifier{sender: sender, cfg: cfg, out: out}
}

// ScanComplete notifies about a finished batch
func (n *Notifier) ScanComplete(platform models.Platform, found int, partial bool) {
	if !n.cfg.OnComplete {
		return
	}
	title := fmt.Sprintf("%s scan complete", platform)
	if partial {
		title = fmt.Sprintf("%s scan stopped", platform)
	}
	message := fmt.Sprintf("%d accounts found", found)
	if n.enabled() {
		fmt.Fprintf(n.out, "\n%s: %s\n", Cyan(title), Green(message))
	}
	n.send(title, message)
}

// ScanError notifies about a failed scan
func (n *Notifier) ScanError(platform models.Platform, message string) {
	if !n.cfg.OnError {
		return
	}
	title := fmt.Sprintf("%s scan failed", platform)
	if n.enabled() {
		fmt.Fprintf(n.out, "\n%s: %s\n", Red(title), Red(message))
	}
	n.send(title, message)
}

func (n *Notifier) enabled() bool {
	return n.cfg.Enabled && !strings.EqualFold(n.cfg.NotificationType, "none")
}

func (n *Notifier) send(title, message string) {
	if n.sender == nil || !n.enabled() || !strings.EqualFold(n.cfg.NotificationType, "desktop") {
		return
	}
	// notifications are best effort
	_ = n.sender.Send("followscan: "+title, message)
}
