package ui

import (
	"bytes"
	"testing"
	"time"

	"followscan/pkg/activity"
	"followscan/pkg/config"
	"followscan/pkg/messages"
	"followscan/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	titles []string
}

func (r *recordingSender) Send(title, message string) error {
	r.titles = append(r.titles, title)
	return nil
}

func TestNotifier(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.NotificationConfig
		wantPrinted bool
		wantSent    int
	}{
		{"desktop", config.NotificationConfig{Enabled: true, OnComplete: true, OnError: true, NotificationType: "desktop"}, true, 2},
		{"terminal", config.NotificationConfig{Enabled: true, OnComplete: true, OnError: true, NotificationType: "terminal"}, true, 0},
		{"none", config.NotificationConfig{Enabled: true, OnComplete: true, OnError: true, NotificationType: "none"}, false, 0},
		{"disabled", config.NotificationConfig{Enabled: false, OnComplete: true, OnError: true, NotificationType: "desktop"}, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			sender := &recordingSender{}
			n := NewNotifierWithSender(tt.cfg, sender, &out)

			n.ScanComplete(models.PlatformInstagram, 3, false)
			n.ScanError(models.PlatformThreads, "Rate limited")

			assert.Len(t, sender.titles, tt.wantSent)
			if tt.wantPrinted {
				assert.Contains(t, out.String(), "3 accounts found")
				assert.Contains(t, out.String(), "Rate limited")
			} else {
				assert.Empty(t, out.String())
			}
		})
	}
}

func TestNotifierPartialTitle(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifierWithSender(config.NotificationConfig{Enabled: true, OnComplete: true, NotificationType: "desktop"}, sender, &bytes.Buffer{})
	n.ScanComplete(models.PlatformTwitter, 1, true)
	n.ScanError(models.PlatformTwitter, "ignored, OnError is off")

	require.Len(t, sender.titles, 1)
	assert.Equal(t, "followscan: twitter scan stopped", sender.titles[0])
}

func TestScanDisplay(t *testing.T) {
	var out bytes.Buffer
	d := NewScanDisplay(&out, true, activity.LocaleEnglish)
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	d.startTime = start
	d.now = func() time.Time { return start.Add(10 * time.Second) }

	d.Publish(messages.ScanProgress{Progress: models.ScanProgress{
		Platform: models.PlatformInstagram, Status: models.StatusScanning, Current: 1, Total: 4, Message: "Checking @a (1/4)",
	}})
	assert.Contains(t, out.String(), "1/4")
	assert.Contains(t, out.String(), "30s left")

	posted := start.AddDate(-2, 0, 0)
	d.Publish(messages.AccountFound{Platform: models.PlatformInstagram, Account: models.Account{
		Username: "a", IsInactive: true, IsNotFollowingBack: true, LastPostDate: &posted,
	}})
	assert.Contains(t, out.String(), "@a • inactive, not following back • "+Dim("2+ years ago"))

	d.Publish(messages.ScanProgress{Progress: models.ScanProgress{
		Platform: models.PlatformInstagram, Status: models.StatusCompleted, Current: 4, Total: 4, Message: "Scan complete: 1 accounts found",
	}})
	d.Publish(messages.ScanError{Platform: models.PlatformThreads, Error: "Open threads.net before scanning"})
	d.Publish(messages.ScanProgress{Progress: models.ScanProgress{Platform: models.PlatformThreads, Status: models.StatusError}})

	out.Reset()
	d.Summary()
	assert.Contains(t, out.String(), "instagram: 1 found, 4 checked")
	assert.Contains(t, out.String(), "threads failed: Open threads.net before scanning")
	assert.Contains(t, out.String(), "finished in 10s")
}

func TestPrintAccounts(t *testing.T) {
	var out bytes.Buffer
	PrintAccounts(&out, nil, activity.LocaleEnglish, time.Now())
	assert.Contains(t, out.String(), "No accounts")

	out.Reset()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	PrintAccounts(&out, []models.Account{
		{Platform: models.PlatformTwitter, Username: "quiet", DisplayName: "Quiet One", IsNotFollowingBack: true},
		{Platform: models.PlatformThreads, Username: "recent", LastPostDate: &yesterday, IsNotFollowingBack: true},
	}, activity.LocaleJapanese, now)

	s := out.String()
	assert.Contains(t, s, "@quiet")
	assert.Contains(t, s, "Quiet One")
	assert.Contains(t, s, "投稿なし")
	assert.Contains(t, s, "昨日")
	assert.Contains(t, s, "2 accounts")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "42s", formatDuration(42*time.Second))
	assert.Equal(t, "2m5s", formatDuration(125*time.Second))
	assert.Equal(t, "1h30m", formatDuration(90*time.Minute))
}
