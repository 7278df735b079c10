package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlatform(t *testing.T) {
	tests := map[string]Platform{
		"instagram": PlatformInstagram,
		"IG":        PlatformInstagram,
		"x":         PlatformTwitter,
		" Twitter ": PlatformTwitter,
		"threads":   PlatformThreads,
	}
	for in, want := range tests {
		got, err := ParsePlatform(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParsePlatform("myspace")
	assert.Error(t, err)
}

func TestScanOptionsNormalize(t *testing.T) {
	o := ScanOptions{StartIndex: -5, Limit: 0, Mode: "turbo"}.Normalize()
	assert.Equal(t, 0, o.StartIndex)
	assert.Equal(t, 1, o.Limit)
	assert.Equal(t, ScanModeFast, o.Mode)

	o = ScanOptions{StartIndex: 100, Limit: 50, Mode: ScanModeFull}.Normalize()
	assert.Equal(t, 150, o.WindowEnd())
	assert.Equal(t, ScanModeFull, o.Mode)

	assert.Equal(t, ScanOptions{StartIndex: 0, Limit: 100, Mode: ScanModeFast}, DefaultScanOptions())
}

func TestFilter(t *testing.T) {
	accounts := []Account{
		{Username: "inactive", IsInactive: true, IsFollowingYou: true},
		{Username: "ghost", IsNotFollowingBack: true},
		{Username: "both", IsInactive: true, IsNotFollowingBack: true},
	}

	names := func(in []Account) []string {
		var out []string
		for _, a := range in {
			out = append(out, a.Username)
		}
		return out
	}

	assert.Equal(t, []string{"inactive", "ghost", "both"}, names(Filter(accounts, FilterAll)))
	assert.Equal(t, []string{"inactive", "both"}, names(Filter(accounts, FilterInactive)))
	assert.Equal(t, []string{"ghost", "both"}, names(Filter(accounts, FilterNotFollowingBack)))
	assert.Equal(t, []string{"both"}, names(Filter(accounts, FilterBoth)))

	f, err := ParseFilterType("not-following-back")
	require.NoError(t, err)
	assert.Equal(t, FilterNotFollowingBack, f)
}

func TestNewStorageData(t *testing.T) {
	data := NewStorageData()
	assert.Empty(t, data.Accounts)
	require.Len(t, data.LastScanDate, 3)
	for _, p := range Platforms() {
		v, ok := data.LastScanDate[p]
		assert.True(t, ok)
		assert.Nil(t, v)
	}
}

func TestAccountKeyAndMatched(t *testing.T) {
	a := Account{ID: "42", Platform: PlatformThreads}
	assert.Equal(t, "threads:42", a.Key())
	assert.False(t, a.Matched())
	a.IsNotFollowingBack = true
	assert.True(t, a.Matched())
	assert.True(t, StatusError.Terminal())
	assert.False(t, StatusScanning.Terminal())
}
