package models

import (
	"fmt"
	"strings"
	"time"
)

// Platform identifies one of the supported social networks
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformThreads   Platform = "threads"
)

// Platforms lists every supported platform in display order
func Platforms() []Platform {
	return []Platform{PlatformInstagram, PlatformTwitter, PlatformThreads}
}

// ParsePlatform parses a platform name, accepting "x" for twitter
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "instagram", "ig":
		return PlatformInstagram, nil
	case "twitter", "x":
		return PlatformTwitter, nil
	case "threads":
		return PlatformThreads, nil
	}
	return "", fmt.Errorf("unsupported platform %q", s)
}

func (p Platform) String() string { return string(p) }

// ScanMode selects how much work is done per candidate
type ScanMode string

const (
	// ScanModeFast classifies from membership data only
	ScanModeFast ScanMode = "fast"
	// ScanModeFull also looks up each candidate's last post date
	ScanModeFull ScanMode = "full"
)

// ParseScanMode parses a scan mode, defaulting to fast on empty input
func ParseScanMode(s string) (ScanMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fast":
		return ScanModeFast, nil
	case "full":
		return ScanModeFull, nil
	}
	return "", fmt.Errorf("unsupported scan mode %q", s)
}

// ScanStatus is the state of a platform's scan
type ScanStatus string

const (
	StatusIdle      ScanStatus = "idle"
	StatusScanning  ScanStatus = "scanning"
	StatusCompleted ScanStatus = "completed"
	StatusError     ScanStatus = "error"
)

// Terminal reports whether no further progress follows this status
func (s ScanStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// InactiveThreshold is the fixed age after which an account counts as inactive
const InactiveThreshold = 365 * 24 * time.Hour

// Account is a classified followed account
type Account struct {
	ID                 string     `json:"id"`
	Username           string     `json:"username"`
	DisplayName        string     `json:"displayName"`
	AvatarURL          string     `json:"avatarUrl"`
	ProfileURL         string     `json:"profileUrl"`
	Platform           Platform   `json:"platform"`
	LastPostDate       *time.Time `json:"lastPostDate"`
	IsFollowingYou     bool       `json:"isFollowingYou"`
	IsInactive         bool       `json:"isInactive"`
	IsNotFollowingBack bool       `json:"isNotFollowingBack"`
	ScannedAt          time.Time  `json:"scannedAt"`
}

// Key is the persistence identity of an account
func (a Account) Key() string {
	return string(a.Platform) + ":" + a.ID
}

// Matched reports whether the account is inactive or does not follow back
func (a Account) Matched() bool {
	return a.IsInactive || a.IsNotFollowingBack
}

// BasicUserInfo is an unclassified candidate harvested from a following or followers list
type BasicUserInfo struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
	// FollowsYou is set when the list itself shows a "follows you" badge
	FollowsYou *bool `json:"followsYou,omitempty"`
}

// ScanProgress is a transient status report of a running scan
type ScanProgress struct {
	Platform Platform   `json:"platform"`
	Status   ScanStatus `json:"status"`
	Current  int        `json:"current"`
	Total    int        `json:"total"`
	Message  string     `json:"message"`
}

// Defaults applied to scan requests that leave a parameter out
const (
	DefaultStartIndex = 0
	DefaultLimit      = 100
)

// ScanOptions are the parameters of one scan run
type ScanOptions struct {
	StartIndex int      `json:"startIndex"`
	Limit      int      `json:"limit"`
	Mode       ScanMode `json:"scanMode"`
}

// DefaultScanOptions returns the options used when a request carries none
func DefaultScanOptions() ScanOptions {
	return ScanOptions{StartIndex: DefaultStartIndex, Limit: DefaultLimit, Mode: ScanModeFast}
}

// Normalize clamps StartIndex to >= 0 and Limit to >= 1
func (o ScanOptions) Normalize() ScanOptions {
	if o.StartIndex < 0 {
		o.StartIndex = 0
	}
	if o.Limit < 1 {
		o.Limit = 1
	}
	if o.Mode != ScanModeFull {
		o.Mode = ScanModeFast
	}
	return o
}

// WindowEnd is the exclusive end index of the requested window
func (o ScanOptions) WindowEnd() int {
	return o.StartIndex + o.Limit
}

// StorageData is the persisted aggregate of all scan results
type StorageData struct {
	Accounts     []Account               `json:"accounts"`
	LastScanDate map[Platform]*time.Time `json:"lastScanDate"`
}

// NewStorageData returns an empty aggregate with a nil date for every platform
func NewStorageData() *StorageData {
	data := &StorageData{
		Accounts:     []Account{},
		LastScanDate: make(map[Platform]*time.Time, 3),
	}
	for _, p := range Platforms() {
		data.LastScanDate[p] = nil
	}
	return data
}

// FilterType selects which stored accounts to list
type FilterType string

const (
	FilterAll              FilterType = "all"
	FilterInactive         FilterType = "inactive"
	FilterNotFollowingBack FilterType = "not_following_back"
	// FilterBoth keeps accounts that are inactive and do not follow back
	FilterBoth FilterType = "both"
)

// ParseFilterType parses a filter name, defaulting to all on empty input
func ParseFilterType(s string) (FilterType, error) {
	switch FilterType(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterInactive:
		return FilterInactive, nil
	case FilterNotFollowingBack, "not-following-back":
		return FilterNotFollowingBack, nil
	case FilterBoth:
		return FilterBoth, nil
	}
	return "", fmt.Errorf("unsupported filter %q", s)
}

// Filter returns the accounts matching f, preserving order
func Filter(accounts []Account, f FilterType) []Account {
	out := make([]Account, 0, len(accounts))
	for _, a := range accounts {
		switch f {
		case FilterInactive:
			if !a.IsInactive {
				continue
			}
		case FilterNotFollowingBack:
			if !a.IsNotFollowingBack {
				continue
			}
		case FilterBoth:
			if !a.IsInactive || !a.IsNotFollowingBack {
				continue
			}
		}
		out = append(out, a)
	}
	return out
}
