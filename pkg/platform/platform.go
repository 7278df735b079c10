// Package platform defines what a social network has to provide for a scan
// and keeps the set of configured drivers.
package platform

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"followscan/pkg/collector"
	"followscan/pkg/errors"
	"followscan/pkg/models"
	"followscan/pkg/reconcile"
)

// Driver is the platform-specific shell around the scan core
type Driver interface {
	Platform() models.Platform
	// ValidateLocation checks that location is the page a scan must start from
	// and returns the scanning user's username
	ValidateLocation(location string) (string, error)
	// Following returns the collector for the accounts username follows
	Following(ctx context.Context, username string) (collector.Collector, error)
	// Followers returns the collector for username's followers, or nil when
	// the platform exposes follow-back information some other way
	Followers(ctx context.Context, username string) (collector.Collector, error)
	// Dates returns the last-post lookup, or nil when unsupported
	Dates() reconcile.DateLookup
	// Delay is the pause between full-mode lookups
	Delay() time.Duration
	ProfileURL(username string) string
}

// Registry holds the drivers of the configured platforms
type Registry struct {
	mu      sync.RWMutex
	drivers map[models.Platform]Driver
}

// NewRegistry creates a registry containing drivers
func NewRegistry(drivers ...Driver) *Registry {
	r := &Registry{drivers: make(map[models.Platform]Driver)}
	for _, d := range drivers {
		r.Register(d)
	}
	return r
}

// Register adds or replaces the driver for d.Platform()
func (r *Registry) Register(d Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[d.Platform()] = d
}

// Get returns the driver for p
func (r *Registry) Get(p models.Platform) (Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drivers[p]
	if !ok {
		return nil, errors.Validation(string(p), fmt.Sprintf("%s is not a supported platform", p))
	}
	return d, nil
}

// Platforms lists the registered platforms in name order
func (r *Registry) Platforms() []models.Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Platform, 0, len(r.drivers))
	for p := range r.drivers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseLocation parses an absolute http(s) URL and returns it with a lowercase host
func ParseLocation(location string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(location))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, false
	}
	u.Host = strings.ToLower(u.Hostname())
	return u, true
}

// HostMatches reports whether host is domain or one of its subdomains
func HostMatches(host string, domains ...string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// PathSegments splits a URL path into its non-empty segments
func PathSegments(path string) []string {
	var out []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
