package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"followscan/pkg/auth"
	"followscan/pkg/config"
	"followscan/pkg/instagram"
	"followscan/pkg/logger"
	"followscan/pkg/models"
	"followscan/pkg/platform"
	"followscan/pkg/ratelimit"
	"followscan/pkg/service"
	"followscan/pkg/storage"
	"followscan/pkg/threads"
	"followscan/pkg/twitter"
	"followscan/pkg/upstream"
)

// credentialSource looks up the stored session of a platform
type credentialSource interface {
	RetrieveDefault(platform models.Platform) (*auth.Credential, error)
}

// app bundles the components a command works with
type app struct {
	cfg     *config.Config
	store   storage.Store
	drivers *platform.Registry
	hub     *service.Hub
	log     logger.Logger
}

// newApp opens the configured store and builds the drivers and the hub.
// Scans started through the hub run under ctx.
func newApp(ctx context.Context, cfg *config.Config, creds credentialSource, opts ...service.Option) (*app, error) {
	log := logger.GetLogger()

	store, err := storage.Open(ctx, cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Backend, err)
	}

	drivers := buildRegistry(cfg, creds, log)
	opts = append([]service.Option{
		service.WithLocationResolver(func(p models.Platform) string {
			return defaultLocation(cfg, p, creds)
		}),
	}, opts...)
	return &app{
		cfg:     cfg,
		store:   store,
		drivers: drivers,
		hub:     service.New(ctx, store, drivers, log, opts...),
		log:     log,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// buildRegistry creates one driver per platform. Each driver gets its own
// upstream client carrying the stored session of that platform, if any.
func buildRegistry(cfg *config.Config, creds credentialSource, log logger.Logger) *platform.Registry {
	ig := cfg.Platforms.Instagram
	tw := cfg.Platforms.Twitter
	th := cfg.Platforms.Threads

	return platform.NewRegistry(
		instagram.NewDriver(instagram.Options{
			Client:   newClient(models.PlatformInstagram, ig, creds, log),
			PageSize: ig.PageSize,
			Delay:    ig.Delay,
			Logger:   log,
		}),
		twitter.NewDriver(twitter.Options{
			Client:      newClient(models.PlatformTwitter, tw, creds, log),
			SnapshotDir: tw.SnapshotDir,
			Delay:       tw.Delay,
			Logger:      log,
		}),
		threads.NewDriver(threads.Options{
			Client:      newClient(models.PlatformThreads, th, creds, log),
			SnapshotDir: th.SnapshotDir,
			Delay:       th.Delay,
			Logger:      log,
		}),
	)
}

func newClient(p models.Platform, pc config.PlatformConfig, creds credentialSource, log logger.Logger) *upstream.Client {
	var opts []upstream.Option
	if pc.RequestsPerMinute > 0 {
		opts = append(opts, upstream.WithLimiter(ratelimit.NewSlidingWindow(pc.RequestsPerMinute, time.Minute)))
	}
	client := upstream.NewClient(string(p), pc.Timeout, log, opts...)
	if pc.UserAgent != "" {
		client.SetHeader("User-Agent", pc.UserAgent)
	}
	if creds == nil {
		return client
	}
	cred, err := creds.RetrieveDefault(p)
	if err != nil {
		log.WithField("platform", p).Debug("No stored session, requests go out logged out")
		return client
	}
	cred.Apply(client)
	log.WithFields(map[string]interface{}{
		"platform": p,
		"account":  cred.Username,
	}).Debug("Using stored session")
	return client
}

// defaultLocation is the page a scan of p runs against when none is given:
// the configured location, else the own profile of the stored account
func defaultLocation(cfg *config.Config, p models.Platform, creds credentialSource) string {
	if pc, ok := cfg.Platform(string(p)); ok && pc.Location != "" {
		return pc.Location
	}
	if creds == nil {
		return ""
	}
	cred, err := creds.RetrieveDefault(p)
	if err != nil || cred.Username == "" {
		return ""
	}
	user := strings.TrimPrefix(cred.Username, "@")
	switch p {
	case models.PlatformInstagram:
		return "https://www.instagram.com/" + user + "/"
	case models.PlatformTwitter:
		return "https://x.com/" + user + "/following"
	case models.PlatformThreads:
		return "https://www.threads.net/@" + user
	}
	return ""
}

// openCredentials returns the credential manager, or nil when no store can be opened
func openCredentials() credentialSource {
	manager, err := auth.NewManager()
	if err != nil {
		logger.WithError(err).Warn("Credential storage unavailable")
		return nil
	}
	return manager
}

// parsePlatforms resolves --platform/--all into a platform list
func parsePlatforms(name string, all bool) ([]models.Platform, error) {
	if all {
		return models.Platforms(), nil
	}
	if name == "" {
		return nil, fmt.Errorf("choose a platform with --platform (%s) or use --all", platformNames())
	}
	var out []models.Platform
	seen := make(map[models.Platform]bool)
	for _, part := range strings.Split(name, ",") {
		p, err := models.ParsePlatform(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}

func platformNames() string {
	names := make([]string, 0, 3)
	for _, p := range models.Platforms() {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}
