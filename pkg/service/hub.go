// Package service routes messages between the scan orchestrator, the
// persistence store and subscribers such as the HTTP event stream or the
// terminal UI.
package service

import (
	"context"
	"time"

	"followscan/pkg/errors"
	"followscan/pkg/logger"
	"followscan/pkg/messages"
	"followscan/pkg/models"
	"followscan/pkg/platform"
	"followscan/pkg/scan"
	"followscan/pkg/storage"
)

const saveTimeout = 30 * time.Second

// Hub is the message router. It persists completed batches and fans every
// outgoing message out on its bus.
type Hub struct {
	ctx     context.Context
	store   storage.Store
	bus     *messages.Bus
	orch    *scan.Orchestrator
	metrics *Metrics
	resolve LocationResolver
	logger  logger.Logger
}

// LocationResolver returns the page a scan of a platform runs against when
// the request names none, or "" when there is no fallback
type LocationResolver func(p models.Platform) string

var _ messages.Publisher = (*Hub)(nil)

// Option customizes a Hub
type Option func(*hubOptions)

type hubOptions struct {
	metrics  *Metrics
	bus      *messages.Bus
	resolve  LocationResolver
	scanOpts []scan.Option
}

// WithMetrics records hub activity in m
func WithMetrics(m *Metrics) Option {
	return func(o *hubOptions) { o.metrics = m }
}

// WithBus uses an existing bus
func WithBus(b *messages.Bus) Option {
	return func(o *hubOptions) { o.bus = b }
}

// WithLocationResolver fills in the location of start requests that carry none
func WithLocationResolver(r LocationResolver) Option {
	return func(o *hubOptions) { o.resolve = r }
}

// WithScanOptions passes options to the orchestrator
func WithScanOptions(opts ...scan.Option) Option {
	return func(o *hubOptions) { o.scanOpts = append(o.scanOpts, opts...) }
}

// New creates a hub and its orchestrator. Scans started through the hub run
// under ctx, not under the context of the request that started them.
func New(ctx context.Context, store storage.Store, drivers *platform.Registry, log logger.Logger, opts ...Option) *Hub {
	var o hubOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.bus == nil {
		o.bus = messages.NewBus()
	}

	h := &Hub{
		ctx:     ctx,
		store:   store,
		bus:     o.bus,
		metrics: o.metrics,
		resolve: o.resolve,
		logger:  logger.OrGlobal(log).WithField("component", "hub"),
	}
	h.orch = scan.New(drivers, h, log, o.scanOpts...)
	return h
}

// Orchestrator returns the orchestrator driven by the hub
func (h *Hub) Orchestrator() *scan.Orchestrator { return h.orch }

// Store returns the persistence store
func (h *Hub) Store() storage.Store { return h.store }

// Subscribe registers a subscriber on the outgoing bus
func (h *Hub) Subscribe(buffer int) (<-chan messages.Message, func()) {
	return h.bus.Subscribe(buffer)
}

// Publish implements messages.Publisher. A completed batch is saved before it
// is forwarded, followed by the platform's stored accounts.
func (h *Hub) Publish(msg messages.Message) {
	h.metrics.observe(msg)

	complete, ok := msg.(messages.ScanComplete)
	if !ok {
		h.bus.Publish(msg)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := h.store.Save(ctx, complete.Platform, complete.Accounts); err != nil {
		h.logger.WithError(err).ErrorWithFields("Failed to save scan results", map[string]interface{}{
			"platform": complete.Platform,
			"accounts": len(complete.Accounts),
		})
		h.bus.Publish(complete)
		h.bus.Publish(messages.ScanError{Platform: complete.Platform, Error: "Failed to save scan results"})
		return
	}

	h.bus.Publish(complete)
	stored, err := h.store.GetByPlatform(ctx, complete.Platform)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to reload saved accounts")
		stored = complete.Accounts
	}
	h.metrics.setStored(string(complete.Platform), len(stored))
	h.bus.Publish(messages.AccountsData{Platform: complete.Platform, Accounts: stored})
}

// Handle serves one inbound message
func (h *Hub) Handle(ctx context.Context, msg messages.Message) messages.Response {
	switch m := msg.(type) {
	case messages.StartScan:
		h.metrics.observe(m)
		location := m.Location
		if location == "" && h.resolve != nil {
			location = h.resolve(m.Platform)
		}
		sess, started := h.orch.Start(h.ctx, scan.Request{
			Platform: m.Platform,
			Location: location,
			Options:  m.Options(),
		})
		h.logger.InfoWithFields("Start requested", map[string]interface{}{
			"platform": m.Platform,
			"session":  sess.ID,
			"started":  started,
		})
		return messages.OK()

	case messages.StopScan:
		h.metrics.observe(m)
		h.orch.Stop(m.Platform)
		return messages.OK()

	case messages.GetAccounts:
		h.metrics.observe(m)
		var (
			accounts []models.Account
			err      error
		)
		if m.Platform == "" {
			accounts, err = h.store.GetAll(ctx)
		} else {
			accounts, err = h.store.GetByPlatform(ctx, m.Platform)
		}
		if err != nil {
			h.logger.WithError(err).Error("Failed to read accounts")
			return messages.Failed(errors.UserMessage(err))
		}
		return messages.WithAccounts(accounts)

	case messages.ClearData:
		h.metrics.observe(m)
		if err := h.store.Clear(ctx, m.Platform); err != nil {
			h.logger.WithError(err).Error("Failed to clear data")
			return messages.Failed(errors.UserMessage(err))
		}
		if m.Platform == "" {
			for _, p := range models.Platforms() {
				h.metrics.setStored(string(p), 0)
			}
		} else {
			h.metrics.setStored(string(m.Platform), 0)
		}
		return messages.OK()

	case messages.ScanProgress, messages.AccountFound, messages.ScanError, messages.ScanComplete, messages.AccountsData:
		h.Publish(m)
		return messages.OK()
	}
	return messages.Failed("Unknown message type")
}
