package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"followscan/pkg/activity"
	"followscan/pkg/logger"
	"followscan/pkg/models"
)

// blob holds the encoded aggregate. load returns nil when nothing is stored.
type blob interface {
	load(ctx context.Context) ([]byte, error)
	store(ctx context.Context, data []byte) error
	remove(ctx context.Context) error
	close() error
}

// AggregateStore keeps every account in a single StorageData document
type AggregateStore struct {
	blob   blob
	now    func() time.Time
	logger logger.Logger
	mu     sync.Mutex
}

var _ Store = (*AggregateStore)(nil)

func newAggregateStore(b blob, log logger.Logger) *AggregateStore {
	return &AggregateStore{blob: b, now: time.Now, logger: logger.OrGlobal(log)}
}

// SetClock replaces the clock used for last scan dates
func (s *AggregateStore) SetClock(now func() time.Time) {
	s.now = now
}

// Save implements Store
func (s *AggregateStore) Save(ctx context.Context, platform models.Platform, accounts []models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read(ctx)
	if err != nil {
		return err
	}

	kept := data.Accounts[:0]
	for _, a := range data.Accounts {
		if a.Platform != platform {
			kept = append(kept, a)
		}
	}
	data.Accounts = append(kept, stampPlatform(platform, accounts)...)
	now := s.now().UTC()
	data.LastScanDate[platform] = &now

	if err := s.write(ctx, data); err != nil {
		return err
	}
	s.logger.InfoWithFields("Accounts saved", map[string]interface{}{
		"platform": platform,
		"count":    len(accounts),
	})
	return nil
}

// GetAll implements Store
func (s *AggregateStore) GetAll(ctx context.Context) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return data.Accounts, nil
}

// GetByPlatform implements Store
func (s *AggregateStore) GetByPlatform(ctx context.Context, platform models.Platform) ([]models.Account, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Account, 0, len(all))
	for _, a := range all {
		if a.Platform == platform {
			out = append(out, a)
		}
	}
	return out, nil
}

// Clear implements Store
func (s *AggregateStore) Clear(ctx context.Context, platform models.Platform) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if platform == "" {
		return s.blob.remove(ctx)
	}

	data, err := s.read(ctx)
	if err != nil {
		return err
	}
	kept := data.Accounts[:0]
	for _, a := range data.Accounts {
		if a.Platform != platform {
			kept = append(kept, a)
		}
	}
	data.Accounts = kept
	data.LastScanDate[platform] = nil
	return s.write(ctx, data)
}

// LastScanDate implements Store
func (s *AggregateStore) LastScanDate(ctx context.Context, platform models.Platform) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return data.LastScanDate[platform], nil
}

// Close implements Store
func (s *AggregateStore) Close() error {
	return s.blob.close()
}

func (s *AggregateStore) read(ctx context.Context) (*models.StorageData, error) {
	raw, err := s.blob.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stored data: %w", err)
	}
	if len(raw) == 0 {
		return models.NewStorageData(), nil
	}
	data, err := decodeAggregate(raw)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *AggregateStore) write(ctx context.Context, data *models.StorageData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode stored data: %w", err)
	}
	if err := s.blob.store(ctx, raw); err != nil {
		return fmt.Errorf("write stored data: %w", err)
	}
	return nil
}

// storedAccount shadows the date fields so malformed values decode leniently
type storedAccount struct {
	models.Account
	LastPostDate *string `json:"lastPostDate"`
	ScannedAt    *string `json:"scannedAt"`
}

type storedAggregate struct {
	Accounts     []storedAccount    `json:"accounts"`
	LastScanDate map[string]*string `json:"lastScanDate"`
}

func decodeAggregate(raw []byte) (*models.StorageData, error) {
	var stored storedAggregate
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode stored data: %w", err)
	}

	data := models.NewStorageData()
	for _, sa := range stored.Accounts {
		a := sa.Account
		a.LastPostDate = decodeDate(sa.LastPostDate)
		if t := decodeDate(sa.ScannedAt); t != nil {
			a.ScannedAt = *t
		}
		data.Accounts = append(data.Accounts, a)
	}
	for key, value := range stored.LastScanDate {
		p, err := models.ParsePlatform(key)
		if err != nil {
			continue
		}
		data.LastScanDate[p] = decodeDate(value)
	}
	return data, nil
}

func decodeDate(s *string) *time.Time {
	if s == nil {
		return nil
	}
	return activity.ParseAbsolute(*s)
}
