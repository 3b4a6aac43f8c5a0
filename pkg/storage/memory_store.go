package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/webtest/pkg/models"
)

// MemoryStore implements PageStore in memory, for crawls without a state directory
type MemoryStore struct {
	mu    sync.RWMutex
	pages map[string]models.PageRecord
	log   *logrus.Entry
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore(logger *logrus.Entry) *MemoryStore {
	return &MemoryStore{pages: make(map[string]models.PageRecord), log: logger}
}

// RecordPage implements PageStore
func (m *MemoryStore) RecordPage(url string, rec *models.PageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[url] = *rec
	return nil
}

// GetPage implements PageStore
func (m *MemoryStore) GetPage(url string) (models.PageStatus, *models.PageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.pages[url]
	if !ok {
		return models.PageStatusNotFound, nil, nil
	}
	return rec.Status, &rec, nil
}

// Count implements PageStore
func (m *MemoryStore) Count() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pages), nil
}

func (m *MemoryStore) sortedKeys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.pages))
	for k := range m.pages {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ForEach implements PageStore
func (m *MemoryStore) ForEach(ctx context.Context, fn func(url string, rec models.PageRecord) error) error {
	for _, k := range m.sortedKeys() {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.mu.RLock()
		rec := m.pages[k]
		m.mu.RUnlock()
		if err := fn(k, rec); err != nil {
			return err
		}
	}
	return nil
}

// WriteVisitedLog implements PageStore
func (m *MemoryStore) WriteVisitedLog(filePath string) error {
	keys := m.sortedKeys()
	return writeVisitedLog(filePath, m.log, func(visit func(string) error) error {
		for _, k := range keys {
			if err := visit(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// RunGC implements PageStore; there is nothing to collect
func (m *MemoryStore) RunGC(ctx context.Context, _ time.Duration) {
	<-ctx.Done()
}

// Close implements PageStore
func (m *MemoryStore) Close() error { return nil }
