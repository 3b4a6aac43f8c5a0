package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/webtest/pkg/log"
	"github.com/Sriram-PR/webtest/pkg/models"
	"github.com/Sriram-PR/webtest/pkg/utils"
)

const (
	pageKeyPrefix = "page:"    // Prefix for page URL keys in DB
	pagesDBDir    = "pages_db" // Subdirectory name within stateDir for Badger DB files
)

// BadgerStore implements PageStore on BadgerDB
type BadgerStore struct {
	db       *badger.DB
	path     string
	log      *logrus.Entry
	keyCount atomic.Int64 // Cached key count for O(1) Count
}

// DBPath returns where the page database of a crawl named name lives under stateDir
func DBPath(stateDir, name string) string {
	return filepath.Join(stateDir, utils.NormalizeFilename(name)+"_"+pagesDBDir)
}

// NewBadgerStore opens the page database at dbPath
// With reset set, records of a previous crawl are removed first
func NewBadgerStore(dbPath string, reset bool, logger *logrus.Entry) (*BadgerStore, error) {
	store := &BadgerStore{path: dbPath, log: logger}

	if reset {
		logger.Debugf("Removing previous page database: %s", dbPath)
		if err := os.RemoveAll(dbPath); err != nil {
			// Badger will either reuse or recreate the files
			logger.Errorf("Failed to remove page database %s: %v", dbPath, err)
		}
	}

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("%w: cannot create state directory %s: %w", utils.ErrFilesystem, dbPath, err)
	}

	opts := badger.DefaultOptions(dbPath).
		WithLogger(log.NewBadgerLogger(logger)).
		WithNumVersionsToKeep(1) // Only the latest record of a page matters

	var err error
	store.db, err = badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open badger database at %s: %w", utils.ErrDatabase, dbPath, err)
	}

	count, err := store.countKeys()
	if err != nil {
		logger.Warnf("Failed to count existing page records: %v", err)
	}
	store.keyCount.Store(int64(count))

	logger.WithField("records", count).Infof("Page database opened at %s", dbPath)
	return store, nil
}

// countKeys performs a one-time full key scan
func (s *BadgerStore) countKeys() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(pageKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction conflicts
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := range maxConflictRetries {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// RecordPage implements PageStore
func (s *BadgerStore) RecordPage(url string, rec *models.PageRecord) error {
	key := []byte(pageKeyPrefix + url)

	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal page record for '%s': %w", utils.ErrParsing, url, err)
	}

	isNew := false
	err = s.dbUpdate(func(txn *badger.Txn) error {
		_, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			isNew = true
		}
		return txn.SetEntry(badger.NewEntry(key, value))
	})
	if err != nil {
		s.log.WithField("key", string(key)).Errorf("DB Update error in RecordPage: %v", err)
		return fmt.Errorf("%w: failed recording page '%s': %w", utils.ErrDatabase, url, err)
	}
	if isNew {
		s.keyCount.Add(1)
	}
	return nil
}

// GetPage implements PageStore
func (s *BadgerStore) GetPage(url string) (models.PageStatus, *models.PageRecord, error) {
	status := models.PageStatusNotFound
	var rec *models.PageRecord
	key := []byte(pageKeyPrefix + url)

	errView := s.db.View(func(txn *badger.Txn) error {
		item, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return nil
		}
		if errGet != nil {
			return fmt.Errorf("%w: failed getting page key '%s': %w", utils.ErrDatabase, string(key), errGet)
		}
		return item.Value(func(val []byte) error {
			var decoded models.PageRecord
			if errJson := json.Unmarshal(val, &decoded); errJson != nil {
				s.log.Warnf("Failed to unmarshal page record for '%s': %v. Treating as 'pending'.", url, errJson)
				status = models.PageStatusPending
				return nil
			}
			rec = &decoded
			status = decoded.Status
			return nil
		})
	})
	if errView != nil {
		s.log.Errorf("DB View error in GetPage for '%s': %v", url, errView)
		return models.PageStatusDBError, nil, errView
	}
	return status, rec, nil
}

// Count implements PageStore
func (s *BadgerStore) Count() (int, error) {
	return int(s.keyCount.Load()), nil
}

// ForEach implements PageStore
func (s *BadgerStore) ForEach(ctx context.Context, fn func(url string, rec models.PageRecord) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(pageKeyPrefix)

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			url := string(item.Key()[len(prefix):])

			var rec models.PageRecord
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				s.log.Warnf("Skipping unreadable page record '%s': %v", url, err)
				continue
			}
			if err := fn(url, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteVisitedLog implements PageStore
func (s *BadgerStore) WriteVisitedLog(filePath string) error {
	return writeVisitedLog(filePath, s.log, func(visit func(string) error) error {
		return s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false
			it := txn.NewIterator(opts)
			defer it.Close()
			prefix := []byte(pageKeyPrefix)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				if err := visit(string(it.Item().Key()[len(prefix):])); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

// writeVisitedLog writes the URLs produced by walk to filePath
func writeVisitedLog(filePath string, logger *logrus.Entry, walk func(visit func(string) error) error) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("%w: create visited log '%s': %w", utils.ErrFilesystem, filePath, err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	written := 0
	walkErr := walk(func(url string) error {
		if _, err := writer.WriteString(url + "\n"); err != nil {
			return err
		}
		written++
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("%w: writing visited log '%s': %w", utils.ErrFilesystem, filePath, walkErr)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("%w: flushing visited log '%s': %w", utils.ErrFilesystem, filePath, err)
	}
	logger.Infof("Wrote %d URLs to visited log: %s", written, filePath)
	return nil
}

// RunGC implements PageStore
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.db == nil || s.db.IsClosed() {
				continue
			}
			var err error
			// Loop GC until it returns ErrNoRewrite or another error
			for err == nil {
				err = s.db.RunValueLogGC(0.5)
			}
			if !errors.Is(err, badger.ErrNoRewrite) {
				s.log.Errorf("BadgerDB GC error: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Close implements PageStore
func (s *BadgerStore) Close() error {
	if s.db == nil || s.db.IsClosed() {
		return nil
	}
	if err := s.db.Close(); err != nil {
		s.log.Errorf("Error closing page database: %v", err)
		return fmt.Errorf("%w: closing %s: %w", utils.ErrDatabase, s.path, err)
	}
	s.log.Debug("Page database closed.")
	return nil
}
