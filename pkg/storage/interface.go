package storage

import (
	"context"
	"time"

	"github.com/Sriram-PR/webtest/pkg/models"
)

// PageStore keeps the outcome of every URL processed by a crawl
type PageStore interface {
	// RecordPage stores rec for url, replacing any previous record
	RecordPage(url string, rec *models.PageRecord) error

	// GetPage returns the status and record stored for url
	// The status is PageStatusNotFound without error when url was never recorded
	GetPage(url string) (models.PageStatus, *models.PageRecord, error)

	// Count returns how many URLs are recorded
	Count() (int, error)

	// ForEach calls fn for every record in key order; an error from fn stops the walk
	ForEach(ctx context.Context, fn func(url string, rec models.PageRecord) error) error

	// WriteVisitedLog writes every recorded URL to filePath, one per line
	WriteVisitedLog(filePath string) error

	// RunGC runs periodic garbage collection until ctx is done. Should be run in a goroutine
	RunGC(ctx context.Context, interval time.Duration)

	// Close releases the store
	Close() error
}
