package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ArchiveStore defines the interface for receipt copy storage
type ArchiveStore interface {
	// Name identifies the store in logs
	Name() string

	// Put stores a file and returns where it was written
	Put(ctx context.Context, key string, reader io.Reader, contentType string, size int64) (string, error)
}

// ReceiptArchiver keeps a copy of every receipt forwarded to the backend.
// A nil store disables archiving.
type ReceiptArchiver struct {
	store  ArchiveStore
	logger *zap.Logger
	now    func() time.Time
}

// NewReceiptArchiver creates a new receipt archiver
func NewReceiptArchiver(store ArchiveStore, logger *zap.Logger) *ReceiptArchiver {
	return &ReceiptArchiver{store: store, logger: logger, now: time.Now}
}

// Enabled reports whether receipts are archived.
func (a *ReceiptArchiver) Enabled() bool {
	return a != nil && a.store != nil
}

// Archive stores file under the order reference. Failures are logged and
// reported as an empty location.
func (a *ReceiptArchiver) Archive(ctx context.Context, reference string, file *ReceiptFile) string {
	if !a.Enabled() {
		return ""
	}

	key := receiptArchiveKey(reference, file.Filename, a.now())
	location, err := a.store.Put(ctx, key, file.Reader(), file.ContentType, int64(len(file.Data)))
	if err != nil {
		a.logger.Warn("failed to archive receipt",
			zap.String("reference", reference),
			zap.String("store", a.store.Name()),
			zap.Error(err))
		return ""
	}

	a.logger.Info("receipt archived",
		zap.String("reference", reference),
		zap.String("store", a.store.Name()),
		zap.String("location", location))
	return location
}

// receiptArchiveKey builds receipts/{reference}/{date}/{uuid}{ext}.
func receiptArchiveKey(reference, filename string, now time.Time) string {
	safeRef := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(reference))
	if safeRef == "" {
		safeRef = "unknown"
	}
	return fmt.Sprintf("receipts/%s/%s/%s%s",
		safeRef, now.UTC().Format("2006-01-02"), uuid.New().String(), strings.ToLower(path.Ext(filename)))
}
