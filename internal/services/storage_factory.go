package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"f1-pass-storefront/internal/config"
)

// NewReceiptArchiveStore builds the archive store selected by RECEIPT_ARCHIVE.
// It returns nil for "none". R2 is backed by the local directory; when R2
// cannot be configured the local directory is used alone.
func NewReceiptArchiveStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ArchiveStore, error) {
	switch cfg.Receipts.Archive {
	case "", "none":
		return nil, nil
	case "local":
		local, err := NewLocalArchiveStore(cfg.Receipts.ArchiveDir)
		if err != nil {
			return nil, err
		}
		return local, nil
	case "r2":
		local, err := NewLocalArchiveStore(cfg.Receipts.ArchiveDir)
		if err != nil {
			return nil, err
		}
		r2, err := NewR2ArchiveStore(ctx, cfg.R2)
		if err != nil {
			logger.Warn("R2 archive unavailable, using local archive only", zap.Error(err))
			return local, nil
		}
		logger.Info("receipt archive: R2 with local fallback", zap.String("bucket", cfg.R2.BucketName))
		return NewFallbackArchiveStore(r2, local, logger), nil
	default:
		return nil, fmt.Errorf("unknown receipt archive %q", cfg.Receipts.Archive)
	}
}
