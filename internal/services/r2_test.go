package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"f1-pass-storefront/internal/config"
)

func TestNewR2ArchiveStore(t *testing.T) {
	tests := []struct {
		name    string
		config  config.R2Config
		wantErr bool
	}{
		{
			name: "valid config",
			config: config.R2Config{
				AccountID:       "test-account",
				AccessKeyID:     "test-key",
				SecretAccessKey: "test-secret",
				BucketName:      "test-bucket",
				Region:          "auto",
			},
			wantErr: false,
		},
		{
			name: "missing access key",
			config: config.R2Config{
				AccountID:       "test-account",
				SecretAccessKey: "test-secret",
				BucketName:      "test-bucket",
				Region:          "auto",
			},
			wantErr: true,
		},
		{
			name: "missing secret key",
			config: config.R2Config{
				AccountID:   "test-account",
				AccessKeyID: "test-key",
				BucketName:  "test-bucket",
				Region:      "auto",
			},
			wantErr: true,
		},
		{
			name: "missing bucket",
			config: config.R2Config{
				AccountID:       "test-account",
				AccessKeyID:     "test-key",
				SecretAccessKey: "test-secret",
				Region:          "auto",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewR2ArchiveStore(context.Background(), tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, store)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "r2", store.Name())
		})
	}
}

func TestR2ArchiveStore_URL(t *testing.T) {
	base := config.R2Config{
		AccountID:       "test-account",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		BucketName:      "order-receipts",
		Region:          "auto",
	}

	store, err := NewR2ArchiveStore(context.Background(), base)
	require.NoError(t, err)
	assert.Equal(t, "r2://order-receipts/receipts/F1-1/a.pdf", store.URL("/receipts/F1-1/a.pdf"))

	base.PublicURL = "https://files.example.com/"
	store, err = NewR2ArchiveStore(context.Background(), base)
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/receipts/F1-1/a.pdf", store.URL("receipts/F1-1/a.pdf"))
}
