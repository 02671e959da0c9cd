package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"

	domain "github.com/fitline/api/internal/domain"
	"github.com/fitline/api/internal/repositories"
)

// maxSnapshotBytes bounds the snapshot read so a corrupt upstream object
// cannot exhaust memory. Roughly 15k records fit well below this.
const maxSnapshotBytes = 64 << 20

// InventorySource fetches the raw inventory snapshot from a Cloud Storage
// object holding either a JSON array or an {"items": [...]} wrapper.
type InventorySource struct {
	client *gcs.Client
	bucket string
	object string
}

// NewInventorySource constructs an InventorySource bound to one object.
func NewInventorySource(client *gcs.Client, bucket, object string) (*InventorySource, error) {
	if client == nil {
		return nil, errors.New("inventory source: storage client is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("inventory source: bucket is required")
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return nil, errors.New("inventory source: object is required")
	}
	return &InventorySource{client: client, bucket: bucket, object: object}, nil
}

// FetchSnapshot downloads and decodes the snapshot object.
func (s *InventorySource) FetchSnapshot(ctx context.Context) ([]domain.RawInventoryRecord, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("inventory source not initialised")
	}

	reader, err := s.client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("inventory source: open %s/%s: %w", s.bucket, s.object, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, maxSnapshotBytes))
	if err != nil {
		return nil, fmt.Errorf("inventory source: read %s/%s: %w", s.bucket, s.object, err)
	}

	records, err := domain.DecodeInventorySnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("inventory source: decode %s/%s: %w", s.bucket, s.object, err)
	}
	return records, nil
}

var _ repositories.InventorySource = (*InventorySource)(nil)
