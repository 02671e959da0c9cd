package storage

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"
)

// SnapshotArchiver copies the live inventory snapshot object to a dated
// archive path so a refresh leaves an auditable trail of what was loaded.
type SnapshotArchiver struct {
	copier *Copier
	bucket string
	object string
	now    func() time.Time
}

// NewSnapshotArchiver constructs an archiver for the given snapshot object.
func NewSnapshotArchiver(copier *Copier, bucket, object string, clock func() time.Time) (*SnapshotArchiver, error) {
	if copier == nil {
		return nil, errors.New("snapshot archiver: copier is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("snapshot archiver: bucket is required")
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return nil, errors.New("snapshot archiver: object is required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &SnapshotArchiver{
		copier: copier,
		bucket: bucket,
		object: object,
		now:    clock,
	}, nil
}

// Archive copies the snapshot to its archive location and returns the
// destination object path.
func (a *SnapshotArchiver) Archive(ctx context.Context) (string, error) {
	if a == nil || a.copier == nil {
		return "", errors.New("snapshot archiver: not initialised")
	}

	dest, err := BuildObjectPath(PurposeSnapshotArchive, PathParams{
		ArchivedAt: a.now().UTC(),
		FileName:   path.Base(a.object),
	})
	if err != nil {
		return "", err
	}

	if err := a.copier.CopyObject(ctx, a.bucket, a.object, a.bucket, dest); err != nil {
		return "", err
	}
	return dest, nil
}
