package storage

import (
	"fmt"
	"strings"
	"time"
)

// ObjectPurpose captures high-level intent for storage layout decisions.
type ObjectPurpose string

const (
	// PurposeSnapshotArchive names dated copies of the inventory snapshot
	// kept for audit after staff-triggered refreshes.
	PurposeSnapshotArchive ObjectPurpose = "snapshot-archive"
)

// PathParams provide required identifiers to compose storage object keys.
type PathParams struct {
	ArchivedAt time.Time
	FileName   string
}

// BuildObjectPath resolves the storage object path for the given purpose.
func BuildObjectPath(purpose ObjectPurpose, params PathParams) (string, error) {
	switch purpose {
	case PurposeSnapshotArchive:
		return buildSnapshotArchivePath(params)
	default:
		return "", fmt.Errorf("storage: unsupported object purpose %q", purpose)
	}
}

func buildSnapshotArchivePath(params PathParams) (string, error) {
	if params.ArchivedAt.IsZero() {
		return "", fmt.Errorf("storage: archivedAt is required")
	}
	fileName, err := validateFileName(params.FileName)
	if err != nil {
		return "", err
	}
	at := params.ArchivedAt.UTC()
	return fmt.Sprintf("archive/inventory/%04d/%02d/%02d/%s-%s",
		at.Year(), at.Month(), at.Day(), at.Format("150405"), fileName), nil
}

func validateFileName(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("storage: fileName is required")
	}
	if strings.ContainsAny(value, "/\\") {
		return "", fmt.Errorf("storage: fileName contains invalid path characters")
	}
	if strings.Contains(value, "..") {
		return "", fmt.Errorf("storage: fileName contains invalid traversal sequence")
	}
	return value, nil
}
