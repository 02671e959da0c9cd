package storage

import (
	"testing"
	"time"
)

func TestBuildSnapshotArchivePath(t *testing.T) {
	at := time.Date(2025, 3, 7, 9, 30, 15, 0, time.UTC)
	path, err := BuildObjectPath(PurposeSnapshotArchive, PathParams{
		ArchivedAt: at,
		FileName:   "items.json",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "archive/inventory/2025/03/07/093015-items.json"
	if path != expected {
		t.Fatalf("expected %s, got %s", expected, path)
	}
}

func TestBuildSnapshotArchivePathRequiresTimestamp(t *testing.T) {
	_, err := BuildObjectPath(PurposeSnapshotArchive, PathParams{FileName: "items.json"})
	if err == nil {
		t.Fatalf("expected error for zero timestamp")
	}
}

func TestBuildObjectPathRejectsTraversal(t *testing.T) {
	_, err := BuildObjectPath(PurposeSnapshotArchive, PathParams{
		ArchivedAt: time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
		FileName:   "../bad.json",
	})
	if err == nil {
		t.Fatalf("expected error for invalid file name")
	}
}
