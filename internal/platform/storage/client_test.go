package storage

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/fitline/api/internal/platform/auth"
)

type fakeSigner struct {
	email    string
	payloads [][]byte
	err      error
}

func (f *fakeSigner) Email() string {
	return f.email
}

func (f *fakeSigner) SignBytes(_ context.Context, payload []byte) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.payloads = append(f.payloads, append([]byte(nil), payload...))
	return []byte("signed"), nil
}

func TestSignedDownloadURLSuccess(t *testing.T) {
	signer := &fakeSigner{email: "test@example.iam.gserviceaccount.com"}
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	client, err := NewClient(signer, WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}

	opts := DownloadOptions{
		ExpiresIn:    5 * time.Minute,
		Disposition:  `attachment; filename="items.json"`,
		ResponseType: "application/json",
	}

	res, err := client.SignedDownloadURL(context.Background(), "inventory-bucket", "inventory/items.json", opts)
	if err != nil {
		t.Fatalf("SignedDownloadURL returned error: %v", err)
	}

	if res.Method != httpMethodGet {
		t.Fatalf("expected method GET, got %s", res.Method)
	}
	if !res.ExpiresAt.Equal(now.Add(5 * time.Minute)) {
		t.Fatalf("unexpected expiry: %v", res.ExpiresAt)
	}

	parsed, err := url.Parse(res.URL)
	if err != nil {
		t.Fatalf("failed to parse signed URL: %v", err)
	}
	if !strings.Contains(parsed.RawQuery, "X-Goog-Signature=") {
		t.Fatalf("expected signature in query: %s", parsed.RawQuery)
	}
	if !strings.Contains(parsed.RawQuery, "response-content-type=application") {
		t.Fatalf("expected response content type in query: %s", parsed.RawQuery)
	}
	if len(signer.payloads) == 0 {
		t.Fatalf("expected signer to be invoked")
	}
}

func TestSignedDownloadURLRejectsMutatingMethod(t *testing.T) {
	signer := &fakeSigner{email: "test@example.iam.gserviceaccount.com"}
	client, err := NewClient(signer)
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}

	_, err = client.SignedDownloadURL(context.Background(), "bucket", "object", DownloadOptions{Method: "PUT"})
	if !errors.Is(err, errMethodNotAllowed) {
		t.Fatalf("expected errMethodNotAllowed, got %v", err)
	}
}

func TestSignedDownloadURLExpiryTooLong(t *testing.T) {
	signer := &fakeSigner{email: "test@example.iam.gserviceaccount.com"}
	client, err := NewClient(signer)
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}

	_, err = client.SignedDownloadURL(context.Background(), "bucket", "object", DownloadOptions{ExpiresIn: 30 * time.Minute})
	if !errors.Is(err, errExpiryTooLong) {
		t.Fatalf("expected errExpiryTooLong, got %v", err)
	}
}

func TestAuthorizeSnapshotAccess(t *testing.T) {
	if err := AuthorizeSnapshotAccess(nil); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied for nil identity, got %v", err)
	}
	buyer := &auth.Identity{UID: "user-1", Roles: []string{auth.RoleUser}}
	if err := AuthorizeSnapshotAccess(buyer); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied for buyer, got %v", err)
	}
	staff := &auth.Identity{UID: "staff-1", Roles: []string{auth.RoleStaff}}
	if err := AuthorizeSnapshotAccess(staff); err != nil {
		t.Fatalf("expected staff access, got %v", err)
	}
}
