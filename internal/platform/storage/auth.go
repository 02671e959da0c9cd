package storage

import (
	"errors"

	"github.com/fitline/api/internal/platform/auth"
)

// ErrPermissionDenied is returned when the caller may not access the object.
var ErrPermissionDenied = errors.New("storage: permission denied")

// AuthorizeSnapshotAccess validates whether the identity may fetch the raw
// inventory snapshot. Only back-office staff see upstream data verbatim.
func AuthorizeSnapshotAccess(identity *auth.Identity) error {
	if identity == nil {
		return ErrPermissionDenied
	}
	if identity.HasAnyRole(auth.RoleStaff, auth.RoleAdmin) {
		return nil
	}
	return ErrPermissionDenied
}
