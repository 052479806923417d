package service

import (
	"errors"
	"fmt"

	"github.com/rodionaltshuler/smart-reminder-server/internal/apperror"
)

// ErrStoreFailure marks an error returned by the store that is not a
// not-found or a uniqueness conflict. It is always reported as internal.
var ErrStoreFailure = errors.New("service: store failure")

// storeError passes domain outcomes (not found, conflict) through unchanged
// and turns everything else into an internal ErrStoreFailure.
func storeError(err error, message string) error {
	if errors.Is(err, apperror.ErrNotFound) || errors.Is(err, apperror.ErrConflict) {
		return err
	}
	return apperror.Internal(fmt.Errorf("%w: %w", ErrStoreFailure, err), message)
}
