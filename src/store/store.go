// Package store provides contact sources that bypass the REST API: an in-memory store for
// tests and demos, and a Postgres store that reads the contact table directly.
package store

import (
	"errors"
	"fmt"

	"mwa-review/src/api"
	"mwa-review/src/contracts"
)

// Store is a contact source. Both implementations satisfy the same interface as the HTTP
// client so the dashboard can run against any of them.
type Store interface {
	contracts.ContactAPI
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)

// ErrNotFound is returned when a contact id does not exist. It is the API client's
// sentinel so callers match one error whichever source they run against.
var ErrNotFound = api.ErrNotFound

// notFound wraps ErrNotFound with the id.
func notFound(id contracts.ContactID) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// NotFoundReason is the BulkFailure reason for ids the store does not hold.
const NotFoundReason = "not found"

// validateBulk rejects requests no store can act on.
func validateBulk(req contracts.BulkRequest) error {
	if !req.Action.Valid() {
		return fmt.Errorf("unsupported bulk action %q", req.Action)
	}
	if len(req.ContactIDs) == 0 {
		return errors.New("bulk request without contact ids")
	}
	return nil
}

// validatePatch checks enum fields of a patch.
func validatePatch(patch contracts.ContactPatch) error {
	if patch.Status != nil && !patch.Status.Valid() {
		return fmt.Errorf("invalid status %q", *patch.Status)
	}
	if patch.AgencyType != nil && !patch.AgencyType.Valid() {
		return fmt.Errorf("invalid agency type %q", *patch.AgencyType)
	}
	return nil
}

// pageBounds turns a 1-based page into an offset and limit. Page and size default to 1 and 20.
func pageBounds(page, size int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	return (page - 1) * size, size
}
