package repositories

import "errors"

// Sentinel errors shared by every repository. Handlers map these onto 404 and
// 409 responses without knowing which store produced them.
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record conflict")
)
