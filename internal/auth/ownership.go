package auth

import "strings"

// Authorize reports whether the acting identity owns the target resource.
// It is a pure equality check; callers must have already confirmed the
// resource exists so that a false result maps to 401, never 404.
func Authorize(actingID, ownerID string) bool {
	actingID = strings.TrimSpace(actingID)
	ownerID = strings.TrimSpace(ownerID)
	return actingID != "" && actingID == ownerID
}
