package cache

import (
	"context"
	"fmt"
)

// PermissionCache maps (userID, applicationID) to the resolved set of
// permission codes. Entries are never authoritative; a miss always means
// recomputation from relational state followed by a Set.
//
// Backends are selected once at startup; callers depend only on this
// interface.
type PermissionCache interface {
	// Get returns the cached code set and whether an entry existed.
	Get(ctx context.Context, userID, appID string) ([]string, bool, error)
	// Set stores the code set under the backend's fixed TTL.
	Set(ctx context.Context, userID, appID string, codes []string) error
	// InvalidateUser removes exactly one (user, application) entry.
	InvalidateUser(ctx context.Context, userID, appID string) error
	// InvalidateUserAll removes all entries for a user across applications.
	InvalidateUserAll(ctx context.Context, userID string) error
	// InvalidateApplication removes all entries for an application across users.
	InvalidateApplication(ctx context.Context, appID string) error
}

func entryKey(userID, appID string) string {
	return fmt.Sprintf("perms:%s:%s", userID, appID)
}
