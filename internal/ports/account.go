package ports

import "context"

// AccountPort defines the interface for updating player account profiles.
type AccountPort interface {
	// UpdateProfile applies the username and display name to the account
	// identified by userID. Returns an error if the update fails.
	UpdateProfile(ctx context.Context, userID, username, displayName string) error
}
