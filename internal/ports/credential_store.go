package ports

import "context"

// CredentialStore persists the session credential, the only session state
// that survives a restart. Load reports domain.ErrNoCredential when nothing
// has been saved yet.
type CredentialStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, credential string) error
	Clear(ctx context.Context) error
}
