package sessions

import "context"

// Repo persists analysis sessions and their enhancements.
type Repo interface {
	// Create assigns an ID and timestamp when missing and inserts the session.
	Create(ctx context.Context, s Session) (string, error)
	Get(ctx context.Context, id string) (Session, error)
	List(ctx context.Context, f Filter) ([]Session, error)
	Stats(ctx context.Context) (Stats, error)
	// Reset wipes every session and enhancement and returns the object-store
	// keys the removed sessions referenced.
	Reset(ctx context.Context) ([]string, error)

	CreateEnhancement(ctx context.Context, e Enhancement) (string, error)
	ListEnhancements(ctx context.Context, sessionID string) ([]Enhancement, error)
	// LatestEnhancement returns ErrNotFound when the session has none.
	LatestEnhancement(ctx context.Context, sessionID string) (Enhancement, error)
}
