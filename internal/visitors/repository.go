package visitors

import (
	"context"
	"sync"
	"time"
)

// Repository defines visitor profile storage, keyed by (organization, session).
type Repository interface {
	Get(ctx context.Context, orgID, sessionID string) (*Profile, error)
	Upsert(ctx context.Context, profile *Profile) error
}

// InMemoryRepository keeps profiles in memory for tests and development.
type InMemoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		profiles: make(map[string]*Profile),
	}
}

func profileKey(orgID, sessionID string) string {
	return orgID + "/" + sessionID
}

// Get retrieves a profile copy, or ErrNotFound.
func (r *InMemoryRepository) Get(ctx context.Context, orgID, sessionID string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.profiles[profileKey(orgID, sessionID)]
	if !ok {
		return nil, ErrNotFound
	}
	return profile.Clone(), nil
}

// Upsert stores a copy of the profile.
func (r *InMemoryRepository) Upsert(ctx context.Context, profile *Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	cp := profile.Clone()
	cp.UpdatedAt = time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = cp.UpdatedAt
	}

	r.mu.Lock()
	r.profiles[profileKey(cp.OrganizationID, cp.SessionID)] = cp
	r.mu.Unlock()

	profile.CreatedAt = cp.CreatedAt
	profile.UpdatedAt = cp.UpdatedAt
	return nil
}
