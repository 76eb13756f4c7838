package identity

import (
	"context"
	"strings"
	"sync"
	"time"
)

// InMemoryStore is a dev-only fallback when DB is not configured.
// It keeps full Store semantics (normalized lookup, conflicts, wholesale
// credential replacement) so the auth layer behaves identically in both modes.
type InMemoryStore struct {
	mu     sync.Mutex
	nextID int64
	byNorm map[string]*User
	byID   map[int64]*User
}

// NewInMemoryStore constructs an in-memory Store implementation.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		nextID: 1,
		byNorm: make(map[string]*User),
		byID:   make(map[int64]*User),
	}
}

// CreateUser registers a user, enforcing admission-number uniqueness.
func (s *InMemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	admission := strings.TrimSpace(in.AdmissionNumber)
	if admission == "" {
		return User{}, pgInvalid(op, "admission number is required")
	}
	if strings.TrimSpace(in.PasswordHash) == "" {
		return User{}, pgInvalid(op, "password hash is required")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	norm := NormalizeAdmissionNumber(admission)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byNorm[norm]; exists {
		return User{}, ConflictError{Op: op, Field: "admission_number"}
	}

	u := &User{
		ID:              s.nextID,
		AdmissionNumber: admission,
		AdmissionNorm:   norm,
		DisplayName:     pgTrimPtr(in.DisplayName),
		PasswordHash:    in.PasswordHash,
		CreatedAt:       now,
	}
	s.nextID++
	s.byNorm[norm] = u
	s.byID[u.ID] = u

	return *u, nil
}

// LookupByAdmissionNumber resolves a user by normalized admission number.
func (s *InMemoryStore) LookupByAdmissionNumber(ctx context.Context, admissionNumber string) (User, error) {
	const op = "identity.LookupByAdmissionNumber"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	norm := NormalizeAdmissionNumber(admissionNumber)
	if norm == "" {
		return User{}, pgInvalid(op, "admission number is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byNorm[norm]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return *u, nil
}

// ReplaceCredential swaps the stored hash wholesale.
func (s *InMemoryStore) ReplaceCredential(ctx context.Context, userID int64, storedHash string, now time.Time) error {
	const op = "identity.ReplaceCredential"

	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(storedHash) == "" {
		return pgInvalid(op, "stored hash is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return NotFoundError{Op: op, Resource: "user"}
	}
	u.PasswordHash = storedHash
	return nil
}

// AwardPoints increments the leaderboard counter.
func (s *InMemoryStore) AwardPoints(ctx context.Context, userID int64, points int64) error {
	const op = "identity.AwardPoints"

	if err := ctx.Err(); err != nil {
		return err
	}
	if points == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return NotFoundError{Op: op, Resource: "user"}
	}
	u.Points += points
	return nil
}
