package identity

import (
	"context"
	"time"
)

// User is ScholarBridge's canonical security principal.
//
// IDs are numeric because the realtime protocol carries userId as a JSON
// number; PasswordHash is the opaque versioned string owned by
// cmd/security/credential.
type User struct {
	ID              int64
	AdmissionNumber string
	AdmissionNorm   string

	DisplayName *string

	PasswordHash string
	Points       int64

	CreatedAt time.Time
}

// CreateUserInput describes a registration request.
// PasswordHash must already be an encoded stored hash; this package never sees
// the plaintext credential.
type CreateUserInput struct {
	AdmissionNumber string
	DisplayName     *string
	PasswordHash    string
	Now             time.Time
}

// Store is the identity persistence boundary.
type Store interface {
	// CreateUser registers a principal. Conflicting admission numbers return
	// a ConflictError.
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)

	// LookupByAdmissionNumber resolves a principal by its normalized
	// admission number. Missing users return ErrNotFound.
	LookupByAdmissionNumber(ctx context.Context, admissionNumber string) (User, error)

	// ReplaceCredential swaps the stored hash wholesale. Stored hashes are
	// never partially mutated.
	ReplaceCredential(ctx context.Context, userID int64, storedHash string, now time.Time) error

	// AwardPoints increments the leaderboard counter for a user.
	AwardPoints(ctx context.Context, userID int64, points int64) error
}
