package realtime

import "context"

// PointAwarder credits a subject for contributing a comment event.
type PointAwarder interface {
	AwardPoints(ctx context.Context, subjectID int64, points int64) error
}

// NoopPointAwarder is the default awarder when no identity store is wired.
type NoopPointAwarder struct{}

// AwardPoints is a no-op implementation.
func (NoopPointAwarder) AwardPoints(_ context.Context, _ int64, _ int64) error { return nil }
