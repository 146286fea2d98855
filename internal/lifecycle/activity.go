// Package lifecycle orchestrates the full notification cycle per trigger:
// pack ongoings, evaluate the condition language, create or reactivate
// notifications, dispatch to endpoints, and deprecate stale ones.
package lifecycle

import (
	"context"
	"errors"
)

// ErrDataConsistency marks an invariant violation between a detection
// snapshot and the persisted records it points at. It fails the single
// trigger's evaluation for the tick and is never retried.
var ErrDataConsistency = errors.New("lifecycle: data consistency violation")

// Profile is the persisted identity a detection matched against.
type Profile struct {
	ID       string
	GroupIDs []string
}

// ActivityPerson links an activity to its person's profile.
type ActivityPerson struct {
	Profile *Profile
}

// Activity is the tracked appearance of one person at one camera, resolved
// from the face-processing subsystem.
type Activity struct {
	ID             string
	CameraID       string
	Person         *ActivityPerson
	FaceBestShotID string
	BodyBestShotID string
}

// ActivityResolver looks up activities by id. The face-processing subsystem
// implements it; tests use an in-memory fake.
type ActivityResolver interface {
	GetActivity(ctx context.Context, id string) (*Activity, error)
}

// ThresholdProvider supplies the per-workspace notification score
// threshold below which detections are ignored.
type ThresholdProvider interface {
	NotificationScoreThreshold(workspaceID string) float64
}

// FixedThreshold is a ThresholdProvider returning one value for every
// workspace.
type FixedThreshold float64

// NotificationScoreThreshold implements ThresholdProvider.
func (t FixedThreshold) NotificationScoreThreshold(string) float64 {
	return float64(t)
}
