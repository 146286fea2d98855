package condlang

import "github.com/watchgrid/triggerd/internal/ongoing"

// Result is the structured outcome of evaluating a single condition
// variable. Concrete types are PresenceResult and LocationResult.
type Result interface {
	// Satisfied reports whether the variable's comparison held.
	Satisfied() bool
}

// PersonMatch is a detected person together with the camera and locations
// the detection came from and the trigger label groups that matched.
type PersonMatch struct {
	Person          ongoing.PersonSnapshot
	CameraID        string
	LocationIDs     []string
	MatchedGroupIDs []string
}

// PresenceResult is the outcome of a presence variable.
type PresenceResult struct {
	Matched bool
	Persons []PersonMatch
}

func (r PresenceResult) Satisfied() bool { return r.Matched }

// LocationResult is the outcome of a location-overflow variable.
type LocationResult struct {
	Matched      bool
	CurrentCount int
}

func (r LocationResult) Satisfied() bool { return r.Matched }
