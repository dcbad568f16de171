package service

import "context"

// Actor identifies who performs an operation together with the capability
// booleans granted by the authorization collaborator. Capabilities are never
// re-derived here; the core only consults these flags.
type Actor struct {
	ID                  uint
	Role                string
	CanTakeAttendance   bool
	CanManageAttendance bool
	CanSelfMark         bool
}

// Staff reports whether the actor holds any staff capability.
func (a Actor) Staff() bool {
	return a.CanTakeAttendance || a.CanManageAttendance
}

// RosterProvider supplies the user ids enrolled for a session's group scope.
// Enrollment lives in the host system; the core only consumes it.
type RosterProvider interface {
	Roster(ctx context.Context, courseActivityID, groupID uint) ([]uint, error)
}

// StaticRosterProvider serves a fixed roster per activity. It backs local
// deployments and tests; production wires an adapter to the enrollment
// directory instead.
type StaticRosterProvider struct {
	entries map[uint][]uint
}

// NewStaticRosterProvider builds a roster provider over a fixed mapping of
// course activity id to enrolled user ids.
func NewStaticRosterProvider(entries map[uint][]uint) *StaticRosterProvider {
	if entries == nil {
		entries = make(map[uint][]uint)
	}
	return &StaticRosterProvider{entries: entries}
}

// Roster returns the configured user ids for the activity. Group scoping is
// not modeled in the static source; the full activity roster is returned.
func (p *StaticRosterProvider) Roster(_ context.Context, courseActivityID, _ uint) ([]uint, error) {
	roster := p.entries[courseActivityID]
	out := make([]uint, len(roster))
	copy(out, roster)
	return out, nil
}
