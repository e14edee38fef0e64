package domain

// MissionStatus is the lifecycle state of a mission.
type MissionStatus string

const (
	MissionUnassigned MissionStatus = "unassigned"
	MissionAssigned   MissionStatus = "assigned"
	MissionInProgress MissionStatus = "in_progress"
	MissionCompleted  MissionStatus = "completed"
	MissionCancelled  MissionStatus = "cancelled"
)

var missionTransitions = map[MissionStatus][]MissionStatus{
	MissionUnassigned: {MissionAssigned, MissionCancelled},
	MissionAssigned:   {MissionInProgress, MissionCancelled},
	MissionInProgress: {MissionCompleted},
}

// Valid reports whether s is a known mission status.
func (s MissionStatus) Valid() bool {
	switch s {
	case MissionUnassigned, MissionAssigned, MissionInProgress, MissionCompleted, MissionCancelled:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s MissionStatus) Terminal() bool { return s == MissionCompleted || s == MissionCancelled }

// Deletable reports whether a mission in status s may be soft-deleted.
func (s MissionStatus) Deletable() bool { return s == MissionUnassigned || s == MissionAssigned }

// Editable reports whether scheduling fields (date, time, agent) may change.
func (s MissionStatus) Editable() bool { return s == MissionUnassigned || s == MissionAssigned }

// CanTransitionTo reports whether the mission state machine allows s → next.
func (s MissionStatus) CanTransitionTo(next MissionStatus) bool {
	for _, n := range missionTransitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// LeaseStatus is the lifecycle state of a lease window.
type LeaseStatus string

const (
	LeaseAssigned   LeaseStatus = "assigned"
	LeaseInProgress LeaseStatus = "in_progress"
	LeaseCompleted  LeaseStatus = "completed"
	LeaseIncident   LeaseStatus = "incident"
)

var leaseTransitions = map[LeaseStatus][]LeaseStatus{
	LeaseAssigned:   {LeaseInProgress},
	LeaseInProgress: {LeaseCompleted, LeaseIncident},
}

// Valid reports whether s is a known lease status.
func (s LeaseStatus) Valid() bool {
	switch s {
	case LeaseAssigned, LeaseInProgress, LeaseCompleted, LeaseIncident:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lease-window state machine allows
// s → next. Incident is terminal for automatic transitions; resolving it is
// an operator action outside this state machine.
func (s LeaseStatus) CanTransitionTo(next LeaseStatus) bool {
	for _, n := range leaseTransitions[s] {
		if n == next {
			return true
		}
	}
	return false
}
