// Package services – ConflictDetector
//
// This file implements the calendar conflict detector. A mission occupies
// the half-open window [scheduled_time, scheduled_time + duration); two
// missions of the same agent on the same day conflict when their windows
// intersect. Cancelled and soft-deleted missions never occupy the calendar.
//
// The detector only reads. Callers that write (MissionService) run it inside
// their own transaction, under the agent lock, so the read and the write
// are atomic with respect to other assignments of the same agent.
package services

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-mission-scheduler/internal/domain"
	"github.com/tbourn/go-mission-scheduler/internal/observability"
	"github.com/tbourn/go-mission-scheduler/internal/repo"
	"github.com/tbourn/go-mission-scheduler/internal/slots"
)

// Conflict describes an existing mission overlapping a candidate window.
type Conflict struct {
	MissionID     string             `json:"mission_id"`
	LeaseWindowID string             `json:"lease_window_id"`
	Type          domain.MissionType `json:"type"`
	AgentID       string             `json:"agent_id"`
	Date          string             `json:"date"`
	Start         string             `json:"start"`
	End           string             `json:"end"`
}

// SlotAvailability is one grid slot of a day. Occupancy counts overlapping
// missions across all agents and is only set for agent-less queries.
type SlotAvailability struct {
	Time      string     `json:"time"`
	Available bool       `json:"available"`
	Occupancy int        `json:"occupancy"`
	Conflicts []Conflict `json:"conflicts"`
}

// ConflictDetector reports overlaps between a candidate slot and the
// missions already on an agent's calendar.
type ConflictDetector struct {
	DB   *gorm.DB
	Grid slots.Grid
	// Capacity bounds how many missions may overlap a slot across all agents
	// in agent-less availability queries. Zero means unbounded.
	Capacity int
}

// NewConflictDetector constructs a detector over grid.
func NewConflictDetector(db *gorm.DB, grid slots.Grid, capacity int) *ConflictDetector {
	return &ConflictDetector{DB: db, Grid: grid, Capacity: capacity}
}

// DetectConflicts returns the missions of agentID on date whose windows
// overlap a mission starting at clock, ignoring excludeID. An empty result
// means the slot is free; only malformed input yields an error.
func (d *ConflictDetector) DetectConflicts(ctx context.Context, agentID, date, clock, excludeID string) (out []Conflict, err error) {
	ctx, span := observability.StartSpan(ctx, "services/ConflictDetector", "DetectConflicts",
		attribute.String("agent.id", agentID),
		attribute.String("date", date),
		attribute.String("time", clock),
	)
	defer func() { observability.EndSpan(span, err) }()

	return d.detect(ctx, d.DB, agentID, date, clock, excludeID)
}

// detect is DetectConflicts against an explicit handle, typically a tx.
func (d *ConflictDetector) detect(ctx context.Context, db *gorm.DB, agentID, date, clock, excludeID string) ([]Conflict, error) {
	var fe fieldErrors
	if strings.TrimSpace(agentID) == "" {
		fe.add("agent_id", "is required")
	}
	if _, err := slots.ParseDate(date, nil); err != nil {
		fe.add("date", err.Error())
	}
	start, err := slots.ParseClock(clock)
	if err != nil {
		fe.add("time", err.Error())
	}
	if err := fe.err(); err != nil {
		return nil, err
	}

	booked, err := repo.ListAgentMissionsOn(ctx, db, agentID, date, excludeID)
	if err != nil {
		return nil, err
	}
	return d.overlapping(d.Grid.Window(start), booked), nil
}

// AvailableSlots evaluates every grid slot of date. With an agent, a slot
// is available when it overlaps none of the agent's missions and carries
// the conflicting missions otherwise. Without an agent, only the global
// occupancy is computed and compared to Capacity.
func (d *ConflictDetector) AvailableSlots(ctx context.Context, date, agentID string) (out []SlotAvailability, err error) {
	ctx, span := observability.StartSpan(ctx, "services/ConflictDetector", "AvailableSlots",
		attribute.String("agent.id", agentID),
		attribute.String("date", date),
	)
	defer func() { observability.EndSpan(span, err) }()

	if _, err := slots.ParseDate(date, nil); err != nil {
		return nil, invalid("date", err.Error())
	}

	var booked []domain.Mission
	if agentID != "" {
		booked, err = repo.ListAgentMissionsOn(ctx, d.DB, agentID, date, "")
	} else {
		booked, err = repo.ListTimedMissionsOn(ctx, d.DB, date)
	}
	if err != nil {
		return nil, err
	}

	starts := d.Grid.Starts()
	out = make([]SlotAvailability, 0, len(starts))
	for _, start := range starts {
		hits := d.overlapping(d.Grid.Window(start), booked)
		slot := SlotAvailability{Time: slots.FormatClock(start), Conflicts: []Conflict{}}
		if agentID != "" {
			slot.Available = len(hits) == 0
			slot.Conflicts = hits
		} else {
			slot.Occupancy = len(hits)
			slot.Available = d.Capacity <= 0 || slot.Occupancy < d.Capacity
		}
		out = append(out, slot)
	}
	return out, nil
}

// overlapping returns the missions in booked whose window intersects w.
// Rows with an unparsable stored time are ignored.
func (d *ConflictDetector) overlapping(w slots.Window, booked []domain.Mission) []Conflict {
	out := []Conflict{}
	for i := range booked {
		m := &booked[i]
		if !m.HasTime() {
			continue
		}
		start, err := slots.ParseClock(*m.ScheduledTime)
		if err != nil {
			continue
		}
		other := d.Grid.Window(start)
		if !w.Overlaps(other) {
			continue
		}
		c := Conflict{
			MissionID:     m.ID,
			LeaseWindowID: m.LeaseWindowID,
			Type:          m.Type,
			Date:          m.ScheduledDate,
			Start:         slots.FormatClock(other.Start),
			End:           slots.FormatClock(other.End),
		}
		if m.HasAgent() {
			c.AgentID = *m.AssignedAgentID
		}
		out = append(out, c)
	}
	return out
}
