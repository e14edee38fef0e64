// Package services – IncidentDetector
//
// Evaluate is a pure function of the exit mission, its checklist and the
// detection time. Each rule contributes at most one incident and does not
// depend on the others, so rule order only affects result order.
package services

import (
	"fmt"
	"time"

	"github.com/tbourn/go-mission-scheduler/internal/domain"
)

// IncidentInput is what the rules look at.
type IncidentInput struct {
	Mission   *domain.Mission
	Checklist *domain.Checklist // nil when none was submitted
	Now       time.Time
}

// IncidentRule inspects in and returns an incident or nil.
type IncidentRule func(in IncidentInput) *domain.Incident

// IncidentDetector evaluates a fixed rule set.
type IncidentDetector struct {
	Rules []IncidentRule
}

// NewIncidentDetector returns a detector with DefaultIncidentRules.
func NewIncidentDetector() *IncidentDetector {
	return &IncidentDetector{Rules: DefaultIncidentRules()}
}

// DefaultIncidentRules is the exit-validation rule set.
func DefaultIncidentRules() []IncidentRule {
	return []IncidentRule{
		keysNotReturned,
		unresolvedDamage,
		checklistIncomplete,
		exitNotCompleted,
	}
}

// Evaluate runs every rule and returns the incidents found, never nil.
func (d *IncidentDetector) Evaluate(in IncidentInput) []domain.Incident {
	out := []domain.Incident{}
	for _, rule := range d.Rules {
		if inc := rule(in); inc != nil {
			out = append(out, *inc)
		}
	}
	return out
}

func incident(typ domain.IncidentType, sev domain.IncidentSeverity, at time.Time, msg string) *domain.Incident {
	return &domain.Incident{Type: typ, Severity: sev, Message: msg, DetectedAt: at.UTC()}
}

func keysNotReturned(in IncidentInput) *domain.Incident {
	if in.Checklist == nil || in.Checklist.KeysReturned {
		return nil
	}
	return incident(domain.IncidentKeysNotReturned, domain.SeverityHigh, in.Now, "keys were not returned at exit")
}

func unresolvedDamage(in IncidentInput) *domain.Incident {
	if in.Checklist == nil || in.Checklist.UnresolvedDamages <= 0 {
		return nil
	}
	return incident(domain.IncidentUnresolvedDamage, domain.SeverityHigh, in.Now,
		fmt.Sprintf("%d unresolved damage(s) reported", in.Checklist.UnresolvedDamages))
}

func checklistIncomplete(in IncidentInput) *domain.Incident {
	if in.Checklist != nil && in.Checklist.Completed {
		return nil
	}
	return incident(domain.IncidentChecklistIncomplete, domain.SeverityMedium, in.Now, "exit checklist is incomplete")
}

func exitNotCompleted(in IncidentInput) *domain.Incident {
	if in.Mission != nil && in.Mission.Status == domain.MissionCompleted {
		return nil
	}
	status := "missing"
	if in.Mission != nil {
		status = string(in.Mission.Status)
	}
	return incident(domain.IncidentExitNotCompleted, domain.SeverityMedium, in.Now, "exit mission is "+status)
}

// ExitOverdue is the incident raised by the batch sweep for a lease window
// past its end date without a completed exit.
func ExitOverdue(lw *domain.LeaseWindow, now time.Time) domain.Incident {
	return *incident(domain.IncidentExitOverdue, domain.SeverityHigh, now,
		fmt.Sprintf("lease ended %s and the exit mission is not completed", lw.EndDate))
}

// reports converts incidents into persisted rows for a lease window.
func reports(leaseWindowID, missionID string, incidents []domain.Incident) []domain.IncidentReport {
	out := make([]domain.IncidentReport, len(incidents))
	for i, inc := range incidents {
		out[i] = domain.IncidentReport{
			LeaseWindowID: leaseWindowID,
			MissionID:     missionID,
			Type:          inc.Type,
			Severity:      inc.Severity,
			Message:       inc.Message,
			DetectedAt:    inc.DetectedAt,
		}
	}
	return out
}
