// Mission HTTP handlers.
//
//   - GET    /missions                          (filtered list, paginated, ETag)
//   - GET    /missions/{id}
//   - POST   /missions/{id}/assign
//   - PATCH  /missions/{id}
//   - PUT    /missions/{id}/status
//   - DELETE /missions/{id}
//   - POST   /missions/bulk
//   - GET    /missions/conflicts
//   - GET    /missions/slots
//   - PUT    /missions/{id}/checklist
//   - POST   /missions/{id}/checklist/validate
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-mission-scheduler/internal/domain"
	"github.com/tbourn/go-mission-scheduler/internal/http/middleware"
	"github.com/tbourn/go-mission-scheduler/internal/repo"
	"github.com/tbourn/go-mission-scheduler/internal/services"
)

//
// DTOs
//

// ListMissionsResponse wraps a page of missions.
type ListMissionsResponse struct {
	Missions   []domain.Mission `json:"missions"`
	Pagination Pagination       `json:"pagination"`
}

// AssignMissionRequest assigns an agent and optionally a time.
type AssignMissionRequest struct {
	AgentID string  `json:"agent_id" example:"agent-7"`
	Time    string  `json:"time,omitempty" example:"10:00"`
	Notes   *string `json:"notes,omitempty"`
}

// UpdateMissionRequest is a partial update; omitted fields are untouched.
type UpdateMissionRequest struct {
	Date    *string `json:"date,omitempty" example:"2025-02-18"`
	Time    *string `json:"time,omitempty" example:"14:30"`
	AgentID *string `json:"agent_id,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

// UpdateMissionStatusRequest moves a mission along its lifecycle.
type UpdateMissionStatusRequest struct {
	Status string  `json:"status" example:"in_progress"`
	Notes  *string `json:"notes,omitempty"`
}

// BulkMissionsRequest applies one action to many missions.
type BulkMissionsRequest struct {
	MissionIDs []string            `json:"mission_ids"`
	Action     string              `json:"action" example:"assign" enums:"assign,update_status,delete"`
	Params     services.BulkParams `json:"params"`
}

// ConflictsResponse is the result of a conflict check.
type ConflictsResponse struct {
	HasConflicts bool                `json:"has_conflicts"`
	Conflicts    []services.Conflict `json:"conflicts"`
}

// SlotsResponse lists the grid for one day.
type SlotsResponse struct {
	Date    string                      `json:"date"`
	AgentID string                      `json:"agent_id,omitempty"`
	Slots   []services.SlotAvailability `json:"slots"`
}

// ChecklistRequest is the field report of a mission.
type ChecklistRequest struct {
	Completed         bool   `json:"completed"`
	KeysReturned      bool   `json:"keys_returned"`
	DamageCount       int    `json:"damage_count"`
	UnresolvedDamages int    `json:"unresolved_damages"`
	Notes             string `json:"notes,omitempty"`
}

//
// Helpers
//

func missionFilter(c *gin.Context) repo.MissionFilter {
	f := repo.MissionFilter{
		From:          strings.TrimSpace(c.Query("from")),
		To:            strings.TrimSpace(c.Query("to")),
		Type:          domain.MissionType(strings.TrimSpace(c.Query("type"))),
		AgentID:       strings.TrimSpace(c.Query("agent_id")),
		LeaseWindowID: strings.TrimSpace(c.Query("lease_window_id")),
		Query:         strings.TrimSpace(c.Query("q")),
	}
	for _, s := range strings.Split(c.Query("status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			f.Statuses = append(f.Statuses, domain.MissionStatus(s))
		}
	}
	return f
}

//
// Handlers
//

// ListMissions godoc
// @ID          listMissions
// @Summary     List missions (paginated)
// @Description Missions in a date range with optional status, type, agent, lease window and free-text filters. Supports weak ETag.
// @Tags        Missions
// @Produce     json
// @Param       from             query  string  false "First date (YYYY-MM-DD)"
// @Param       to               query  string  false "Last date (YYYY-MM-DD)"
// @Param       status           query  string  false "Comma-separated statuses"
// @Param       type             query  string  false "entry or exit"
// @Param       agent_id         query  string  false "Assigned agent"
// @Param       lease_window_id  query  string  false "Lease window"
// @Param       q                query  string  false "Tenant name, e-mail or address search"
// @Param       page             query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size        query  int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object} handlers.ListMissionsResponse
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse
// @Router      /missions [get]
func (h *Handlers) ListMissions(c *gin.Context) {
	ctx := c.Request.Context()
	f := missionFilter(c)
	page, pageSize := clampPagination(c)

	if count, maxTS, err := h.missions.Stats(ctx, f); err == nil {
		if notModified(c, "missions", count, maxTS) {
			return
		}
	}

	items, total, err := h.missions.ListPage(ctx, f, page, pageSize)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, ListMissionsResponse{Missions: items, Pagination: paginate(page, pageSize, total)})
}

// GetMission godoc
// @ID          getMission
// @Summary     Get a mission
// @Tags        Missions
// @Produce     json
// @Param       id   path  string  true  "Mission ID"
// @Success     200  {object} domain.Mission
// @Failure     404  {object} handlers.ErrorResponse
// @Router      /missions/{id} [get]
func (h *Handlers) GetMission(c *gin.Context) {
	m, err := h.missions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, m)
}

// AssignMission godoc
// @ID          assignMission
// @Summary     Assign an agent to a mission
// @Description Fails with 409 scheduling_conflict when the agent already holds an overlapping mission.
// @Tags        Missions
// @Accept      json
// @Produce     json
// @Param       id    path  string                          true  "Mission ID"
// @Param       body  body  handlers.AssignMissionRequest   true  "Assignment"
// @Success     200  {object} domain.Mission
// @Failure     400  {object} handlers.ErrorResponse
// @Failure     404  {object} handlers.ErrorResponse
// @Failure     409  {object} handlers.ErrorResponse
// @Router      /missions/{id}/assign [post]
func (h *Handlers) AssignMission(c *gin.Context) {
	var req AssignMissionRequest
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.missions.Assign(c.Request.Context(), c.Param("id"), services.AssignInput{
		AgentID: req.AgentID,
		Time:    req.Time,
		Notes:   req.Notes,
		By:      middleware.UserID(c),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, m)
}

// UpdateMission godoc
// @ID          updateMission
// @Summary     Edit mission details
// @Description Changes date, time, agent or notes. Rescheduling is re-checked for conflicts.
// @Tags        Missions
// @Accept      json
// @Produce     json
// @Param       id    path  string                          true  "Mission ID"
// @Param       body  body  handlers.UpdateMissionRequest   true  "Fields to change"
// @Success     200  {object} domain.Mission
// @Failure     400  {object} handlers.ErrorResponse
// @Failure     404  {object} handlers.ErrorResponse
// @Failure     409  {object} handlers.ErrorResponse
// @Router      /missions/{id} [patch]
func (h *Handlers) UpdateMission(c *gin.Context) {
	var req UpdateMissionRequest
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.missions.UpdateDetails(c.Request.Context(), c.Param("id"), services.MissionPatch{
		Date:    req.Date,
		Time:    req.Time,
		AgentID: req.AgentID,
		Notes:   req.Notes,
		By:      middleware.UserID(c),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, m)
}

// UpdateMissionStatus godoc
// @ID          updateMissionStatus
// @Summary     Change mission status
// @Tags        Missions
// @Accept      json
// @Produce     json
// @Param       id    path  string                                true  "Mission ID"
// @Param       body  body  handlers.UpdateMissionStatusRequest   true  "Target status"
// @Success     200  {object} domain.Mission
// @Failure     400  {object} handlers.ErrorResponse
// @Failure     404  {object} handlers.ErrorResponse
// @Failure     409  {object} handlers.ErrorResponse
// @Router      /missions/{id}/status [put]
func (h *Handlers) UpdateMissionStatus(c *gin.Context) {
	var req UpdateMissionStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.missions.UpdateStatus(c.Request.Context(), c.Param("id"), domain.MissionStatus(strings.TrimSpace(req.Status)), req.Notes)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, m)
}

// DeleteMission godoc
// @ID          deleteMission
// @Summary     Delete a mission
// @Description Only unassigned or assigned missions can be deleted.
// @Tags        Missions
// @Param       id   path  string  true  "Mission ID"
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse
// @Failure     409  {object} handlers.ErrorResponse
// @Router      /missions/{id} [delete]
func (h *Handlers) DeleteMission(c *gin.Context) {
	if err := h.missions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	noContent(c)
}

// BulkUpdateMissions godoc
// @ID          bulkUpdateMissions
// @Summary     Apply one action to many missions
// @Description Each mission succeeds or fails on its own; failures are listed with their code.
// @Tags        Missions
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.BulkMissionsRequest  true  "Bulk request"
// @Success     200  {object} services.BulkResult
// @Failure     400  {object} handlers.ErrorResponse
// @Router      /missions/bulk [post]
func (h *Handlers) BulkUpdateMissions(c *gin.Context) {
	var req BulkMissionsRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Params.By = middleware.UserID(c)
	res, err := h.missions.BulkUpdate(c.Request.Context(), req.MissionIDs, strings.TrimSpace(req.Action), req.Params)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// DetectConflicts godoc
// @ID          detectConflicts
// @Summary     Check an agent's calendar
// @Tags        Missions
// @Produce     json
// @Param       agent_id            query  string  true   "Agent"
// @Param       date                query  string  true   "YYYY-MM-DD"
// @Param       time                query  string  true   "HH:MM"
// @Param       exclude_mission_id  query  string  false  "Mission to ignore"
// @Success     200  {object} handlers.ConflictsResponse
// @Failure     400  {object} handlers.ErrorResponse
// @Router      /missions/conflicts [get]
func (h *Handlers) DetectConflicts(c *gin.Context) {
	got, err := h.conflicts.DetectConflicts(c.Request.Context(),
		strings.TrimSpace(c.Query("agent_id")),
		strings.TrimSpace(c.Query("date")),
		strings.TrimSpace(c.Query("time")),
		strings.TrimSpace(c.Query("exclude_mission_id")),
	)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if got == nil {
		got = []services.Conflict{}
	}
	ok(c, http.StatusOK, ConflictsResponse{HasConflicts: len(got) > 0, Conflicts: got})
}

// AvailableSlots godoc
// @ID          availableSlots
// @Summary     Slot grid for a day
// @Description With agent_id, availability of that agent; without, global occupancy against the slot capacity.
// @Tags        Missions
// @Produce     json
// @Param       date      query  string  true   "YYYY-MM-DD"
// @Param       agent_id  query  string  false  "Agent"
// @Success     200  {object} handlers.SlotsResponse
// @Failure     400  {object} handlers.ErrorResponse
// @Router      /missions/slots [get]
func (h *Handlers) AvailableSlots(c *gin.Context) {
	date := strings.TrimSpace(c.Query("date"))
	agent := strings.TrimSpace(c.Query("agent_id"))
	got, err := h.conflicts.AvailableSlots(c.Request.Context(), date, agent)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, SlotsResponse{Date: date, AgentID: agent, Slots: got})
}

// SubmitChecklist godoc
// @ID          submitChecklist
// @Summary     Submit the checklist of a mission
// @Description Allowed while the mission is in progress or completed, until validated.
// @Tags        Checklists
// @Accept      json
// @Produce     json
// @Param       id    path  string                      true  "Mission ID"
// @Param       body  body  handlers.ChecklistRequest   true  "Checklist"
// @Success     200  {object} domain.Checklist
// @Failure     404  {object} handlers.ErrorResponse
// @Failure     409  {object} handlers.ErrorResponse
// @Router      /missions/{id}/checklist [put]
func (h *Handlers) SubmitChecklist(c *gin.Context) {
	var req ChecklistRequest
	if !bindJSON(c, &req) {
		return
	}
	cl, err := h.leases.SubmitChecklist(c.Request.Context(), c.Param("id"), services.ChecklistInput{
		Completed:         req.Completed,
		KeysReturned:      req.KeysReturned,
		DamageCount:       req.DamageCount,
		UnresolvedDamages: req.UnresolvedDamages,
		Notes:             req.Notes,
		SubmittedBy:       middleware.UserID(c),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, cl)
}

// ValidateChecklist godoc
// @ID          validateChecklist
// @Summary     Validate a submitted checklist
// @Description Entry validation starts the tenancy and schedules the exit reminder; exit validation closes the lease, raising incidents when found.
// @Tags        Checklists
// @Produce     json
// @Param       id   path  string  true  "Mission ID"
// @Success     200  {object} services.ValidationOutcome
// @Failure     404  {object} handlers.ErrorResponse
// @Failure     409  {object} handlers.ErrorResponse
// @Router      /missions/{id}/checklist/validate [post]
func (h *Handlers) ValidateChecklist(c *gin.Context) {
	out, err := h.leases.ValidateChecklist(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}
