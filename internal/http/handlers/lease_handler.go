// Lease window HTTP handlers.
//
//   - POST /lease-windows              (create with entry and exit missions, Idempotency-Key aware)
//   - GET  /lease-windows              (list, paginated, ETag)
//   - GET  /lease-windows/{id}         (with missions and incident reports)
//   - PUT  /lease-windows/{id}/dates   (change dates, reschedule the exit reminder)
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

// MissionSpecRequest optionally pre-schedules a mission of the pair.
type MissionSpecRequest struct {
	Date    string `json:"date,omitempty" example:"2025-02-01"`
	Time    string `json:"time,omitempty" example:"10:00"`
	AgentID string `json:"agent_id,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

func (r *MissionSpecRequest) spec() services.MissionSpec {
	if r == nil {
		return services.MissionSpec{}
	}
	return services.MissionSpec{Date: r.Date, Time: r.Time, AgentID: r.AgentID, Notes: r.Notes}
}

// CreateLeaseWindowRequest creates a lease window and its two missions.
type CreateLeaseWindowRequest struct {
	TenantName   string              `json:"tenant_name" example:"Jane Doe"`
	TenantEmail  string              `json:"tenant_email,omitempty" example:"jane@example.com"`
	TenantPhone  string              `json:"tenant_phone,omitempty"`
	Address      string              `json:"address" example:"12 rue de la Paix, Paris"`
	StartDate    string              `json:"start_date" example:"2025-02-01"`
	EndDate      string              `json:"end_date" example:"2025-02-28"`
	OwnerID      string              `json:"owner_id,omitempty"`
	EntryMission *MissionSpecRequest `json:"entry_mission,omitempty"`
	ExitMission  *MissionSpecRequest `json:"exit_mission,omitempty"`
}

// UpdateLeaseDatesRequest changes the lease window dates.
type UpdateLeaseDatesRequest struct {
	StartDate string `json:"start_date" example:"2025-02-01"`
	EndDate   string `json:"end_date" example:"2025-03-15"`
}

// LeaseWindowDetails is a lease window with its missions and incidents.
type LeaseWindowDetails struct {
	*services.LeaseWindowResult
	Incidents []domain.IncidentReport `json:"incidents"`
}

// ListLeaseWindowsResponse wraps a page of lease windows.
type ListLeaseWindowsResponse struct {
	LeaseWindows []domain.LeaseWindow `json:"lease_windows"`
	Pagination   Pagination           `json:"pagination"`
}

//
// Handlers
//

// CreateLeaseWindow godoc
// @ID          createLeaseWindow
// @Summary     Create a lease window
// @Description Creates the lease window with its entry and exit missions atomically. Repeating a request with the same Idempotency-Key returns the original result.
// @Tags        LeaseWindows
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
// @Param       body             body    handlers.CreateLeaseWindowRequest  true  "Lease window"
// @Success     201  {object} services.LeaseWindowResult
// @Failure     400  {object} handlers.ErrorResponse
// @Failure     409  {object} handlers.ErrorResponse
// @Router      /lease-windows [post]
func (h *Handlers) CreateLeaseWindow(c *gin.Context) {
	ctx := c.Request.Context()

	if id, replay := middleware.ReplayResourceID(c); replay {
		res, _, err := h.leases.Details(ctx, id)
		if err == nil {
			c.Header(middleware.HeaderIdempotencyReplayed, "true")
			ok(c, http.StatusCreated, res)
			return
		}
		middleware.LoggerFrom(c).Warn().Err(err).Str("lease_window_id", id).Msg("idempotent replay target unavailable")
	}

	var req CreateLeaseWindowRequest
	if !bindJSON(c, &req) {
		return
	}
	uid := middleware.UserID(c)
	owner := strings.TrimSpace(req.OwnerID)
	if owner == "" && middleware.Role(c) == middleware.RoleOwner {
		owner = uid
	}

	res, err := h.leases.Create(ctx, services.LeaseWindowInput{
		TenantName:  req.TenantName,
		TenantEmail: req.TenantEmail,
		TenantPhone: req.TenantPhone,
		Address:     req.Address,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		OwnerID:     owner,
		Entry:       req.EntryMission.spec(),
		Exit:        req.ExitMission.spec(),
		CreatedBy:   uid,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}

	if key, has := middleware.GetIdempotencyKey(c); has && h.idem != nil {
		if err := h.idem.Remember(ctx, uid, middleware.IdempotencyScope(c), key, res.LeaseWindow.ID, http.StatusCreated); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency record not stored")
		}
	}
	ok(c, http.StatusCreated, res)
}

// ListLeaseWindows godoc
// @ID          listLeaseWindows
// @Summary     List lease windows (paginated)
// @Tags        LeaseWindows
// @Produce     json
// @Param       status     query  string  false "assigned, in_progress, completed or incident"
// @Param       owner_id   query  string  false "Owner"
// @Param       from       query  string  false "Windows ending on or after (YYYY-MM-DD)"
// @Param       to         query  string  false "Windows starting on or before (YYYY-MM-DD)"
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object} handlers.ListLeaseWindowsResponse
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse
// @Router      /lease-windows [get]
func (h *Handlers) ListLeaseWindows(c *gin.Context) {
	ctx := c.Request.Context()
	f := repo.LeaseWindowFilter{
		Status:  domain.LeaseStatus(strings.TrimSpace(c.Query("status"))),
		OwnerID: strings.TrimSpace(c.Query("owner_id")),
		From:    strings.TrimSpace(c.Query("from")),
		To:      strings.TrimSpace(c.Query("to")),
	}
	page, pageSize := clampPagination(c)

	if count, maxTS, err := h.leases.Stats(ctx, f); err == nil {
		if notModified(c, "lease-windows", count, maxTS) {
			return
		}
	}

	items, total, err := h.leases.ListPage(ctx, f, page, pageSize)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, ListLeaseWindowsResponse{LeaseWindows: items, Pagination: paginate(page, pageSize, total)})
}

// GetLeaseWindow godoc
// @ID          getLeaseWindow
// @Summary     Get a lease window
// @Tags        LeaseWindows
// @Produce     json
// @Param       id   path  string  true  "Lease window ID"
// @Success     200  {object} handlers.LeaseWindowDetails
// @Failure     404  {object} handlers.ErrorResponse
// @Router      /lease-windows/{id} [get]
func (h *Handlers) GetLeaseWindow(c *gin.Context) {
	res, reps, err := h.leases.Details(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if reps == nil {
		reps = []domain.IncidentReport{}
	}
	ok(c, http.StatusOK, LeaseWindowDetails{LeaseWindowResult: res, Incidents: reps})
}

// UpdateLeaseDates godoc
// @ID          updateLeaseDates
// @Summary     Change lease window dates
// @Description Cancels pending notifications and reschedules the exit reminder of a running tenancy.
// @Tags        LeaseWindows
// @Accept      json
// @Produce     json
// @Param       id    path  string                             true  "Lease window ID"
// @Param       body  body  handlers.UpdateLeaseDatesRequest   true  "New dates"
// @Success     200  {object} services.DatesOutcome
// @Failure     400  {object} handlers.ErrorResponse
// @Failure     404  {object} handlers.ErrorResponse
// @Failure     409  {object} handlers.ErrorResponse
// @Router      /lease-windows/{id}/dates [put]
func (h *Handlers) UpdateLeaseDates(c *gin.Context) {
	var req UpdateLeaseDatesRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.leases.UpdateDates(c.Request.Context(), c.Param("id"), strings.TrimSpace(req.StartDate), strings.TrimSpace(req.EndDate))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}
