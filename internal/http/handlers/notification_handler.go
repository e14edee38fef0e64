// Notification and maintenance-job HTTP handlers.
//
//   - GET  /notifications                    (filtered list, paginated)
//   - GET  /notifications/{id}
//   - POST /jobs/notifications/process       (deliver due notifications)
//   - POST /jobs/missions/overdue            (alert on overdue missions)
//   - POST /jobs/lease-windows/incidents     (escalate overdue exits)
//   - POST /jobs/notifications/cleanup       (purge old rows)
//
// The job endpoints exist for external schedulers (cron, Kubernetes
// CronJob); every job is safe to run repeatedly and concurrently.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-mission-scheduler/internal/domain"
	"github.com/tbourn/go-mission-scheduler/internal/repo"
)

// ListNotificationsResponse wraps a page of notifications.
type ListNotificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	Pagination    Pagination            `json:"pagination"`
}

// JobResponse is the outcome of a job run.
type JobResponse struct {
	Job        string `json:"job"`
	DurationMS int64  `json:"duration_ms"`
	Summary    any    `json:"summary"`
}

// ListNotifications godoc
// @ID          listNotifications
// @Summary     List notifications (paginated)
// @Tags        Notifications
// @Produce     json
// @Param       lease_window_id  query  string  false "Lease window"
// @Param       mission_id       query  string  false "Mission"
// @Param       recipient_id     query  string  false "Recipient"
// @Param       status           query  string  false "pending, sending, sent, cancelled or failed"
// @Param       type             query  string  false "Notification type"
// @Param       page             query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size        query  int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object} handlers.ListNotificationsResponse
// @Failure     400  {object} handlers.ErrorResponse
// @Router      /notifications [get]
func (h *Handlers) ListNotifications(c *gin.Context) {
	f := repo.NotificationFilter{
		LeaseWindowID: strings.TrimSpace(c.Query("lease_window_id")),
		MissionID:     strings.TrimSpace(c.Query("mission_id")),
		RecipientID:   strings.TrimSpace(c.Query("recipient_id")),
		Status:        domain.NotificationStatus(strings.TrimSpace(c.Query("status"))),
		Type:          domain.NotificationType(strings.TrimSpace(c.Query("type"))),
	}
	page, pageSize := clampPagination(c)
	items, total, err := h.notifications.ListPage(c.Request.Context(), f, page, pageSize)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, ListNotificationsResponse{Notifications: items, Pagination: paginate(page, pageSize, total)})
}

// GetNotification godoc
// @ID          getNotification
// @Summary     Get a notification
// @Tags        Notifications
// @Produce     json
// @Param       id   path  string  true  "Notification ID"
// @Success     200  {object} domain.Notification
// @Failure     404  {object} handlers.ErrorResponse
// @Router      /notifications/{id} [get]
func (h *Handlers) GetNotification(c *gin.Context) {
	n, err := h.notifications.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, n)
}

// RunJob returns the handler triggering the named job.
//
// @ID          runJob
// @Summary     Run a maintenance job
// @Tags        Jobs
// @Produce     json
// @Success     200  {object} handlers.JobResponse
// @Failure     500  {object} handlers.ErrorResponse
// @Router      /jobs/notifications/process [post]
// @Router      /jobs/missions/overdue [post]
// @Router      /jobs/lease-windows/incidents [post]
// @Router      /jobs/notifications/cleanup [post]
func (h *Handlers) RunJob(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		results, err := h.jobs.Run(c.Request.Context(), name)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		r := results[0]
		if r.Err != nil {
			writeServiceError(c, r.Err)
			return
		}
		ok(c, http.StatusOK, JobResponse{Job: r.Name, DurationMS: r.Duration.Milliseconds(), Summary: r.Summary})
	}
}
