package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skillmint/regsync/internal/api/dto"
	"github.com/skillmint/regsync/internal/domain/mailer"
	"github.com/skillmint/regsync/internal/domain/sheetsync"
)

// SyncHandler exposes the admin surface of the sync subsystem: status,
// manual resyncs and bulk mail.
type SyncHandler struct {
	sync       *sheetsync.Service
	mailer     *mailer.Service
	regWatcher *sheetsync.Watcher
	evWatcher  *sheetsync.Watcher
}

func NewSyncHandler(sync *sheetsync.Service, mail *mailer.Service, regWatcher, evWatcher *sheetsync.Watcher) *SyncHandler {
	return &SyncHandler{sync: sync, mailer: mail, regWatcher: regWatcher, evWatcher: evWatcher}
}

// Status godoc
// @Summary Sync subsystem status
// @Tags sync
// @Security BearerAuth
// @Success 200 {object} dto.SyncStatusResponse
// @Router /api/sync/status [get]
func (h *SyncHandler) Status(c *gin.Context) {
	resp := dto.SyncStatusResponse{
		Enabled:             h.sync.Enabled(),
		RegistrationWatcher: sheetsync.StateStopped.String(),
		EventWatcher:        sheetsync.StateStopped.String(),
		ResyncRunning:       h.sync.ResyncRunning(c.Request.Context()),
		LastFullResync:      h.sync.LastResync(c.Request.Context()),
	}
	if h.regWatcher != nil {
		resp.RegistrationWatcher = h.regWatcher.State().String()
	}
	if h.evWatcher != nil {
		resp.EventWatcher = h.evWatcher.State().String()
	}
	c.JSON(http.StatusOK, resp)
}

// ResyncEvent godoc
// @Summary Rebuild one event's sheet
// @Tags sync
// @Security BearerAuth
// @Param name path string true "Event name"
// @Success 200 {object} dto.ResyncResponse
// @Router /api/sync/events/{name} [post]
func (h *SyncHandler) ResyncEvent(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event name is required"})
		return
	}

	ok, err := h.sync.ResyncEvent(c.Request.Context(), name)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	resp := dto.ResyncResponse{Skipped: !ok, Total: 1}
	if ok {
		resp.Succeeded = 1
	}
	c.JSON(http.StatusOK, resp)
}

// ResyncAll godoc
// @Summary Rebuild every event's sheet
// @Tags sync
// @Security BearerAuth
// @Success 200 {object} dto.ResyncResponse
// @Failure 409 {object} map[string]string
// @Router /api/sync/resync [post]
func (h *SyncHandler) ResyncAll(c *gin.Context) {
	report, err := h.sync.ResyncAll(c.Request.Context())
	if err != nil {
		if errors.Is(err, sheetsync.ErrResyncInFlight) {
			c.JSON(http.StatusConflict, gin.H{"error": "a full resync is already running"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.ResyncResponse{
		Skipped:   report.Skipped,
		Total:     report.Total,
		Succeeded: report.Succeeded,
		Failed:    report.Failed,
	})
}

// BulkMail godoc
// @Summary Email the join link to an event's registrants
// @Tags sync
// @Security BearerAuth
// @Param request body dto.BulkMailRequest true "Target event and link"
// @Success 200 {object} dto.BulkMailResponse
// @Router /api/sync/mail [post]
func (h *SyncHandler) BulkMail(c *gin.Context) {
	if h.mailer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "mail delivery is not configured"})
		return
	}

	var req dto.BulkMailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.mailer.SendJoinLinks(c.Request.Context(), req.Event, req.JoinURL)
	if err != nil {
		if errors.Is(err, mailer.ErrNoRecipients) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no registrations for this event"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, dto.BulkMailResponse{
		Total:  report.Total,
		Sent:   report.Sent,
		Failed: report.Failed,
	})
}
