package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillmint/regsync/internal/api/dto"
	"github.com/skillmint/regsync/internal/domain/event"
	"github.com/skillmint/regsync/internal/domain/sheetsync"
	"github.com/skillmint/regsync/pkg/logger"
)

type EventHandler struct {
	service event.Service
	sync    *sheetsync.Service
	watcher *sheetsync.Watcher
	logger  *logger.Logger
}

func NewEventHandler(service event.Service, sync *sheetsync.Service, watcher *sheetsync.Watcher, log *logger.Logger) *EventHandler {
	return &EventHandler{service: service, sync: sync, watcher: watcher, logger: log}
}

// Create godoc
// @Summary Create an event
// @Tags events
// @Security BearerAuth
// @Param event body dto.CreateEventRequest true "Event payload"
// @Success 201 {object} dto.EventResponse
// @Router /api/events [post]
func (h *EventHandler) Create(c *gin.Context) {
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ev, err := h.service.CreateEvent(c.Request.Context(), event.CreateEventInput{
		Title:        req.Title,
		Slug:         req.Slug,
		Description:  req.Description,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Timezone:     req.Timezone,
		HostName:     req.HostName,
		JoinURL:      req.JoinURL,
		Price:        req.Price,
		Currency:     req.Currency,
		CallToAction: req.CallToAction,
		Tags:         req.Tags,
		Highlights:   req.Highlights,
		Agenda:       req.Agenda,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.ensureSinkIfUnwatched(ev.ID)
	c.JSON(http.StatusCreated, dto.ToEventResponse(ev))
}

// Update godoc
// @Summary Update an event
// @Tags events
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param event body dto.UpdateEventRequest true "Fields to change"
// @Success 200 {object} dto.EventResponse
// @Router /api/events/{id} [put]
func (h *EventHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event ID"})
		return
	}

	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ev, err := h.service.UpdateEvent(c.Request.Context(), id, event.UpdateEventInput{
		Title:        req.Title,
		Description:  req.Description,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Timezone:     req.Timezone,
		HostName:     req.HostName,
		JoinURL:      req.JoinURL,
		Price:        req.Price,
		Currency:     req.Currency,
		CallToAction: req.CallToAction,
		Tags:         req.Tags,
		Highlights:   req.Highlights,
		Agenda:       req.Agenda,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.ensureSinkIfUnwatched(ev.ID)
	c.JSON(http.StatusOK, dto.ToEventResponse(ev))
}

// Delete godoc
// @Summary Delete an event
// @Tags events
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 204
// @Router /api/events/{id} [delete]
func (h *EventHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event ID"})
		return
	}
	if err := h.service.DeleteEvent(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Get godoc
// @Summary Get one event
// @Tags events
// @Param id path string true "Event ID"
// @Success 200 {object} dto.EventResponse
// @Router /api/events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event ID"})
		return
	}
	ev, err := h.service.GetEvent(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToEventResponse(ev))
}

// List godoc
// @Summary List events
// @Tags events
// @Success 200 {array} dto.EventResponse
// @Router /api/events [get]
func (h *EventHandler) List(c *gin.Context) {
	events, err := h.service.ListEvents(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]dto.EventResponse, len(events))
	for i := range events {
		out[i] = dto.ToEventResponse(&events[i])
	}
	c.JSON(http.StatusOK, out)
}

func (h *EventHandler) ensureSinkIfUnwatched(id uuid.UUID) {
	if h.watcher != nil && h.watcher.Active() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), manualSyncTimeout)
		defer cancel()
		if err := h.sync.EnsureSinkByID(ctx, id); err != nil {
			h.logger.Error("Manual sink refresh failed",
				zap.String("event", id.String()),
				zap.Error(err),
			)
		}
	}()
}

func (h *EventHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, event.ErrEventNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
	case errors.Is(err, event.ErrDuplicateTitle):
		c.JSON(http.StatusConflict, gin.H{"error": "an event with this title already exists"})
	case errors.Is(err, event.ErrDuplicateSlug):
		c.JSON(http.StatusConflict, gin.H{"error": "an event with this slug already exists"})
	case errors.Is(err, event.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
