package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillmint/regsync/internal/api/dto"
	"github.com/skillmint/regsync/internal/domain/registration"
	"github.com/skillmint/regsync/internal/domain/sheetsync"
	"github.com/skillmint/regsync/pkg/logger"
)

const manualSyncTimeout = 30 * time.Second

type RegistrationHandler struct {
	service registration.Service
	sync    *sheetsync.Service
	watcher *sheetsync.Watcher
	logger  *logger.Logger
}

func NewRegistrationHandler(service registration.Service, sync *sheetsync.Service, watcher *sheetsync.Watcher, log *logger.Logger) *RegistrationHandler {
	return &RegistrationHandler{service: service, sync: sync, watcher: watcher, logger: log}
}

// Submit godoc
// @Summary Submit an event registration
// @Tags registrations
// @Accept json
// @Produce json
// @Param registration body dto.SubmitRegistrationRequest true "Registration payload"
// @Success 201 {object} dto.RegistrationResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/registrations [post]
func (h *RegistrationHandler) Submit(c *gin.Context) {
	var req dto.SubmitRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reg, err := h.service.Submit(c.Request.Context(), registration.SubmitInput{
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		State:         req.State,
		Qualification: req.Qualification,
		Course:        req.Course,
		Consent:       req.Consent,
		EventDetails:  req.EventDetails,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.syncIfUnwatched(reg.ID)
	c.JSON(http.StatusCreated, dto.ToRegistrationResponse(reg))
}

// Update godoc
// @Summary Update a registration
// @Tags registrations
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Param registration body dto.UpdateRegistrationRequest true "Fields to change"
// @Success 200 {object} dto.RegistrationResponse
// @Router /api/registrations/{id} [put]
func (h *RegistrationHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid registration ID"})
		return
	}

	var req dto.UpdateRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reg, err := h.service.UpdateRegistration(c.Request.Context(), id, registration.UpdateInput{
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		State:         req.State,
		Qualification: req.Qualification,
		Course:        req.Course,
		Consent:       req.Consent,
		EventDetails:  req.EventDetails,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.syncIfUnwatched(reg.ID)
	c.JSON(http.StatusOK, dto.ToRegistrationResponse(reg))
}

// Delete godoc
// @Summary Delete a registration
// @Tags registrations
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Success 204
// @Router /api/registrations/{id} [delete]
func (h *RegistrationHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid registration ID"})
		return
	}

	deleted, err := h.service.DeleteRegistration(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	// Without a live watcher the deleted row lingers in the sheet until
	// someone rebuilds it, so rebuild the affected event now.
	if h.watcher == nil || !h.watcher.Active() {
		go func(course string) {
			ctx, cancel := context.WithTimeout(context.Background(), manualSyncTimeout)
			defer cancel()
			if _, err := h.sync.ResyncEvent(ctx, course); err != nil {
				h.logger.Error("Post-delete resync failed",
					zap.String("event", course),
					zap.Error(err),
				)
			}
		}(deleted.Course)
	}

	c.Status(http.StatusNoContent)
}

// Get godoc
// @Summary Get a registration
// @Tags registrations
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Success 200 {object} dto.RegistrationResponse
// @Router /api/registrations/{id} [get]
func (h *RegistrationHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid registration ID"})
		return
	}

	reg, err := h.service.GetRegistration(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToRegistrationResponse(reg))
}

// List godoc
// @Summary List registrations
// @Tags registrations
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param course query string false "Filter by event name"
// @Success 200 {object} dto.RegistrationListResponse
// @Router /api/registrations [get]
func (h *RegistrationHandler) List(c *gin.Context) {
	if course := c.Query("course"); course != "" {
		regs, err := h.service.ListByCourse(c.Request.Context(), course)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.RegistrationListResponse{
			Registrations: toResponses(regs),
			Total:         int64(len(regs)),
			Page:          1,
			PageSize:      len(regs),
		})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	regs, total, err := h.service.ListRegistrations(c.Request.Context(), page, pageSize)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.RegistrationListResponse{
		Registrations: toResponses(regs),
		Total:         total,
		Page:          page,
		PageSize:      pageSize,
	})
}

// syncIfUnwatched mirrors a write into the sheet when no live watcher will
// pick it up. The request never waits on the external sink.
func (h *RegistrationHandler) syncIfUnwatched(id uuid.UUID) {
	if h.watcher != nil && h.watcher.Active() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), manualSyncTimeout)
		defer cancel()
		if _, err := h.sync.SyncRegistrationByID(ctx, id); err != nil {
			h.logger.Error("Manual registration sync failed",
				zap.String("registration", id.String()),
				zap.Error(err),
			)
		}
	}()
}

func (h *RegistrationHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, registration.ErrRegistrationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "registration not found"})
	case errors.Is(err, registration.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"error": "a registration with this email already exists"})
	case errors.Is(err, registration.ErrDuplicatePhone):
		c.JSON(http.StatusConflict, gin.H{"error": "a registration with this phone already exists"})
	case errors.Is(err, registration.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, email, phone and course are required"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func toResponses(regs []registration.EventRegistration) []dto.RegistrationResponse {
	out := make([]dto.RegistrationResponse, len(regs))
	for i := range regs {
		out[i] = dto.ToRegistrationResponse(&regs[i])
	}
	return out
}
