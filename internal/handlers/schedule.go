package handlers

import (
	"errors"
	"net/http"

	"petsync/internal/models"
	"petsync/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) getSchedule(c *gin.Context) {
	entries, err := h.services.List(c.Request.Context())
	if err != nil {
		h.scheduleError(c, err)
		return
	}
	if entries == nil {
		entries = []models.ScheduleEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) saveSchedule(c *gin.Context) {
	var entries []models.ScheduleEntry
	if err := c.ShouldBindJSON(&entries); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody + ": " + err.Error()})
		return
	}
	stored, err := h.services.Save(c.Request.Context(), entries)
	if err != nil {
		h.scheduleError(c, err)
		return
	}
	c.JSON(http.StatusOK, stored)
}

// Legacy variants speak the original Portuguese field names and paths.

func (h *Handler) getScheduleLegacy(c *gin.Context) {
	entries, err := h.services.List(c.Request.Context())
	if err != nil {
		h.scheduleError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ToLegacySlice(entries))
}

func (h *Handler) saveScheduleLegacy(c *gin.Context) {
	var legacy []models.LegacyScheduleEntry
	if err := c.ShouldBindJSON(&legacy); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"erro": "Dados inválidos"})
		return
	}
	entries := make([]models.ScheduleEntry, 0, len(legacy))
	for _, le := range legacy {
		entries = append(entries, models.FromLegacy(le))
	}
	stored, err := h.services.Save(c.Request.Context(), entries)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSchedule) {
			c.JSON(http.StatusBadRequest, gin.H{"erro": "Dados inválidos"})
			return
		}
		h.scheduleError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ToLegacySlice(stored))
}

func (h *Handler) scheduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidSchedule):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrStoreUnavailable):
		if h.log != nil {
			h.log.Errorw("store_unavailable", "err", err)
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errStoreDown})
	default:
		if h.log != nil {
			h.log.Errorw("schedule_request_failed", "err", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong!"})
	}
}
