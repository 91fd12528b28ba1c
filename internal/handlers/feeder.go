package handlers

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"

	"petsync/internal/feeder"
	"petsync/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errInvalidBody   = "invalid body"
	errLevelOrGrams  = "body must contain level or grams"
	errEnabledNeeded = "enabled must be a boolean"
	errStoreDown     = "schedule store unavailable"
)

// feederStateRequest accepts either the ambiguous level channel or an exact
// gram count. Level is deliberately untyped: clients send numbers and
// strings like "20 gramas".
type feederStateRequest struct {
	Level any      `json:"level"`
	Grams *float64 `json:"grams"`
}

type dispenseRequest struct {
	Amount *float64 `json:"amount"`
}

type autoRefillRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *Handler) getFeederState(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Snapshot(c.Request.Context()))
}

func (h *Handler) setFeederState(c *gin.Context) {
	var req feederStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody + ": " + err.Error()})
		return
	}
	if req.Level == nil && req.Grams == nil {
		h.feederError(c, fmt.Errorf("%w: %s", service.ErrInvalidPayload, errLevelOrGrams))
		return
	}

	ctx := c.Request.Context()
	if req.Level != nil {
		if _, err := h.services.SetLevel(ctx, req.Level); err != nil {
			h.feederError(c, err)
			return
		}
	}
	if req.Grams != nil {
		if _, err := h.services.SetGrams(ctx, int(math.Round(*req.Grams))); err != nil {
			h.feederError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, h.services.Snapshot(ctx))
}

func (h *Handler) fillBowl(c *gin.Context) {
	snap, err := h.services.FillBowl(c.Request.Context())
	if err != nil {
		h.feederError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) dispense(c *gin.Context) {
	var req dispenseRequest
	// Empty body means "default dose"; only a present-but-broken body fails.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody + ": " + err.Error()})
		return
	}
	var amount *int
	if req.Amount != nil {
		v := int(math.Round(*req.Amount))
		amount = &v
	}
	snap, err := h.services.Dispense(c.Request.Context(), amount)
	if err != nil {
		h.feederError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) setAutoRefill(c *gin.Context) {
	var req autoRefillRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		h.feederError(c, fmt.Errorf("%w: %s", service.ErrInvalidPayload, errEnabledNeeded))
		return
	}
	snap, err := h.services.SetAutoRefill(c.Request.Context(), *req.Enabled)
	if err != nil {
		h.feederError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// feederError maps sync-core failures to the gateway's status contract.
func (h *Handler) feederError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, feeder.ErrOutOfRange), errors.Is(err, service.ErrInvalidPayload):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrStoreUnavailable):
		if h.log != nil {
			h.log.Errorw("store_unavailable", "err", err)
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errStoreDown})
	default:
		if h.log != nil {
			h.log.Errorw("feeder_request_failed", "err", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong!"})
	}
}
