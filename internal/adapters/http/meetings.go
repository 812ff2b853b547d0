package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/avoronin/Huddle/internal/app"
	"github.com/avoronin/Huddle/internal/domain"
	"github.com/avoronin/Huddle/internal/identity"
	"github.com/avoronin/Huddle/internal/persistence"
)

// MeetingHandlers exposes the authorization-gated operations to the external
// scheduling subsystem as plain request/response calls.
type MeetingHandlers struct {
	Store persistence.MeetingStore
	Gate  *app.Gate
	Ident *identity.Resolver
}

// caller resolves the Bearer token. Gated endpoints require a verified
// identity; there is no anonymous moderation.
func (h *MeetingHandlers) caller(c *gin.Context) (domain.UserID, bool) {
	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return "", false
	}
	ident, err := h.Ident.Resolve(token)
	if err != nil || ident == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return "", false
	}
	return ident.UserID, true
}

type createMeetingRequest struct {
	HostID   domain.UserID `json:"hostId"`
	RoomCode string        `json:"roomCode"`
}

func (h *MeetingHandlers) Create(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req createMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad payload"})
		return
	}
	if req.HostID == "" {
		req.HostID = caller
	}
	if req.RoomCode == "" {
		req.RoomCode = uuid.NewString()[:8]
	}

	m := &domain.Meeting{
		ID:       uuid.NewString(),
		RoomCode: domain.RoomID(req.RoomCode),
		HostID:   req.HostID,
		CoHosts:  make(map[domain.UserID]bool),
	}
	if err := h.Store.Create(c.Request.Context(), m); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("create meeting")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *MeetingHandlers) Get(c *gin.Context) {
	if _, ok := h.caller(c); !ok {
		return
	}
	m, err := h.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *MeetingHandlers) Lock(c *gin.Context) {
	h.setLocked(c, true)
}

func (h *MeetingHandlers) Unlock(c *gin.Context) {
	h.setLocked(c, false)
}

func (h *MeetingHandlers) setLocked(c *gin.Context, locked bool) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var err error
	if locked {
		err = h.Gate.Lock(c.Request.Context(), c.Param("id"), caller)
	} else {
		err = h.Gate.Unlock(c.Request.Context(), c.Param("id"), caller)
	}
	if err != nil {
		h.writeGateError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locked": locked})
}

type cohostRequest struct {
	Target domain.UserID `json:"target"`
}

func (h *MeetingHandlers) AssignCoHost(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req cohostRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad payload"})
		return
	}
	if err := h.Gate.AssignCoHost(c.Request.Context(), c.Param("id"), caller, req.Target); err != nil {
		h.writeGateError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assigned": req.Target})
}

func (h *MeetingHandlers) RemoveCoHost(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	target := domain.UserID(c.Param("userId"))
	if err := h.Gate.RemoveCoHost(c.Request.Context(), c.Param("id"), caller, target); err != nil {
		h.writeGateError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": target})
}

func (h *MeetingHandlers) writeGateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrNotAllowed):
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
	case errors.Is(err, app.ErrSelfTarget):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "host cannot target itself"})
	case errors.Is(err, persistence.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "meeting not found"})
	default:
		log.Error().Err(err).Str("module", "adapters.http").Msg("gated action")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *MeetingHandlers) writeStoreError(c *gin.Context, err error) {
	if errors.Is(err, persistence.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "meeting not found"})
		return
	}
	log.Error().Err(err).Str("module", "adapters.http").Msg("store error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
