package server

import (
	"net/http"
	"time"

	eventdomain "github.com/campushq/pulse/internal/event/domain"
	"github.com/gin-gonic/gin"
)

type createEventRequest struct {
	Title          string    `json:"title"`
	PriceCents     int64     `json:"price_cents"`
	Capacity       *int      `json:"capacity"`
	EscrowMinCents int64     `json:"escrow_min_cents"`
	StartsAt       time.Time `json:"starts_at"`
}

func (s *Server) CreateEvent(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	event, err := s.eventSvc.Create(c.Request.Context(), userID, eventdomain.CreateEventInput{
		Title:          req.Title,
		PriceCents:     req.PriceCents,
		Capacity:       req.Capacity,
		EscrowMinCents: req.EscrowMinCents,
		StartsAt:       req.StartsAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": event})
}

func (s *Server) GetEvent(c *gin.Context) {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	event, err := s.eventSvc.Get(c.Request.Context(), eventID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": event})
}

func (s *Server) OpenEvent(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	event, err := s.eventSvc.Open(c.Request.Context(), userID, eventID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": event})
}

func (s *Server) CancelEvent(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	event, err := s.eventSvc.Cancel(c.Request.Context(), userID, eventID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": event})
}

// RegisterForEvent opens the payment window for one ticket. The response
// carries the intent's client secret and order code for the gateway
// checkout handoff.
func (s *Server) RegisterForEvent(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	intent, err := s.paymentSvc.CreateTicketIntent(c.Request.Context(), userID, eventID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": intent})
}
