package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type topUpRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

func (s *Server) CreateEscrowTopUpIntent(c *gin.Context) {
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

	var req topUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	intent, err := s.paymentSvc.CreateEscrowTopUpIntent(c.Request.Context(), userID, eventID, req.AmountCents)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": intent})
}

func (s *Server) CreateWalletTopUpIntent(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req topUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	intent, err := s.paymentSvc.CreateWalletTopUpIntent(c.Request.Context(), userID, req.AmountCents)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": intent})
}

func (s *Server) GetPaymentIntent(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	intentID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	intent, err := s.paymentSvc.GetIntent(c.Request.Context(), userID, intentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": intent})
}

func (s *Server) ConfirmPaymentIntent(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	intentID, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	intent, err := s.paymentSvc.Confirm(c.Request.Context(), userID, intentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": intent})
}
