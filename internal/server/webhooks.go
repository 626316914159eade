package server

import (
	"io"
	"net/http"

	ledgerdomain "github.com/campushq/pulse/internal/ledger/domain"
	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

// PayOSWebhook ingests the PAYOS server-to-server notification. The body
// is read raw because the signature covers the exact bytes on the wire.
func (s *Server) PayOSWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	intent, err := s.webhookSvc.IngestWebhook(c.Request.Context(), ledgerdomain.ProviderPayOS, c.Request.Header, body)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"intent_id": intent.ID.String(),
			"status":    intent.Status,
		},
	})
}

// VNPayCallback ingests the VNPAY browser redirect. The proof arrives in
// the query string, signed with the merchant hash secret.
func (s *Server) VNPayCallback(c *gin.Context) {
	intent, err := s.webhookSvc.HandleRedirectCallback(c.Request.Context(), ledgerdomain.ProviderVNPay, c.Request.URL.Query())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"intent_id": intent.ID.String(),
			"status":    intent.Status,
		},
	})
}
