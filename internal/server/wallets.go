package server

import (
	"net/http"

	"github.com/campushq/pulse/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

func (s *Server) GetWallet(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	summary, err := s.walletSvc.GetSummary(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (s *Server) ListWalletTransactions(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	wallet, err := s.walletSvc.Ensure(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	txns, pageInfo, err := s.ledgerRepo.ListByWallet(c.Request.Context(), s.db, wallet.ID, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      txns,
		"page_info": pageInfo,
	})
}
