package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func (s *Server) HandleGetBookingInvoice(c *gin.Context) {
	bookingID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	invoice, err := s.invoiceRepo.FindByBookingID(c.Request.Context(), s.db, bookingID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if invoice == nil {
		AbortWithError(c, gorm.ErrRecordNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoice": invoice})
}
