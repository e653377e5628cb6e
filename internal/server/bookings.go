package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	bookingdomain "github.com/atelierlabs/studiobook/internal/booking/domain"
)

type bookingServiceRequest struct {
	ServiceID string `json:"service_id"`
	Quantity  int64  `json:"quantity"`
}

type createBookingRequest struct {
	UserID          string                  `json:"user_id"`
	RoomID          string                  `json:"room_id"`
	PackageID       string                  `json:"package_id"`
	PackageQuantity int64                   `json:"package_quantity"`
	Services        []bookingServiceRequest `json:"services"`
	StartTime       string                  `json:"start_time"`
	TimeZone        string                  `json:"time_zone"`
}

type bookingResponse struct {
	Booking   *bookingdomain.Booking          `json:"booking"`
	LineItems []bookingdomain.BookingLineItem `json:"line_items,omitempty"`
}

func (s *Server) HandleCreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	userID, err := snowflake.ParseString(strings.TrimSpace(req.UserID))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	roomID, err := snowflake.ParseString(strings.TrimSpace(req.RoomID))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	packageID, err := snowflake.ParseString(strings.TrimSpace(req.PackageID))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	startTime, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartTime))
	if err != nil {
		AbortWithError(c, bookingdomain.ErrInvalidStartTime)
		return
	}

	packageQuantity := req.PackageQuantity
	if packageQuantity == 0 {
		packageQuantity = 1
	}

	serviceQuantities := map[snowflake.ID]int64{}
	for _, svc := range req.Services {
		serviceID, err := snowflake.ParseString(strings.TrimSpace(svc.ServiceID))
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		serviceQuantities[serviceID] += svc.Quantity
	}

	booking, err := s.bookingSvc.CreateBooking(c.Request.Context(), bookingdomain.CreateBookingRequest{
		UserID:            userID,
		RoomID:            roomID,
		PackageID:         packageID,
		PackageQuantity:   packageQuantity,
		ServiceQuantities: serviceQuantities,
		StartTime:         startTime,
		TimeZone:          strings.TrimSpace(req.TimeZone),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, bookingResponse{Booking: booking})
}

func (s *Server) HandleGetBooking(c *gin.Context) {
	bookingID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	booking, items, err := s.bookingSvc.Get(c.Request.Context(), bookingID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, bookingResponse{Booking: booking, LineItems: items})
}

func (s *Server) HandleCancelBooking(c *gin.Context) {
	bookingID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.bookingSvc.Cancel(c.Request.Context(), bookingID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (s *Server) HandleCheckoutBooking(c *gin.Context) {
	bookingID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	session, err := s.checkoutCli.CreateSession(c.Request.Context(), bookingID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":   session.ID,
		"checkout_url": session.URL,
	})
}

func (s *Server) HandleListUserBookings(c *gin.Context) {
	userID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	bookings, err := s.bookingSvc.ListForUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}
