package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) HandleListRooms(c *gin.Context) {
	rooms, err := s.catalogSvc.ListRooms(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (s *Server) HandleListPackages(c *gin.Context) {
	packages, err := s.catalogSvc.ListPackages(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"packages": packages})
}

func (s *Server) HandleListServices(c *gin.Context) {
	services, err := s.catalogSvc.ListServices(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": services})
}
