package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/whosin/internal/models"
	"github.com/joshua-takyi/whosin/internal/services"
)

func RegisterVoter(is *services.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RegisterVoterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}

		reg, err := is.Register(c.Request.Context(), req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(reg, "voter registered"))
	}
}
