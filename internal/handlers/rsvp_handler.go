package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/whosin/internal/helpers"
	"github.com/joshua-takyi/whosin/internal/models"
	"github.com/joshua-takyi/whosin/internal/services"
)

func SubmitRSVP(rs *services.RSVPService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var env models.VoteEnvelope
		if err := c.ShouldBindJSON(&env); err != nil {
			badRequest(c, "invalid request body")
			return
		}

		bearer := helpers.BearerToken(c.GetHeader("Authorization"))
		attendees, err := rs.Submit(c.Request.Context(), env, bearer)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"attendees": attendees}, "rsvp recorded"))
	}
}
