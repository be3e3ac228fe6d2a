package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/whosin/internal/helpers"
	"github.com/joshua-takyi/whosin/internal/models"
	"github.com/joshua-takyi/whosin/internal/services"
)

func CreateEvent(es *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var env models.EventEnvelope
		if err := c.ShouldBindJSON(&env); err != nil {
			badRequest(c, "invalid request body")
			return
		}

		event, err := es.CreateEvent(c.Request.Context(), env)
		if err != nil {
			writeError(c, err)
			return
		}

		res := models.SuccessResponse(event, "event created")
		res.EventID = event.ID
		c.JSON(http.StatusCreated, res)
	}
}

func GetEvent(es *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := es.GetEvent(c.Request.Context(), helpers.StringTrim(c.Param("id")))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(view, ""))
	}
}

func ListEventAttendees(es *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := es.GetEvent(c.Request.Context(), helpers.StringTrim(c.Param("id")))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(view.Event.Attendees, ""))
	}
}

func ListPublicEvents(es *services.EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
		if err != nil || page <= 0 {
			badRequest(c, "invalid page parameter")
			return
		}
		limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultPageSize)))
		if err != nil || limit <= 0 {
			badRequest(c, "invalid limit parameter")
			return
		}
		limit = services.PageLimit(limit)

		events, total, err := es.ListPublicEvents(c.Request.Context(), page, limit)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.PaginatedResponse(events, page, limit, total))
	}
}
