package controller

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"elarocks/internal/dto"
	"elarocks/internal/elasticsearch"
	"elarocks/internal/model"
	"elarocks/internal/schema"
	"elarocks/internal/service"
	"elarocks/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type EventController struct {
	eventQueryService service.EventQueryService
	extractionService service.ExtractionService
	triggerLimiter    *rate.Limiter
}

// NewEventController builds the controller. triggerLimiter throttles manual
// runs and may be nil.
func NewEventController(eventQueryService service.EventQueryService, extractionService service.ExtractionService, triggerLimiter *rate.Limiter) *EventController {
	return &EventController{
		eventQueryService: eventQueryService,
		extractionService: extractionService,
		triggerLimiter:    triggerLimiter,
	}
}

func RegisterEventRoutes(router *gin.Engine, controller *EventController) {
	v1 := router.Group("/api/v1")
	{
		v1.GET("/events", controller.GetEvents)
		v1.GET("/runs", controller.GetRuns)
		v1.POST("/runs/:code", RateLimit(controller.triggerLimiter), controller.TriggerRun)
	}
}

// GetEvents searches stored records of one event action.
// Query: action or code (required), start, end (ISO 8601 or epoch ms),
// process_id, user, agent_id (substring), offset (default 0), limit (default 10).
func (c *EventController) GetEvents(ctx *gin.Context) {
	startTime, errStart := parseOptionalTime(ctx.Query("start"))
	endTime, errEnd := parseOptionalTime(ctx.Query("end"))
	if errStart != nil || errEnd != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid start or end format. Use ISO 8601 or epoch milliseconds.", nil))
		return
	}
	offset, err := strconv.Atoi(ctx.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", strconv.Itoa(service.DefaultEventLimit)))
	if err != nil || limit <= 0 {
		limit = service.DefaultEventLimit
	}

	req := dto.EventSearchRequest{
		Action:    strings.TrimSpace(ctx.Query("action")),
		Code:      strings.TrimSpace(ctx.Query("code")),
		StartTime: startTime,
		EndTime:   endTime,
		ProcessID: ctx.Query("process_id"),
		User:      ctx.Query("user"),
		AgentID:   ctx.Query("agent_id"),
		Offset:    offset,
		Limit:     limit,
	}

	result, err := c.eventQueryService.SearchEvents(ctx.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidQuery) || errors.Is(err, schema.ErrUnknownEventKind) {
			ctx.JSON(http.StatusBadRequest, model.NewResponse(err.Error(), nil))
			return
		}
		log.Error().Err(err).Msg("Error searching events")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to search events", nil))
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// GetRuns returns the last successful run per event code.
func (c *EventController) GetRuns(ctx *gin.Context) {
	state, err := c.extractionService.RunState()
	if err != nil {
		log.Error().Err(err).Msg("Error loading run state")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to load run state", nil))
		return
	}
	ctx.JSON(http.StatusOK, model.NewResponse("ok", state))
}

// TriggerRun extracts one event code synchronously.
func (c *EventController) TriggerRun(ctx *gin.Context) {
	code := ctx.Param("code")
	result, err := c.extractionService.Run(ctx.Request.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, schema.ErrUnknownEventKind):
			ctx.JSON(http.StatusNotFound, model.NewResponse(err.Error(), nil))
		case errors.Is(err, elasticsearch.ErrBackendUnavailable), errors.Is(err, elasticsearch.ErrBackendError):
			log.Error().Err(err).Str("event_code", code).Msg("Extraction run failed at the search backend")
			ctx.JSON(http.StatusBadGateway, model.NewResponse("Search backend failed", nil))
		default:
			log.Error().Err(err).Str("event_code", code).Msg("Extraction run failed")
			ctx.JSON(http.StatusInternalServerError, model.NewResponse("Extraction run failed", nil))
		}
		return
	}
	ctx.JSON(http.StatusOK, model.NewResponse("Extraction run completed", result))
}

func parseOptionalTime(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	return util.ParseTimeFlexible(raw)
}
