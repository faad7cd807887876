package controller

import (
	"net/http"

	"elarocks/internal/model"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit rejects requests with 429 once limiter is exhausted. A nil
// limiter allows everything.
func RateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if limiter != nil && !limiter.Allow() {
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, model.NewResponse("Rate limit exceeded", nil))
			return
		}
		ctx.Next()
	}
}
