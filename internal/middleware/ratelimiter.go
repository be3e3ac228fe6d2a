package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/whosin/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memory "github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// DefaultRate applies to write endpoints when RATE_LIMIT is unset.
const DefaultRate = "30-M"

const storePrefix = "whosin:limiter"

// NewLimiterStore returns a Redis-backed store shared across replicas when
// client is non-nil, or a process-local memory store otherwise.
func NewLimiterStore(client *redis.Client) (limiter.Store, error) {
	if client == nil {
		return memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: storePrefix}), nil
	}
	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   storePrefix,
		MaxRetry: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis limiter store: %w", err)
	}
	return store, nil
}

// RateLimiter limits requests per client IP. formatted uses the ulule syntax,
// e.g. "30-M" for 30 requests per minute.
func RateLimiter(store limiter.Store, formatted string, logger *slog.Logger) (gin.HandlerFunc, error) {
	if formatted == "" {
		formatted = DefaultRate
	}
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid rate %q: %w", formatted, err)
	}

	instance := limiter.New(store, rate)
	return ginlimiter.NewMiddleware(instance,
		ginlimiter.WithLimitReachedHandler(func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse("too many requests"))
		}),
		ginlimiter.WithErrorHandler(func(c *gin.Context, err error) {
			// fail open
			logger.Warn("rate limiter unavailable", "error", err)
			c.Next()
		}),
	), nil
}
