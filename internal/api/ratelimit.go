package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const limiterPrefix = "docqa:queries"

// NewQueryLimiter returns middleware capping each client IP at perDay
// queries per 24 hours. Counters live in Redis when client is non-nil so the
// cap holds across replicas, otherwise in process memory.
func NewQueryLimiter(perDay int64, client *redis.Client) (gin.HandlerFunc, error) {
	if perDay <= 0 {
		return nil, fmt.Errorf("queries per day must be positive, got %d", perDay)
	}

	var (
		store limiter.Store
		err   error
	)
	if client != nil {
		store, err = sredis.NewStoreWithOptions(client, limiter.StoreOptions{
			Prefix:   limiterPrefix,
			MaxRetry: 3,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis limiter store: %w", err)
		}
	} else {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          limiterPrefix,
			CleanUpInterval: time.Hour,
		})
	}

	instance := limiter.New(store, limiter.Rate{Period: 24 * time.Hour, Limit: perDay})

	return mgin.NewMiddleware(instance,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: fmt.Sprintf("Daily query limit of %d reached", perDay),
				Code:  CodeRateLimited,
			})
		}),
	), nil
}
