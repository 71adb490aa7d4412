package mw

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"

	"configtree/internal/redisx"
)

var rateScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then redis.call('PEXPIRE', KEYS[1], ARGV[1]) end
return current`)

func rateKey(c *fiber.Ctx) string {
	return fmt.Sprintf("ip:%s|op:%s", c.IP(), OperatorName(c))
}

// RateLimit limits requests per client ip and operator. With a Redis client
// the counters are shared between instances; otherwise fiber's in-memory
// limiter is used. A max of zero disables limiting.
func RateLimit(rdb *redisx.Client, window time.Duration, max int) fiber.Handler {
	if max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	if rdb == nil {
		return limiter.New(limiter.Config{
			Max:          max,
			Expiration:   window,
			KeyGenerator: rateKey,
			LimitReached: func(_ *fiber.Ctx) error {
				return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")
			},
		})
	}
	windowSec := int64(window / time.Second)
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 200*time.Millisecond)
		defer cancel()
		res, err := rateScript.Run(ctx, rdb, []string{"rl:" + rateKey(c)}, window.Milliseconds()).Result()
		if err != nil {
			return c.Next()
		}
		n, _ := res.(int64)
		c.Set("X-RateLimit-Limit", fmt.Sprint(max))
		c.Set("X-RateLimit-Remaining", fmt.Sprint(lo.Max([]int64{0, int64(max) - n})))
		if n > int64(max) {
			c.Set("Retry-After", fmt.Sprint(windowSec))
			return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")
		}
		return c.Next()
	}
}
