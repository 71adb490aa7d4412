// Package httpx wires the editing API: common middleware, routes and the
// optional providers handlers publish to.
package httpx

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"configtree/internal/httpx/kit"
	"configtree/internal/logx"
	"configtree/pkg"
)

var httpxLogger = logx.GetScope("httpx")

// RegisterCommonMiddlewares registers common middlewares, timing headers and
// a structured access log.
func RegisterCommonMiddlewares(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New())

	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)
		if err != nil {
			// Let the error handler write the response so the logged status is final.
			if herr := app.Config().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
			err = nil
		}
		c.Set("X-Response-Time", pkg.SmartDurationFormat(latency))
		c.Set("Server-Timing", fmt.Sprintf("app;dur=%.3f", float64(latency.Microseconds())/1000))
		httpxLogger.Info("access",
			zap.String("method", c.Method()),
			zap.String("path", c.OriginalURL()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Int64("latency_ms", latency.Milliseconds()),
			zap.String("ip", c.IP()),
			zap.String("ua", c.Get("User-Agent")),
			zap.String("request_id", kit.RequestID(c)),
		)
		return err
	})
}
