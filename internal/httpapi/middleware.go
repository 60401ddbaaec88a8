// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeConnect Contributors

package httpapi

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/safeconnect/safeconnect/internal/logging"
	"github.com/safeconnect/safeconnect/internal/observability"
	"github.com/safeconnect/safeconnect/pkg/errutil"
)

const requestIDKey = "requestid"

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}

// requestContext bounds each request by timeout and tags its context with
// the request ID so service logs can be correlated with the access log.
func requestContext(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := logging.WithRequestID(c.UserContext(), requestID(c))
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		c.SetUserContext(ctx)
		return c.Next()
	}
}

// observe writes one access-log line per request and records request metrics.
// Errors from the chain are rendered here so the logged status is the one
// the client receives.
func observe(logger *slog.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if err := c.Next(); err != nil {
			if statusOf(err) >= fiber.StatusInternalServerError {
				errutil.LogErrorContext(c.UserContext(), logger, "request failed", err)
			}
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		elapsed := time.Since(start)
		status := c.Response().StatusCode()
		route := c.Route().Path

		if metrics != nil {
			metrics.RequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
			metrics.RequestDuration.WithLabelValues(c.Method(), route).Observe(elapsed.Seconds())
		}

		level := slog.LevelInfo
		if status >= fiber.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(logging.WithRequestID(context.Background(), requestID(c)), level, "http request",
			"method", c.Method(),
			"path", c.Path(),
			"route", route,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
			"ip", c.IP(),
		)
		return nil
	}
}
