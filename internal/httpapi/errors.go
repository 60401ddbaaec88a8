// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeConnect Contributors

package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/safeconnect/safeconnect/internal/auth"
)

type errorResponse struct {
	Error string `json:"error"`
}

// StatusFor maps an auth failure kind to an HTTP status.
func StatusFor(kind auth.Kind) int {
	switch kind {
	case auth.KindValidation, auth.KindMissingCredential:
		return fiber.StatusBadRequest
	case auth.KindDuplicateAccount:
		return fiber.StatusConflict
	case auth.KindInvalidCredentials, auth.KindInvalidSession:
		return fiber.StatusUnauthorized
	case auth.KindAccountNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

func statusOf(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	return StatusFor(auth.KindOf(err))
}

// errorHandler renders every handler error as {"error": msg}. Only the
// public message of an auth error is ever written.
func errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(errorResponse{Error: fiberErr.Message})
	}
	return c.Status(statusOf(err)).JSON(errorResponse{Error: auth.PublicMessage(err)})
}
