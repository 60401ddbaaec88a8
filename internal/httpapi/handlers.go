// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeConnect Contributors

package httpapi

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/safeconnect/safeconnect/internal/auth"
)

type registerRequest struct {
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FirstName string  `json:"firstName"`
	LastName  *string `json:"lastName"`
	Phone     *string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Message   string             `json:"message"`
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expiresAt"`
	User      auth.PublicAccount `json:"user"`
}

type profileResponse struct {
	User auth.PublicAccount `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

const (
	msgInvalidBody = "Invalid request body"
	msgNoToken     = "No token provided"
)

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(messageResponse{Message: "Server is running"})
}

func (s *Server) register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, msgInvalidBody)
	}

	result, err := s.service.Register(c.UserContext(), auth.RegisterRequest{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(authResponse{
		Message:   "User registered successfully",
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      result.Account,
	})
}

func (s *Server) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, msgInvalidBody)
	}

	result, err := s.service.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(authResponse{
		Message:   "Login successful",
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      result.Account,
	})
}

func (s *Server) logout(c *fiber.Ctx) error {
	if err := s.service.Logout(c.UserContext(), bearerToken(c)); err != nil {
		return err
	}
	return c.JSON(messageResponse{Message: "Logout successful"})
}

func (s *Server) profile(c *fiber.Ctx) error {
	token := bearerToken(c)
	if token == "" {
		return fiber.NewError(fiber.StatusUnauthorized, msgNoToken)
	}

	account, err := s.service.GetCurrentAccount(c.UserContext(), token)
	if err != nil {
		return err
	}
	return c.JSON(profileResponse{User: *account})
}

// bearerToken extracts the credential from "Authorization: Bearer <token>".
// Any other header shape yields "".
func bearerToken(c *fiber.Ctx) string {
	scheme, token, ok := strings.Cut(c.Get(fiber.HeaderAuthorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
