package server

import (
	"feedhub/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// Signup handles POST /auth/signup
// @Summary User signup
// @Description Register a new account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body validation.SignupInput true "Signup request"
// @Success 201 {object} object{message=string,userId=int}
// @Failure 422 {object} models.ErrorResponse
// @Router /auth/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var in validation.SignupInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	user, err := s.authService.Signup(c.UserContext(), in)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created",
		"userId":  user.ID,
	})
}

// Login handles POST /auth/login
// @Summary User login
// @Description Authenticate and receive a bearer token valid for one hour
// @Tags auth
// @Accept json
// @Produce json
// @Param request body validation.LoginInput true "Login credentials"
// @Success 200 {object} object{message=string,token=string,userId=int}
// @Failure 401 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var in validation.LoginInput
	if err := parseBody(c, &in); err != nil {
		return err
	}

	token, user, err := s.authService.Login(c.UserContext(), in)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
		"userId":  user.ID,
	})
}

// GetStatus handles GET /auth/status
// @Summary Get own status
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{status=string}
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /auth/status [get]
func (s *Server) GetStatus(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	status, err := s.authService.GetStatus(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": status})
}

// UpdateStatus handles PUT /auth/status
// @Summary Update own status
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body validation.StatusInput true "New status"
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /auth/status [put]
func (s *Server) UpdateStatus(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var in validation.StatusInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	if err := s.authService.UpdateStatus(c.UserContext(), userID, in); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Status updated successfully"})
}
