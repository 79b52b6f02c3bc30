package validation

import (
	"strconv"
	"strings"

	"feedhub/internal/models"
)

// SignupInput is the signup request body.
type SignupInput struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=6,password_strength"`
	Name     string `json:"name" form:"name" validate:"required,min=3,person_name"`
}

// Normalize trims every field and lower-cases the email.
func (in *SignupInput) Normalize() {
	in.Email = NormalizeEmail(in.Email)
	in.Password = strings.TrimSpace(in.Password)
	in.Name = strings.TrimSpace(in.Name)
}

// LoginInput is the login request body.
type LoginInput struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=6"`
}

func (in *LoginInput) Normalize() {
	in.Email = NormalizeEmail(in.Email)
	in.Password = strings.TrimSpace(in.Password)
}

// StatusInput is the status update body.
type StatusInput struct {
	Status string `json:"status" form:"status" validate:"required,max=200"`
}

// Normalize trims the status. Escaping happens after validation so the
// length rule applies to what the user typed.
func (in *StatusInput) Normalize() {
	in.Status = strings.TrimSpace(in.Status)
}

// PostInput carries the text fields of a create or update request.
type PostInput struct {
	Title   string `json:"title" form:"title" validate:"required,min=5,max=100,post_title"`
	Content string `json:"content" form:"content" validate:"required,min=5,max=2000"`
}

func (in *PostInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
}

// Escaped returns a copy ready for storage.
func (in PostInput) Escaped() PostInput {
	return PostInput{Title: Escape(in.Title), Content: Escape(in.Content)}
}

// ParsePostID parses a :postId route value.
func ParsePostID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, models.NewValidationError(FailedMessage, models.FieldError{
			Field:   "postId",
			Message: "Invalid post ID format",
			Value:   raw,
		})
	}
	return uint(id), nil
}

// ParsePage returns the 1-based page number; absent, malformed or
// non-positive values yield 1.
func ParsePage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
