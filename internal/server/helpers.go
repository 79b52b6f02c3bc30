package server

import (
	"io"

	"feedhub/internal/middleware"
	"feedhub/internal/models"
	"feedhub/internal/storage"
	"feedhub/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// currentUserID returns the caller set by AuthRequired.
func currentUserID(c *fiber.Ctx) (uint, error) {
	uid, ok := middleware.UserID(c)
	if !ok {
		return 0, models.NewUnauthenticatedError("Not authenticated.")
	}
	return uid, nil
}

// parseBody decodes a JSON, urlencoded or multipart body into dest.
func parseBody(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil && len(c.Body()) > 0 {
		return models.NewValidationError(validation.FailedMessage, models.FieldError{
			Field:   "body",
			Message: "Request body could not be parsed",
		})
	}
	return nil
}

// postID parses the :postId route parameter.
func postID(c *fiber.Ctx) (uint, error) {
	return validation.ParsePostID(c.Params("postId"))
}

// readUpload returns the multipart file in field, or nil when the request
// carries none. At most limit+1 bytes are read so oversized files are
// rejected by storage.Inspect without buffering them whole.
func readUpload(c *fiber.Ctx, field string, limit int) (*storage.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, int64(limit)+1))
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &storage.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Data:        data,
	}, nil
}
