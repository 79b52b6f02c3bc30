package server

import (
	"feedhub/internal/service"
	"feedhub/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// postForm is the text part of a create or update request. Image carries
// the stored reference a client echoes back to keep the current image.
type postForm struct {
	Title   string `json:"title" form:"title"`
	Content string `json:"content" form:"content"`
	Image   string `json:"image" form:"image"`
}

func (f postForm) input() validation.PostInput {
	return validation.PostInput{Title: f.Title, Content: f.Content}
}

// GetPosts handles GET /feed/posts
// @Summary List posts
// @Description Newest first, two posts per page
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default 1)"
// @Success 200 {object} object{message=string,posts=[]models.Post,totalItems=int}
// @Failure 401 {object} models.ErrorResponse
// @Router /feed/posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := validation.ParsePage(c.Query("page"))

	posts, total, err := s.postService.List(c.UserContext(), page)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message":    "Fetched posts successfully",
		"posts":      posts,
		"totalItems": total,
	})
}

// GetPost handles GET /feed/post/:postId
// @Summary Get a post
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Success 200 {object} object{message=string,post=models.Post}
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /feed/post/{postId} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := postID(c)
	if err != nil {
		return err
	}

	post, err := s.postService.Get(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Post found successfully",
		"post":    post,
	})
}

// CreatePost handles POST /feed/post
// @Summary Create a post
// @Tags feed
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param title formData string true "Title"
// @Param content formData string true "Content"
// @Param image formData file true "Image (png, jpeg, gif or webp)"
// @Success 201 {object} object{message=string,post=models.Post,creator=models.Creator}
// @Failure 401 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /feed/post [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var form postForm
	if err := parseBody(c, &form); err != nil {
		return err
	}
	image, err := readUpload(c, "image", s.config.MaxUploadBytes)
	if err != nil {
		return err
	}

	post, err := s.postService.Create(c.UserContext(), userID, form.input(), image)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Post created successfully",
		"post":    post,
		"creator": post.Creator,
	})
}

// UpdatePost handles PUT /feed/post/:postId
// @Summary Update own post
// @Description A new image file replaces the stored one; otherwise the stored image is kept.
// @Tags feed
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Param title formData string true "Title"
// @Param content formData string true "Content"
// @Param image formData file false "Replacement image"
// @Success 200 {object} object{message=string,post=models.Post}
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /feed/post/{postId} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := postID(c)
	if err != nil {
		return err
	}

	var form postForm
	if err := parseBody(c, &form); err != nil {
		return err
	}
	image, err := readUpload(c, "image", s.config.MaxUploadBytes)
	if err != nil {
		return err
	}

	post, err := s.postService.Update(c.UserContext(), userID, id, service.UpdatePostInput{
		PostInput: form.input(),
		Image:     image,
		KeepImage: form.Image,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Post updated successfully",
		"post":    post,
	})
}

// DeletePost handles DELETE /feed/post/:postId
// @Summary Delete own post
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /feed/post/{postId} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := postID(c)
	if err != nil {
		return err
	}

	if err := s.postService.Delete(c.UserContext(), userID, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Post deleted successfully"})
}
