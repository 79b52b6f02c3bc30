package service

import (
	"context"
	"log/slog"
	"time"

	"feedhub/internal/middleware"
	"feedhub/internal/models"
	"feedhub/internal/notifications"
	"feedhub/internal/observability"
	"feedhub/internal/repository"
	"feedhub/internal/storage"
	"feedhub/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// PostsPerPage is the fixed page size of the feed.
const PostsPerPage = 2

const notOwnerMessage = "You are not authorized to update this post."

type PostService struct {
	postRepo    repository.PostRepository
	userRepo    repository.UserRepository
	images      storage.ImageStore
	maxUpload   int
	broadcaster func() (notifications.Broadcaster, error)
}

// PostServiceOption customizes a PostService.
type PostServiceOption func(*PostService)

// WithBroadcaster replaces the process-wide broadcaster lookup.
func WithBroadcaster(fn func() (notifications.Broadcaster, error)) PostServiceOption {
	return func(s *PostService) { s.broadcaster = fn }
}

func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	images storage.ImageStore,
	maxUploadBytes int,
	opts ...PostServiceOption,
) *PostService {
	s := &PostService{
		postRepo:    postRepo,
		userRepo:    userRepo,
		images:      images,
		maxUpload:   maxUploadBytes,
		broadcaster: notifications.Active,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpdatePostInput is an edit request. Image replaces the stored image;
// otherwise KeepImage, when set, must name the stored reference.
type UpdatePostInput struct {
	validation.PostInput
	Image     *storage.Upload
	KeepImage string
}

// List returns one page of posts, newest first, and the total post count.
func (s *PostService) List(ctx context.Context, page int) ([]*models.Post, int64, error) {
	if page < 1 {
		page = 1
	}
	total, err := s.postRepo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	posts, err := s.postRepo.List(ctx, PostsPerPage, (page-1)*PostsPerPage)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (s *PostService) Get(ctx context.Context, postID uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, postID)
}

// Create validates the request, stores the image, persists the post together
// with the creator's back-reference and announces it.
func (s *PostService) Create(ctx context.Context, userID uint, in validation.PostInput, image *storage.Upload) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "posts.create", attribute.Int64("user.id", int64(userID)))
	defer func() { observability.EndSpan(span, err) }()

	in.Normalize()
	verr := validation.Struct(in)
	if image == nil || len(image.Data) == 0 {
		verr = validation.Merge(verr, models.FieldError{Field: "image", Message: "Please upload an image."})
		if appErr, ok := verr.(*models.AppError); ok && len(appErr.ValidationErrors) == 1 {
			appErr.WithCode(models.CodeImageRequired)
		}
	}
	if verr != nil {
		return nil, verr
	}
	inspected, err := storage.Inspect(*image, s.maxUpload)
	if err != nil {
		return nil, err
	}

	creator, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(imageAttributes(inspected)...)
	ref, err := storage.Store(ctx, s.images, inspected)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	escaped := in.Escaped()
	post = &models.Post{
		Title:     escaped.Title,
		Content:   escaped.Content,
		ImageURL:  ref,
		CreatorID: creator.ID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		s.discardImage(ctx, ref)
		return nil, err
	}
	post.Creator = &models.Creator{ID: creator.ID, Name: creator.Name}

	observability.PostMutations.WithLabelValues("create").Inc()
	s.notify(ctx, notifications.Created(post))
	return post, nil
}

// Update edits a post owned by userID.
func (s *PostService) Update(ctx context.Context, userID, postID uint, in UpdatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "posts.update",
		attribute.Int64("user.id", int64(userID)), attribute.Int64("post.id", int64(postID)))
	defer func() { observability.EndSpan(span, err) }()

	in.Normalize()
	if err := validation.Struct(in.PostInput); err != nil {
		return nil, err
	}
	var inspected *storage.Inspected
	if in.Image != nil && len(in.Image.Data) > 0 {
		if inspected, err = storage.Inspect(*in.Image, s.maxUpload); err != nil {
			return nil, err
		}
	}

	post, err = s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.CreatorID != userID {
		return nil, models.NewForbiddenError(notOwnerMessage)
	}
	if inspected == nil && in.KeepImage != "" && in.KeepImage != post.ImageURL {
		return nil, models.NewValidationError(validation.FailedMessage, models.FieldError{
			Field:   "image",
			Message: "Image must be a new upload or the current image",
			Value:   in.KeepImage,
		})
	}

	oldRef := post.ImageURL
	newRef := ""
	if inspected != nil {
		span.SetAttributes(imageAttributes(inspected)...)
		newRef, err = storage.Store(ctx, s.images, inspected)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		post.ImageURL = newRef
	}

	escaped := in.PostInput.Escaped()
	post.Title = escaped.Title
	post.Content = escaped.Content
	post.UpdatedAt = time.Now()

	if err := s.postRepo.Update(ctx, post); err != nil {
		if newRef != "" {
			s.discardImage(ctx, newRef)
		}
		return nil, err
	}
	if newRef != "" && newRef != oldRef {
		s.discardImage(ctx, oldRef)
	}

	observability.PostMutations.WithLabelValues("update").Inc()
	s.notify(ctx, notifications.Updated(post))
	return post, nil
}

// Delete removes a post owned by userID, its back-reference and its image.
func (s *PostService) Delete(ctx context.Context, userID, postID uint) (err error) {
	ctx, span := observability.StartSpan(ctx, "posts.delete",
		attribute.Int64("user.id", int64(userID)), attribute.Int64("post.id", int64(postID)))
	defer func() { observability.EndSpan(span, err) }()

	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.CreatorID != userID {
		return models.NewForbiddenError(notOwnerMessage)
	}

	if err := s.postRepo.Delete(ctx, post); err != nil {
		return err
	}
	// The row is gone; losing the file now only leaks storage.
	s.discardImage(ctx, post.ImageURL)

	observability.PostMutations.WithLabelValues("delete").Inc()
	s.notify(ctx, notifications.Deleted(post.ID))
	return nil
}

func imageAttributes(in *storage.Inspected) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("image.format", in.Format),
		attribute.Int("image.width", in.Width),
		attribute.Int("image.height", in.Height),
		attribute.Int("image.bytes", len(in.Data)),
	}
}

// discardImage deletes a stored image, logging instead of failing.
func (s *PostService) discardImage(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if err := s.images.Delete(ctx, ref); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to delete stored image",
			slog.String("ref", ref), slog.String("error", err.Error()))
	}
}

// notify publishes ev. Failures never reach the caller.
func (s *PostService) notify(ctx context.Context, ev notifications.Event) {
	b, err := s.broadcaster()
	if err == nil {
		err = b.Broadcast(ctx, ev)
	}
	if err != nil {
		middleware.Logger.WarnContext(ctx, "post event not broadcast",
			slog.String("action", string(ev.Action)),
			slog.Uint64("post_id", uint64(ev.PostID)),
			slog.String("error", err.Error()))
	}
}
