// Package seed fills a database with demo accounts and posts. It goes
// through the services so seeded data obeys the same rules as API input.
// Development and testing only.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"feedhub/internal/middleware"
	"feedhub/internal/models"
	"feedhub/internal/notifications"
	"feedhub/internal/repository"
	"feedhub/internal/service"
	"feedhub/internal/storage"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "Secret123"

// Options configuration for the seeder
type Options struct {
	NumUsers     int
	PostsPerUser int
	Password     string
	// Seed makes gofakeit output reproducible when non-zero.
	Seed int64
}

// Result lists what a run created.
type Result struct {
	Users []*models.User
	Posts []*models.Post
}

type Seeder struct {
	db     *gorm.DB
	images storage.ImageStore
	auth   *service.AuthService
	posts  *service.PostService
}

type silentBroadcaster struct{}

func (silentBroadcaster) Broadcast(context.Context, notifications.Event) error { return nil }

func NewSeeder(db *gorm.DB, images storage.ImageStore, maxUploadBytes int) *Seeder {
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	return &Seeder{
		db:     db,
		images: images,
		// Seeded users never log in through this service, so no signing key is needed.
		auth: service.NewAuthService(userRepo, service.TokenConfig{}),
		posts: service.NewPostService(postRepo, userRepo, images, maxUploadBytes,
			service.WithBroadcaster(func() (notifications.Broadcaster, error) {
				return silentBroadcaster{}, nil
			})),
	}
}

// Run creates opts.NumUsers accounts with opts.PostsPerUser posts each.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Password == "" {
		opts.Password = DefaultPassword
	}
	if opts.Seed != 0 {
		gofakeit.Seed(opts.Seed)
	}

	res := &Result{}
	for i := 0; i < opts.NumUsers; i++ {
		user, err := s.auth.Signup(ctx, SignupInput(i, opts.Password))
		if err != nil {
			return res, fmt.Errorf("seed user %d: %w", i, err)
		}
		res.Users = append(res.Users, user)

		for j := 0; j < opts.PostsPerUser; j++ {
			img, err := ImageUpload()
			if err != nil {
				return res, err
			}
			post, err := s.posts.Create(ctx, user.ID, PostInput(), img)
			if err != nil {
				return res, fmt.Errorf("seed post %d for user %d: %w", j, user.ID, err)
			}
			res.Posts = append(res.Posts, post)
		}
	}

	middleware.Logger.InfoContext(ctx, "seeding complete",
		slog.Int("users", len(res.Users)), slog.Int("posts", len(res.Posts)))
	return res, nil
}

// ClearAll removes every post, back-reference and user, and makes a
// best-effort attempt to delete stored images.
func (s *Seeder) ClearAll(ctx context.Context) error {
	var refs []string
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Pluck("image_url", &refs).Error; err != nil {
		return fmt.Errorf("list images: %w", err)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := all.Delete(&models.UserPost{}).Error; err != nil {
			return err
		}
		if err := all.Delete(&models.Post{}).Error; err != nil {
			return err
		}
		return all.Delete(&models.User{}).Error
	})
	if err != nil {
		return fmt.Errorf("clear tables: %w", err)
	}

	for _, ref := range refs {
		if err := s.images.Delete(ctx, ref); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to delete seeded image",
				slog.String("ref", ref), slog.String("error", err.Error()))
		}
	}
	return nil
}
