package service

import (
	"context"
	"errors"
	"testing"

	"feedhub/internal/models"
	"feedhub/internal/notifications"
	"feedhub/internal/repository"
	"feedhub/internal/storage"
	"feedhub/internal/testutil"
	"feedhub/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type postFixture struct {
	svc    *PostService
	db     *gorm.DB
	posts  repository.PostRepository
	store  *testutil.MemoryImageStore
	events *recordingBroadcaster
	owner  *models.User
	other  *models.User
}

func newPostFixture(t *testing.T) *postFixture {
	t.Helper()
	db := newTestDB(t)
	f := &postFixture{
		db:     db,
		posts:  repository.NewPostRepository(db),
		store:  testutil.NewMemoryImageStore(),
		events: &recordingBroadcaster{},
		owner:  seedUser(t, db, "owner@example.com", "Owner", "Secret123"),
		other:  seedUser(t, db, "other@example.com", "Other", "Secret123"),
	}
	f.svc = NewPostService(f.posts, repository.NewUserRepository(db), f.store, 1<<20,
		WithBroadcaster(func() (notifications.Broadcaster, error) { return f.events, nil }))
	return f
}

func (f *postFixture) upload(t *testing.T) *storage.Upload {
	return &storage.Upload{Filename: "pic.png", Data: testutil.PNGBytes(t, 3, 3)}
}

func (f *postFixture) create(t *testing.T, title string) *models.Post {
	t.Helper()
	post, err := f.svc.Create(context.Background(), f.owner.ID,
		validation.PostInput{Title: title, Content: "Some body text"}, f.upload(t))
	require.NoError(t, err)
	return post
}

func TestPostService_Create(t *testing.T) {
	f := newPostFixture(t)

	post, err := f.svc.Create(context.Background(), f.owner.ID,
		validation.PostInput{Title: "  Hello world  ", Content: "Tom & Jerry <3"}, f.upload(t))
	require.NoError(t, err)

	assert.NotZero(t, post.ID)
	assert.Equal(t, "Hello world", post.Title)
	assert.Equal(t, "Tom &amp; Jerry &lt;3", post.Content)
	require.NotNil(t, post.Creator)
	assert.Equal(t, models.Creator{ID: f.owner.ID, Name: "Owner"}, *post.Creator)
	assert.True(t, f.store.Has(post.ImageURL))

	owner, err := repository.NewUserRepository(f.db).GetByIDWithPosts(context.Background(), f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{post.ID}, owner.PostIDs())

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notifications.ActionCreate, events[0].Action)
	assert.Equal(t, post.ID, events[0].Post.ID)
}

func TestPostService_CreateWithoutImage(t *testing.T) {
	f := newPostFixture(t)

	_, err := f.svc.Create(context.Background(), f.owner.ID,
		validation.PostInput{Title: "Hello world", Content: "Some body text"}, nil)
	appErr := requireAppError(t, err, models.KindValidation)
	assert.Equal(t, models.CodeImageRequired, appErr.Code)
	require.Len(t, appErr.ValidationErrors, 1)
	assert.Equal(t, models.FieldError{Field: "image", Message: "Please upload an image."}, appErr.ValidationErrors[0])

	total, err := f.posts.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, f.events.Events())
}

func TestPostService_CreateShortTitle(t *testing.T) {
	f := newPostFixture(t)

	_, err := f.svc.Create(context.Background(), f.owner.ID,
		validation.PostInput{Title: "abc", Content: "Some body text"}, f.upload(t))
	appErr := requireAppError(t, err, models.KindValidation)
	assert.Equal(t, 422, appErr.StatusCode())
	assert.Contains(t, fieldNames(appErr), "title")
	assert.Zero(t, f.store.Count())
}

func TestPostService_CreateRejectsNonImage(t *testing.T) {
	f := newPostFixture(t)

	_, err := f.svc.Create(context.Background(), f.owner.ID,
		validation.PostInput{Title: "Hello world", Content: "Some body text"},
		&storage.Upload{Filename: "x.png", ContentType: "image/png", Data: []byte("plain text pretending")})
	appErr := requireAppError(t, err, models.KindValidation)
	assert.Equal(t, []string{"image"}, fieldNames(appErr))
	assert.Zero(t, f.store.Count())
}

func TestPostService_CreateSurvivesBroadcastFailure(t *testing.T) {
	f := newPostFixture(t)
	f.svc.broadcaster = func() (notifications.Broadcaster, error) {
		return nil, notifications.ErrBroadcasterNotInitialized
	}
	f.create(t, "Still created")

	f.events.err = errors.New("socket down")
	f.svc.broadcaster = func() (notifications.Broadcaster, error) { return f.events, nil }
	f.create(t, "Also created")

	total, err := f.posts.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestPostService_ListPages(t *testing.T) {
	f := newPostFixture(t)
	first := f.create(t, "First post")
	second := f.create(t, "Second post")
	third := f.create(t, "Third post")

	page1, total, err := f.svc.List(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page1, 2)
	assert.Equal(t, []uint{third.ID, second.ID}, []uint{page1[0].ID, page1[1].ID})
	require.NotNil(t, page1[0].Creator)
	assert.Equal(t, "Owner", page1[0].Creator.Name)

	page2, total, err := f.svc.List(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page2, 1)
	assert.Equal(t, first.ID, page2[0].ID)

	fallback, _, err := f.svc.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, fallback, 2)
}

func TestPostService_Get(t *testing.T) {
	f := newPostFixture(t)
	created := f.create(t, "Readable post")

	got, err := f.svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Readable post", got.Title)

	_, err = f.svc.Get(context.Background(), created.ID+100)
	appErr := requireAppError(t, err, models.KindNotFound)
	assert.Equal(t, "Could not find post.", appErr.Message)
}

func TestPostService_UpdateReplacesImage(t *testing.T) {
	f := newPostFixture(t)
	created := f.create(t, "Original title")
	oldRef := created.ImageURL

	updated, err := f.svc.Update(context.Background(), f.owner.ID, created.ID, UpdatePostInput{
		PostInput: validation.PostInput{Title: "Edited title", Content: "Edited body"},
		Image:     f.upload(t),
	})
	require.NoError(t, err)
	assert.Equal(t, "Edited title", updated.Title)
	assert.NotEqual(t, oldRef, updated.ImageURL)
	assert.True(t, f.store.Has(updated.ImageURL))
	assert.False(t, f.store.Has(oldRef))

	stored, err := f.svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Edited title", stored.Title)
	assert.Equal(t, updated.ImageURL, stored.ImageURL)

	events := f.events.Events()
	require.Len(t, events, 2)
	assert.Equal(t, notifications.ActionUpdate, events[1].Action)
}

func TestPostService_UpdateKeepsImage(t *testing.T) {
	f := newPostFixture(t)
	created := f.create(t, "Original title")

	for _, keep := range []string{"", created.ImageURL} {
		updated, err := f.svc.Update(context.Background(), f.owner.ID, created.ID, UpdatePostInput{
			PostInput: validation.PostInput{Title: "Edited title", Content: "Edited body"},
			KeepImage: keep,
		})
		require.NoError(t, err)
		assert.Equal(t, created.ImageURL, updated.ImageURL)
	}
	assert.Empty(t, f.store.Deleted)

	_, err := f.svc.Update(context.Background(), f.owner.ID, created.ID, UpdatePostInput{
		PostInput: validation.PostInput{Title: "Edited title", Content: "Edited body"},
		KeepImage: "images/someone-elses.png",
	})
	appErr := requireAppError(t, err, models.KindValidation)
	assert.Equal(t, []string{"image"}, fieldNames(appErr))
}

func TestPostService_UpdateByNonOwner(t *testing.T) {
	f := newPostFixture(t)
	created := f.create(t, "Original title")

	_, err := f.svc.Update(context.Background(), f.other.ID, created.ID, UpdatePostInput{
		PostInput: validation.PostInput{Title: "Hijacked title", Content: "Hijacked body"},
		Image:     f.upload(t),
	})
	appErr := requireAppError(t, err, models.KindForbidden)
	assert.Equal(t, "You are not authorized to update this post.", appErr.Message)

	stored, err := f.svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original title", stored.Title)
	assert.Equal(t, 1, f.store.Count())
	assert.Len(t, f.events.Events(), 1)
}

func TestPostService_UpdateMissingPost(t *testing.T) {
	f := newPostFixture(t)

	_, err := f.svc.Update(context.Background(), f.owner.ID, 42, UpdatePostInput{
		PostInput: validation.PostInput{Title: "Edited title", Content: "Edited body"},
	})
	requireAppError(t, err, models.KindNotFound)
}

type failingUpdateRepo struct {
	repository.PostRepository
}

func (failingUpdateRepo) Update(context.Context, *models.Post) error {
	return models.NewInternalError(errors.New("disk full"))
}

func TestPostService_UpdateFailureDiscardsNewImage(t *testing.T) {
	f := newPostFixture(t)
	created := f.create(t, "Original title")

	svc := NewPostService(failingUpdateRepo{f.posts}, repository.NewUserRepository(f.db), f.store, 1<<20,
		WithBroadcaster(func() (notifications.Broadcaster, error) { return f.events, nil }))

	_, err := svc.Update(context.Background(), f.owner.ID, created.ID, UpdatePostInput{
		PostInput: validation.PostInput{Title: "Edited title", Content: "Edited body"},
		Image:     f.upload(t),
	})
	requireAppError(t, err, models.KindInternal)
	assert.Equal(t, 1, f.store.Count())
	assert.True(t, f.store.Has(created.ImageURL))
}

func TestPostService_Delete(t *testing.T) {
	f := newPostFixture(t)
	created := f.create(t, "Doomed post")

	require.NoError(t, f.svc.Delete(context.Background(), f.owner.ID, created.ID))

	_, err := f.svc.Get(context.Background(), created.ID)
	requireAppError(t, err, models.KindNotFound)
	assert.Equal(t, []string{created.ImageURL}, f.store.Deleted)

	owner, err := repository.NewUserRepository(f.db).GetByIDWithPosts(context.Background(), f.owner.ID)
	require.NoError(t, err)
	assert.Empty(t, owner.PostIDs())

	events := f.events.Events()
	require.Len(t, events, 2)
	deleteEvents := 0
	for _, ev := range events {
		if ev.Action == notifications.ActionDelete {
			deleteEvents++
			assert.Equal(t, created.ID, ev.PostID)
			assert.Nil(t, ev.Post)
		}
	}
	assert.Equal(t, 1, deleteEvents)
}

func TestPostService_DeleteByNonOwner(t *testing.T) {
	f := newPostFixture(t)
	created := f.create(t, "Protected post")

	err := f.svc.Delete(context.Background(), f.other.ID, created.ID)
	requireAppError(t, err, models.KindForbidden)

	_, err = f.svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Empty(t, f.store.Deleted)

	err = f.svc.Delete(context.Background(), f.owner.ID, created.ID+50)
	requireAppError(t, err, models.KindNotFound)
}

func TestPostService_DeleteToleratesImageStoreFailure(t *testing.T) {
	f := newPostFixture(t)
	created := f.create(t, "Doomed post")
	f.store.DeleteErr = testutil.ErrStoreDown

	require.NoError(t, f.svc.Delete(context.Background(), f.owner.ID, created.ID))
	_, err := f.svc.Get(context.Background(), created.ID)
	requireAppError(t, err, models.KindNotFound)
}
