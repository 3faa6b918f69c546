package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"fambam/internal/models"
	"fambam/internal/repository"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn        func(context.Context, *models.Post) error
	getByIDFn       func(context.Context, uint) (*models.Post, error)
	listFn          func(context.Context, int, *time.Time) ([]models.Post, error)
	listByUserFn    func(context.Context, string, int, *time.Time) ([]models.Post, error)
	listOlderThanFn func(context.Context, time.Time) ([]models.Post, error)
	deleteFn        func(context.Context, uint) error
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, limit int, before *time.Time) ([]models.Post, error) {
	return s.listFn(ctx, limit, before)
}
func (s *postRepoStub) ListByUser(ctx context.Context, userID string, limit int, before *time.Time) ([]models.Post, error) {
	return s.listByUserFn(ctx, userID, limit, before)
}
func (s *postRepoStub) ListOlderThan(ctx context.Context, cutoff time.Time) ([]models.Post, error) {
	return s.listOlderThanFn(ctx, cutoff)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:        func(_ context.Context, p *models.Post) error { p.ID = 1; return nil },
		getByIDFn:       func(_ context.Context, id uint) (*models.Post, error) { return &models.Post{ID: id}, nil },
		listFn:          func(_ context.Context, _ int, _ *time.Time) ([]models.Post, error) { return nil, nil },
		listByUserFn:    func(_ context.Context, _ string, _ int, _ *time.Time) ([]models.Post, error) { return nil, nil },
		listOlderThanFn: func(_ context.Context, _ time.Time) ([]models.Post, error) { return nil, nil },
		deleteFn:        func(_ context.Context, _ uint) error { return nil },
	}
}

var _ repository.PostRepository = (*postRepoStub)(nil)

// blobStub records every call made to storage.BlobStore.
type blobStub struct {
	mu       sync.Mutex
	puts     []string
	removes  []string
	putErr   func(path string) error
	removeFn func(path string) error
}

func (b *blobStub) Put(_ context.Context, objectPath string, _ []byte, _ bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.putErr != nil {
		if err := b.putErr(objectPath); err != nil {
			return err
		}
	}
	b.puts = append(b.puts, objectPath)
	return nil
}

func (b *blobStub) Remove(_ context.Context, objectPath string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removes = append(b.removes, objectPath)
	if b.removeFn != nil {
		return b.removeFn(objectPath)
	}
	return nil
}

func (b *blobStub) PublicURL(objectPath string) string {
	return "http://media.test/media/" + objectPath
}

// publisherStub collects published events.
type publisherStub struct {
	mu     sync.Mutex
	events []models.ChangeEvent
	err    error
}

func (p *publisherStub) Publish(_ context.Context, ev models.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *publisherStub) Events() []models.ChangeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.ChangeEvent(nil), p.events...)
}

var errStore = errors.New("store unavailable")
