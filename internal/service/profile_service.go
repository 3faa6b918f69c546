package service

import (
	"context"
	"strings"

	"fambam/internal/cache"
	"fambam/internal/models"
	"fambam/internal/repository"

	"github.com/redis/go-redis/v9"
)

type ProfileService struct {
	backend
	profileRepo repository.ProfileRepository
	media       *MediaService
	rdb         *redis.Client
}

// UpdateProfileInput is what the profile editor submits. Avatar is nil when
// no new file was chosen.
type UpdateProfileInput struct {
	DisplayName string
	Bio         string
	Avatar      *UploadFile
}

func NewProfileService(profileRepo repository.ProfileRepository, media *MediaService, rdb *redis.Client) *ProfileService {
	return &ProfileService{
		backend:     newBackend(),
		profileRepo: profileRepo,
		media:       media,
		rdb:         rdb,
	}
}

func (s *ProfileService) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile

	gctx, cancel := s.bounded(ctx)
	defer cancel()
	err := cache.Aside(gctx, s.rdb, cache.ProfileKey(id), &profile, cache.ProfileTTL, func() error {
		p, err := s.profileRepo.GetByID(gctx, id)
		if err != nil {
			return err
		}
		profile = *p
		return nil
	})
	if err != nil {
		return nil, storeErr("load profile", err)
	}
	return &profile, nil
}

// EnsureProfile creates the profile for a freshly authenticated identity.
// An existing row is returned unchanged.
func (s *ProfileService) EnsureProfile(ctx context.Context, id, displayName string) (*models.Profile, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = "Family member"
	}

	ectx, cancel := s.bounded(ctx)
	defer cancel()
	profile, err := s.profileRepo.EnsureExists(ectx, &models.Profile{ID: id, DisplayName: displayName})
	if err != nil {
		return nil, storeErr("create profile", err)
	}
	return profile, nil
}

// IsAdmin reports whether the profile may moderate other people's posts.
func (s *ProfileService) IsAdmin(ctx context.Context, id string) (bool, error) {
	actx, cancel := s.bounded(ctx)
	defer cancel()
	admin, err := s.profileRepo.IsAdmin(actx, id)
	if err != nil {
		return false, storeErr("check permissions", err)
	}
	return admin, nil
}

// UpdateProfile saves the editor form. An empty bio is stored as NULL.
func (s *ProfileService) UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (*models.Profile, error) {
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		return nil, models.NewValidationError("Display name is required")
	}

	update := repository.ProfileUpdate{DisplayName: name}
	if bio := strings.TrimSpace(in.Bio); bio != "" {
		update.Bio = &bio
	}

	if in.Avatar != nil && len(in.Avatar.Content) > 0 {
		url, err := s.media.UploadAvatar(ctx, id, *in.Avatar)
		if err != nil {
			return nil, err
		}
		update.AvatarURL = &url
	}

	uctx, cancel := s.bounded(ctx)
	defer cancel()
	profile, err := s.profileRepo.Update(uctx, id, update)
	if err != nil {
		return nil, storeErr("update profile", err)
	}
	cache.InvalidateProfile(uctx, s.rdb, id)
	return profile, nil
}

// SetAdmin grants or revokes admin rights.
func (s *ProfileService) SetAdmin(ctx context.Context, id string, admin bool) error {
	actx, cancel := s.bounded(ctx)
	defer cancel()
	if err := s.profileRepo.SetAdmin(actx, id, admin); err != nil {
		return storeErr("update profile", err)
	}
	cache.InvalidateProfile(actx, s.rdb, id)
	return nil
}

func (s *ProfileService) ListAdmins(ctx context.Context) ([]models.Profile, error) {
	lctx, cancel := s.bounded(ctx)
	defer cancel()
	admins, err := s.profileRepo.ListAdmins(lctx)
	if err != nil {
		return nil, storeErr("load admins", err)
	}
	return admins, nil
}
