package repository

import (
	"context"
	"errors"

	"fambam/internal/models"
	"fambam/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileUpdate carries the owner-editable profile fields. A nil AvatarURL
// leaves the avatar untouched; a nil Bio clears it.
type ProfileUpdate struct {
	DisplayName string
	Bio         *string
	AvatarURL   *string
}

// ProfileRepository defines the interface for profile data operations
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	EnsureExists(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	Update(ctx context.Context, id string, update ProfileUpdate) (*models.Profile, error)
	SetAdmin(ctx context.Context, id string, admin bool) error
	IsAdmin(ctx context.Context, id string) (bool, error)
	ListAdmins(ctx context.Context) ([]models.Profile, error)
}

type profileRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db, log: observability.NewRepoLogger("profiles")}
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Profile", id)
		}
		return nil, err
	}
	return &profile, nil
}

// EnsureExists inserts profile unless a row with its id is already present
// and returns the stored row.
func (r *profileRepository) EnsureExists(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(profile)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected > 0 {
		r.log.LogCreate(ctx, map[string]any{"profile_id": profile.ID})
	}
	return r.GetByID(ctx, profile.ID)
}

func (r *profileRepository) Update(ctx context.Context, id string, update ProfileUpdate) (*models.Profile, error) {
	fields := map[string]interface{}{
		"display_name": update.DisplayName,
		"bio":          update.Bio,
	}
	if update.AvatarURL != nil {
		fields["avatar_url"] = *update.AvatarURL
	}

	res := r.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError("Profile", id)
	}
	r.log.LogUpdate(ctx, map[string]any{"profile_id": id})
	return r.GetByID(ctx, id)
}

func (r *profileRepository) SetAdmin(ctx context.Context, id string, admin bool) error {
	res := r.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Update("is_admin", admin)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Profile", id)
	}
	return nil
}

func (r *profileRepository) IsAdmin(ctx context.Context, id string) (bool, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).Select("is_admin").Where("id = ?", id).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return profile.IsAdmin, nil
}

func (r *profileRepository) ListAdmins(ctx context.Context) ([]models.Profile, error) {
	var admins []models.Profile
	err := r.db.WithContext(ctx).Where("is_admin = ?", true).Order("created_at ASC").Find(&admins).Error
	return admins, err
}
