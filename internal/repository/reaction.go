package repository

import (
	"context"
	"time"

	"fambam/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReactionRepository defines the interface for reaction data operations
type ReactionRepository interface {
	// Apply runs one NextReaction step for (postID, userID) atomically and
	// returns the resulting state.
	Apply(ctx context.Context, postID uint, userID string, requested models.ReactionKind) (models.ReactionKind, models.ReactionTransition, error)
	Current(ctx context.Context, postID uint, userID string) (models.ReactionKind, error)
	ListByPost(ctx context.Context, postID uint) ([]models.Reaction, error)
}

type reactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository creates a new reaction repository
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

func (r *reactionRepository) Apply(ctx context.Context, postID uint, userID string, requested models.ReactionKind) (models.ReactionKind, models.ReactionTransition, error) {
	var (
		next       models.ReactionKind
		transition models.ReactionTransition
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if isPostgres(tx) {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var existing []models.Reaction
		if err := q.Where("post_id = ? AND user_id = ?", postID, userID).Limit(1).Find(&existing).Error; err != nil {
			return err
		}

		current := models.ReactionNone
		if len(existing) > 0 {
			current = existing[0].Kind
		}
		next, transition = models.NextReaction(current, requested)

		now := time.Now().UTC()
		switch transition {
		case models.TransitionInsert:
			row := models.Reaction{PostID: postID, UserID: userID, Kind: next, CreatedAt: now, UpdatedAt: now}
			return tx.Omit(clause.Associations).Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"reaction_type", "updated_at"}),
			}).Create(&row).Error
		case models.TransitionRemove:
			return tx.Delete(&models.Reaction{}, existing[0].ID).Error
		default:
			return tx.Model(&models.Reaction{}).
				Where("id = ?", existing[0].ID).
				Updates(map[string]interface{}{"reaction_type": next, "updated_at": now}).Error
		}
	})
	if err != nil {
		return models.ReactionNone, "", err
	}
	return next, transition, nil
}

func (r *reactionRepository) Current(ctx context.Context, postID uint, userID string) (models.ReactionKind, error) {
	var existing []models.Reaction
	err := r.db.WithContext(ctx).Where("post_id = ? AND user_id = ?", postID, userID).Limit(1).Find(&existing).Error
	if err != nil || len(existing) == 0 {
		return models.ReactionNone, err
	}
	return existing[0].Kind, nil
}

// ListByPost returns reactions oldest first with the reacting profile loaded.
func (r *reactionRepository) ListByPost(ctx context.Context, postID uint) ([]models.Reaction, error) {
	var reactions []models.Reaction
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&reactions).Error
	return reactions, err
}
