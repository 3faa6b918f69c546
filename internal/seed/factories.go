// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"fambam/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is given to generated members.
const DefaultPassword = "password123"

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by seed presets and tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	return &Factory{db: db, opts: opts, nextID: 1000}
}

func (f *Factory) hash(password string) (string, error) {
	if f.opts.SkipBcrypt {
		return password, nil
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// CreateMember persists an account and its profile. Optional override
// functions may modify the generated profile before saving.
func (f *Factory) CreateMember(email, password string, overrides ...func(*models.Profile)) (*models.Profile, error) {
	if email == "" {
		email = gofakeit.Email()
	}
	if password == "" {
		password = DefaultPassword
	}

	bio := gofakeit.Sentence(10)
	avatar := fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID())
	profile := &models.Profile{
		ID:          uuid.NewString(),
		DisplayName: gofakeit.FirstName(),
		Bio:         &bio,
		AvatarURL:   &avatar,
	}
	for _, override := range overrides {
		override(profile)
	}

	if f.opts.DryRun {
		log.Printf("[dry-run] CreateMember: %s <%s>", profile.DisplayName, email)
		return profile, nil
	}

	hash, err := f.hash(password)
	if err != nil {
		return nil, err
	}

	err = f.db.Transaction(func(tx *gorm.DB) error {
		account := &models.Account{ID: profile.ID, Email: email, PasswordHash: hash}
		if err := tx.Create(account).Error; err != nil {
			return err
		}
		return tx.Create(profile).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create member %s: %w", email, err)
	}
	return profile, nil
}

// BuildPost constructs a post by author with a created_at spread over the
// last MaxDays days. It does not persist it.
func (f *Factory) BuildPost(author *models.Profile, overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{
		UserID:  author.ID,
		Content: gofakeit.Paragraph(1, 2, 8, "\n"),
	}

	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(rand.IntN(maxDays))*24*time.Hour +
		time.Duration(rand.IntN(24))*time.Hour +
		time.Duration(rand.IntN(60))*time.Minute
	post.CreatedAt = time.Now().UTC().Add(-back)

	// Roughly a third of family posts carry photos.
	if rand.IntN(3) == 0 {
		n := 1 + rand.IntN(models.MaxPostMedia)
		media := make([]string, 0, n)
		for range n {
			media = append(media, fmt.Sprintf("https://picsum.photos/seed/%s/1200/900", gofakeit.UUID()))
		}
		post.MediaURLs = datatypes.NewJSONSlice(media)
	}

	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePostsBatch persists multiple posts in a single DB call when possible.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range posts {
			f.nextID++
			p.ID = f.nextID
		}
		log.Printf("[dry-run] CreatePostsBatch: %d posts (no DB write)", len(posts))
		return nil
	}
	return f.db.Create(&posts).Error
}

// CreateComment persists one comment. Empty content gets a fake sentence.
func (f *Factory) CreateComment(post *models.Post, author *models.Profile, content string, at time.Time) (*models.Comment, error) {
	if content == "" {
		content = gofakeit.Sentence(rand.IntN(12) + 3)
	}
	comment := &models.Comment{PostID: post.ID, UserID: author.ID, Content: content, CreatedAt: at}
	if f.opts.DryRun {
		f.nextID++
		comment.ID = f.nextID
		return comment, nil
	}
	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// React sets author's reaction on post, replacing any earlier one.
func (f *Factory) React(post *models.Post, author *models.Profile, kind models.ReactionKind) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown reaction %q", kind)
	}
	if f.opts.DryRun {
		return nil
	}
	return f.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"reaction_type", "updated_at"}),
	}).Create(&models.Reaction{PostID: post.ID, UserID: author.ID, Kind: kind}).Error
}

// RandomReaction picks one of the known kinds.
func RandomReaction() models.ReactionKind {
	return models.ReactionKinds[rand.IntN(len(models.ReactionKinds))]
}
