package seed

import (
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"fambam/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumMembers  int
	NumPosts    int
	MaxDays     int
	ShouldClean bool
	DryRun      bool
	SkipBcrypt  bool
}

// Result counts what a seeding run created.
type Result struct {
	Members   int
	Posts     int
	Comments  int
	Reactions int
}

// Seed populates the database with a generated family.
func Seed(db *gorm.DB, opts Options) (*Result, error) {
	log.Printf("🌱 Starting database seeding with %d members and %d posts...", opts.NumMembers, opts.NumPosts)

	if opts.ShouldClean && !opts.DryRun {
		if err := ClearData(db); err != nil {
			return nil, fmt.Errorf("failed to clear existing data: %w", err)
		}
	}

	f := NewFactory(db, opts)
	res := &Result{}

	members := make([]*models.Profile, 0, opts.NumMembers)
	for i := 0; i < opts.NumMembers; i++ {
		m, err := f.CreateMember("", "")
		if err != nil {
			return nil, fmt.Errorf("failed to create members: %w", err)
		}
		members = append(members, m)
	}
	res.Members = len(members)
	log.Printf("✓ %d family members created", res.Members)

	if len(members) == 0 {
		return res, nil
	}

	posts := make([]*models.Post, 0, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		posts = append(posts, f.BuildPost(members[rand.IntN(len(members))]))
	}
	if err := f.CreatePostsBatch(posts); err != nil {
		return nil, fmt.Errorf("failed to create posts: %w", err)
	}
	res.Posts = len(posts)
	log.Printf("✓ %d posts created", res.Posts)

	for _, post := range posts {
		at := post.CreatedAt
		for range rand.IntN(4) {
			at = at.Add(time.Duration(1+rand.IntN(180)) * time.Minute)
			if _, err := f.CreateComment(post, members[rand.IntN(len(members))], "", at); err != nil {
				return nil, fmt.Errorf("failed to create comments: %w", err)
			}
			res.Comments++
		}

		for _, idx := range rand.Perm(len(members))[:rand.IntN(len(members)+1)] {
			if err := f.React(post, members[idx], RandomReaction()); err != nil {
				return nil, fmt.Errorf("failed to create reactions: %w", err)
			}
			res.Reactions++
		}
	}
	log.Printf("✓ %d comments and %d reactions created", res.Comments, res.Reactions)
	log.Println("✅ Database seeding completed successfully!")
	return res, nil
}

// ClearData deletes every seeded row, children first.
func ClearData(db *gorm.DB) error {
	for _, table := range []string{"post_reactions", "comments", "posts", "profiles", "accounts"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}
