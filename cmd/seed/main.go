// Command main runs the database seeder for fambam.
package main

import (
	"flag"
	"log"

	"fambam/internal/config"
	"fambam/internal/database"
	"fambam/internal/seed"
)

func main() {
	numMembers := flag.Int("members", 8, "Number of family members to create")
	numPosts := flag.Int("posts", 60, "Number of posts to create")
	maxDays := flag.Int("days", 240, "Spread post dates over this many days")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	dryRun := flag.Bool("dry-run", false, "Log what would be created without writing")
	fast := flag.Bool("fast", false, "Skip bcrypt for generated passwords (dev only)")
	preset := flag.String("preset", "", "Apply a YAML preset file instead of generated data")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	opts := seed.Options{
		NumMembers:  *numMembers,
		NumPosts:    *numPosts,
		MaxDays:     *maxDays,
		ShouldClean: *shouldClean,
		DryRun:      *dryRun,
		SkipBcrypt:  *fast,
	}

	var res *seed.Result
	if *preset != "" {
		log.Printf("Applying preset: %s (ignoring size flags)\n", *preset)
		p, err := seed.LoadPreset(*preset)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		res, err = seed.ApplyPreset(db, p, opts)
		if err != nil {
			log.Fatalf("❌ Preset seeding failed: %v", err)
		}
	} else {
		log.Printf("Target: %d members, %d posts, clean=%v\n", *numMembers, *numPosts, *shouldClean)
		res, err = seed.Seed(db, opts)
		if err != nil {
			log.Fatalf("❌ Seeding failed: %v", err)
		}
	}

	log.Printf("members=%d posts=%d comments=%d reactions=%d", res.Members, res.Posts, res.Comments, res.Reactions)
	if !*fast && *preset == "" {
		log.Printf("Generated members sign in with password %q", seed.DefaultPassword)
	}
}
