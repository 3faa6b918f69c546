// Package main provides admin management utilities for fambam.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"fambam/internal/cache"
	"fambam/internal/config"
	"fambam/internal/database"
	"fambam/internal/models"
	"fambam/internal/notifications"
	"fambam/internal/repository"
	"fambam/internal/service"
	"fambam/internal/storage"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin promote <profile_id>   - Promote a member to admin")
	fmt.Println("  go run ./cmd/admin demote <profile_id>    - Demote a member from admin")
	fmt.Println("  go run ./cmd/admin list-admins            - List all admins")
	fmt.Println("  go run ./cmd/admin cleanup [months]       - Delete posts older than months (default 6)")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	store, err := storage.NewLocalStore(cfg.MediaDir, cfg.PublicBaseURL)
	if err != nil {
		log.Fatalf("Failed to open media store: %v", err)
	}

	media := service.NewMediaService(store)
	profiles := service.NewProfileService(repository.NewProfileRepository(db), media, nil)
	ctx := context.Background()

	switch command := os.Args[1]; command {
	case "promote", "demote":
		if len(os.Args) < 3 {
			fmt.Printf("Usage: go run ./cmd/admin %s <profile_id>\n", command)
			os.Exit(1)
		}
		setAdmin(ctx, profiles, os.Args[2], command == "promote")

	case "list-admins":
		listAdmins(ctx, profiles)

	case "cleanup":
		months := service.DefaultRetentionMonths
		if len(os.Args) >= 3 {
			n, err := strconv.Atoi(os.Args[2])
			if err != nil {
				log.Fatalf("Invalid months %q: %v", os.Args[2], err)
			}
			months = n
		}
		rdb := cache.InitRedis(cfg.RedisURL)
		posts := service.NewPostService(repository.NewPostRepository(db), store, media, profiles.IsAdmin,
			rdb, notifications.NewNotifier(rdb))
		cleanup(ctx, service.NewRetentionService(posts), months)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}
}

func setAdmin(ctx context.Context, profiles *service.ProfileService, id string, admin bool) {
	profile, err := profiles.GetProfile(ctx, id)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			fmt.Printf("Profile with ID %s not found\n", id)
			os.Exit(1)
		}
		log.Fatalf("Database error: %v", err)
	}

	if profile.IsAdmin == admin {
		fmt.Printf("%s (ID: %s) already has admin=%t\n", profile.DisplayName, profile.ID, admin)
		return
	}

	if err := profiles.SetAdmin(ctx, id, admin); err != nil {
		log.Fatalf("Failed to update admin flag: %v", err)
	}
	if admin {
		fmt.Printf("✓ %s (ID: %s) is now an admin\n", profile.DisplayName, profile.ID)
	} else {
		fmt.Printf("✓ %s (ID: %s) is no longer an admin\n", profile.DisplayName, profile.ID)
	}
}

func listAdmins(ctx context.Context, profiles *service.ProfileService) {
	admins, err := profiles.ListAdmins(ctx)
	if err != nil {
		log.Fatalf("Failed to list admins: %v", err)
	}
	if len(admins) == 0 {
		fmt.Println("No admins found")
		return
	}

	fmt.Printf("Found %d admin(s):\n", len(admins))
	for _, a := range admins {
		fmt.Printf("  - %s (ID: %s, since %s)\n", a.DisplayName, a.ID, a.CreatedAt.Format("2006-01-02"))
	}
}

func cleanup(ctx context.Context, retention *service.RetentionService, months int) {
	result, err := retention.PurgeOlderThan(ctx, months)
	if err != nil {
		log.Fatalf("Cleanup failed: %s", models.UserMessage(err))
	}
	if result.Candidates == 0 {
		fmt.Println("No old posts to delete")
		return
	}
	fmt.Printf("Deleted %d posts", result.DeletedCount)
	if result.FailedCount > 0 {
		fmt.Printf(" (%d failed)", result.FailedCount)
	}
	fmt.Println()
}
