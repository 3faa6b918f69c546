// Command announce posts the pending CHANGELOG entry to the family feed as
// Buzz the Bee, then marks the entry deployed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"fambam/internal/announce"
	"fambam/internal/bootstrap"
	"fambam/internal/config"
	"fambam/internal/identity"
	"fambam/internal/notifications"
	"fambam/internal/repository"
	"fambam/internal/service"
	"fambam/internal/storage"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Print the announcement without posting")
	ensureBot := flag.Bool("ensure-bot", false, "Create the bot account and profile if missing")
	message := flag.String("message", "", "Post this text instead of the pending CHANGELOG entry")
	flag.Parse()

	if err := run(*dryRun, *ensureBot, strings.TrimSpace(*message)); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func run(dryRun, ensureBot bool, message string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var changelog string
	text := message
	if text == "" {
		data, err := os.ReadFile(cfg.ChangelogPath)
		if err != nil {
			return fmt.Errorf("read changelog: %w", err)
		}
		changelog = string(data)

		body, ok, err := announce.ExtractPending(changelog)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("ℹ️  No pending announcements in " + cfg.ChangelogPath)
			if !ensureBot {
				return nil
			}
		} else if body == "" {
			fmt.Println("ℹ️  Pending section is empty")
			if !ensureBot {
				return nil
			}
		}
		text = body
	}

	if text != "" {
		fmt.Println("\n📢 Announcement to post:")
		fmt.Println(strings.Repeat("━", 50))
		fmt.Println(text)
		fmt.Println(strings.Repeat("━", 50))
	}

	if dryRun {
		return nil
	}

	if cfg.BotPassword == "" {
		fmt.Println("\n⚠️  BOT_PASSWORD not set in environment")
		fmt.Println("\nTo enable automated announcements:")
		fmt.Println("1. Set BOT_PASSWORD in the environment or .env")
		fmt.Println("2. Run: go run ./cmd/announce -ensure-bot")
		fmt.Println("\n📋 Copy the announcement above and post manually as Buzz")
		return nil
	}

	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		return err
	}

	ctx := context.Background()
	accounts := repository.NewAccountRepository(db)
	profiles := repository.NewProfileRepository(db)
	// The bot always signs in for real, even when the server runs in DEV_MODE.
	provider := identity.NewLiveProvider(accounts, rdb, cfg.JWTSecret)

	if ensureBot {
		bot, err := bootstrap.EnsureBot(ctx, cfg, provider, profiles)
		if err != nil {
			return err
		}
		fmt.Printf("🐝 Bot ready: %s (ID: %s)\n", bot.DisplayName, bot.ID)
	}

	if text == "" {
		return nil
	}

	store, err := storage.NewLocalStore(cfg.MediaDir, cfg.PublicBaseURL)
	if err != nil {
		return err
	}
	media := service.NewMediaService(store)
	posts := service.NewPostService(repository.NewPostRepository(db), store, media,
		service.NewProfileService(profiles, media, rdb).IsAdmin, rdb, notifications.NewNotifier(rdb))

	fmt.Println("\n🐝 Logging in as Buzz...")
	post, err := announce.NewAnnouncer(provider, posts).Post(ctx, cfg.BotEmail, cfg.BotPassword, text)
	if err != nil {
		fmt.Println("\n💡 Make sure the bot account exists and the password is correct")
		fmt.Println("   Email:", cfg.BotEmail)
		return err
	}
	fmt.Printf("✅ Announcement posted (post %d)\n", post.ID)

	if message == "" {
		if err := os.WriteFile(cfg.ChangelogPath, []byte(announce.MarkDeployed(changelog)), 0o644); err != nil {
			return fmt.Errorf("mark changelog deployed: %w", err)
		}
		fmt.Println("📝 Marked as [DEPLOYED] in " + cfg.ChangelogPath)
	}
	return nil
}
