// Package announce posts release notes to the family feed as the bot account.
package announce

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fambam/internal/identity"
	"fambam/internal/middleware"
	"fambam/internal/models"
)

const (
	pendingMarker  = "[Pending]"
	deployedMarker = "[DEPLOYED]"
)

// ExtractPending returns the body of the first "## [Pending]" section of a
// changelog, up to the next "##" heading or "---" rule. ok is false when no
// such section exists. A line too long to scan is an error rather than a
// truncated body.
func ExtractPending(changelog string) (body string, ok bool, err error) {
	var (
		lines []string
		in    bool
	)
	sc := bufio.NewScanner(strings.NewReader(changelog))
	for sc.Scan() {
		line := sc.Text()
		if !in {
			if strings.HasPrefix(line, "## "+pendingMarker) {
				in, ok = true, true
			}
			continue
		}
		if strings.HasPrefix(line, "##") || strings.HasPrefix(line, "---") {
			break
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return "", false, fmt.Errorf("scan changelog: %w", err)
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), ok, nil
}

// MarkDeployed rewrites the first pending marker.
func MarkDeployed(changelog string) string {
	return strings.Replace(changelog, pendingMarker, deployedMarker, 1)
}

// PostCreator is the part of the post service the announcer needs.
type PostCreator interface {
	CreatePost(ctx context.Context, authorID, content string, mediaRefs []string) (*models.Post, error)
}

// Announcer signs in as the bot and posts.
type Announcer struct {
	identity identity.Provider
	posts    PostCreator
	logger   *slog.Logger
}

func NewAnnouncer(provider identity.Provider, posts PostCreator) *Announcer {
	return &Announcer{identity: provider, posts: posts, logger: middleware.Logger}
}

// Post publishes text as the account behind email.
func (a *Announcer) Post(ctx context.Context, email, password, text string) (*models.Post, error) {
	session, err := a.identity.SignIn(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("sign in as %s: %w", email, err)
	}
	defer func() {
		if err := a.identity.SignOut(ctx, *session); err != nil {
			a.logger.WarnContext(ctx, "bot sign out failed", slog.String("error", err.Error()))
		}
	}()

	post, err := a.posts.CreatePost(ctx, session.UserID, text, nil)
	if err != nil {
		return nil, err
	}
	a.logger.InfoContext(ctx, "announcement posted",
		slog.Uint64("post_id", uint64(post.ID)),
		slog.String("user_id", session.UserID),
	)
	return post, nil
}
