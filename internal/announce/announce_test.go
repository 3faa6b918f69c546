package announce

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"testing"

	"fambam/internal/identity"
	"fambam/internal/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const changelog = `# Changelog

## [Pending] - photo albums
Posts can now carry up to 4 photos!

Tap a photo to see it full size.

## [DEPLOYED] - reactions
Reactions are here.

---
`

func TestExtractPending(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"first pending section", changelog, "Posts can now carry up to 4 photos!\n\nTap a photo to see it full size.", true},
		{"stops at rule", "## [Pending]\nhello\n---\nignored\n", "hello", true},
		{"runs to end", "## [Pending]\n\nlast one\n", "last one", true},
		{"empty section", "## [Pending]\n## [DEPLOYED]\nold\n", "", true},
		{"nothing pending", "## [DEPLOYED]\nold\n", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := ExtractPending(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractPending_OverlongLineFails(t *testing.T) {
	input := "## [Pending]\nshort\n" + strings.Repeat("x", bufio.MaxScanTokenSize+1) + "\nafter\n"

	body, ok, err := ExtractPending(input)
	require.Error(t, err)
	assert.ErrorIs(t, err, bufio.ErrTooLong)
	assert.False(t, ok)
	assert.Empty(t, body)
}

func TestMarkDeployed_OnlyFirst(t *testing.T) {
	in := "## [Pending] a\n\n## [Pending] b\n"
	assert.Equal(t, "## [DEPLOYED] a\n\n## [Pending] b\n", MarkDeployed(in))
}

type providerStub struct {
	identity.Provider
	signIn   func(email, password string) (*identity.Session, error)
	signOuts int
}

func (p *providerStub) SignIn(_ context.Context, email, password string) (*identity.Session, error) {
	return p.signIn(email, password)
}

func (p *providerStub) SignOut(context.Context, identity.Session) error {
	p.signOuts++
	return nil
}

type postsStub struct {
	author, content string
}

func (p *postsStub) CreatePost(_ context.Context, authorID, content string, _ []string) (*models.Post, error) {
	p.author, p.content = authorID, content
	return &models.Post{ID: 7, UserID: authorID, Content: content}, nil
}

func TestAnnouncer_Post(t *testing.T) {
	provider := &providerStub{signIn: func(email, password string) (*identity.Session, error) {
		if email == "buzz@fambam.buzz" && password == "honey" {
			return &identity.Session{UserID: "buzz"}, nil
		}
		return nil, identity.ErrInvalidCredentials
	}}
	posts := &postsStub{}
	a := NewAnnouncer(provider, posts)

	post, err := a.Post(context.Background(), "buzz@fambam.buzz", "honey", "New stuff!")
	require.NoError(t, err)
	assert.EqualValues(t, 7, post.ID)
	assert.Equal(t, "buzz", posts.author)
	assert.Equal(t, "New stuff!", posts.content)
	assert.Equal(t, 1, provider.signOuts)

	_, err = a.Post(context.Background(), "buzz@fambam.buzz", "wrong", "x")
	assert.True(t, errors.Is(err, identity.ErrInvalidCredentials))
}
