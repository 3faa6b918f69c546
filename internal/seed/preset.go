package seed

import (
	"fmt"
	"os"
	"strings"
	"time"

	"fambam/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Preset is a hand-written family loaded from YAML:
//
//	members:
//	  - email: gran@example.com
//	    display_name: Granny
//	    admin: true
//	posts:
//	  - author: gran@example.com
//	    content: Sunday roast at mine
//	    days_ago: 3
//	    comments:
//	      - author: kid@example.com
//	        content: Yes please!
//	    reactions:
//	      kid@example.com: love
type Preset struct {
	Members []PresetMember `yaml:"members"`
	Posts   []PresetPost   `yaml:"posts"`
}

type PresetMember struct {
	Email       string `yaml:"email"`
	Password    string `yaml:"password"`
	DisplayName string `yaml:"display_name"`
	Bio         string `yaml:"bio"`
	Admin       bool   `yaml:"admin"`
}

type PresetPost struct {
	Author    string            `yaml:"author"`
	Content   string            `yaml:"content"`
	DaysAgo   int               `yaml:"days_ago"`
	Media     []string          `yaml:"media"`
	Comments  []PresetComment   `yaml:"comments"`
	Reactions map[string]string `yaml:"reactions"`
}

type PresetComment struct {
	Author  string `yaml:"author"`
	Content string `yaml:"content"`
}

// LoadPreset reads and checks a preset file.
func LoadPreset(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset: %w", err)
	}
	return ParsePreset(data)
}

// ParsePreset decodes YAML and checks that every author is a listed member.
func ParsePreset(data []byte) (*Preset, error) {
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse preset: %w", err)
	}

	known := make(map[string]bool, len(p.Members))
	for i, m := range p.Members {
		email := strings.ToLower(strings.TrimSpace(m.Email))
		if email == "" || m.DisplayName == "" {
			return nil, fmt.Errorf("member %d: email and display_name are required", i+1)
		}
		known[email] = true
	}

	check := func(where, author string) error {
		if !known[strings.ToLower(strings.TrimSpace(author))] {
			return fmt.Errorf("%s: unknown author %q", where, author)
		}
		return nil
	}
	for i, post := range p.Posts {
		where := fmt.Sprintf("post %d", i+1)
		if err := check(where, post.Author); err != nil {
			return nil, err
		}
		if strings.TrimSpace(post.Content) == "" && len(post.Media) == 0 {
			return nil, fmt.Errorf("%s: content or media is required", where)
		}
		if len(post.Media) > models.MaxPostMedia {
			return nil, fmt.Errorf("%s: at most %d media", where, models.MaxPostMedia)
		}
		for _, c := range post.Comments {
			if err := check(where+" comment", c.Author); err != nil {
				return nil, err
			}
		}
		for author, kind := range post.Reactions {
			if err := check(where+" reaction", author); err != nil {
				return nil, err
			}
			if !models.ReactionKind(kind).Valid() {
				return nil, fmt.Errorf("%s: unknown reaction %q", where, kind)
			}
		}
	}
	return &p, nil
}

// ApplyPreset writes p to db.
func ApplyPreset(db *gorm.DB, p *Preset, opts Options) (*Result, error) {
	if opts.ShouldClean && !opts.DryRun {
		if err := ClearData(db); err != nil {
			return nil, err
		}
	}

	f := NewFactory(db, opts)
	res := &Result{}
	byEmail := make(map[string]*models.Profile, len(p.Members))

	for _, m := range p.Members {
		profile, err := f.CreateMember(m.Email, m.Password, func(pr *models.Profile) {
			pr.DisplayName = m.DisplayName
			pr.IsAdmin = m.Admin
			pr.AvatarURL = nil
			pr.Bio = nil
			if m.Bio != "" {
				pr.Bio = &m.Bio
			}
		})
		if err != nil {
			return nil, err
		}
		byEmail[strings.ToLower(strings.TrimSpace(m.Email))] = profile
		res.Members++
	}

	member := func(email string) *models.Profile {
		return byEmail[strings.ToLower(strings.TrimSpace(email))]
	}

	now := time.Now().UTC()
	for _, pp := range p.Posts {
		post := f.BuildPost(member(pp.Author), func(post *models.Post) {
			post.Content = strings.TrimSpace(pp.Content)
			post.CreatedAt = now.AddDate(0, 0, -pp.DaysAgo)
			post.MediaURLs = datatypes.NewJSONSlice(append([]string{}, pp.Media...))
		})
		if err := f.CreatePostsBatch([]*models.Post{post}); err != nil {
			return nil, fmt.Errorf("create post: %w", err)
		}
		res.Posts++

		at := post.CreatedAt
		for _, c := range pp.Comments {
			at = at.Add(time.Minute)
			if _, err := f.CreateComment(post, member(c.Author), c.Content, at); err != nil {
				return nil, fmt.Errorf("create comment: %w", err)
			}
			res.Comments++
		}
		for author, kind := range pp.Reactions {
			if err := f.React(post, member(author), models.ReactionKind(kind)); err != nil {
				return nil, err
			}
			res.Reactions++
		}
	}
	return res, nil
}
