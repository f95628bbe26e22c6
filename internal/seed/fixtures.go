package seed

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"isintu/internal/models"
	"isintu/internal/validation"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/demo.yml
var demoFixtures []byte

// Fixtures is the YAML document describing hand-written seed content.
// Profiles and authors are referenced by email.
type Fixtures struct {
	Admin    *ProfileFixture  `yaml:"admin"`
	Profiles []ProfileFixture `yaml:"profiles"`
	Posts    []PostFixture    `yaml:"posts"`
	Follows  []FollowFixture  `yaml:"follows"`
}

// ProfileFixture describes one account. An empty password falls back to
// Options.Password.
type ProfileFixture struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	FullName string `yaml:"full_name"`
}

// PostFixture describes one post. Posts by the admin are always published;
// others default to published (submitted, then approved) unless status is
// "pending".
type PostFixture struct {
	Author   string           `yaml:"author"`
	Text     string           `yaml:"text"`
	Status   string           `yaml:"status"`
	Image    []string         `yaml:"image"`
	Video    []string         `yaml:"video"`
	LikedBy  []string         `yaml:"liked_by"`
	Comments []CommentFixture `yaml:"comments"`
}

// CommentFixture is a comment with its replies.
type CommentFixture struct {
	Author  string         `yaml:"author"`
	Text    string         `yaml:"text"`
	Replies []ReplyFixture `yaml:"replies"`
}

// ReplyFixture is a reply to a comment.
type ReplyFixture struct {
	Author string `yaml:"author"`
	Text   string `yaml:"text"`
}

// FollowFixture makes Follower follow Followed.
type FollowFixture struct {
	Follower string `yaml:"follower"`
	Followed string `yaml:"followed"`
}

// DemoFixtures returns the bundled demo content.
func DemoFixtures() (*Fixtures, error) {
	return ParseFixtures(demoFixtures)
}

// LoadFixtures reads and validates a fixtures file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return ParseFixtures(data)
}

// ParseFixtures decodes a fixtures document. Unknown keys are rejected so
// typos do not silently drop content.
func ParseFixtures(data []byte) (*Fixtures, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f Fixtures
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	f.normalize()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Fixtures) normalize() {
	norm := validation.NormalizeEmail
	if f.Admin != nil {
		f.Admin.Email = norm(f.Admin.Email)
	}
	for i := range f.Profiles {
		f.Profiles[i].Email = norm(f.Profiles[i].Email)
	}
	for i := range f.Posts {
		p := &f.Posts[i]
		p.Author = norm(p.Author)
		p.Status = strings.ToLower(strings.TrimSpace(p.Status))
		for j := range p.LikedBy {
			p.LikedBy[j] = norm(p.LikedBy[j])
		}
		for j := range p.Comments {
			c := &p.Comments[j]
			c.Author = norm(c.Author)
			for k := range c.Replies {
				c.Replies[k].Author = norm(c.Replies[k].Author)
			}
		}
	}
	for i := range f.Follows {
		f.Follows[i].Follower = norm(f.Follows[i].Follower)
		f.Follows[i].Followed = norm(f.Follows[i].Followed)
	}
}

// Validate checks that every reference points at a declared profile and
// that only published posts carry engagement.
func (f *Fixtures) Validate() error {
	known := make(map[string]bool, len(f.Profiles)+1)
	declare := func(p ProfileFixture) error {
		if err := validation.ValidateEmail(p.Email); err != nil {
			return fmt.Errorf("profile %q: %w", p.Email, err)
		}
		if known[p.Email] {
			return fmt.Errorf("profile %q declared twice", p.Email)
		}
		known[p.Email] = true
		return nil
	}

	if f.Admin == nil {
		return errors.New("fixtures: admin is required")
	}
	if err := declare(*f.Admin); err != nil {
		return err
	}
	for _, p := range f.Profiles {
		if err := declare(p); err != nil {
			return err
		}
	}

	ref := func(where, email string) error {
		if !known[email] {
			return fmt.Errorf("%s references unknown profile %q", where, email)
		}
		return nil
	}

	for i, p := range f.Posts {
		where := fmt.Sprintf("posts[%d]", i)
		if err := ref(where, p.Author); err != nil {
			return err
		}
		if strings.TrimSpace(p.Text) == "" {
			return fmt.Errorf("%s: text is required", where)
		}
		switch models.PostStatus(p.Status) {
		case "", models.PostStatusPublished:
		case models.PostStatusPending:
			if p.Author == f.Admin.Email {
				return fmt.Errorf("%s: admin posts are published immediately", where)
			}
			if len(p.LikedBy) > 0 || len(p.Comments) > 0 {
				return fmt.Errorf("%s: pending posts cannot have likes or comments", where)
			}
		default:
			return fmt.Errorf("%s: unknown status %q", where, p.Status)
		}
		for _, email := range p.LikedBy {
			if err := ref(where+".liked_by", email); err != nil {
				return err
			}
		}
		for j, c := range p.Comments {
			cwhere := fmt.Sprintf("%s.comments[%d]", where, j)
			if err := ref(cwhere, c.Author); err != nil {
				return err
			}
			for _, r := range c.Replies {
				if err := ref(cwhere+".replies", r.Author); err != nil {
					return err
				}
			}
		}
	}

	for i, fl := range f.Follows {
		where := fmt.Sprintf("follows[%d]", i)
		if err := ref(where, fl.Follower); err != nil {
			return err
		}
		if err := ref(where, fl.Followed); err != nil {
			return err
		}
		if fl.Follower == fl.Followed {
			return fmt.Errorf("%s: a profile cannot follow itself", where)
		}
	}
	return nil
}
