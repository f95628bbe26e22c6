package seed

import (
	"fmt"
	"strings"

	"isintu/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// Factory generates fake profiles and text. A fixed seed makes runs
// reproducible.
type Factory struct {
	faker *gofakeit.Faker
	n     int
}

// NewFactory returns a factory seeded with seed. Zero picks a random seed.
func NewFactory(seed int64) *Factory {
	return &Factory{faker: gofakeit.New(seed)}
}

// Profile builds an unsaved user profile with a unique email.
func (f *Factory) Profile(passwordHash string, overrides ...func(*models.Profile)) *models.Profile {
	f.n++
	first, last := f.faker.FirstName(), f.faker.LastName()
	p := &models.Profile{
		Email:    fmt.Sprintf("%s.%s.%d@isintu.test", strings.ToLower(first), strings.ToLower(last), f.n),
		Password: passwordHash,
		FullName: first + " " + last,
		Role:     models.RoleUser,
	}
	for _, override := range overrides {
		override(p)
	}
	return p
}

// PostText is one or two short paragraphs.
func (f *Factory) PostText() string {
	return f.faker.Paragraph(f.faker.IntRange(1, 2), f.faker.IntRange(2, 4), 12, "\n\n")
}

// CommentText is a single sentence.
func (f *Factory) CommentText() string {
	return f.faker.Sentence(f.faker.IntRange(4, 14))
}

// Chance reports true with probability pct/100.
func (f *Factory) Chance(pct int) bool {
	return f.faker.IntRange(0, 99) < pct
}

// Pick returns a random element of ids.
func (f *Factory) Pick(ids []uint) uint {
	return ids[f.faker.IntRange(0, len(ids)-1)]
}
