// Package seed fills a development database with fixture and fake content.
// Everything goes through the services, so like counts, notifications and
// moderation state end up exactly as real traffic would leave them.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"isintu/internal/middleware"
	"isintu/internal/models"
	"isintu/internal/repository"
	"isintu/internal/service"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is used for fixture profiles without a password and for
// every generated profile.
const DefaultPassword = "Isintu-Reader-2026!"

// Options controls a seed run.
type Options struct {
	Fixtures *Fixtures
	NumUsers int
	NumPosts int
	Clean    bool
	Password string
	RandSeed int64
	// HashCost overrides the bcrypt cost for generated profiles.
	HashCost int
}

// Summary counts what a run created.
type Summary struct {
	Profiles int `json:"profiles"`
	Posts    int `json:"posts"`
	Pending  int `json:"pending"`
	Comments int `json:"comments"`
	Replies  int `json:"replies"`
	Likes    int `json:"likes"`
	Follows  int `json:"follows"`
}

type seeder struct {
	db         *gorm.DB
	profiles   repository.ProfileRepository
	identity   *service.IdentityService
	moderation *service.ModerationService
	engagement *service.EngagementService
	factory    *Factory

	hash    string
	admin   *models.Profile
	byEmail map[string]*models.Profile
	sum     Summary
}

// Seed runs fixtures first, then generated content.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	if opts.Fixtures == nil {
		demo, err := DemoFixtures()
		if err != nil {
			return nil, err
		}
		opts.Fixtures = demo
	}
	if opts.Password == "" {
		opts.Password = DefaultPassword
	}
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}

	log := middleware.Logger
	log.Info("seeding database",
		slog.Int("users", opts.NumUsers),
		slog.Int("posts", opts.NumPosts),
		slog.Bool("clean", opts.Clean))

	if opts.Clean {
		if err := Clean(ctx, db); err != nil {
			return nil, fmt.Errorf("clean: %w", err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), opts.HashCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	profiles := repository.NewProfileRepository(db)
	notifications := service.NewNotificationService(db, nil)
	s := &seeder{
		db:         db,
		profiles:   profiles,
		identity:   service.NewIdentityService(profiles, "seed"),
		moderation: service.NewModerationService(db, notifications),
		engagement: service.NewEngagementService(db),
		factory:    NewFactory(opts.RandSeed),
		hash:       string(hash),
		byEmail:    make(map[string]*models.Profile),
	}

	if err := s.fixtures(ctx, opts.Fixtures); err != nil {
		return nil, fmt.Errorf("fixtures: %w", err)
	}
	if err := s.generate(ctx, opts.NumUsers, opts.NumPosts); err != nil {
		return nil, fmt.Errorf("generated content: %w", err)
	}

	log.Info("seeding complete",
		slog.Int("profiles", s.sum.Profiles),
		slog.Int("posts", s.sum.Posts),
		slog.Int("pending", s.sum.Pending),
		slog.Int("comments", s.sum.Comments),
		slog.Int("likes", s.sum.Likes),
		slog.Int("follows", s.sum.Follows))
	return &s.sum, nil
}

// Clean deletes all content rows, children first.
func Clean(ctx context.Context, db *gorm.DB) error {
	if db.Dialector.Name() == "postgres" {
		return db.WithContext(ctx).Exec(`TRUNCATE TABLE notifications, followers, post_likes, replies, comments, posts, profiles RESTART IDENTITY CASCADE`).Error
	}
	tables := []interface{}{
		&models.Notification{}, &models.Follower{}, &models.PostLike{},
		&models.Reply{}, &models.Comment{}, &models.Post{}, &models.Profile{},
	}
	tx := db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, t := range tables {
		if err := tx.Delete(t).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) fixtures(ctx context.Context, f *Fixtures) error {
	admin, err := s.identity.EnsureAdmin(ctx, f.Admin.Email, f.Admin.Password, f.Admin.FullName)
	if err != nil {
		return fmt.Errorf("admin: %w", err)
	}
	s.admin = admin
	s.byEmail[admin.Email] = admin

	for _, pf := range f.Profiles {
		hash := s.hash
		if pf.Password != "" {
			h, err := bcrypt.GenerateFromPassword([]byte(pf.Password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			hash = string(h)
		}
		p, err := s.ensureProfile(ctx, &models.Profile{
			Email:    pf.Email,
			Password: hash,
			FullName: pf.FullName,
			Role:     models.RoleUser,
		})
		if err != nil {
			return err
		}
		s.byEmail[p.Email] = p
	}

	for _, pf := range f.Posts {
		author := s.byEmail[pf.Author]
		post, err := s.post(ctx, author.ID, pf.Text, pf.Image, pf.Video,
			models.PostStatus(pf.Status) != models.PostStatusPending)
		if err != nil {
			return err
		}
		if !post.IsPublished() {
			continue
		}
		for _, email := range pf.LikedBy {
			if err := s.like(ctx, post.ID, s.byEmail[email].ID); err != nil {
				return err
			}
		}
		for _, cf := range pf.Comments {
			commentID, err := s.comment(ctx, post.ID, s.byEmail[cf.Author].ID, cf.Text)
			if err != nil {
				return err
			}
			for _, rf := range cf.Replies {
				if _, err := s.engagement.AddReply(ctx, commentID, s.byEmail[rf.Author].ID, rf.Text); err != nil {
					return err
				}
				s.sum.Replies++
			}
		}
	}

	for _, ff := range f.Follows {
		if err := s.follow(ctx, s.byEmail[ff.Follower].ID, s.byEmail[ff.Followed].ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) generate(ctx context.Context, numUsers, numPosts int) error {
	ids := make([]uint, 0, len(s.byEmail)+numUsers)
	for _, p := range s.byEmail {
		if !p.IsAdmin() {
			ids = append(ids, p.ID)
		}
	}

	for i := 0; i < numUsers; i++ {
		p, err := s.ensureProfile(ctx, s.factory.Profile(s.hash))
		if err != nil {
			return err
		}
		ids = append(ids, p.ID)
		if s.factory.Chance(80) {
			if err := s.follow(ctx, p.ID, s.admin.ID); err != nil {
				return err
			}
		}
	}

	for i := 0; i < numPosts; i++ {
		authorID := s.admin.ID
		if len(ids) > 0 && s.factory.Chance(40) {
			authorID = s.factory.Pick(ids)
		}
		publish := authorID == s.admin.ID || s.factory.Chance(70)

		post, err := s.post(ctx, authorID, s.factory.PostText(), nil, nil, publish)
		if err != nil {
			return err
		}
		if !post.IsPublished() || len(ids) == 0 {
			continue
		}

		for _, id := range ids {
			if s.factory.Chance(30) {
				if err := s.like(ctx, post.ID, id); err != nil {
					return err
				}
			}
		}
		for c := s.factory.faker.IntRange(0, 3); c > 0; c-- {
			commentID, err := s.comment(ctx, post.ID, s.factory.Pick(ids), s.factory.CommentText())
			if err != nil {
				return err
			}
			if s.factory.Chance(40) {
				if _, err := s.engagement.AddReply(ctx, commentID, s.factory.Pick(ids), s.factory.CommentText()); err != nil {
					return err
				}
				s.sum.Replies++
			}
		}
	}
	return nil
}

// ensureProfile inserts p, or returns the existing profile with the same
// email so reruns without -clean are harmless.
func (s *seeder) ensureProfile(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	existing, err := s.profiles.GetByEmail(ctx, p.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		return nil, err
	}
	s.sum.Profiles++
	return p, nil
}

// post submits as the author and, when publish is set for a non-admin,
// approves it as the admin.
func (s *seeder) post(ctx context.Context, authorID uint, text string, image, video []string, publish bool) (*models.Post, error) {
	post, err := s.moderation.Submit(ctx, service.SubmitInput{
		UserID: authorID,
		Text:   text,
		Image:  image,
		Video:  video,
	})
	if err != nil {
		return nil, err
	}
	if !post.IsPublished() && publish {
		res, err := s.moderation.Approve(ctx, s.admin.ID, post.ID)
		if err != nil {
			return nil, err
		}
		post = res.Post
	}
	if post.IsPublished() {
		s.sum.Posts++
	} else {
		s.sum.Pending++
	}
	return post, nil
}

func (s *seeder) like(ctx context.Context, postID, userID uint) error {
	res, err := s.engagement.ToggleLike(ctx, postID, userID)
	if err != nil {
		return err
	}
	if res.Liked {
		s.sum.Likes++
	}
	return nil
}

// comment adds a comment and returns its id, which AddComment does not
// expose directly.
func (s *seeder) comment(ctx context.Context, postID, userID uint, text string) (uint, error) {
	if _, err := s.engagement.AddComment(ctx, postID, userID, text); err != nil {
		return 0, err
	}
	threads, err := s.engagement.CommentThread(ctx, postID)
	if err != nil {
		return 0, err
	}
	s.sum.Comments++
	return threads[len(threads)-1].ID, nil
}

func (s *seeder) follow(ctx context.Context, followerID, followedID uint) error {
	res, err := s.engagement.Follow(ctx, followerID, followedID)
	if err != nil {
		return err
	}
	if res == models.FollowResultFollowed {
		s.sum.Follows++
	}
	return nil
}
