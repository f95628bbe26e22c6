package service

import (
	"context"

	"isintu/internal/cache"
	"isintu/internal/models"
	"isintu/internal/observability"
	"isintu/internal/repository"
	"isintu/internal/validation"

	"gorm.io/gorm"
)

// EngagementService owns likes, comments, replies and follows. Every
// mutation returns values re-read from the store.
type EngagementService struct {
	db        *gorm.DB
	posts     repository.PostRepository
	comments  repository.CommentRepository
	followers repository.FollowerRepository
	profiles  repository.ProfileRepository
}

func NewEngagementService(db *gorm.DB) *EngagementService {
	return &EngagementService{
		db:        db,
		posts:     repository.NewPostRepository(db),
		comments:  repository.NewCommentRepository(db),
		followers: repository.NewFollowerRepository(db),
		profiles:  repository.NewProfileRepository(db),
	}
}

func requirePublished(ctx context.Context, posts repository.PostRepository, postID uint) (*models.Post, error) {
	post, err := posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !post.IsPublished() {
		return nil, models.NewNotFoundError("Post", postID)
	}
	return post, nil
}

// ToggleLike removes the caller's like if present and adds it otherwise,
// then writes the recounted total back onto the post, all in one transaction.
func (s *EngagementService) ToggleLike(ctx context.Context, postID, userID uint) (*models.LikeToggle, error) {
	result := &models.LikeToggle{PostID: postID}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		posts := repository.NewPostRepository(tx)
		if _, err := requirePublished(ctx, posts, postID); err != nil {
			return err
		}

		removed, err := posts.DeleteLike(ctx, postID, userID)
		if err != nil {
			return err
		}
		if !removed {
			// A concurrent insert of the same pair loses to the unique index
			// and the row still exists, so the caller likes the post either way.
			if _, err := posts.InsertLike(ctx, postID, userID); err != nil {
				return err
			}
			result.Liked = true
		}

		count, err := posts.RecountLikes(ctx, postID)
		if err != nil {
			return err
		}
		result.LikeCount = count
		return nil
	})
	if err != nil {
		return nil, err
	}

	cache.InvalidatePostLikers(ctx, postID)
	kind := "unlike"
	if result.Liked {
		kind = "like"
	}
	observability.EngagementEvents.WithLabelValues(kind).Inc()
	return result, nil
}

func (s *EngagementService) PostLikers(ctx context.Context, postID uint) ([]models.Liker, error) {
	if _, err := requirePublished(ctx, s.posts, postID); err != nil {
		return nil, err
	}
	return cache.Aside(ctx, cache.PostLikersKey(postID), cache.PostLikersTTL, func() ([]models.Liker, error) {
		return s.posts.Likers(ctx, postID)
	})
}

// AddComment stores a comment with the author's current name and returns
// the post's feed row with fresh counts.
func (s *EngagementService) AddComment(ctx context.Context, postID, userID uint, text string) (*models.PostAggregate, error) {
	body, err := validation.CleanBody(text, validation.MaxCommentLength)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if _, err := requirePublished(ctx, s.posts, postID); err != nil {
		return nil, err
	}
	author, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:   postID,
		UserID:   userID,
		Text:     body,
		FullName: author.FullName,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	observability.EngagementEvents.WithLabelValues("comment").Inc()

	return s.posts.Aggregate(ctx, postID, userID)
}

// AddReply answers a comment and returns the whole thread of its post.
func (s *EngagementService) AddReply(ctx context.Context, commentID, userID uint, text string) ([]models.CommentThread, error) {
	body, err := validation.CleanBody(text, validation.MaxCommentLength)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	author, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	reply := &models.Reply{
		CommentID: commentID,
		UserID:    userID,
		Text:      body,
		FullName:  author.FullName,
	}
	if err := s.comments.CreateReply(ctx, reply); err != nil {
		return nil, err
	}
	observability.EngagementEvents.WithLabelValues("reply").Inc()

	return s.CommentThread(ctx, comment.PostID)
}

// CommentThread returns a post's comments oldest first, each with its replies.
func (s *EngagementService) CommentThread(ctx context.Context, postID uint) ([]models.CommentThread, error) {
	if _, err := requirePublished(ctx, s.posts, postID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.ID)
	}
	replies, err := s.comments.ListReplies(ctx, ids)
	if err != nil {
		return nil, err
	}

	byComment := make(map[uint][]models.Reply, len(comments))
	for _, r := range replies {
		byComment[r.CommentID] = append(byComment[r.CommentID], r)
	}
	threads := make([]models.CommentThread, 0, len(comments))
	for _, c := range comments {
		rs := byComment[c.ID]
		if rs == nil {
			rs = []models.Reply{}
		}
		threads = append(threads, models.CommentThread{Comment: c, Replies: rs})
	}
	return threads, nil
}

// LikeComment bumps the counter. Repeated calls by the same user keep counting.
func (s *EngagementService) LikeComment(ctx context.Context, commentID uint) (int, error) {
	n, err := s.comments.IncrementLikes(ctx, commentID)
	if err != nil {
		return 0, err
	}
	observability.EngagementEvents.WithLabelValues("comment_like").Inc()
	return n, nil
}

func (s *EngagementService) LikeReply(ctx context.Context, replyID uint) (int, error) {
	n, err := s.comments.IncrementReplyLikes(ctx, replyID)
	if err != nil {
		return 0, err
	}
	observability.EngagementEvents.WithLabelValues("reply_like").Inc()
	return n, nil
}

// Follow records followerID following followedID. The unique index decides
// races; the pre-check only saves a write.
func (s *EngagementService) Follow(ctx context.Context, followerID, followedID uint) (models.FollowResult, error) {
	if followerID == followedID {
		return "", models.NewValidationError("You cannot follow yourself")
	}
	if _, err := s.profiles.GetByID(ctx, followedID); err != nil {
		return "", err
	}

	exists, err := s.followers.Exists(ctx, followerID, followedID)
	if err != nil {
		return "", err
	}
	if exists {
		return models.FollowResultAlreadyFollowing, nil
	}
	inserted, err := s.followers.Insert(ctx, followerID, followedID)
	if err != nil {
		return "", err
	}
	if !inserted {
		return models.FollowResultAlreadyFollowing, nil
	}

	cache.InvalidateFollowers(ctx, followedID)
	observability.EngagementEvents.WithLabelValues("follow").Inc()
	return models.FollowResultFollowed, nil
}

// Unfollow reports whether a follow existed.
func (s *EngagementService) Unfollow(ctx context.Context, followerID, followedID uint) (bool, error) {
	removed, err := s.followers.Delete(ctx, followerID, followedID)
	if err != nil {
		return false, err
	}
	if removed {
		cache.InvalidateFollowers(ctx, followedID)
		observability.EngagementEvents.WithLabelValues("unfollow").Inc()
	}
	return removed, nil
}

// RemoveFollower lets ownerID drop one of their own follower rows.
func (s *EngagementService) RemoveFollower(ctx context.Context, ownerID, rowID uint) error {
	removed, err := s.followers.DeleteByID(ctx, rowID, ownerID)
	if err != nil {
		return err
	}
	if !removed {
		return models.NewNotFoundError("Follower", rowID)
	}
	cache.InvalidateFollowers(ctx, ownerID)
	return nil
}

func (s *EngagementService) Followers(ctx context.Context, userID uint) ([]models.FollowerProfile, error) {
	if _, err := s.profiles.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return cache.Aside(ctx, cache.FollowersKey(userID), cache.FollowersTTL, func() ([]models.FollowerProfile, error) {
		return s.followers.ListFollowers(ctx, userID)
	})
}

func (s *EngagementService) FollowerCount(ctx context.Context, userID uint) (int64, error) {
	return s.followers.CountFollowers(ctx, userID)
}

// Feed returns published posts newest first with live counts for viewerID.
func (s *EngagementService) Feed(ctx context.Context, viewerID uint, limit, offset int) ([]models.PostAggregate, error) {
	return s.posts.Feed(ctx, viewerID, limit, offset)
}

func (s *EngagementService) Post(ctx context.Context, postID, viewerID uint) (*models.PostAggregate, error) {
	return s.posts.Aggregate(ctx, postID, viewerID)
}
