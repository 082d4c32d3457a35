package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"boldlyAPI/internal/apperr"
	"boldlyAPI/internal/types/post"
)

type PostService struct {
	db *pgxpool.Pool
}

func NewPostService(db *pgxpool.Pool) *PostService {
	return &PostService{db: db}
}

// HasMore reports whether a further page exists after a page of returned rows.
func HasMore(skip, returned, total int) bool {
	return skip+returned < total
}

// ListPosts returns the feed newest-first with likes and comments attached.
// No authentication is required to read the feed.
func (s *PostService) ListPosts(ctx context.Context, limit, skip int) (*post.FeedPage, error) {
	if limit <= 0 {
		limit = 10
	}
	if skip < 0 {
		skip = 0
	}

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM posts`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}

	rows, err := s.db.Query(ctx, `
	SELECT id, user_id, username, content, image_url, challenge_id, challenge_title, is_progress, created_at
	FROM posts
	ORDER BY created_at DESC
	LIMIT $1 OFFSET $2
	`, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch posts: %w", err)
	}
	defer rows.Close()

	posts := []*post.Post{}
	ids := []uuid.UUID{}
	for rows.Next() {
		p := &post.Post{Likes: []uuid.UUID{}, Comments: []post.Comment{}}
		err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.Username,
			&p.Content,
			&p.ImageURL,
			&p.ChallengeID,
			&p.ChallengeTitle,
			&p.IsProgress,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
		ids = append(ids, p.ID)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) > 0 {
		if err := s.attachLikes(ctx, posts, ids); err != nil {
			return nil, err
		}
		if err := s.attachComments(ctx, posts, ids); err != nil {
			return nil, err
		}
	}

	return &post.FeedPage{
		Posts:   posts,
		HasMore: HasMore(skip, len(posts), total),
		Total:   total,
	}, nil
}

func (s *PostService) attachLikes(ctx context.Context, posts []*post.Post, ids []uuid.UUID) error {
	rows, err := s.db.Query(ctx, `
	SELECT post_id, user_id FROM post_likes WHERE post_id = ANY($1) ORDER BY id
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to fetch likes: %w", err)
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]*post.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}

	for rows.Next() {
		var postID, userID uuid.UUID
		if err := rows.Scan(&postID, &userID); err != nil {
			return fmt.Errorf("failed to scan like: %w", err)
		}
		if p, ok := byID[postID]; ok {
			p.Likes = append(p.Likes, userID)
		}
	}
	return rows.Err()
}

func (s *PostService) attachComments(ctx context.Context, posts []*post.Post, ids []uuid.UUID) error {
	rows, err := s.db.Query(ctx, `
	SELECT id, post_id, user_id, username, content, created_at
	FROM post_comments WHERE post_id = ANY($1) ORDER BY created_at
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to fetch comments: %w", err)
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]*post.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}

	for rows.Next() {
		var c post.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Username, &c.Content, &c.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan comment: %w", err)
		}
		if p, ok := byID[c.PostID]; ok {
			p.Comments = append(p.Comments, c)
		}
	}
	return rows.Err()
}

// CreatePost publishes proof for one of the caller's own challenges. The
// creator's username and the challenge title are snapshotted onto the post.
func (s *PostService) CreatePost(ctx context.Context, clerkID string, req *post.CreatePostRequest) (*post.Post, error) {
	if req.Content == "" || req.ChallengeID == "" {
		return nil, fmt.Errorf("content and challenge_id are required: %w", apperr.ErrValidation)
	}

	challengeID, err := uuid.Parse(req.ChallengeID)
	if err != nil {
		return nil, fmt.Errorf("invalid challenge id: %w", apperr.ErrValidation)
	}

	u, err := s.userByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	var challengeTitle string
	err = s.db.QueryRow(ctx,
		`SELECT title FROM challenges WHERE id = $1 AND user_id = $2`,
		challengeID, u.id).Scan(&challengeTitle)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("challenge %s: %w", challengeID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to look up challenge: %w", err)
	}

	p := &post.Post{
		ID:             uuid.New(),
		UserID:         u.id,
		Username:       u.username,
		Content:        req.Content,
		ImageURL:       req.ImageURL,
		ChallengeID:    challengeID,
		ChallengeTitle: challengeTitle,
		IsProgress:     req.IsProgress,
		Likes:          []uuid.UUID{},
		Comments:       []post.Comment{},
	}

	query := `
	INSERT INTO posts (id, user_id, username, content, image_url, challenge_id, challenge_title, is_progress, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	RETURNING created_at
	`

	err = s.db.QueryRow(ctx, query,
		p.ID, p.UserID, p.Username, p.Content, p.ImageURL, p.ChallengeID, p.ChallengeTitle, p.IsProgress,
	).Scan(&p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	log.Printf("CreatePost: %s posted for challenge %s", u.id, challengeID)
	return p, nil
}

// Like appends the caller to the post's like list unconditionally. Repeated
// likes from the same user are kept; see the feed design notes.
func (s *PostService) Like(ctx context.Context, clerkID string, postID uuid.UUID) ([]uuid.UUID, error) {
	u, err := s.userByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	result, err := s.db.Exec(ctx,
		`INSERT INTO post_likes (post_id, user_id, created_at)
		 SELECT $1, $2, NOW() WHERE EXISTS(SELECT 1 FROM posts WHERE id = $1)`,
		postID, u.id)
	if err != nil {
		return nil, fmt.Errorf("failed to like post: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, fmt.Errorf("post %s: %w", postID, apperr.ErrNotFound)
	}

	rows, err := s.db.Query(ctx,
		`SELECT user_id FROM post_likes WHERE post_id = $1 ORDER BY id`, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch likes: %w", err)
	}
	defer rows.Close()

	likes := []uuid.UUID{}
	for rows.Next() {
		var userID uuid.UUID
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan like: %w", err)
		}
		likes = append(likes, userID)
	}
	return likes, rows.Err()
}

// Comment appends a timestamped comment and returns the full comment list.
func (s *PostService) Comment(ctx context.Context, clerkID string, postID uuid.UUID, content string) ([]post.Comment, error) {
	if content == "" {
		return nil, fmt.Errorf("comment content is required: %w", apperr.ErrValidation)
	}

	u, err := s.userByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	result, err := s.db.Exec(ctx,
		`INSERT INTO post_comments (id, post_id, user_id, username, content, created_at)
		 SELECT $1, $2, $3, $4, $5, NOW() WHERE EXISTS(SELECT 1 FROM posts WHERE id = $2)`,
		uuid.New(), postID, u.id, u.username, content)
	if err != nil {
		return nil, fmt.Errorf("failed to comment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, fmt.Errorf("post %s: %w", postID, apperr.ErrNotFound)
	}

	rows, err := s.db.Query(ctx, `
	SELECT id, post_id, user_id, username, content, created_at
	FROM post_comments WHERE post_id = $1 ORDER BY created_at
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comments: %w", err)
	}
	defer rows.Close()

	comments := []post.Comment{}
	for rows.Next() {
		var c post.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Username, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

type basicUser struct {
	id       uuid.UUID
	username string
}

func (s *PostService) userByClerkID(ctx context.Context, clerkID string) (*basicUser, error) {
	u := &basicUser{}
	err := s.db.QueryRow(ctx,
		`SELECT id, username FROM users WHERE clerk_id = $1`, clerkID).Scan(&u.id, &u.username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return u, nil
}
