package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/feedhub/internal/common"
	"github.com/dmitrijs2005/feedhub/internal/dbx"
	"github.com/dmitrijs2005/feedhub/internal/server/models"
)

const postColumns = `id, user_id, created_at, title, description, picture_name, favorities`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	query :=
		`INSERT INTO posts (user_id, title, description)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, post.UserID, post.Title, post.Description).
		Scan(&post.ID, &post.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return post, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	p := &models.Post{}
	var description, picture sql.NullString

	err := row.Scan(&p.ID, &p.UserID, &p.CreatedAt, &p.Title, &description, &picture, dbx.StringArray(&p.Favorities))
	if err != nil {
		return nil, err
	}
	if description.Valid {
		p.Description = &description.String
	}
	if picture.Valid {
		p.PictureName = &picture.String
	}
	return p, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	p, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) SetPictureName(ctx context.Context, id, name string) error {
	return r.execOne(ctx, `UPDATE posts SET picture_name = $2 WHERE id = $1`, id, name)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, `DELETE FROM posts WHERE id = $1`, id)
}

func (r *PostgresRepository) SelectAll(ctx context.Context, limit int) ([]*models.Post, error) {
	query, args := withLimit(`SELECT `+postColumns+` FROM posts ORDER BY created_at DESC`, nil, limit)
	return r.selectPosts(ctx, query, args...)
}

func (r *PostgresRepository) SelectByAuthors(ctx context.Context, authorIDs []string, limit int) ([]*models.Post, error) {
	if len(authorIDs) == 0 {
		return []*models.Post{}, nil
	}
	query, args := withLimit(
		`SELECT `+postColumns+` FROM posts WHERE user_id = ANY($1) ORDER BY created_at DESC`,
		[]any{authorIDs}, limit)
	return r.selectPosts(ctx, query, args...)
}

func (r *PostgresRepository) SelectByIDs(ctx context.Context, ids []string) ([]*models.Post, error) {
	if len(ids) == 0 {
		return []*models.Post{}, nil
	}
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = ANY($1) ORDER BY created_at DESC`
	return r.selectPosts(ctx, query, ids)
}

func (r *PostgresRepository) AddFavoriter(ctx context.Context, postID, userID string) error {
	query :=
		`UPDATE posts
		 SET favorities = CASE WHEN $2 = ANY(favorities) THEN favorities ELSE array_append(favorities, $2) END
		 WHERE id = $1`
	return r.execOne(ctx, query, postID, userID)
}

func (r *PostgresRepository) RemoveFavoriter(ctx context.Context, postID, userID string) error {
	return r.execOne(ctx, `UPDATE posts SET favorities = array_remove(favorities, $2) WHERE id = $1`, postID, userID)
}

// RepairFavorities rebuilds posts.favorities from users.favorities.
func (r *PostgresRepository) RepairFavorities(ctx context.Context) (int64, error) {
	query :=
		`WITH expected AS (
		   SELECT p.id,
		          COALESCE(array_agg(u.id ORDER BY u.created_at) FILTER (WHERE u.id IS NOT NULL), '{}') AS favorities
		   FROM posts p
		   LEFT JOIN users u ON p.id = ANY(u.favorities)
		   GROUP BY p.id
		 )
		 UPDATE posts
		 SET favorities = e.favorities
		 FROM expected e
		 WHERE posts.id = e.id
		   AND NOT (posts.favorities @> e.favorities AND posts.favorities <@ e.favorities)`

	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func withLimit(query string, args []any, limit int) (string, []any) {
	if limit <= 0 {
		return query, args
	}
	args = append(args, limit)
	return query + ` LIMIT $` + strconv.Itoa(len(args)), args
}

func (r *PostgresRepository) selectPosts(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []*models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return out, nil
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
