package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/feedhub/internal/common"
	"github.com/dmitrijs2005/feedhub/internal/dbx"
	"github.com/dmitrijs2005/feedhub/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const userColumns = `id, email, password_hash, name, follows, followers, favorities, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func column(field SetField) (string, error) {
	switch field {
	case Follows, Followers, Favorities:
		return string(field), nil
	default:
		return "", fmt.Errorf("unknown set field %q", field)
	}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (email, password_hash, name)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, user.Email, user.PasswordHash, user.Name).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name,
		dbx.StringArray(&u.Follows), dbx.StringArray(&u.Followers), dbx.StringArray(&u.Favorities),
		&u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) Names(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return names, nil
}

func (r *PostgresRepository) GetSet(ctx context.Context, id string, field SetField) ([]string, error) {
	col, err := column(field)
	if err != nil {
		return nil, err
	}

	var set []string
	err = r.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, col), id).
		Scan(dbx.StringArray(&set))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return set, nil
}

// AddToSet appends value to the set column unless it is already present.
func (r *PostgresRepository) AddToSet(ctx context.Context, id string, field SetField, value string) error {
	col, err := column(field)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(
		`UPDATE users
		 SET %[1]s = CASE WHEN $2 = ANY(%[1]s) THEN %[1]s ELSE array_append(%[1]s, $2) END
		 WHERE id = $1`, col)

	return r.execOne(ctx, query, id, value)
}

func (r *PostgresRepository) RemoveFromSet(ctx context.Context, id string, field SetField, value string) error {
	col, err := column(field)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`UPDATE users SET %[1]s = array_remove(%[1]s, $2) WHERE id = $1`, col)

	return r.execOne(ctx, query, id, value)
}

// RemoveFromAllSets drops value from the set column of every user holding it
// and reports how many rows changed.
func (r *PostgresRepository) RemoveFromAllSets(ctx context.Context, field SetField, value string) (int64, error) {
	col, err := column(field)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`UPDATE users SET %[1]s = array_remove(%[1]s, $1) WHERE $1 = ANY(%[1]s)`, col)

	res, err := r.db.ExecContext(ctx, query, value)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) UpdateName(ctx context.Context, id, name string) error {
	return r.execOne(ctx, `UPDATE users SET name = $2 WHERE id = $1`, id, name)
}

func (r *PostgresRepository) UpdateEmail(ctx context.Context, id, email string) error {
	err := r.execOne(ctx, `UPDATE users SET email = $2 WHERE id = $1`, id, email)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return common.ErrorAlreadyExists
	}
	return err
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.execOne(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
}

// RepairFollowers rebuilds every followers column from the follows columns
// that point at it. Only rows whose set actually differs are written.
func (r *PostgresRepository) RepairFollowers(ctx context.Context) (int64, error) {
	query :=
		`WITH expected AS (
		   SELECT u.id,
		          COALESCE(array_agg(f.id ORDER BY f.created_at) FILTER (WHERE f.id IS NOT NULL), '{}') AS followers
		   FROM users u
		   LEFT JOIN users f ON u.id = ANY(f.follows)
		   GROUP BY u.id
		 )
		 UPDATE users
		 SET followers = e.followers
		 FROM expected e
		 WHERE users.id = e.id
		   AND NOT (users.followers @> e.followers AND users.followers <@ e.followers)`

	return r.execCount(ctx, query)
}

// PruneFavorities drops post ids that no longer exist from users' favorities.
func (r *PostgresRepository) PruneFavorities(ctx context.Context) (int64, error) {
	query :=
		`UPDATE users
		 SET favorities = ARRAY(
		   SELECT t.x FROM unnest(favorities) WITH ORDINALITY AS t(x, n)
		   WHERE EXISTS (SELECT 1 FROM posts p WHERE p.id = t.x)
		   ORDER BY t.n)
		 WHERE EXISTS (
		   SELECT 1 FROM unnest(favorities) AS x
		   WHERE NOT EXISTS (SELECT 1 FROM posts p WHERE p.id = x))`

	return r.execCount(ctx, query)
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

func (r *PostgresRepository) execCount(ctx context.Context, query string) (int64, error) {
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
