package users

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/feedhub/internal/common"
	"github.com/dmitrijs2005/feedhub/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// arrayConverter lets []string arguments through the way the pgx driver does.
type arrayConverter struct{}

func (arrayConverter) ConvertValue(v any) (driver.Value, error) {
	if s, ok := v.([]string); ok {
		return s, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp),
		sqlmock.ValueConverterOption(arrayConverter{}),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewPostgresRepository(db), mock
}

var errDB = errors.New("db down")

func requireDBError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	require.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
}

var userCols = []string{"id", "email", "password_hash", "name", "follows", "followers", "favorities", "created_at"}

func TestCreate(t *testing.T) {
	q := `(?s)^INSERT\s+INTO\s+users\s*\(email,\s*password_hash,\s*name\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*RETURNING\s+id,\s*created_at$`
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("ok", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs("a@b.io", "hash", "Alice").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("u1", now))

		got, err := repo.Create(context.Background(), &models.User{Email: "a@b.io", PasswordHash: "hash", Name: "Alice"})
		require.NoError(t, err)
		assert.Equal(t, "u1", got.ID)
		assert.Equal(t, now, got.CreatedAt)
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs("a@b.io", "hash", "Alice").
			WillReturnError(&pgconn.PgError{Code: "23505"})

		_, err := repo.Create(context.Background(), &models.User{Email: "a@b.io", PasswordHash: "hash", Name: "Alice"})
		require.ErrorIs(t, err, common.ErrorAlreadyExists)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WillReturnError(errDB)

		_, err := repo.Create(context.Background(), &models.User{})
		requireDBError(t, err)
	})
}

func TestGetByID(t *testing.T) {
	q := `(?s)^SELECT\s+id,\s*email,.*created_at\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`
	now := time.Now().UTC()

	t.Run("found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs("u1").
			WillReturnRows(sqlmock.NewRows(userCols).AddRow("u1", "a@b.io", "h", "Alice", "{u2,u3}", "{u2}", "{p1}", now))

		u, err := repo.GetByID(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, "Alice", u.Name)
		assert.Equal(t, []string{"u2", "u3"}, u.Follows)
		assert.Equal(t, []string{"u2"}, u.Followers)
		assert.Equal(t, []string{"p1"}, u.Favorities)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(context.Background(), "ghost")
		require.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs("u1").WillReturnError(errDB)

		_, err := repo.GetByID(context.Background(), "u1")
		requireDBError(t, err)
	})
}

func TestGetByEmail(t *testing.T) {
	q := `(?s)^SELECT\s+id,.*FROM\s+users\s+WHERE\s+email\s*=\s*\$1$`

	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(q).WithArgs("a@b.io").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u1", "a@b.io", "h", "Alice", "{}", "{}", "{}", time.Now()))

	u, err := repo.GetByEmail(context.Background(), "a@b.io")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Empty(t, u.Follows)
}

func TestExists(t *testing.T) {
	q := `(?s)^SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\)$`

	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(q).WithArgs("u1").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(q).WithArgs("u2").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(q).WithArgs("u3").WillReturnError(errDB)

	ok, err := repo.Exists(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(context.Background(), "u2")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.Exists(context.Background(), "u3")
	requireDBError(t, err)
}

func TestNames(t *testing.T) {
	q := `(?s)^SELECT\s+id,\s*name\s+FROM\s+users\s+WHERE\s+id\s*=\s*ANY\(\$1\)$`

	t.Run("empty input skips the store", func(t *testing.T) {
		repo, _ := newRepoWithMock(t)
		got, err := repo.Names(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("ok", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs([]string{"u1", "u2", "ghost"}).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("u1", "Alice").AddRow("u2", "Bob"))

		got, err := repo.Names(context.Background(), []string{"u1", "u2", "ghost"})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"u1": "Alice", "u2": "Bob"}, got)
	})

	t.Run("row error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs([]string{"u1"}).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("u1", "Alice").RowError(0, errDB))

		_, err := repo.Names(context.Background(), []string{"u1"})
		requireDBError(t, err)
	})

	t.Run("query error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WillReturnError(errDB)

		_, err := repo.Names(context.Background(), []string{"u1"})
		requireDBError(t, err)
	})
}

func TestGetSet(t *testing.T) {
	q := `(?s)^SELECT\s+follows\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`

	t.Run("ok", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs("u1").WillReturnRows(sqlmock.NewRows([]string{"follows"}).AddRow("{u2,u3}"))

		got, err := repo.GetSet(context.Background(), "u1", Follows)
		require.NoError(t, err)
		assert.Equal(t, []string{"u2", "u3"}, got)
	})

	t.Run("missing user", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs("u1").WillReturnError(sql.ErrNoRows)

		_, err := repo.GetSet(context.Background(), "u1", Follows)
		require.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("unknown field never reaches the store", func(t *testing.T) {
		repo, _ := newRepoWithMock(t)
		_, err := repo.GetSet(context.Background(), "u1", SetField("password_hash"))
		require.Error(t, err)
	})
}

func TestAddToSet(t *testing.T) {
	q := `(?s)^UPDATE\s+users\s+SET\s+followers\s*=\s*CASE\s+WHEN\s+\$2\s*=\s*ANY\(followers\)\s+THEN\s+followers\s+ELSE\s+array_append\(followers,\s*\$2\)\s+END\s+WHERE\s+id\s*=\s*\$1$`

	t.Run("ok", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(q).WithArgs("u2", "u1").WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.AddToSet(context.Background(), "u2", Followers, "u1"))
	})

	t.Run("no such user", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(q).WithArgs("ghost", "u1").WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.AddToSet(context.Background(), "ghost", Followers, "u1")
		require.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(q).WillReturnError(errDB)

		requireDBError(t, repo.AddToSet(context.Background(), "u2", Followers, "u1"))
	})

	t.Run("rows affected error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(q).WillReturnResult(sqlmock.NewErrorResult(errDB))

		requireDBError(t, repo.AddToSet(context.Background(), "u2", Followers, "u1"))
	})
}

func TestRemoveFromSet(t *testing.T) {
	q := `(?s)^UPDATE\s+users\s+SET\s+favorities\s*=\s*array_remove\(favorities,\s*\$2\)\s+WHERE\s+id\s*=\s*\$1$`

	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(q).WithArgs("u1", "p1").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RemoveFromSet(context.Background(), "u1", Favorities, "p1"))
}

func TestRemoveFromAllSets(t *testing.T) {
	q := `(?s)^UPDATE\s+users\s+SET\s+favorities\s*=\s*array_remove\(favorities,\s*\$1\)\s+WHERE\s+\$1\s*=\s*ANY\(favorities\)$`

	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(q).WithArgs("p1").WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.RemoveFromAllSets(context.Background(), Favorities, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestUpdates(t *testing.T) {
	t.Run("name", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+name\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1$`).
			WithArgs("u1", "Al").WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.UpdateName(context.Background(), "u1", "Al"))
	})

	t.Run("email taken", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+email\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1$`).
			WithArgs("u1", "b@c.io").WillReturnError(&pgconn.PgError{Code: "23505"})
		require.ErrorIs(t, repo.UpdateEmail(context.Background(), "u1", "b@c.io"), common.ErrorAlreadyExists)
	})

	t.Run("password hash missing user", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+password_hash\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1$`).
			WithArgs("u1", "h2").WillReturnResult(sqlmock.NewResult(0, 0))
		require.ErrorIs(t, repo.UpdatePasswordHash(context.Background(), "u1", "h2"), common.ErrorNotFound)
	})
}

func TestRepairFollowers(t *testing.T) {
	q := `(?s)^WITH\s+expected\s+AS.*LEFT\s+JOIN\s+users\s+f\s+ON\s+u\.id\s*=\s*ANY\(f\.follows\).*UPDATE\s+users\s+SET\s+followers\s*=\s*e\.followers.*@>.*<@`

	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(q).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q).WillReturnError(errDB)

	n, err := repo.RepairFollowers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = repo.RepairFollowers(context.Background())
	requireDBError(t, err)
}

func TestPruneFavorities(t *testing.T) {
	q := `(?s)^UPDATE\s+users\s+SET\s+favorities\s*=\s*ARRAY\(.*unnest\(favorities\).*FROM\s+posts`

	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(q).WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.PruneFavorities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
