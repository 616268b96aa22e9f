package dbx

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// sqlstate 40001
const serializationFailure = "40001"

// IsSerializationFailure reports whether err carries a PostgreSQL
// serialization failure, after which the transaction may be retried.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == serializationFailure
}
