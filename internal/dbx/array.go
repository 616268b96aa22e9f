package dbx

import (
	"database/sql"

	"github.com/jackc/pgx/v5/pgtype"
)

// StringArray returns a scanner that decodes a PostgreSQL text[] column into
// dst. NULL decodes to a nil slice.
//
// pgtype.Map caches scan plans and is not safe for concurrent use, so every
// call gets its own map.
func StringArray(dst *[]string) sql.Scanner {
	return pgtype.NewMap().SQLScanner(dst)
}
