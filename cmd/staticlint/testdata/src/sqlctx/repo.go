package sqlctx

import (
	"context"
	"database/sql"
)

func find(ctx context.Context, db *sql.DB, id int64) error {
	var url string
	if err := db.QueryRow("SELECT original_url FROM url_records WHERE short_id = $1", id).Scan(&url); err != nil { // want "use QueryRowContext instead of QueryRow"
		return err
	}

	if err := db.QueryRowContext(ctx, "SELECT original_url FROM url_records WHERE short_id = $1", id).Scan(&url); err != nil {
		return err
	}

	if _, err := db.Exec("TRUNCATE url_records"); err != nil { // want "use ExecContext instead of Exec"
		return err
	}

	tx, err := db.Begin() // want "use BeginTx instead of Begin"
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("SELECT 1"); err != nil { // want "use ExecContext instead of Exec"
		return err
	}

	return db.Ping() // want "use PingContext instead of Ping"
}
