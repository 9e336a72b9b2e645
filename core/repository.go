package core

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// undefinedTable is the SQLSTATE reported when app_users does not exist.
const undefinedTable = "42P01"

// PgDirectorySource reads the user directory from the app_users table:
//
//	CREATE TABLE app_users (
//	    name      TEXT PRIMARY KEY,
//	    email     TEXT NOT NULL,
//	    password  TEXT NOT NULL,
//	    image_url TEXT
//	);
type PgDirectorySource struct {
	db *pgxpool.Pool
}

func NewPgDirectorySource(db *pgxpool.Pool) *PgDirectorySource {
	return &PgDirectorySource{db: db}
}

func (r *PgDirectorySource) Fetch(ctx context.Context) (Directory, error) {
	const q = `SELECT name, email, password, COALESCE(image_url, '') FROM app_users ORDER BY name`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, classifyPgError(err)
	}
	defer rows.Close()

	var records []UserRecord
	for rows.Next() {
		var u UserRecord
		if err := rows.Scan(&u.Name, &u.Email, &u.Password, &u.ImageURL); err != nil {
			return nil, classifyPgError(err)
		}
		records = append(records, u)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPgError(err)
	}
	return directoryFromRecords(records), nil
}

func classifyPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == undefinedTable:
			return &DirectoryError{Kind: DirectoryNotFound, Err: err}
		case len(pgErr.Code) == 5 && pgErr.Code[:2] == "28":
			// class 28: invalid authorization specification
			return &DirectoryError{Kind: DirectoryAuthFailed, Err: err}
		}
	}
	return &DirectoryError{Kind: DirectoryUnavailable, Err: err}
}
