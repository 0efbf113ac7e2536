package sqlite

import (
	"context"
	"net/url"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteDB struct {
	Conn *sqlx.DB
	Path string
}

func NewSQLiteDB(path string) *SQLiteDB {
	return &SQLiteDB{Path: path}
}

// DSN is the go-sqlite3 connection string for path.
func DSN(path string) string {
	q := url.Values{}
	q.Set("_foreign_keys", "on")
	q.Set("_busy_timeout", "5000")
	return "file:" + path + "?" + q.Encode()
}

func (s *SQLiteDB) Connect(ctx context.Context) error {
	conn, err := sqlx.ConnectContext(ctx, "sqlite3", DSN(s.Path))
	if err != nil {
		return err
	}
	// one writer at a time avoids SQLITE_BUSY under concurrent requests
	conn.SetMaxOpenConns(1)
	s.Conn = conn
	return nil
}

func (s *SQLiteDB) Disconnect(context.Context) error {
	if s.Conn != nil {
		return s.Conn.Close()
	}
	return nil
}
