//go:build sqlite_cgo

package sqlite

import (
	"database/sql"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// driverName is a private registration of github.com/mattn/go-sqlite3 that
// installs the regexp function on each connection.
const driverName = "sqlite3_sagitta"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("regexp", matchRegexp, true)
		},
	})
}
