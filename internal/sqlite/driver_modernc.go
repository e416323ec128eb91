//go:build !sqlite_cgo

package sqlite

import (
	"database/sql/driver"

	"modernc.org/sqlite"
)

// driverName is the pure Go driver registered by modernc.org/sqlite.
const driverName = "sqlite"

func init() {
	// Functions registered here are installed on every new connection.
	sqlite.MustRegisterDeterministicScalarFunction("regexp", 2,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			matched, err := matchRegexp(args[0], args[1])
			if err != nil {
				return nil, err
			}
			if matched {
				return int64(1), nil
			}
			return int64(0), nil
		})
}
