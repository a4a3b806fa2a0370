// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as services
// to distinguish "no such row" and "duplicate key" from genuine storage
// failures without inspecting driver errors themselves.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when an insert or update collides with the
// unique index on users.email. The database constraint is the only
// authoritative guard; a prior existence check can race.
var ErrEmailExists = errors.New("email already exists")

// ErrInvalidReference is returned when a foreign key points at a row that
// does not exist (e.g. an unknown tenant id).
var ErrInvalidReference = errors.New("invalid reference")

const (
	mysqlDuplicateEntry  = 1062
	mysqlNoReferencedRow = 1452
)

func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isDuplicateEntry(err error) bool { return mysqlErrNumber(err) == mysqlDuplicateEntry }

func isMissingReference(err error) bool { return mysqlErrNumber(err) == mysqlNoReferencedRow }
