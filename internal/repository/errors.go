// Package repository implements the MySQL-backed credential and session
// stores. Sentinel errors let the service layer tell a missing row from a
// storage failure without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup or targeted update matches no row.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when inserting a user whose email is already
// registered.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicateToken is returned when a session insert collides with an
// existing token hash.
var ErrDuplicateToken = errors.New("duplicate session token")

const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
