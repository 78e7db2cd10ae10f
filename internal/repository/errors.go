// Package repository implements the booking storage ports on MySQL using
// database/sql.  All timestamp columns are stored in UTC; the DSN uses
// parseTime so DATETIME columns scan straight into time.Time.  Not-found
// conditions map onto the booking package sentinels so callers never see
// sql.ErrNoRows.
package repository

import "errors"

// ErrDuplicate is returned when an insert violates a unique key, e.g. two
// concurrent lazy creations of the same slot boundary.  Callers typically
// re-read and continue with the winner's row.
var ErrDuplicate = errors.New("repository: duplicate row")
