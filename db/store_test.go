package db_test

import (
	"d20adventures/db"
	"d20adventures/session"
)

// main hands *db.Store straight to the session layer and defers Close with no
// arguments; both contracts are pinned here at compile time.
var (
	_ session.Store              = (*db.Store)(nil)
	_ interface{ Close() error } = (*db.Store)(nil)
)
