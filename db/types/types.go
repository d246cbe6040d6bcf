package types

// Migration is a database migration to be run by db.RunMigrations.
// SQL holds both directions separated by the "-- +migrate Up" marker,
// down section first.
type Migration struct {
	ID  string
	SQL string
}
