// Package database persists finished run reports to a local SQLite
// database. The history subcommand reads it to list and replay past
// runs. Reports are stored whole as JSON alongside denormalized
// counters for cheap listing.
package database
