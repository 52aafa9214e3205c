// Package sqlite is the document registry in {data_dir}/metadata.db.
//
// It uses modernc.org/sqlite, which needs no cgo. The schema is versioned by
// the numbered files in migrations/, applied in order on open. The database
// runs in WAL mode so the query path can read while the ingestion worker writes.
package sqlite
