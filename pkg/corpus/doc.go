/*
Package corpus stores named training texts and a history of generation runs in
a SQLite database.

The store only keeps raw text; models are trained in memory from the reader
returned by OpenCorpus. Any database/sql SQLite driver works: the command line
tool uses modernc.org/sqlite by default and github.com/mattn/go-sqlite3 when
built with the cgo_sqlite tag.
*/
package corpus
