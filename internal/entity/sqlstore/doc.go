// Package sqlstore is the SQLite backend of entity repositories.
//
// All shapes share the entity_records table, keyed by shape name and id.
// Declared fields are kept as one JSON document per row and decoded back
// into their declared Go types on read, so a round trip yields a record
// equal to the one written.
package sqlstore
