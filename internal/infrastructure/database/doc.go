// Package database provides SQLite connectivity for the SQL-backed entity store.
//
// This package manages:
//   - Connection setup (busy timeout, foreign keys, optional WAL mode)
//   - In-memory databases for tests (MemoryPath)
//   - Versioned schema migrations read from an fs.FS
//   - Transaction helpers
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration Strategy:
//
// Migrations are additive. Each change ships an .up.sql file and, where it can
// be undone, a .down.sql file. The migrations package embeds them and
// registers the embedded filesystem with UseMigrations.
package database
