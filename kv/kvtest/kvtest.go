// Package kvtest builds throwaway file-backed stores for tests.
package kvtest

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/thespaceapp/marketplace/database"
	"github.com/thespaceapp/marketplace/kv"
)

func NewStore(t *testing.T) *kv.Store {
	t.Helper()

	db, err := database.Open(database.Config{
		Driver: database.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db, database.DriverSQLite); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return kv.NewStore(db, log)
}
