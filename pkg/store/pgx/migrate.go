package pgx

import (
	"errors"
	"fmt"

	"github.com/kwenta-ph/kwenta/backend/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrate applies the schema migrations found at source (for example
// "file://migrations") to the database.
func Migrate(databaseURL, source string) error {
	m, err := migrate.New(source, databaseURL)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	version, dirty, _ := m.Version()
	logger.Info("[Store] Schema migrated", "version", version, "dirty", dirty)
	return nil
}

// MigrateDown rolls back steps migrations, or all of them when steps <= 0.
func MigrateDown(databaseURL, source string, steps int) error {
	m, err := migrate.New(source, databaseURL)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer m.Close()

	if steps > 0 {
		err = m.Steps(-steps)
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("roll back migrations: %w", err)
	}
	version, dirty, verr := m.Version()
	if errors.Is(verr, migrate.ErrNilVersion) {
		logger.Info("[Store] Schema rolled back completely")
		return nil
	}
	logger.Info("[Store] Schema rolled back", "version", version, "dirty", dirty)
	return nil
}
