package migrations

import (
	"errors"

	"github.com/cristianortiz/auctionMarket/internal/shared/logger"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

var log = logger.GetLogger() // Instancia logger para el pakg

// RunMigrations applies every pending migration found at sourceURL (file://...) to dbURL
func RunMigrations(sourceURL, dbURL string) error {
	log.Info("RunMigrations", zap.String("source", sourceURL))
	m, err := migrate.New(sourceURL, dbURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
