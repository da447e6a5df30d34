package database

import (
	"database/sql"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/chefly/chefly/config"
)

// Chefly is the shared connection pool, opened once at boot.
var Chefly *sql.DB

const (
	maxOpenConns    = 25
	maxIdleConns    = 10
	connMaxLifetime = 5 * time.Minute
)

func ConnectAndMigrate() error {
	db, err := sql.Open("postgres", config.DatabaseURL)
	if err != nil {
		return err
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.Ping(); err != nil {
		return err
	}
	Chefly = db

	return migrateUp()
}

func migrateUp() error {
	m, err := migrate.New("file://"+config.MigrationsPath, config.DatabaseURL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		logrus.WithError(srcErr).Warn("failed to close migration source")
	}
	if dbErr != nil {
		logrus.WithError(dbErr).Warn("failed to close migration db connection")
	}
	return nil
}

func ShutdownDatabase() error {
	return Chefly.Close()
}

// Tx runs fn inside a transaction; the transaction commits only if fn
// returns nil, otherwise everything it did is rolled back together.
func Tx(fn func(tx *sql.Tx) error) error {
	tx, err := Chefly.Begin()
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			if err := tx.Rollback(); err != nil {
				logrus.WithError(err).Error("failed to rollback after panic")
			}
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logrus.WithError(rbErr).Error("failed to rollback transaction")
		}
		return err
	}
	return tx.Commit()
}
