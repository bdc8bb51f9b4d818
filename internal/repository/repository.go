// Package repository provides methods to work with DB
package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"path/filepath"
	"time"

	"github.com/UnendingLoop/ImageUpscaler/internal/model"
	"github.com/UnendingLoop/ImageUpscaler/internal/repository/jobpostgres"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/wb-go/wbf/dbpg"
)

type JobRepo interface {
	Create(ctx context.Context, j *model.Job) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.Job, error)
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Job, error)
	SaveResult(ctx context.Context, j *model.Job) error
	UpdateStatus(ctx context.Context, id string, newStat model.Status) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	FetchOrphans(ctx context.Context, limit int) ([]string, error)
}

func NewPostgresJobRepo(dbconn *dbpg.DB) JobRepo {
	return jobpostgres.PostgresRepo{DB: dbconn}
}

func ConnectWithRetries(dsnLink string, retryCount int, idleTime time.Duration) (*dbpg.DB, error) {
	dbOptions := dbpg.Options{
		MaxOpenConns:    5,
		MaxIdleConns:    5,
		ConnMaxLifetime: 10 * time.Minute,
	}
	var dbConn *dbpg.DB
	var err error

	for range retryCount {
		dbConn, err = dbpg.New(dsnLink, nil, &dbOptions)
		if err == nil {
			return dbConn, nil
		}
		log.Printf("Failed to connect to PGDB: %s\nWaiting %v before next retry...", err, idleTime)
		time.Sleep(idleTime)
	}

	return nil, err
}

func MigrateWithRetries(db *sql.DB, migrationsPath string, retries int, idle time.Duration) error {
	var err error
	for i := range retries {
		log.Printf("Migration try #%d...", i+1)
		if err = runMigrate(db, migrationsPath); err == nil {
			return nil
		}
		log.Printf("Migration try #%d was unsuccessful: %v. Waiting %v before next try...", i+1, err, idle)
		time.Sleep(idle)
	}
	return err
}

func runMigrate(db *sql.DB, migrationsPath string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}

	absPath, err := filepath.Abs(migrationsPath)
	if err != nil {
		return err
	}

	sourceURL := "file://" + absPath
	log.Println("Running migrations from:", sourceURL)

	m, err := migrate.NewWithDatabaseInstance(
		sourceURL,
		"postgres",
		driver,
	)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	log.Println("Database migrations applied successfully")
	return nil
}
