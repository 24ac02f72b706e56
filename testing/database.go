// Package testing provides PostgreSQL, Redis and fixture helpers for repository and flow tests
package testing

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq" // database/sql driver used to apply migrations
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrDBUnavailable means the PostgreSQL server for tests could not be reached
var ErrDBUnavailable = errors.New("test database unavailable")

// ServerConfig addresses the PostgreSQL server that hosts throwaway test databases.
// Values come from TEST_DB_* variables, optionally read from .env.test at the module root.
type ServerConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	SSLMode  string
}

func (c ServerConfig) dsn(database string) string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.SSLMode)
	if database != "" {
		dsn += " dbname=" + database
	}
	return dsn
}

// LoadServerConfig reads the test server settings
func LoadServerConfig() ServerConfig {
	if root, err := moduleRoot(); err == nil {
		_ = godotenv.Load(filepath.Join(root, ".env.test"))
	}
	port, err := strconv.Atoi(os.Getenv("TEST_DB_PORT"))
	if err != nil || port <= 0 {
		port = 5432
	}
	return ServerConfig{
		Host:     envOr("TEST_DB_HOST", "localhost"),
		Port:     port,
		User:     envOr("TEST_DB_USER", "postgres"),
		Password: envOr("TEST_DB_PASSWORD", "postgres"),
		SSLMode:  envOr("TEST_DB_SSL_MODE", "disable"),
	}
}

// TestDB is a migrated database that exists for the duration of one test
type TestDB struct {
	DB   *gorm.DB
	Name string
}

// RunWithDB creates a migrated database, hands it to fn and drops it when the test ends.
// The test is skipped in -short mode and when no PostgreSQL server is reachable.
func RunWithDB(t *testing.T, fn func(*TestDB)) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	cfg := LoadServerConfig()
	tdb, err := createDatabase(cfg)
	if errors.Is(err, ErrDBUnavailable) {
		t.Skipf("skipping: %v", err)
	}
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := dropDatabase(cfg, tdb); err != nil {
			t.Logf("dropping %s: %v", tdb.Name, err)
		}
	})

	fn(tdb)
}

func createDatabase(cfg ServerConfig) (*TestDB, error) {
	admin, err := sql.Open("postgres", cfg.dsn("postgres"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDBUnavailable, err)
	}
	defer admin.Close()
	if err := admin.Ping(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDBUnavailable, err)
	}

	name := "registry_test_" + strconv.FormatInt(time.Now().UnixNano(), 36)
	if _, err := admin.Exec("CREATE DATABASE " + name); err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}

	if err := migrate(cfg.dsn(name)); err != nil {
		_, _ = admin.Exec("DROP DATABASE IF EXISTS " + name)
		return nil, fmt.Errorf("migrating %s: %w", name, err)
	}

	db, err := gorm.Open(postgres.Open(cfg.dsn(name)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		_, _ = admin.Exec("DROP DATABASE IF EXISTS " + name)
		return nil, fmt.Errorf("connecting to %s: %w", name, err)
	}
	return &TestDB{DB: db, Name: name}, nil
}

func dropDatabase(cfg ServerConfig, tdb *TestDB) error {
	if sqlDB, err := tdb.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}

	admin, err := sql.Open("postgres", cfg.dsn("postgres"))
	if err != nil {
		return err
	}
	defer admin.Close()

	if _, err := admin.Exec(
		"SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1 AND pid <> pg_backend_pid()",
		tdb.Name,
	); err != nil {
		return err
	}
	_, err = admin.Exec("DROP DATABASE IF EXISTS " + tdb.Name)
	return err
}

// migrate applies every up migration under <module root>/migrations in file name order
func migrate(dsn string) error {
	root, err := moduleRoot()
	if err != nil {
		return err
	}
	files, err := filepath.Glob(filepath.Join(root, "migrations", "[0-9]*.sql"))
	if err != nil {
		return err
	}
	sort.Strings(files)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	applied := 0
	for _, file := range files {
		if strings.HasSuffix(file, ".down.sql") {
			continue
		}
		body, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		if _, err := db.Exec(string(body)); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(file), err)
		}
		applied++
	}
	if applied == 0 {
		return fmt.Errorf("no migrations found under %s", root)
	}
	return nil
}

// moduleRoot walks up from the package directory of the running test to go.mod
func moduleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found")
		}
		dir = parent
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
