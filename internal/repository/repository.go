package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/NodeZ3r0/Dude-Abides-Store/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var ErrProductNotFound = errors.New("product not found")

type RepoInterface interface {
	ListProducts(ctx context.Context) ([]*domain.LocalProduct, error)
	GetProduct(ctx context.Context, id int64) (*domain.LocalProduct, error)
	ListByCategory(ctx context.Context, category string) ([]*domain.LocalProduct, error)
	ListByVendor(ctx context.Context, vendor string) ([]*domain.LocalProduct, error)
	CreateProduct(ctx context.Context, in domain.LocalProductInput) (*domain.LocalProduct, error)
	UpdateProduct(ctx context.Context, id int64, in domain.LocalProductInput) (*domain.LocalProduct, error)
	DeleteProduct(ctx context.Context, id int64) error
	Seed(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

type Credentials struct {
	Driver   string
	Path     string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

type Repository struct {
	db     *sql.DB
	driver string
}

func NewRepository(cred *Credentials) (*Repository, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cred.Driver {
	case "", DriverSQLite:
		cred.Driver = DriverSQLite
		db, err = sql.Open("sqlite", cred.Path)
	case DriverPostgres:
		psqlconn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cred.Host,
			cred.Port,
			cred.User,
			cred.Password,
			cred.DBName)
		db, err = sql.Open("postgres", psqlconn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cred.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	if cred.Driver == DriverSQLite {
		// one writer at a time
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}
	return &Repository{db: db, driver: cred.Driver}, nil
}

func (r *Repository) RunMigrations(migrationsDir string) error {
	var (
		driver database.Driver
		err    error
	)
	switch r.driver {
	case DriverPostgres:
		driver, err = postgres.WithInstance(r.db, &postgres.Config{
			MigrationsTable: "products_schema_migrations",
		})
	default:
		driver, err = sqlite.WithInstance(r.db, &sqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s/%s", migrationsDir, r.driver),
		r.driver,
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}
