package integration

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/avencourt/gatehouse/internal/database"
	"github.com/avencourt/gatehouse/internal/models"
	"github.com/avencourt/gatehouse/internal/repositories"
	"github.com/avencourt/gatehouse/pkg/auth"
)

// TestDB manages a PostgreSQL testcontainer and database operations
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// SetupTestDatabase creates a PostgreSQL testcontainer, runs migrations, returns TestDB
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("gatehouse"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         &database.DB{Pool: pool},
	}, nil
}

// runMigrations executes all goose migrations
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir, err := filepath.Abs("../../migrations")
	if err != nil {
		return fmt.Errorf("failed to get migrations path: %w", err)
	}

	// Suppress goose logs
	goose.SetLogger(log.New(io.Discard, "", 0))

	// Goose needs a database/sql connection; use the pgx stdlib adapter
	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Teardown stops the container and closes the connection pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, "TRUNCATE TABLE accounts CASCADE"); err != nil {
		return fmt.Errorf("failed to truncate accounts: %w", err)
	}
	return nil
}

// NewAccountRepository creates the repository under test from the database wrapper
func (db *TestDB) NewAccountRepository() *repositories.AccountRepository {
	return repositories.NewAccountRepository(db.DB)
}

// SeedAccount inserts a verified account with a hashed password
func SeedAccount(ctx context.Context, pool *pgxpool.Pool, username, email, password string) (*models.Account, error) {
	return seedAccount(ctx, pool, username, email, password, true, nil)
}

// SeedUnverifiedAccount inserts an account with a pending verification token
func SeedUnverifiedAccount(ctx context.Context, pool *pgxpool.Pool, username, email, password, verificationToken string) (*models.Account, error) {
	return seedAccount(ctx, pool, username, email, password, false, &verificationToken)
}

func seedAccount(ctx context.Context, pool *pgxpool.Pool, username, email, password string, verified bool, verificationToken *string) (*models.Account, error) {
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	query := `
		INSERT INTO accounts (id, username, email, password_hash, is_verified, email_verification_token)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, username, email, password_hash, is_verified, is_admin, created_at, updated_at
	`

	var account models.Account
	err = pool.QueryRow(ctx, query, uuid.NewString(), username, email, hashedPassword, verified, verificationToken).Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.IsVerified,
		&account.IsAdmin,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert account: %w", err)
	}
	account.EmailVerificationToken = verificationToken

	return &account, nil
}

// SeedResetToken stores a bcrypt-hashed reset token on the account and
// returns the plaintext token a reset email would have carried.
func SeedResetToken(ctx context.Context, pool *pgxpool.Pool, accountID string, expiresAt time.Time) (string, error) {
	token, err := auth.GenerateToken(auth.ResetTokenBytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	tokenHash, err := auth.HashResetToken(token)
	if err != nil {
		return "", fmt.Errorf("failed to hash token: %w", err)
	}

	query := `
		UPDATE accounts
		SET reset_password_token_hash = $2, reset_password_expires_at = $3, updated_at = now()
		WHERE id = $1
	`
	if _, err := pool.Exec(ctx, query, accountID, tokenHash, expiresAt); err != nil {
		return "", fmt.Errorf("failed to set reset token: %w", err)
	}

	return token, nil
}
