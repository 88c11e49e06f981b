package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/avencourt/gatehouse/internal/database"
	"github.com/avencourt/gatehouse/internal/models"
)

const accountColumns = `id, username, email, password_hash, is_verified, is_admin,
	email_verification_token, reset_password_token_hash, reset_password_expires_at,
	created_at, updated_at`

type AccountRepository struct {
	db *database.DB
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// rowScanner covers both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var account models.Account

	err := scanner.Scan(
		&account.ID, &account.Username, &account.Email, &account.PasswordHash,
		&account.IsVerified, &account.IsAdmin,
		&account.EmailVerificationToken, &account.ResetPasswordTokenHash,
		&account.ResetPasswordExpiresAt,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &account, nil
}

func scanAccountRows(rows pgx.Rows) ([]*models.Account, error) {
	defer rows.Close()

	accounts := make([]*models.Account, 0)

	for rows.Next() {
		account, err := scanAccountRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return accounts, nil
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	account.ID = uuid.New().String()

	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	query := `
		INSERT INTO accounts (id, username, email, password_hash, is_verified, is_admin,
			email_verification_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + accountColumns

	return scanAccountRow(r.db.Pool.QueryRow(ctx, query,
		account.ID, account.Username, account.Email, account.PasswordHash,
		account.IsVerified, account.IsAdmin, account.EmailVerificationToken,
		account.CreatedAt, account.UpdatedAt,
	))
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccountRow(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return scanAccountRow(r.db.Pool.QueryRow(ctx, query, email))
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`
	return scanAccountRow(r.db.Pool.QueryRow(ctx, query, username))
}

// GetByUsernameOrEmail returns every account holding either value. Used at
// registration to report which of the two is taken.
func (r *AccountRepository) GetByUsernameOrEmail(ctx context.Context, username, email string) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1 OR email = $2`

	rows, err := r.db.Pool.Query(ctx, query, username, email)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}

	return scanAccountRows(rows)
}

// VerifyEmailByToken flips is_verified and clears the verification token in
// one statement, so two concurrent calls with the same token produce exactly
// one winner. The loser gets ErrNotFound.
func (r *AccountRepository) VerifyEmailByToken(ctx context.Context, token string) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET is_verified = TRUE, email_verification_token = NULL, updated_at = $1
		WHERE email_verification_token = $2 AND is_verified = FALSE
		RETURNING ` + accountColumns

	return scanAccountRow(r.db.Pool.QueryRow(ctx, query, time.Now(), token))
}

func (r *AccountRepository) SetVerificationToken(ctx context.Context, id, token string) error {
	query := `UPDATE accounts SET email_verification_token = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.Pool.Exec(ctx, query, token, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetResetToken stores the hash and expiry of a new reset token, superseding
// any pending one.
func (r *AccountRepository) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	query := `
		UPDATE accounts
		SET reset_password_token_hash = $1, reset_password_expires_at = $2, updated_at = $3
		WHERE id = $4`

	result, err := r.db.Pool.Exec(ctx, query, tokenHash, expiresAt, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ListPendingResets returns accounts whose reset window is still open. The
// stored hashes are irreversible, so resolution is a scan-and-compare over
// this bounded set.
func (r *AccountRepository) ListPendingResets(ctx context.Context, now time.Time) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		WHERE reset_password_token_hash IS NOT NULL AND reset_password_expires_at > $1`

	rows, err := r.db.Pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending resets: %w", err)
	}

	return scanAccountRows(rows)
}

// ConsumeResetToken replaces the password and clears the reset fields in a
// single conditional update. The WHERE clause re-checks the stored hash and
// expiry, so a token can be consumed at most once; racing callers lose with
// ErrTokenInvalidOrExpired.
func (r *AccountRepository) ConsumeResetToken(ctx context.Context, id, tokenHash, newPasswordHash string) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET password_hash = $1, reset_password_token_hash = NULL,
			reset_password_expires_at = NULL, updated_at = $2
		WHERE id = $3 AND reset_password_token_hash = $4 AND reset_password_expires_at > $2
		RETURNING ` + accountColumns

	account, err := scanAccountRow(r.db.Pool.QueryRow(ctx, query, newPasswordHash, time.Now(), id, tokenHash))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrTokenInvalidOrExpired
		}
		return nil, err
	}
	return account, nil
}

func (r *AccountRepository) UpdateProfile(ctx context.Context, id, username, email string) (*models.Account, error) {
	query := `
		UPDATE accounts SET username = $1, email = $2, updated_at = $3
		WHERE id = $4
		RETURNING ` + accountColumns

	return scanAccountRow(r.db.Pool.QueryRow(ctx, query, username, email, time.Now(), id))
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM accounts WHERE id = $1`

	result, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// ClearExpiredResetTokens nulls out reset fields whose window has closed,
// keeping the pending-reset scan small.
func (r *AccountRepository) ClearExpiredResetTokens(ctx context.Context) (int64, error) {
	query := `
		UPDATE accounts
		SET reset_password_token_hash = NULL, reset_password_expires_at = NULL
		WHERE reset_password_expires_at IS NOT NULL AND reset_password_expires_at <= $1`

	result, err := r.db.Pool.Exec(ctx, query, time.Now())
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
