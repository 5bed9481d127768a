package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/nebula-social/social_platform/backend/services/auth-service/internal/domain/errors"
	"github.com/nebula-social/social_platform/backend/services/auth-service/internal/domain/models"
)

// AccountRepository is the pgx-backed account store boundary. The core only
// needs lookups and an atomic account+profile create; everything else about
// the relational schema belongs to the core domain service.
type AccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `user_id, username, email, phone_number, password_hash, created_at, updated_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	acc := &models.Account{}
	err := row.Scan(
		&acc.UserID, &acc.Username, &acc.Email, &acc.PhoneNumber,
		&acc.PasswordHash, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	return acc, nil
}

// FindByEmail retrieves an account by email.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return scanAccount(r.db.QueryRow(ctx, query, email))
}

// FindByUsername retrieves an account by username.
func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`
	return scanAccount(r.db.QueryRow(ctx, query, username))
}

// ExistsByEmailOrUsername is the single combined collision check used by
// registration. Which field collided is deliberately not reported.
func (r *AccountRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM accounts WHERE email = $1 OR username = $2)`
	if err := r.db.QueryRow(ctx, query, email, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}
	return exists, nil
}

// Create persists the account and its profile in one transaction; both rows
// land or neither does.
func (r *AccountRepository) Create(ctx context.Context, in models.NewAccount) (*models.Account, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	userID := uuid.New()
	acc := &models.Account{}

	query := `
		INSERT INTO accounts (user_id, username, email, phone_number, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + accountColumns
	err = tx.QueryRow(ctx, query,
		userID, in.Username, in.Email, in.PhoneNumber, in.PasswordHash,
	).Scan(
		&acc.UserID, &acc.Username, &acc.Email, &acc.PhoneNumber,
		&acc.PasswordHash, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domainErrors.ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO profiles (user_id, first_name, second_name, avatar_url)
		VALUES ($1, $2, $3, $4)`,
		userID, in.Profile.FirstName, in.Profile.SecondName, in.Profile.AvatarURL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit account creation: %w", err)
	}
	return acc, nil
}
