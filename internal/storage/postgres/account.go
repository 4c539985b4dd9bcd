package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// Account is a login identity. Characters hang off accounts; gameplay state
// lives in the players table.
type Account struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	LastSeenAt   time.Time
}

// ErrAccountNotFound is returned when an account lookup yields no results.
var ErrAccountNotFound = errors.New("account not found")

// ErrAccountExists is returned when attempting to create a duplicate username.
var ErrAccountExists = errors.New("account already exists")

// ErrInvalidCredentials is returned when authentication fails.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AccountRepository persists accounts.
type AccountRepository struct {
	db *pgxpool.Pool
}

// NewAccountRepository creates an AccountRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, username, password_hash, created_at, last_seen_at`

func scanAccount(row pgx.Row) (Account, error) {
	var acct Account
	err := row.Scan(&acct.ID, &acct.Username, &acct.PasswordHash, &acct.CreatedAt, &acct.LastSeenAt)
	return acct, err
}

// Create inserts a new account, hashing the password with bcrypt. The
// plaintext never reaches the database.
//
// Precondition: username and password must be non-empty.
// Postcondition: Returns the created Account with ID and timestamps set, or
// ErrAccountExists when the username is taken.
func (r *AccountRepository) Create(ctx context.Context, username, password string) (Account, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return Account{}, fmt.Errorf("hashing password: %w", err)
	}

	acct, err := scanAccount(r.db.QueryRow(ctx,
		`INSERT INTO accounts (username, password_hash)
		 VALUES ($1, $2)
		 RETURNING `+accountColumns,
		username, hash,
	))
	if err != nil {
		if isDuplicateKeyError(err) {
			return Account{}, ErrAccountExists
		}
		return Account{}, fmt.Errorf("inserting account: %w", err)
	}
	return acct, nil
}

// Authenticate verifies credentials and returns the matching account.
//
// Postcondition: Returns the Account on valid credentials,
// ErrAccountNotFound for an unknown username, ErrInvalidCredentials for a
// wrong password. Callers should not distinguish the two to the client.
func (r *AccountRepository) Authenticate(ctx context.Context, username, password string) (Account, error) {
	acct, err := r.GetByUsername(ctx, username)
	if err != nil {
		return Account{}, err
	}
	if !CheckPassword(password, acct.PasswordHash) {
		return Account{}, ErrInvalidCredentials
	}
	return acct, nil
}

// GetByUsername retrieves an account by username.
//
// Postcondition: Returns the Account or ErrAccountNotFound.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (Account, error) {
	acct, err := scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = $1`,
		username,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("querying account: %w", err)
	}
	return acct, nil
}

// TouchLastSeen records the current time as the account's last login.
//
// Postcondition: last_seen_at is updated, or ErrAccountNotFound is returned.
func (r *AccountRepository) TouchLastSeen(ctx context.Context, accountID int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts SET last_seen_at = NOW() WHERE id = $1`,
		accountID,
	)
	if err != nil {
		return fmt.Errorf("updating last seen: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// HashPassword creates a bcrypt hash of the given password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// isDuplicateKeyError reports SQLSTATE 23505 (unique_violation).
func isDuplicateKeyError(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
