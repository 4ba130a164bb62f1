package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"memberbase/internal/models"
)

// ErrDuplicateEmail is returned by Create when the users.email unique index
// rejects the insert. The constraint, not the caller's pre-check, is the
// source of truth for uniqueness.
var ErrDuplicateEmail = errors.New("email already registered")

type UserRepository interface {
	Create(user *models.User) error
	GetByID(id int) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByVerificationToken(token string) (*models.User, error)

	// verification
	MarkVerified(userID int) error
	SetVerificationToken(userID int, token string, expiresAt time.Time) error

	UpdatePassword(userID int, passwordHash string) error
}

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{DB: db}
}

const userColumns = `
	id, name, email, password_hash, is_verified,
	verification_token, verification_expires,
	created_at, updated_at
`

func (r *userRepository) Create(user *models.User) error {
	const q = `
		INSERT INTO users (
			name, email, password_hash, is_verified,
			verification_token, verification_expires
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.DB.QueryRow(q,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.IsVerified,
		user.VerificationToken,
		user.VerificationExpires,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("user create: %w", err)
	}
	return nil
}

func (r *userRepository) GetByID(id int) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.DB.QueryRow(q, id))
}

// GetByEmail returns (nil, nil) when no user has this address.
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := r.scanOne(r.DB.QueryRow(q, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepository) GetByVerificationToken(token string) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE verification_token = $1`
	u, err := r.scanOne(r.DB.QueryRow(q, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// MarkVerified flips the flag and clears the challenge in one statement, so
// a confirmed token can never be replayed.
func (r *userRepository) MarkVerified(userID int) error {
	const q = `
		UPDATE users
		SET is_verified = TRUE,
		    verification_token = NULL,
		    verification_expires = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.DB.Exec(q, userID); err != nil {
		return fmt.Errorf("user mark verified: %w", err)
	}
	return nil
}

func (r *userRepository) SetVerificationToken(userID int, token string, expiresAt time.Time) error {
	const q = `
		UPDATE users
		SET verification_token = $2,
		    verification_expires = $3,
		    updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.DB.Exec(q, userID, token, expiresAt); err != nil {
		return fmt.Errorf("user set verification token: %w", err)
	}
	return nil
}

func (r *userRepository) UpdatePassword(userID int, passwordHash string) error {
	const q = `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.DB.Exec(q, userID, passwordHash); err != nil {
		return fmt.Errorf("user update password: %w", err)
	}
	return nil
}

func (r *userRepository) scanOne(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	var (
		vt sql.NullString
		ve sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsVerified,
		&vt, &ve,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if vt.Valid {
		s := vt.String
		u.VerificationToken = &s
	}
	if ve.Valid {
		t := ve.Time
		u.VerificationExpires = &t
	}
	return u, nil
}
