package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"memberbase/internal/models"
	"memberbase/internal/repositories"
	"memberbase/internal/utils"
)

// A verification challenge is valid for 24 hours from issuance.
const verificationTTL = 24 * time.Hour

// Bytes of entropy behind each verification token (hex-encoded on the wire).
const verificationTokenBytes = 32

var (
	ErrEmailTaken          = errors.New("email already registered")
	ErrVerificationInvalid = errors.New("invalid verification token")
	ErrVerificationExpired = errors.New("verification token expired")
)

type UserService interface {
	Register(name, email, password string) (*models.User, error)
	ConfirmEmail(token string) (*models.User, error)
	ResendVerification(email string) error
	GetUserByID(id int) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
}

type userService struct {
	repo     repositories.UserRepository
	emails   EmailService
	auth     AuthService
	notifier Notifier
}

func NewUserService(repo repositories.UserRepository, emails EmailService, auth AuthService, notifier Notifier) UserService {
	return &userService{
		repo:     repo,
		emails:   emails,
		auth:     auth,
		notifier: notifier,
	}
}

// Register creates an unverified user and dispatches the verification email.
// The pre-check is a fast path only; the unique index decides races. A failed
// email send is returned to the caller but does NOT roll the row back — the
// resend endpoint is the recovery path, and the stored token stays valid
// until it expires.
func (s *userService) Register(name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	existing, err := s.repo.GetByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("register existence check: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("register hash password: %w", err)
	}

	token, err := utils.NewOpaqueToken(verificationTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("register verification token: %w", err)
	}
	expires := time.Now().Add(verificationTTL)

	user := &models.User{
		Name:                name,
		Email:               email,
		PasswordHash:        hash,
		IsVerified:          false,
		VerificationToken:   &token,
		VerificationExpires: &expires,
	}
	if err := s.repo.Create(user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("register create: %w", err)
	}

	if err := s.emails.SendVerificationEmail(user.Email, token); err != nil {
		log.Printf("[users][register] verification email to %s failed, row kept: %v", user.Email, err)
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.NotifySignup(user); err != nil {
			log.Printf("[users][register] signup notification failed: %v", err)
		}
	}

	return user, nil
}

// ConfirmEmail consumes a verification token. Verified is terminal: the token
// is cleared in the same statement that flips the flag.
func (s *userService) ConfirmEmail(token string) (*models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrVerificationInvalid
	}

	user, err := s.repo.GetByVerificationToken(token)
	if err != nil {
		return nil, fmt.Errorf("confirm lookup: %w", err)
	}
	if user == nil {
		return nil, ErrVerificationInvalid
	}
	if user.VerificationExpires == nil || time.Now().After(*user.VerificationExpires) {
		return nil, ErrVerificationExpired
	}

	if err := s.repo.MarkVerified(user.ID); err != nil {
		return nil, fmt.Errorf("confirm mark verified: %w", err)
	}
	user.IsVerified = true
	user.VerificationToken = nil
	user.VerificationExpires = nil
	return user, nil
}

// ResendVerification rotates the challenge and re-sends the email. The
// response never reveals whether the address is registered.
func (s *userService) ResendVerification(email string) error {
	email = strings.TrimSpace(email)

	user, err := s.repo.GetByEmail(email)
	if err != nil {
		return fmt.Errorf("resend lookup: %w", err)
	}
	if user == nil || user.IsVerified {
		log.Printf("[users][resend] no pending verification for %q", email)
		return nil
	}

	token, err := utils.NewOpaqueToken(verificationTokenBytes)
	if err != nil {
		return fmt.Errorf("resend new token: %w", err)
	}
	expires := time.Now().Add(verificationTTL)
	if err := s.repo.SetVerificationToken(user.ID, token, expires); err != nil {
		return fmt.Errorf("resend store token: %w", err)
	}

	if err := s.emails.SendVerificationEmail(user.Email, token); err != nil {
		log.Printf("[users][resend] email to %s failed: %v", user.Email, err)
	}
	return nil
}

func (s *userService) GetUserByID(id int) (*models.User, error) {
	return s.repo.GetByID(id)
}

func (s *userService) GetUserByEmail(email string) (*models.User, error) {
	return s.repo.GetByEmail(strings.TrimSpace(email))
}
