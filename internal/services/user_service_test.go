package services

import (
	"encoding/hex"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memberbase/internal/models"
	"memberbase/internal/repositories"
)

// --- fakes ---

type fakeUserRepo struct {
	mu     sync.Mutex
	byID   map[int]*models.User
	nextID int

	// hides rows from GetByEmail without removing them; simulates the
	// unique-index race where the pre-check saw nothing but the insert
	// still collides
	blindPrecheck bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[int]*models.User{}, nextID: 1}
}

func (f *fakeUserRepo) Create(user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == user.Email {
			return repositories.ErrDuplicateEmail
		}
	}
	user.ID = f.nextID
	f.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	f.byID[user.ID] = &cp
	return nil
}

func (f *fakeUserRepo) GetByID(id int) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByEmail(email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.blindPrecheck {
		return nil, nil
	}
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) GetByVerificationToken(token string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.VerificationToken != nil && *u.VerificationToken == token {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) MarkVerified(userID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return errors.New("not found")
	}
	u.IsVerified = true
	u.VerificationToken = nil
	u.VerificationExpires = nil
	return nil
}

func (f *fakeUserRepo) SetVerificationToken(userID int, token string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return errors.New("not found")
	}
	u.VerificationToken = &token
	u.VerificationExpires = &expiresAt
	return nil
}

func (f *fakeUserRepo) UpdatePassword(userID int, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok {
		return errors.New("not found")
	}
	u.PasswordHash = passwordHash
	return nil
}

type sentEmail struct {
	to    string
	token string
}

type fakeEmailService struct {
	mu            sync.Mutex
	verifications []sentEmail
	resets        []sentEmail
	sendErr       error
}

func (f *fakeEmailService) SendVerificationEmail(email, token string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifications = append(f.verifications, sentEmail{to: email, token: token})
	return nil
}

func (f *fakeEmailService) SendPasswordResetEmail(email, token string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, sentEmail{to: email, token: token})
	return nil
}

func newTestUserService(repo *fakeUserRepo, emails *fakeEmailService) UserService {
	return NewUserService(repo, emails, NewAuthService("test-secret"), nil)
}

// --- registration ---

func TestRegister(t *testing.T) {
	repo := newFakeUserRepo()
	emails := &fakeEmailService{}
	svc := newTestUserService(repo, emails)

	user, err := svc.Register("Alice", "alice@example.com", "hunter2hunter2")
	require.NoError(t, err)
	require.NotNil(t, user)

	assert.Equal(t, "Alice", user.Name)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.False(t, user.IsVerified)

	// digest, never plaintext
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "hunter2hunter2", user.PasswordHash)

	// 256-bit hex challenge with ~24h expiry
	require.NotNil(t, user.VerificationToken)
	assert.Len(t, *user.VerificationToken, 64)
	_, err = hex.DecodeString(*user.VerificationToken)
	assert.NoError(t, err)
	require.NotNil(t, user.VerificationExpires)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), *user.VerificationExpires, time.Minute)

	// the emailed token is exactly the stored one
	require.Len(t, emails.verifications, 1)
	assert.Equal(t, "alice@example.com", emails.verifications[0].to)
	assert.Equal(t, *user.VerificationToken, emails.verifications[0].token)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	emails := &fakeEmailService{}
	svc := newTestUserService(repo, emails)

	first, err := svc.Register("Alice", "alice@example.com", "hunter2hunter2")
	require.NoError(t, err)

	_, err = svc.Register("Mallory", "alice@example.com", "different-pass")
	assert.ErrorIs(t, err, ErrEmailTaken)

	// first record untouched, no second email sent
	stored, err := repo.GetByID(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", stored.Name)
	assert.Len(t, emails.verifications, 1)
}

func TestRegisterDuplicateRaceResolvedByConstraint(t *testing.T) {
	repo := newFakeUserRepo()
	repo.blindPrecheck = true // both requests pass the existence check
	emails := &fakeEmailService{}
	svc := newTestUserService(repo, emails)

	_, err := svc.Register("Alice", "alice@example.com", "hunter2hunter2")
	require.NoError(t, err)

	_, err = svc.Register("Mallory", "alice@example.com", "different-pass")
	assert.ErrorIs(t, err, ErrEmailTaken, "insert collision must map to the same conflict")
	assert.Len(t, emails.verifications, 1)
}

func TestRegisterTokensDifferForSamePassword(t *testing.T) {
	repo := newFakeUserRepo()
	emails := &fakeEmailService{}
	svc := newTestUserService(repo, emails)

	u1, err := svc.Register("Alice", "alice@example.com", "same-password")
	require.NoError(t, err)
	u2, err := svc.Register("Bob", "bob@example.com", "same-password")
	require.NoError(t, err)

	assert.NotEqual(t, *u1.VerificationToken, *u2.VerificationToken)
	assert.NotEqual(t, u1.PasswordHash, u2.PasswordHash)
}

func TestRegisterEmailFailureKeepsRow(t *testing.T) {
	repo := newFakeUserRepo()
	emails := &fakeEmailService{sendErr: ErrEmailDispatch}
	svc := newTestUserService(repo, emails)

	_, err := svc.Register("Alice", "alice@example.com", "hunter2hunter2")
	require.ErrorIs(t, err, ErrEmailDispatch)

	// the row was committed before the dispatch failed and is left in place
	stored, err := repo.GetByEmail("alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.False(t, stored.IsVerified)
	require.NotNil(t, stored.VerificationToken, "token must stay valid for the resend path")
}

func TestRegisterConcurrentSameEmail(t *testing.T) {
	repo := newFakeUserRepo()
	repo.blindPrecheck = true
	emails := &fakeEmailService{}
	svc := newTestUserService(repo, emails)

	const attempts = 2
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register("Alice", "alice@example.com", "hunter2hunter2")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, conflicted int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrEmailTaken):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one registration wins")
	assert.Equal(t, attempts-1, conflicted)
}

// --- confirmation ---

func TestConfirmEmail(t *testing.T) {
	repo := newFakeUserRepo()
	emails := &fakeEmailService{}
	svc := newTestUserService(repo, emails)

	user, err := svc.Register("Alice", "alice@example.com", "hunter2hunter2")
	require.NoError(t, err)
	token := *user.VerificationToken

	confirmed, err := svc.ConfirmEmail(token)
	require.NoError(t, err)
	assert.True(t, confirmed.IsVerified)
	assert.Nil(t, confirmed.VerificationToken)
	assert.Nil(t, confirmed.VerificationExpires)

	// single use: the consumed token no longer resolves
	_, err = svc.ConfirmEmail(token)
	assert.ErrorIs(t, err, ErrVerificationInvalid)
}

func TestConfirmEmailUnknownToken(t *testing.T) {
	svc := newTestUserService(newFakeUserRepo(), &fakeEmailService{})
	_, err := svc.ConfirmEmail("deadbeef")
	assert.ErrorIs(t, err, ErrVerificationInvalid)
}

func TestConfirmEmailExpiredToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(repo, &fakeEmailService{})

	user, err := svc.Register("Alice", "alice@example.com", "hunter2hunter2")
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, repo.SetVerificationToken(user.ID, *user.VerificationToken, past))

	_, err = svc.ConfirmEmail(*user.VerificationToken)
	assert.ErrorIs(t, err, ErrVerificationExpired)
}

// --- resend ---

func TestResendVerificationRotatesToken(t *testing.T) {
	repo := newFakeUserRepo()
	emails := &fakeEmailService{}
	svc := newTestUserService(repo, emails)

	user, err := svc.Register("Alice", "alice@example.com", "hunter2hunter2")
	require.NoError(t, err)
	oldToken := *user.VerificationToken

	require.NoError(t, svc.ResendVerification("alice@example.com"))

	stored, err := repo.GetByID(user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.VerificationToken)
	assert.NotEqual(t, oldToken, *stored.VerificationToken)

	require.Len(t, emails.verifications, 2)
	assert.Equal(t, *stored.VerificationToken, emails.verifications[1].token)

	// the old link is dead
	_, err = svc.ConfirmEmail(oldToken)
	assert.ErrorIs(t, err, ErrVerificationInvalid)
}

func TestResendVerificationDoesNotLeakExistence(t *testing.T) {
	repo := newFakeUserRepo()
	emails := &fakeEmailService{}
	svc := newTestUserService(repo, emails)

	assert.NoError(t, svc.ResendVerification("nobody@example.com"))
	assert.Empty(t, emails.verifications)
}

func TestResendVerificationSkipsVerifiedUsers(t *testing.T) {
	repo := newFakeUserRepo()
	emails := &fakeEmailService{}
	svc := newTestUserService(repo, emails)

	user, err := svc.Register("Alice", "alice@example.com", "hunter2hunter2")
	require.NoError(t, err)
	_, err = svc.ConfirmEmail(*user.VerificationToken)
	require.NoError(t, err)

	require.NoError(t, svc.ResendVerification("alice@example.com"))
	assert.Len(t, emails.verifications, 1, "no new email once verified")
}
