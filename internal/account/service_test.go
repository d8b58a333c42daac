package account

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academy/internal/apperr"
	"academy/internal/auth"
)

type fakeRepo struct {
	mu       sync.Mutex
	accounts map[string]Account
	profiles map[string]Profile
	tokens   map[string]tokenRow
}

type tokenRow struct {
	accountID string
	expires   time.Time
	revoked   bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{accounts: map[string]Account{}, profiles: map[string]Profile{}, tokens: map[string]tokenRow{}}
}

func (f *fakeRepo) CreateAccount(_ context.Context, a Account, p Profile) (Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = uuid.NewString()
	a.Email = strings.ToLower(a.Email)
	a.CreatedAt = time.Now()
	f.accounts[a.ID] = a
	p.AccountID, p.Email = a.ID, a.Email
	f.profiles[a.ID] = p
	return a, nil
}

func (f *fakeRepo) AccountByEmail(_ context.Context, email string) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Email == strings.ToLower(email) {
			a := a
			return &a, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) Profile(_ context.Context, id string) (*Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeRepo) ListProfiles(_ context.Context, role string) ([]Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Profile
	for _, p := range f.profiles {
		if role == "" || p.Role == role {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateProfile(_ context.Context, p Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[p.AccountID] = p
	return nil
}

func (f *fakeRepo) SaveRefreshToken(_ context.Context, id, token string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token] = tokenRow{accountID: id, expires: exp}
	return nil
}

func (f *fakeRepo) tokenActive(token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.tokens[token]
	return ok && !row.revoked && row.expires.After(time.Now())
}

func (f *fakeRepo) ConsumeRefreshToken(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.tokens[token]
	if !ok || row.revoked || !row.expires.After(time.Now()) {
		return false, nil
	}
	row.revoked = true
	f.tokens[token] = row
	return true, nil
}

func (f *fakeRepo) RevokeRefreshToken(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.tokens[token]; ok {
		row.revoked = true
		f.tokens[token] = row
	}
	return nil
}

func (f *fakeRepo) RevokeAllRefreshTokens(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, row := range f.tokens {
		if row.accountID == id {
			row.revoked = true
			f.tokens[k] = row
		}
	}
	return nil
}

func claimsFor(subject string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{Subject: subject}
}

func setup(t *testing.T) (*Service, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	svc := NewService(repo, auth.NewSigner("k", "academy", time.Minute, time.Hour))
	return svc, repo
}

func register(t *testing.T, svc *Service, email, role string) Profile {
	t.Helper()
	p, err := svc.Register(context.Background(), NewAccount{Email: email, Password: "password1", FullName: "Coach Kim", Role: role})
	require.NoError(t, err)
	return p
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	p := register(t, svc, "Kim@Example.com", auth.RoleCoach)

	_, err := svc.Register(ctx, NewAccount{Email: "kim@example.com", Password: "password1", FullName: "x", Role: "coach"})
	assert.True(t, apperr.Is(err, apperr.CodeConflict))

	pair, prof, err := svc.Login(ctx, "kim@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, p.AccountID, prof.AccountID)
	assert.NotEmpty(t, pair.AccessToken)

	_, _, err = svc.Login(ctx, "kim@example.com", "nope-nope")
	assert.True(t, apperr.Is(err, apperr.CodeUnauthenticated))
}

func TestRefreshRotates(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	register(t, svc, "a@example.com", auth.RoleAdmin)
	pair, _, err := svc.Login(ctx, "a@example.com", "password1")
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.True(t, apperr.Is(err, apperr.CodeUnauthenticated), "old refresh token must be revoked")

	require.NoError(t, svc.Logout(ctx, next.RefreshToken))
	_, err = svc.Refresh(ctx, next.RefreshToken)
	assert.Error(t, err)
}

func TestGhostProfileSignsOut(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	p := register(t, svc, "g@example.com", auth.RoleStudent)
	pair, _, err := svc.Login(ctx, "g@example.com", "password1")
	require.NoError(t, err)

	delete(repo.profiles, p.AccountID)

	_, err = svc.Ensure(ctx, auth.Claims{Role: auth.RoleStudent, RegisteredClaims: claimsFor(p.AccountID)})
	assert.True(t, apperr.Is(err, apperr.CodeGhostProfile))

	assert.False(t, repo.tokenActive(pair.RefreshToken))

	_, _, err = svc.Login(ctx, "g@example.com", "password1")
	assert.True(t, apperr.Is(err, apperr.CodeGhostProfile))
}

func TestEnsureRoleMismatch(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	p := register(t, svc, "r@example.com", auth.RoleStudent)

	got, err := svc.Ensure(ctx, auth.Claims{Role: auth.RoleStudent, RegisteredClaims: claimsFor(p.AccountID)})
	require.NoError(t, err)
	assert.Equal(t, p.AccountID, got.AccountID)

	_, err = svc.Ensure(ctx, auth.Claims{Role: auth.RoleAdmin, RegisteredClaims: claimsFor(p.AccountID)})
	assert.True(t, apperr.Is(err, apperr.CodeGhostProfile))
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	p := register(t, svc, "u@example.com", auth.RoleStudent)

	blank := "  "
	_, err := svc.UpdateProfile(ctx, p.AccountID, ProfileUpdate{FullName: &blank})
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))

	role := auth.RoleCoach
	got, err := svc.UpdateProfile(ctx, p.AccountID, ProfileUpdate{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleCoach, got.Role)

	_, err = svc.UpdateProfile(ctx, "missing", ProfileUpdate{})
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestConcurrentRefreshRotatesOnce(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	register(t, svc, "c@example.com", auth.RoleCoach)
	pair, _, err := svc.Login(ctx, "c@example.com", "password1")
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Refresh(ctx, pair.RefreshToken)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, revoked int
	for err := range errs {
		if err == nil {
			ok++
		} else if apperr.Is(err, apperr.CodeUnauthenticated) {
			revoked++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, revoked)
}
