package account

import (
	"context"
	"log"
	"strings"

	"academy/internal/apperr"
	"academy/internal/auth"
)

// Service coordinates sign-in, token rotation and profile checks.
type Service struct {
	repo   Repository
	signer *auth.Signer
}

// NewService creates a service.
func NewService(repo Repository, signer *auth.Signer) *Service {
	return &Service{repo: repo, signer: signer}
}

// NewAccount is the input for Register.
type NewAccount struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
	Role     string `json:"role" binding:"required,oneof=admin coach student"`
}

// Register creates an account with its profile.
func (s *Service) Register(ctx context.Context, in NewAccount) (Profile, error) {
	existing, err := s.repo.AccountByEmail(ctx, in.Email)
	if err != nil {
		return Profile{}, err
	}
	if existing != nil {
		return Profile{}, apperr.Conflict("email already registered")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Profile{}, apperr.Wrap(apperr.CodeInvalidArgument, "invalid password", err)
	}
	p := Profile{FullName: strings.TrimSpace(in.FullName), Role: in.Role}
	a, err := s.repo.CreateAccount(ctx, Account{Email: in.Email, PasswordHash: hash}, p)
	if err != nil {
		return Profile{}, err
	}
	p.AccountID, p.Email, p.CreatedAt = a.ID, a.Email, a.CreatedAt
	return p, nil
}

// Login verifies credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, email, password string) (auth.TokenPair, Profile, error) {
	a, err := s.repo.AccountByEmail(ctx, email)
	if err != nil {
		return auth.TokenPair{}, Profile{}, err
	}
	if a == nil || !auth.CheckPassword(a.PasswordHash, password) {
		return auth.TokenPair{}, Profile{}, apperr.Unauthenticated("invalid email or password")
	}
	p, err := s.repo.Profile(ctx, a.ID)
	if err != nil {
		return auth.TokenPair{}, Profile{}, err
	}
	if p == nil {
		return auth.TokenPair{}, Profile{}, s.ghost(ctx, a.ID)
	}
	pair, err := s.issue(ctx, a.ID, p.Role)
	return pair, *p, err
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair issued. A token can be exchanged once, even under concurrent calls.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	claims, err := s.signer.Parse(refreshToken, auth.KindRefresh)
	if err != nil {
		return auth.TokenPair{}, apperr.Wrap(apperr.CodeUnauthenticated, "invalid refresh token", err)
	}
	consumed, err := s.repo.ConsumeRefreshToken(ctx, refreshToken)
	if err != nil {
		return auth.TokenPair{}, err
	}
	if !consumed {
		return auth.TokenPair{}, apperr.Unauthenticated("refresh token revoked")
	}
	p, err := s.repo.Profile(ctx, claims.Subject)
	if err != nil {
		return auth.TokenPair{}, err
	}
	if p == nil {
		return auth.TokenPair{}, s.ghost(ctx, claims.Subject)
	}
	return s.issue(ctx, claims.Subject, p.Role)
}

// Logout revokes a refresh token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.repo.RevokeRefreshToken(ctx, refreshToken)
}

// Ensure returns the caller's profile. An account without a profile, or whose
// token role no longer matches the profile, is signed out everywhere.
func (s *Service) Ensure(ctx context.Context, claims auth.Claims) (Profile, error) {
	p, err := s.repo.Profile(ctx, claims.Subject)
	if err != nil {
		return Profile{}, err
	}
	if p == nil {
		return Profile{}, s.ghost(ctx, claims.Subject)
	}
	if p.Role != claims.Role {
		if err := s.repo.RevokeAllRefreshTokens(ctx, claims.Subject); err != nil {
			log.Printf("revoke tokens for %s failed: %v", claims.Subject, err)
		}
		return Profile{}, apperr.New(apperr.CodeGhostProfile, "profile changed, sign in again")
	}
	return *p, nil
}

// Profiles lists profiles by role; an empty role lists everyone.
func (s *Service) Profiles(ctx context.Context, role string) ([]Profile, error) {
	profiles, err := s.repo.ListProfiles(ctx, role)
	if err != nil {
		return nil, err
	}
	if profiles == nil {
		profiles = []Profile{}
	}
	return profiles, nil
}

// ProfileUpdate is the editable part of a profile.
type ProfileUpdate struct {
	FullName  *string `json:"full_name"`
	Role      *string `json:"role" binding:"omitempty,oneof=admin coach student"`
	AvatarURL *string `json:"avatar_url" binding:"omitempty,url"`
}

// UpdateProfile applies a partial update.
func (s *Service) UpdateProfile(ctx context.Context, accountID string, in ProfileUpdate) (Profile, error) {
	p, err := s.repo.Profile(ctx, accountID)
	if err != nil {
		return Profile{}, err
	}
	if p == nil {
		return Profile{}, apperr.NotFound("profile not found")
	}
	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		if name == "" {
			return Profile{}, apperr.Invalid("full_name must not be empty")
		}
		p.FullName = name
	}
	if in.Role != nil && *in.Role != p.Role {
		p.Role = *in.Role
		// Outstanding tokens carry the old role.
		if err := s.repo.RevokeAllRefreshTokens(ctx, accountID); err != nil {
			return Profile{}, err
		}
	}
	if in.AvatarURL != nil {
		p.AvatarURL = *in.AvatarURL
	}
	if err := s.repo.UpdateProfile(ctx, *p); err != nil {
		return Profile{}, err
	}
	return *p, nil
}

func (s *Service) issue(ctx context.Context, accountID, role string) (auth.TokenPair, error) {
	pair, err := s.signer.Issue(accountID, role)
	if err != nil {
		return auth.TokenPair{}, apperr.Wrap(apperr.CodeInternal, "token issue failed", err)
	}
	if err := s.repo.SaveRefreshToken(ctx, accountID, pair.RefreshToken, pair.RefreshExp); err != nil {
		return auth.TokenPair{}, err
	}
	return pair, nil
}

func (s *Service) ghost(ctx context.Context, accountID string) error {
	log.Printf("ghost profile for account %s, signing out", accountID)
	if err := s.repo.RevokeAllRefreshTokens(ctx, accountID); err != nil {
		log.Printf("revoke tokens for %s failed: %v", accountID, err)
	}
	return apperr.New(apperr.CodeGhostProfile, "no profile for this account")
}
