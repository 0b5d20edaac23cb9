package app

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"frontdesk/internal/adapters/auth"
	"frontdesk/internal/domain"
)

type AuthService struct {
	repo   domain.BookingRepository
	tokens *auth.Service
}

func NewAuthService(r domain.BookingRepository, t *auth.Service) *AuthService {
	return &AuthService{repo: r, tokens: t}
}

// Login checks the password and issues a token pair scoped to the user's hotel.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.Tokens, error) {
	u, err := s.repo.GetUserByUsername(ctx, username)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Tokens{}, domain.ErrAuth
	}
	if err != nil {
		return domain.Tokens{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return domain.Tokens{}, domain.ErrAuth
	}
	return s.issue(u.ID, u.HotelID)
}

// Refresh trades a valid refresh token for a new pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.Tokens, error) {
	c, err := s.tokens.Validate(refreshToken, auth.KindRefresh)
	if err != nil {
		return domain.Tokens{}, domain.ErrAuth
	}
	return s.issue(c.UserID, c.HotelID)
}

func (s *AuthService) issue(userID, hotelID int64) (domain.Tokens, error) {
	access, refresh, err := s.tokens.Issue(userID, hotelID)
	if err != nil {
		return domain.Tokens{}, err
	}
	return domain.Tokens{AccessToken: access, RefreshToken: refresh, HotelID: hotelID}, nil
}
