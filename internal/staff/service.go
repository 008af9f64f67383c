package staff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	pkgauth "github.com/emberlane/pos-backend/pkg/auth"
	"github.com/emberlane/pos-backend/pkg/config"
	"github.com/emberlane/pos-backend/pkg/db/models"
	pkgerrors "github.com/emberlane/pos-backend/pkg/errors"
	"github.com/emberlane/pos-backend/pkg/security"
)

const invalidPINMessage = "invalid staff id or pin"

// Service authenticates till operators and lists who can sign in.
type Service interface {
	Login(ctx context.Context, input LoginInput) (*LoginResponse, error)
	ListAvailable(ctx context.Context) ([]StaffSummary, error)
}

// LoginInput carries a PIN-pad sign-in attempt.
type LoginInput struct {
	StaffID uint
	PIN     string
}

// LoginResponse is the minted session plus the operator's display fields.
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	Staff       StaffSummary `json:"staff"`
}

// StaffSummary is the public projection of a staff row.
type StaffSummary struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
}

type service struct {
	repo   Repository
	jwtCfg config.JWTConfig
}

// NewService builds the staff auth service.
func NewService(repo Repository, jwtCfg config.JWTConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("staff repository required")
	}
	return &service{repo: repo, jwtCfg: jwtCfg}, nil
}

func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResponse, error) {
	if input.StaffID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidPINMessage)
	}
	if err := security.ValidatePIN(input.PIN); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidPINMessage)
	}

	member, err := s.repo.FindByID(ctx, input.StaffID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidPINMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup staff")
	}

	valid, err := security.VerifyPIN(input.PIN, member.PINHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify pin")
	}
	if !valid || !member.Available {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidPINMessage)
	}

	token, err := pkgauth.MintAccessToken(s.jwtCfg, time.Now(), pkgauth.AccessTokenPayload{
		StaffID:   member.ID,
		StaffName: member.Name,
		IsAdmin:   member.IsAdmin,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &LoginResponse{
		AccessToken: token,
		Staff:       summarize(member),
	}, nil
}

func (s *service) ListAvailable(ctx context.Context) ([]StaffSummary, error) {
	members, err := s.repo.ListAvailable(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list staff")
	}
	summaries := make([]StaffSummary, 0, len(members))
	for i := range members {
		summaries = append(summaries, summarize(&members[i]))
	}
	return summaries, nil
}

func summarize(member *models.Staff) StaffSummary {
	return StaffSummary{
		ID:      member.ID,
		Name:    member.Name,
		IsAdmin: member.IsAdmin,
	}
}
