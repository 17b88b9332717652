package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/teahouse-backend/internal/profiles"
	"github.com/angelmondragon/teahouse-backend/internal/users"
	"github.com/angelmondragon/teahouse-backend/pkg/db"
	"github.com/angelmondragon/teahouse-backend/pkg/db/models"
	"github.com/angelmondragon/teahouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/teahouse-backend/pkg/errors"
	"gorm.io/gorm"
)

// NewAccount is the data written when a customer signs up.
type NewAccount struct {
	Email        string
	PasswordHash string
	FullName     *string
	Username     *string
}

// AccountStore creates the users row and its profiles row together.
type AccountStore struct {
	db *db.Client
}

func NewAccountStore(client *db.Client) (*AccountStore, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	return &AccountStore{db: client}, nil
}

func (s *AccountStore) CreateAccount(ctx context.Context, account NewAccount) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(account.Email))
	var created *models.User
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)
		profileRepo := profiles.NewRepository(tx)

		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		user, err := userRepo.Create(ctx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: account.PasswordHash,
			Role:         enums.UserRoleCustomer,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}

		if err := profileRepo.Create(ctx, &models.Profile{
			ID:       user.ID,
			FullName: account.FullName,
			Username: account.Username,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create profile")
		}
		created = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
