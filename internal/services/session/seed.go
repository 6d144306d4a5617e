package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ujjwal-capsitech/GritsaFlow/internal/auth"
	"github.com/ujjwal-capsitech/GritsaFlow/internal/domain/user"
)

type SeedConfig struct {
	AdminUserName string
	AdminPassword string
	AdminName     string
	AdminEmail    string
}

// SeedAdmin creates the bootstrap admin when it does not exist yet, so that
// a fresh deployment has someone who can call the admin-only register
// endpoint. If no password is configured one is generated and logged once.
func (uc *UseCase) SeedAdmin(ctx context.Context, cfg SeedConfig) error {
	if cfg.AdminUserName == "" {
		return nil
	}
	_, err := uc.users.GetByUsername(ctx, cfg.AdminUserName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return fmt.Errorf("lookup bootstrap admin: %w", err)
	}

	password := cfg.AdminPassword
	generated := password == ""
	if generated {
		if password, err = auth.GenerateRawToken(18); err != nil {
			return fmt.Errorf("generate admin password: %w", err)
		}
	}
	name := cfg.AdminName
	if name == "" {
		name = "Administrator"
	}
	email := cfg.AdminEmail
	if email == "" {
		email = "admin@gritsaflow.local"
	}

	u, err := uc.Register(ctx, RegisterInput{
		Name:     name,
		UserName: cfg.AdminUserName,
		Password: password,
		Role:     string(user.RoleAdmin),
		Email:    email,
	})
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil
		}
		return fmt.Errorf("create bootstrap admin: %w", err)
	}

	fields := []zap.Field{zap.String("user_id", u.ID), zap.String("user_name", u.Username)}
	if generated {
		fields = append(fields, zap.String("password", password))
		uc.log.Warn("bootstrap admin created with generated password, change it", fields...)
		return nil
	}
	uc.log.Info("bootstrap admin created", fields...)
	return nil
}
