package session

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ujjwal-capsitech/GritsaFlow/internal/auth"
	domainauth "github.com/ujjwal-capsitech/GritsaFlow/internal/domain/auth"
	"github.com/ujjwal-capsitech/GritsaFlow/internal/domain/user"
	"github.com/ujjwal-capsitech/GritsaFlow/internal/events"
)

type UseCase struct {
	log    *zap.Logger
	users  user.Repo
	creds  *Credentials
	issuer *auth.Issuer
	events domainauth.EventPublisher
	cost   int

	// dummyHash is compared against when the username is unknown so that
	// both login failures cost one bcrypt comparison at the same cost.
	dummyHash func() []byte
}

type Deps struct {
	Logger      *zap.Logger
	Users       user.Repo
	Credentials *Credentials
	Issuer      *auth.Issuer
	Events      domainauth.EventPublisher
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

func NewUseCase(d Deps) *UseCase {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Events == nil {
		d.Events = events.Discard{}
	}
	if d.BcryptCost == 0 {
		d.BcryptCost = bcrypt.DefaultCost
	}
	cost := d.BcryptCost
	return &UseCase{
		log:    d.Logger,
		users:  d.Users,
		creds:  d.Credentials,
		issuer: d.Issuer,
		events: d.Events,
		cost:   cost,
		dummyHash: sync.OnceValue(func() []byte {
			h, _ := bcrypt.GenerateFromPassword([]byte("gritsaflow-placeholder"), cost)
			return h
		}),
	}
}

// Session is the result of a successful login.
type Session struct {
	User   *user.User
	Tokens auth.TokenPair
}

func (uc *UseCase) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := uc.users.GetByUsername(ctx, username)
	switch {
	case errors.Is(err, user.ErrNotFound):
		_ = bcrypt.CompareHashAndPassword(uc.dummyHash(), []byte(password))
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil || !u.IsActive {
		return nil, ErrInvalidCredentials
	}

	pair, err := uc.issuer.IssueTokens(u.Identity(), true)
	if err != nil {
		return nil, err
	}
	if err := uc.creds.Store(ctx, u.ID, pair.Refresh, pair.RefreshExpiresAt); err != nil {
		return nil, err
	}

	uc.publish(ctx, domainauth.EventLogin, u.ID, u.Role)
	return &Session{User: u, Tokens: pair}, nil
}

// Logout deletes the record behind refresh, if any. id is the caller's
// identity when one was resolved and is only used for the event.
func (uc *UseCase) Logout(ctx context.Context, refresh string, id *user.Identity) error {
	if err := uc.creds.Delete(ctx, refresh); err != nil {
		return err
	}
	if id != nil {
		uc.publish(ctx, domainauth.EventLogout, id.SubjectID, id.Role)
	}
	return nil
}

func (uc *UseCase) LogoutAll(ctx context.Context, id user.Identity) error {
	if err := uc.creds.DeleteAllForSubject(ctx, id.SubjectID); err != nil {
		return err
	}
	uc.publish(ctx, domainauth.EventLogoutAll, id.SubjectID, id.Role)
	return nil
}

// RefreshAccess exchanges a live refresh token for a new access token. The
// refresh token itself is neither rotated nor extended.
func (uc *UseCase) RefreshAccess(ctx context.Context, refresh string) (*user.User, auth.TokenPair, error) {
	u, err := uc.creds.FindLiveBySubjectOfToken(ctx, refresh)
	if err != nil {
		return nil, auth.TokenPair{}, err
	}
	pair, err := uc.issuer.IssueTokens(u.Identity(), false)
	if err != nil {
		return nil, auth.TokenPair{}, err
	}
	return u, pair, nil
}

// CheckSession reports whether refresh is present and live. It mints nothing.
func (uc *UseCase) CheckSession(ctx context.Context, refresh string) error {
	_, err := uc.creds.FindLiveBySubjectOfToken(ctx, refresh)
	return err
}

func (uc *UseCase) WhoAmI(ctx context.Context, id user.Identity) (*user.User, error) {
	return uc.lookup(ctx, id.SubjectID)
}

// Role returns the role stored in the directory, which may be newer than the
// one carried by the access token.
func (uc *UseCase) Role(ctx context.Context, id user.Identity) (user.Role, error) {
	u, err := uc.lookup(ctx, id.SubjectID)
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

func (uc *UseCase) lookup(ctx context.Context, subjectID string) (*user.User, error) {
	u, err := uc.users.GetByID(ctx, subjectID)
	switch {
	case errors.Is(err, user.ErrNotFound):
		return nil, ErrUserNotFound
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return u, nil
}

type RegisterInput struct {
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	UserName  string `json:"userName"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl"`
}

func (in RegisterInput) validate() error {
	var missing []string
	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(in.UserName) == "" {
		missing = append(missing, "userName")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	if len(in.Name) > 100 || len(in.UserName) > 50 || len(in.Email) > 150 {
		return fmt.Errorf("%w: field too long", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return fmt.Errorf("%w: email", ErrInvalidInput)
	}
	return nil
}

func (uc *UseCase) Register(ctx context.Context, in RegisterInput) (*user.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	role, err := user.ParseRole(in.Role)
	if err != nil {
		return nil, ErrInvalidRole
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), uc.cost)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	id := strings.TrimSpace(in.UserID)
	if id == "" {
		id = "U-" + uuid.NewString()
	}
	u := &user.User{
		ID:           id,
		Username:     strings.TrimSpace(in.UserName),
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.TrimSpace(in.Email),
		AvatarURL:    in.AvatarURL,
		Role:         role,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := uc.users.Create(ctx, u); err != nil {
		switch {
		case errors.Is(err, user.ErrConflict):
			return nil, ErrUsernameTaken
		case errors.Is(err, user.ErrIDConflict):
			return nil, ErrUserIDTaken
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	uc.log.Info("user registered", zap.String("user_id", u.ID), zap.String("role", role.String()))
	uc.publish(ctx, domainauth.EventRegistered, u.ID, u.Role)
	return u, nil
}

func (uc *UseCase) publish(ctx context.Context, kind domainauth.EventKind, subjectID string, role user.Role) {
	uc.events.Publish(ctx, domainauth.SessionEvent{
		Kind:      kind,
		SubjectID: subjectID,
		Role:      role.String(),
		At:        uc.issuer.Now(),
	})
}
