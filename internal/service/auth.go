package service

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"github.com/devmadlani/auth-service/internal/apperrors"
	"github.com/devmadlani/auth-service/internal/logger"
	"github.com/devmadlani/auth-service/internal/model"
	"github.com/devmadlani/auth-service/internal/password"
	"github.com/devmadlani/auth-service/internal/queue"
	"github.com/devmadlani/auth-service/internal/repository"
	"github.com/devmadlani/auth-service/internal/token"
)

var (
	errEmailTaken      = apperrors.Conflict("Email is already exists")
	errBadCredentials  = apperrors.Invalid(apperrors.Field("", "Email or password does not match."))
	errUnknownIdentity = apperrors.Unauthorized("User does not exist")
)

// Session is the credential pair handed out by a successful exchange.
type Session struct {
	UserID       uint64
	AccessToken  string
	RefreshToken string
}

// AuthService runs registration, login, refresh and logout.
type AuthService struct {
	store  *repository.Store
	tokens *token.Service
	hasher *password.Hasher
	notifier
}

func NewAuthService(store *repository.Store, tokens *token.Service, hasher *password.Hasher, events queue.Publisher) *AuthService {
	return &AuthService{store: store, tokens: tokens, hasher: hasher, notifier: newNotifier(events)}
}

// Register creates a customer account and its first session. The user row,
// the refresh record and both signatures are one transaction: on any
// failure neither row survives.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	const op = "service.AuthService.Register"
	in.normalize()
	if err := in.validate(); err != nil {
		return Session{}, err
	}
	log := logger.FromContext(ctx)
	log.Debug("new request to register a user",
		zap.String("firstName", in.FirstName), zap.String("lastName", in.LastName), zap.String("email", in.Email))

	// The unique index is authoritative; this only saves a bcrypt round.
	exists, err := s.store.Users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return Session{}, storageErr(op, err)
	}
	if exists {
		return Session{}, errEmailTaken
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Session{}, apperrors.Internal(op, "Failed to hash password", err)
	}

	u := model.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         model.RoleCustomer,
	}
	var sess Session
	err = s.store.WithTx(ctx, func(tx *repository.Store) error {
		if err := tx.Users.Create(ctx, &u); err != nil {
			if errors.Is(err, repository.ErrEmailExists) {
				return errEmailTaken
			}
			return storageErr(op, err)
		}
		issued, err := s.issue(ctx, tx.Tokens, u)
		sess = issued
		return err
	})
	if err != nil {
		return Session{}, err
	}

	log.Info("user has been registered", zap.Uint64("id", u.ID))
	s.publish(ctx, queue.Event{Type: queue.UserRegistered, SubjectID: u.ID, Email: u.Email, Role: u.Role})
	return sess, nil
}

// Login exchanges credentials for a session. An unknown email and a wrong
// password fail identically.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (Session, error) {
	const op = "service.AuthService.Login"
	in.normalize()
	if err := in.validate(); err != nil {
		return Session{}, err
	}

	u, err := s.store.Users.GetByEmail(ctx, in.Email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		s.hasher.Burn(in.Password)
		return Session{}, errBadCredentials
	case err != nil:
		return Session{}, storageErr(op, err)
	}
	if !s.hasher.Verify(u.PasswordHash, in.Password) {
		return Session{}, errBadCredentials
	}

	var sess Session
	err = s.store.WithTx(ctx, func(tx *repository.Store) error {
		issued, err := s.issue(ctx, tx.Tokens, u)
		sess = issued
		return err
	})
	if err != nil {
		return Session{}, err
	}
	logger.FromContext(ctx).Info("user has been logged in", zap.Uint64("id", u.ID))
	s.publish(ctx, queue.Event{Type: queue.UserLoggedIn, SubjectID: u.ID, Role: u.Role})
	return sess, nil
}

// Self returns the account behind an authenticated identity. An identity
// whose user has since been deleted is no longer authenticated.
func (s *AuthService) Self(ctx context.Context, userID uint64) (model.User, error) {
	u, err := s.store.Users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, errUnknownIdentity
	}
	if err != nil {
		return model.User{}, storageErr("service.AuthService.Self", err)
	}
	return u, nil
}

// Refresh rotates a refresh token: the presented record is consumed and a
// new pair is issued with the role currently stored for the user.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (Session, error) {
	const op = "service.AuthService.Refresh"
	claims, err := s.tokens.VerifyRefreshToken(ctx, s.store.Tokens, rawRefresh)
	if err != nil {
		return Session{}, err
	}
	uid, err := claims.UserID()
	if err != nil {
		return Session{}, apperrors.Unauthorized("Invalid refresh token")
	}

	var sess Session
	err = s.store.WithTx(ctx, func(tx *repository.Store) error {
		if err := s.tokens.ConsumeRefreshToken(ctx, tx.Tokens, claims.ID); err != nil {
			if apperrors.ErrorCode(err) == apperrors.EUnauthorized {
				return err
			}
			return storageErr(op, err)
		}
		u, err := tx.Users.GetByID(ctx, uid)
		if errors.Is(err, repository.ErrNotFound) {
			return errUnknownIdentity
		}
		if err != nil {
			return storageErr(op, err)
		}
		sess, err = s.issue(ctx, tx.Tokens, u)
		return err
	})
	if err != nil {
		return Session{}, err
	}
	s.publish(ctx, queue.Event{Type: queue.TokenRefreshed, SubjectID: uid})
	return sess, nil
}

// Logout revokes the refresh record named by rawRefresh when it belongs to
// userID. A missing, foreign or already revoked refresh token is ignored;
// the caller clears the cookies either way.
func (s *AuthService) Logout(ctx context.Context, userID uint64, rawRefresh string) error {
	if rawRefresh != "" {
		claims, err := s.tokens.VerifyRefreshToken(ctx, s.store.Tokens, rawRefresh)
		switch {
		case err == nil && claims.Subject == strconv.FormatUint(userID, 10):
			if err := s.tokens.DeleteRefreshToken(ctx, s.store.Tokens, claims.ID); err != nil {
				return storageErr("service.AuthService.Logout", err)
			}
		case err != nil && apperrors.ErrorCode(err) != apperrors.EUnauthorized:
			return err
		}
	}
	s.publish(ctx, queue.Event{Type: queue.UserLoggedOut, SubjectID: userID})
	return nil
}

// issue persists a refresh record for u and signs both tokens.
func (s *AuthService) issue(ctx context.Context, store token.RefreshStore, u model.User) (Session, error) {
	rec, err := s.tokens.PersistRefreshToken(ctx, store, u.ID)
	if err != nil {
		return Session{}, storageErr("service.AuthService.issue", err)
	}
	subject := strconv.FormatUint(u.ID, 10)
	access, err := s.tokens.IssueAccessToken(ctx, token.Claims{Subject: subject, Role: u.Role})
	if err != nil {
		return Session{}, err
	}
	refresh, err := s.tokens.IssueRefreshToken(token.RefreshClaims{Subject: subject, Role: u.Role, ID: rec.ID})
	if err != nil {
		return Session{}, err
	}
	return Session{UserID: u.ID, AccessToken: access, RefreshToken: refresh}, nil
}
