package service

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/shopvault/internal/codec"
	"github.com/and161185/shopvault/internal/crypto"
	"github.com/and161185/shopvault/internal/errs"
	"github.com/and161185/shopvault/internal/limiter"
	"github.com/and161185/shopvault/internal/model"
	"github.com/and161185/shopvault/internal/repository"
)

const shopCodeMaxLen = 10

// AuthService orchestrates registration, login, employee provisioning and
// logout. It is the only component that touches password-derived keys.
//
// There is deliberately no password recovery: a forgotten password leaves
// that user's wrapped DEK copy permanently unreadable. Other users of the
// shop keep access through their own wrapped copies.
type AuthService struct {
	shops    repository.ShopRepository
	users    repository.UserRepository
	records  repository.RecordRepository
	lim      limiter.Limiter
	log      *zap.Logger
	validate *validator.Validate
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(
	shops repository.ShopRepository,
	users repository.UserRepository,
	records repository.RecordRepository,
	lim limiter.Limiter,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		shops:    shops,
		users:    users,
		records:  records,
		lim:      lim,
		log:      log,
		validate: validator.New(),
	}
}

// RegisterShopInput carries shop registration fields.
type RegisterShopInput struct {
	Name          string `validate:"required,min=2,max=100"`
	OwnerUsername string `validate:"required,min=3,max=50"`
	OwnerFullName string `validate:"omitempty,max=100"`
	Password      string `validate:"required,min=8,max=200"`
	Location      string `validate:"omitempty,max=200"`
	Phone         string `validate:"omitempty,max=30"`
	Email         string `validate:"omitempty,email"`
}

// RegisterShop creates a shop, generates a fresh DEK, wraps it under the
// owner's password-derived KEK and atomically persists shop + owner. On
// success the returned session is signed in with the new DEK.
//
// The shop code is shown to the operator exactly once at registration; it is
// the tenant discriminator for all future logins and is not otherwise
// recoverable.
func (s *AuthService) RegisterShop(ctx context.Context, in RegisterShopInput) (*Session, string, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, "", fmt.Errorf("validation: %w", err)
	}

	code, err := s.uniqueShopCode(ctx, in.Name)
	if err != nil {
		return nil, "", err
	}

	shopID, err := uuid.NewV4()
	if err != nil {
		return nil, "", err
	}
	ownerID, err := uuid.NewV4()
	if err != nil {
		return nil, "", err
	}

	dek, err := crypto.GenerateDataKey()
	if err != nil {
		return nil, "", err
	}
	owner, err := buildUser(ownerID, shopID, in.OwnerUsername, in.Phone, in.OwnerFullName, model.RoleOwner, in.Password, dek)
	if err != nil {
		return nil, "", err
	}

	now := time.Now().UTC()
	shop := &model.Shop{
		ID:        shopID,
		Name:      in.Name,
		Code:      code,
		OwnerID:   ownerID,
		Location:  in.Location,
		Phone:     in.Phone,
		Email:     in.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.shops.CreateWithOwner(ctx, shop, owner); err != nil {
		return nil, "", err
	}

	sess := newSession(*owner, *shop, dek)
	s.audit(sess, "register_shop", "shop registered")
	return sess, code, nil
}

// Login authenticates against a shop code and a username-or-phone identifier.
// A wrong code fails with ErrInvalidShopCode; everything downstream of that
// (unknown user, wrong password, unwrap failure) fails with the single
// ErrInvalidCredentials class so the caller cannot learn which check failed.
func (s *AuthService) Login(ctx context.Context, shopCode, identifier, password string) (*Session, error) {
	shopCode = strings.ToUpper(strings.TrimSpace(shopCode))
	identifier = strings.TrimSpace(identifier)
	if shopCode == "" || identifier == "" || password == "" {
		return nil, errs.ErrInvalidCredentials
	}

	shop, err := s.shops.GetByCode(ctx, shopCode)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrInvalidShopCode
		}
		return nil, err
	}

	allowed, _, err := s.lim.Allow(ctx, shopCode, strings.ToLower(identifier))
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, errs.ErrRateLimited
	}

	user, ok, err := s.findUser(ctx, shop.ID, identifier)
	if err != nil {
		return nil, err
	}
	if !ok || !crypto.VerifyPassword(password, user.AuthSalt, user.PwdHash) {
		if blocked, _, ferr := s.lim.Failure(ctx, shopCode, strings.ToLower(identifier)); ferr == nil && blocked {
			return nil, errs.ErrRateLimited
		}
		return nil, errs.ErrInvalidCredentials
	}

	kek := crypto.DeriveKey(password, user.KekSalt)
	dek, err := crypto.UnwrapDEK(user.WrappedDEK, kek)
	crypto.Zero(kek)
	if err != nil {
		// a corrupted credential record and a wrong password are
		// indistinguishable here, by design
		return nil, errs.ErrInvalidCredentials
	}

	_ = s.lim.Success(ctx, shopCode, strings.ToLower(identifier))

	sess := newSession(user, *shop, dek)
	s.audit(sess, "login", "")
	return sess, nil
}

// CreateEmployeeInput carries employee provisioning fields. Role excludes
// owner: exactly one owner exists per shop, created at registration.
type CreateEmployeeInput struct {
	Username string     `validate:"required,min=3,max=50"`
	Password string     `validate:"required,min=8,max=200"`
	Role     model.Role `validate:"required,oneof=manager cashier stock_keeper"`
	FullName string     `validate:"omitempty,max=100"`
	Phone    string     `validate:"omitempty,max=30"`
}

// CreateEmployee provisions a new login identity for the session's shop.
// Owner only. The employee gets fresh salts and a fresh KEK, but the wrapped
// key is the session's existing live DEK, not a new one; this is how every
// employee of a shop ends up able to decrypt the same business data.
func (s *AuthService) CreateEmployee(ctx context.Context, sess *Session, in CreateEmployeeInput) (*model.User, error) {
	if !sess.SignedIn() {
		return nil, errs.ErrKeyUnavailable
	}
	if sess.Role() != model.RoleOwner {
		return nil, errs.ErrPermissionDenied
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("validation: %w", err)
	}

	username := strings.ToLower(strings.TrimSpace(in.Username))
	existing, err := s.users.ListByShop(ctx, sess.ShopID())
	if err != nil {
		return nil, err
	}
	for _, u := range existing {
		if u.DeletedAt != nil {
			continue
		}
		if u.Username == username {
			return nil, errs.ErrUsernameTaken
		}
		if in.Phone != "" && u.Phone == in.Phone {
			return nil, errs.ErrPhoneTaken
		}
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	emp, err := buildUser(id, sess.ShopID(), username, in.Phone, in.FullName, in.Role, in.Password, sess.key())
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, emp); err != nil {
		return nil, err
	}

	s.audit(sess, "create_employee", "employee "+username)
	return emp, nil
}

// Logout audits best-effort, scrubs the DEK and returns the session to the
// signed-out state.
func (s *AuthService) Logout(sess *Session) {
	if sess.SignedIn() {
		s.audit(sess, "logout", "")
	}
	sess.close()
}

// buildUser assembles a credential record: independent auth and KEK salts,
// verification hash, and the provided DEK wrapped under the password-derived
// KEK.
func buildUser(id, shopID uuid.UUID, username, phone, fullName string, role model.Role, password string, dek []byte) (*model.User, error) {
	authSalt, err := crypto.GenerateSalt()
	if err != nil {
		return nil, err
	}
	kekSalt, err := crypto.GenerateSalt()
	if err != nil {
		return nil, err
	}
	kek := crypto.DeriveKey(password, kekSalt)
	wrapped, err := crypto.WrapDEK(dek, kek)
	crypto.Zero(kek)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &model.User{
		ID:         id,
		ShopID:     shopID,
		Username:   strings.ToLower(strings.TrimSpace(username)),
		Phone:      phone,
		FullName:   fullName,
		Role:       role,
		AuthSalt:   authSalt,
		PwdHash:    crypto.HashPassword(password, authSalt),
		KekSalt:    kekSalt,
		WrappedDEK: wrapped,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// findUser matches identifier against username (case-insensitive) or phone
// (exact) among the shop's active users.
func (s *AuthService) findUser(ctx context.Context, shopID uuid.UUID, identifier string) (model.User, bool, error) {
	users, err := s.users.ListByShop(ctx, shopID)
	if err != nil {
		return model.User{}, false, err
	}
	lowered := strings.ToLower(identifier)
	for _, u := range users {
		if u.DeletedAt != nil {
			continue
		}
		if u.Username == lowered || (u.Phone != "" && u.Phone == identifier) {
			return u, true, nil
		}
	}
	return model.User{}, false, nil
}

// uniqueShopCode derives a code from the shop name and disambiguates with a
// random numeric suffix on collision.
func (s *AuthService) uniqueShopCode(ctx context.Context, name string) (string, error) {
	base := shopCodeFromName(name)
	candidate := base
	for attempt := 0; attempt < 10; attempt++ {
		_, err := s.shops.GetByCode(ctx, candidate)
		if errors.Is(err, errs.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		suffix, err := randomSuffix()
		if err != nil {
			return "", err
		}
		trimmed := base
		if len(trimmed) > shopCodeMaxLen-len(suffix) {
			trimmed = trimmed[:shopCodeMaxLen-len(suffix)]
		}
		candidate = trimmed + suffix
	}
	return "", fmt.Errorf("shop code: could not find a free code for %q", name)
}

// shopCodeFromName strips the name to uppercase alphanumerics, truncated.
func shopCodeFromName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == shopCodeMaxLen {
				break
			}
		}
	}
	if b.Len() == 0 {
		return "SHOP"
	}
	return b.String()
}

func randomSuffix() (string, error) {
	raw, err := crypto.RandBytes(2)
	if err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint16(raw) % 1000
	return fmt.Sprintf("%03d", n), nil
}

// audit appends a login/logout/provisioning activity asynchronously so a
// logging failure never blocks authentication.
func (s *AuthService) audit(sess *Session, action, details string) {
	id, err := uuid.NewV4()
	if err != nil {
		s.log.Error("audit activity id", zap.Error(err))
		return
	}
	now := time.Now().UTC()
	act := model.Activity{
		Base:     model.Base{ID: id, ShopID: sess.ShopID(), CreatedAt: now, UpdatedAt: now},
		UserID:   sess.UserID(),
		Username: sess.User().Username,
		Action:   action,
		Details:  details,
	}
	rec, err := codec.Seal(act, act.ID, act.ShopID, sess.key())
	if err != nil {
		s.log.Error("audit activity seal", zap.String("action", action), zap.Error(err))
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.records.Put(ctx, repository.Activities, &rec); err != nil {
			s.log.Error("audit activity write", zap.String("action", action), zap.Error(err))
		}
	}()
}
