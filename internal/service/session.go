// Package service contains the auth/session state machine and the shop-scoped
// domain repository built on top of the keyed store.
package service

import (
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/shopvault/internal/crypto"
	"github.com/and161185/shopvault/internal/model"
)

// Session holds the authenticated user, their shop and the live DEK for the
// duration of one signed-in session. It is an explicit object passed into
// services, not process-global state, so multiple sessions can coexist
// (and be tested) in one process.
//
// The DEK exists only here, in memory. It is never persisted unwrapped and
// is zeroed on Logout. A process restart therefore always begins signed out;
// that is the at-rest protection, not an oversight.
type Session struct {
	user model.User
	shop model.Shop
	dek  []byte
}

func newSession(user model.User, shop model.Shop, dek []byte) *Session {
	return &Session{user: user, shop: shop, dek: dek}
}

// SignedIn reports whether the session holds a live data key.
func (s *Session) SignedIn() bool { return s != nil && len(s.dek) > 0 }

// User returns the authenticated user as loaded from the store.
func (s *Session) User() model.User { return s.user }

// Shop returns the authenticated shop.
func (s *Session) Shop() model.Shop { return s.shop }

// Role returns the acting user's role.
func (s *Session) Role() model.Role { return s.user.Role }

// ShopID returns the tenant id all repository operations are scoped to.
func (s *Session) ShopID() uuid.UUID { return s.shop.ID }

// UserID returns the acting user's id.
func (s *Session) UserID() uuid.UUID { return s.user.ID }

// key returns the live DEK or nil when signed out.
func (s *Session) key() []byte {
	if s == nil {
		return nil
	}
	return s.dek
}

// close scrubs the key and detaches user/shop state.
func (s *Session) close() {
	if s == nil {
		return
	}
	crypto.Zero(s.dek)
	s.dek = nil
	s.user = model.User{}
	s.shop = model.Shop{}
}
