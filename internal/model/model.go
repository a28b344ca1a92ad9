// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

// Role is a user's role within a shop. Exactly one owner exists per shop,
// created at registration.
type Role string

// Roles.
const (
	RoleOwner       Role = "owner"
	RoleManager     Role = "manager"
	RoleCashier     Role = "cashier"
	RoleStockKeeper Role = "stock_keeper"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleCashier, RoleStockKeeper:
		return true
	}
	return false
}

// CanResolveRequests reports whether the role may approve or reject
// shift/leave requests.
func (r Role) CanResolveRequests() bool {
	return r == RoleOwner || r == RoleManager
}

// Shop is the tenant boundary. Stored in plaintext: its metadata is not
// business data, and the login flow must read it before any key exists.
type Shop struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"` // short uppercase login discriminator, unique
	OwnerID   uuid.UUID `json:"ownerId"`
	Location  string    `json:"location,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// User is a credential record, scoped to exactly one shop. Sensitive keys are
// never stored in plaintext: WrappedDEK is the shop-wide DEK encrypted under
// this user's password-derived KEK. AuthSalt and KekSalt are independent so
// the verification hash can never equal the KEK bytes.
type User struct {
	ID         uuid.UUID  `json:"id"`
	ShopID     uuid.UUID  `json:"shopId"`
	Username   string     `json:"username"` // lower-cased, unique within the shop
	Phone      string     `json:"phone,omitempty"`
	FullName   string     `json:"fullName,omitempty"`
	Role       Role       `json:"role"`
	AuthSalt   []byte     `json:"-"` // per-user salt for the verification hash
	PwdHash    []byte     `json:"-"` // PBKDF2(password, AuthSalt), equality check only
	KekSalt    []byte     `json:"-"` // per-user salt for KEK derivation
	WrappedDEK string     `json:"-"` // base64(IV||AES-GCM(raw DEK, KEK))
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	DeletedAt  *time.Time `json:"deletedAt,omitempty"`
}

// EncryptedRecord is the envelope around any encrypted business record.
// Ciphertext is base64(IV[12] || AES-GCM(JSON(domain object), DEK)).
// The envelope's ShopID exists for index-based retrieval before decryption;
// after decryption the plaintext shopId is the source of truth.
type EncryptedRecord struct {
	ID         uuid.UUID
	ShopID     uuid.UUID
	Ciphertext string
}

// Base carries the lifecycle fields every business record duplicates inside
// its plaintext (see EncryptedRecord).
type Base struct {
	ID        uuid.UUID  `json:"id"`
	ShopID    uuid.UUID  `json:"shopId"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// Item is a stock item.
type Item struct {
	Base
	Name         string            `json:"name"`
	SKU          string            `json:"sku"`
	Barcode      string            `json:"barcode,omitempty"`
	Description  string            `json:"description,omitempty"`
	CategoryID   uuid.UUID         `json:"categoryId"`
	LocationID   uuid.UUID         `json:"locationId"`
	Quantity     int64             `json:"quantity"`
	MinQuantity  int64             `json:"minQuantity"`
	Unit         string            `json:"unit"`
	CostPrice    decimal.Decimal   `json:"costPrice"`
	SellingPrice decimal.Decimal   `json:"sellingPrice"`
	CustomFields map[string]string `json:"customFields,omitempty"`
}

// Category groups items, optionally nested.
type Category struct {
	Base
	Name        string    `json:"name"`
	ParentID    uuid.UUID `json:"parentId,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Location is a physical storage location, optionally nested.
type Location struct {
	Base
	Name        string    `json:"name"`
	ParentID    uuid.UUID `json:"parentId,omitempty"`
	Description string    `json:"description,omitempty"`
	Address     string    `json:"address,omitempty"`
}

// TransactionType classifies a stock movement.
type TransactionType string

// Transaction types.
const (
	TxAdd      TransactionType = "add"
	TxRemove   TransactionType = "remove"
	TxAdjust   TransactionType = "adjust"
	TxTransfer TransactionType = "transfer"
)

// Transaction is an append-only stock movement. Never updated or deleted.
// ItemID may dangle if the item was soft-deleted later; readers must
// tolerate that.
type Transaction struct {
	Base
	ItemID         uuid.UUID       `json:"itemId"`
	Type           TransactionType `json:"type"`
	Quantity       int64           `json:"quantity"`
	FromLocationID uuid.UUID       `json:"fromLocationId,omitempty"`
	ToLocationID   uuid.UUID       `json:"toLocationId,omitempty"`
	Reason         string          `json:"reason,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	UserID         uuid.UUID       `json:"userId"`
}

// AlertType classifies an alert.
type AlertType string

// Alert types.
const (
	AlertLowStock     AlertType = "low_stock"
	AlertCashVariance AlertType = "cash_variance"
)

// AlertSeverity grades an alert.
type AlertSeverity string

// Alert severities.
const (
	SeverityInfo AlertSeverity = "info"
	SeverityHigh AlertSeverity = "high"
)

// Alert is a notification record.
type Alert struct {
	Base
	ItemID   uuid.UUID     `json:"itemId,omitempty"`
	ShiftID  uuid.UUID     `json:"shiftId,omitempty"`
	Type     AlertType     `json:"type"`
	Severity AlertSeverity `json:"severity"`
	Message  string        `json:"message"`
	IsRead   bool          `json:"isRead"`
}

// ShiftStatus is the lifecycle state of a shift.
type ShiftStatus string

// Shift statuses.
const (
	ShiftOpen   ShiftStatus = "open"
	ShiftClosed ShiftStatus = "closed"
)

// Shift is a cash-drawer session for one user. At most one open shift per
// user at a time. Append-only after reaching closed.
type Shift struct {
	Base
	UserID      uuid.UUID       `json:"userId"`
	Status      ShiftStatus     `json:"status"`
	OpeningCash decimal.Decimal `json:"openingCash"`
	ClosingCash decimal.Decimal `json:"closingCash"`
	Variance    decimal.Decimal `json:"variance"`
	Notes       string          `json:"notes,omitempty"`
	OpenedAt    time.Time       `json:"openedAt"`
	ClosedAt    *time.Time      `json:"closedAt,omitempty"`
}

// PaymentMethod is how a sale was paid.
type PaymentMethod string

// Payment methods.
const (
	PayCash PaymentMethod = "cash"
	PayCard PaymentMethod = "card"
)

// SaleItem is one line of a sale.
type SaleItem struct {
	ItemID    uuid.UUID       `json:"itemId"`
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Sale is a completed POS sale, attached to the open shift of the selling
// user. Append-only.
type Sale struct {
	Base
	ShiftID       uuid.UUID       `json:"shiftId"`
	UserID        uuid.UUID       `json:"userId"`
	Items         []SaleItem      `json:"items"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
}

// Activity is an append-only audit record (logins, logouts, notable actions).
type Activity struct {
	Base
	UserID   uuid.UUID `json:"userId"`
	Username string    `json:"username"`
	Action   string    `json:"action"`
	Details  string    `json:"details,omitempty"`
}

// RequestStatus is the lifecycle state of a shift/leave request.
type RequestStatus string

// Request statuses.
const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// ShiftRequest asks for a shift change. Resolvable once, by owner/manager.
type ShiftRequest struct {
	Base
	UserID     uuid.UUID     `json:"userId"`
	Date       time.Time     `json:"date"`
	Reason     string        `json:"reason,omitempty"`
	Status     RequestStatus `json:"status"`
	ResolvedBy uuid.UUID     `json:"resolvedBy,omitempty"`
}

// LeaveRequest asks for time off. Resolvable once, by owner/manager.
type LeaveRequest struct {
	Base
	UserID     uuid.UUID     `json:"userId"`
	From       time.Time     `json:"from"`
	To         time.Time     `json:"to"`
	Reason     string        `json:"reason,omitempty"`
	Status     RequestStatus `json:"status"`
	ResolvedBy uuid.UUID     `json:"resolvedBy,omitempty"`
}
