package repository

// Collection names the record families held in the keyed store. The set is
// closed: collection access is never built from arbitrary strings.
type Collection string

// Encrypted business-record collections. Shops and users live in their own
// plaintext tables, not here.
const (
	Items         Collection = "items"
	Categories    Collection = "categories"
	Locations     Collection = "locations"
	Transactions  Collection = "transactions"
	Alerts        Collection = "alerts"
	Shifts        Collection = "shifts"
	Sales         Collection = "sales"
	Activities    Collection = "activities"
	ShiftRequests Collection = "shift_requests"
	LeaveRequests Collection = "leave_requests"
)

// All lists every encrypted collection, in bulk-load order.
func All() []Collection {
	return []Collection{
		Items, Categories, Locations, Transactions, Alerts,
		Shifts, Sales, Activities, ShiftRequests, LeaveRequests,
	}
}

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	switch c {
	case Items, Categories, Locations, Transactions, Alerts,
		Shifts, Sales, Activities, ShiftRequests, LeaveRequests:
		return true
	}
	return false
}
