package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/and161185/shopvault/internal/codec"
	"github.com/and161185/shopvault/internal/crypto"
	"github.com/and161185/shopvault/internal/errs"
	"github.com/and161185/shopvault/internal/model"
	"github.com/and161185/shopvault/internal/repository"
)

func TestSoftDelete_Item(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	sess, _ := registerAcme(t, env)
	data := newDataSvc(env, sess)

	item, err := data.CreateItem(ctx, ItemInput{Name: "Beans", SKU: "B-1", Quantity: 5})
	require.NoError(t, err)
	require.NoError(t, data.DeleteItem(ctx, item.ID))

	// still present in the store and the full view, flagged deleted
	require.NoError(t, data.LoadAll(ctx))
	all := data.Items()
	require.Len(t, all, 1)
	require.NotNil(t, all[0].DeletedAt)

	// gone from the active view
	require.Empty(t, data.ActiveItems())

	require.ErrorIs(t, data.DeleteItem(ctx, uuid.Must(uuid.NewV4())), errs.ErrNotFound)
}

func TestCreateItem_CascadesAddTransaction(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	sess, _ := registerAcme(t, env)
	data := newDataSvc(env, sess)

	item, err := data.CreateItem(ctx, ItemInput{Name: "Beans", SKU: "B-1", Quantity: 7})
	require.NoError(t, err)

	txs := data.Transactions()
	require.Len(t, txs, 1)
	require.Equal(t, item.ID, txs[0].ItemID)
	require.Equal(t, model.TxAdd, txs[0].Type)
	require.Equal(t, int64(7), txs[0].Quantity)
	require.Equal(t, sess.UserID(), txs[0].UserID)
}

func TestLowStockAlert(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	sess, _ := registerAcme(t, env)
	data := newDataSvc(env, sess)

	item, err := data.CreateItem(ctx, ItemInput{Name: "Beans", SKU: "B-1", Quantity: 10, MinQuantity: 3})
	require.NoError(t, err)
	require.Empty(t, data.Alerts())

	qty := int64(2)
	_, err = data.UpdateItem(ctx, item.ID, ItemUpdate{Quantity: &qty})
	require.NoError(t, err)

	alerts := data.Alerts()
	require.Len(t, alerts, 1)
	require.Equal(t, model.AlertLowStock, alerts[0].Type)
	require.Equal(t, item.ID, alerts[0].ItemID)
	require.False(t, alerts[0].IsRead)

	// no duplicate while one is unread
	qty = 1
	_, err = data.UpdateItem(ctx, item.ID, ItemUpdate{Quantity: &qty})
	require.NoError(t, err)
	require.Len(t, data.Alerts(), 1)

	require.NoError(t, data.MarkAlertRead(ctx, alerts[0].ID))
	qty = 0
	_, err = data.UpdateItem(ctx, item.ID, ItemUpdate{Quantity: &qty})
	require.NoError(t, err)
	require.Len(t, data.Alerts(), 2)
}

func TestBulkLoad_SkipsCorruptedRecord(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	sess, _ := registerAcme(t, env)
	data := newDataSvc(env, sess)

	good, err := data.CreateItem(ctx, ItemInput{Name: "Good", SKU: "G-1", Quantity: 1})
	require.NoError(t, err)

	// a record sealed under a foreign key is undecryptable for this shop
	wrongKey, err := crypto.GenerateDataKey()
	require.NoError(t, err)
	badID := uuid.Must(uuid.NewV4())
	bad, err := codec.Seal(model.Item{Base: model.Base{ID: badID, ShopID: sess.ShopID()}, Name: "Bad"}, badID, sess.ShopID(), wrongKey)
	require.NoError(t, err)
	require.NoError(t, env.records.Put(ctx, repository.Items, &bad))

	require.NoError(t, data.LoadAll(ctx))
	items := data.Items()
	require.Len(t, items, 1)
	require.Equal(t, good.ID, items[0].ID)
}

func TestShiftVariance(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	sess, _ := registerAcme(t, env)
	data := newDataSvc(env, sess)

	item, err := data.CreateItem(ctx, ItemInput{Name: "Beans", SKU: "B-1", Quantity: 100, SellingPrice: decimal.NewFromInt(500)})
	require.NoError(t, err)

	_, err = data.StartShift(ctx, decimal.NewFromInt(1000))
	require.NoError(t, err)
	_, err = data.StartShift(ctx, decimal.NewFromInt(1000))
	require.ErrorIs(t, err, errs.ErrShiftOpen)

	sale, err := data.RecordSale(ctx, SaleInput{
		Lines:         []SaleLine{{ItemID: item.ID, Quantity: 1}},
		PaymentMethod: model.PayCash,
	})
	require.NoError(t, err)
	require.True(t, sale.Total.Equal(decimal.NewFromInt(500)))

	// closing 1700 against 1000 opening + 500 cash sales → variance 200, no alert
	shift, err := data.EndShift(ctx, decimal.NewFromInt(1700), "")
	require.NoError(t, err)
	require.Equal(t, model.ShiftClosed, shift.Status)
	require.True(t, shift.Variance.Equal(decimal.NewFromInt(200)))
	for _, a := range data.Alerts() {
		require.NotEqual(t, model.AlertCashVariance, a.Type)
	}

	// second shift closing way over raises a high-severity alert
	_, err = data.StartShift(ctx, decimal.NewFromInt(1000))
	require.NoError(t, err)
	_, err = data.RecordSale(ctx, SaleInput{
		Lines:         []SaleLine{{ItemID: item.ID, Quantity: 1}},
		PaymentMethod: model.PayCash,
	})
	require.NoError(t, err)
	shift, err = data.EndShift(ctx, decimal.NewFromInt(3000), "drawer over")
	require.NoError(t, err)
	require.True(t, shift.Variance.Equal(decimal.NewFromInt(1500)))

	var varianceAlerts []model.Alert
	for _, a := range data.Alerts() {
		if a.Type == model.AlertCashVariance {
			varianceAlerts = append(varianceAlerts, a)
		}
	}
	require.Len(t, varianceAlerts, 1)
	require.Equal(t, model.SeverityHigh, varianceAlerts[0].Severity)
	require.Equal(t, shift.ID, varianceAlerts[0].ShiftID)

	_, err = data.EndShift(ctx, decimal.NewFromInt(0), "")
	require.ErrorIs(t, err, errs.ErrNoOpenShift)
}

func TestRecordSale_DecrementsStockAndLogsRemovals(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	sess, _ := registerAcme(t, env)
	data := newDataSvc(env, sess)

	item, err := data.CreateItem(ctx, ItemInput{Name: "Beans", SKU: "B-1", Quantity: 10, SellingPrice: decimal.NewFromInt(250)})
	require.NoError(t, err)

	// selling requires an open shift
	_, err = data.RecordSale(ctx, SaleInput{Lines: []SaleLine{{ItemID: item.ID, Quantity: 2}}, PaymentMethod: model.PayCard})
	require.ErrorIs(t, err, errs.ErrNoOpenShift)

	_, err = data.StartShift(ctx, decimal.NewFromInt(0))
	require.NoError(t, err)

	sale, err := data.RecordSale(ctx, SaleInput{Lines: []SaleLine{{ItemID: item.ID, Quantity: 2}}, PaymentMethod: model.PayCard})
	require.NoError(t, err)
	require.True(t, sale.Total.Equal(decimal.NewFromInt(500)))
	require.Len(t, sale.Items, 1)

	require.Equal(t, int64(8), data.ActiveItems()[0].Quantity)

	var removes int
	for _, tx := range data.Transactions() {
		if tx.Type == model.TxRemove && tx.ItemID == item.ID {
			removes++
		}
	}
	require.Equal(t, 1, removes)

	// the durable state matches after a fresh load
	require.NoError(t, data.LoadAll(ctx))
	require.Equal(t, int64(8), data.ActiveItems()[0].Quantity)
	require.Len(t, data.Sales(), 1)
}

func TestRequests_RoleGate(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	owner, code := registerAcme(t, env)

	_, err := env.auth.CreateEmployee(ctx, owner, CreateEmployeeInput{
		Username: "bob", Password: "employee-pw-2", Role: model.RoleCashier,
	})
	require.NoError(t, err)
	bob, err := env.auth.Login(ctx, code, "bob", "employee-pw-2")
	require.NoError(t, err)

	bobData := newDataSvc(env, bob)
	req, err := bobData.CreateShiftRequest(ctx, time.Now().Add(48*time.Hour), "swap with jane")
	require.NoError(t, err)
	require.Equal(t, model.RequestPending, req.Status)

	// a cashier cannot resolve, not even their own request
	_, err = bobData.ResolveShiftRequest(ctx, req.ID, true)
	require.ErrorIs(t, err, errs.ErrPermissionDenied)

	ownerData := newDataSvc(env, owner)
	require.NoError(t, ownerData.LoadAll(ctx))
	resolved, err := ownerData.ResolveShiftRequest(ctx, req.ID, true)
	require.NoError(t, err)
	require.Equal(t, model.RequestApproved, resolved.Status)
	require.Equal(t, owner.UserID(), resolved.ResolvedBy)

	// a resolved request cannot be resolved again
	_, err = ownerData.ResolveShiftRequest(ctx, req.ID, false)
	require.Error(t, err)

	leave, err := bobData.CreateLeaveRequest(ctx, time.Now(), time.Now().Add(72*time.Hour), "family")
	require.NoError(t, err)
	require.NoError(t, ownerData.LoadAll(ctx))
	rejected, err := ownerData.ResolveLeaveRequest(ctx, leave.ID, false)
	require.NoError(t, err)
	require.Equal(t, model.RequestRejected, rejected.Status)
}

func TestExport(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	sess, _ := registerAcme(t, env)
	data := newDataSvc(env, sess)

	cat, err := data.CreateCategory(ctx, CategoryInput{Name: "Drinks"})
	require.NoError(t, err)
	_, err = data.CreateItem(ctx, ItemInput{
		Name: "Cola", SKU: "C-1", CategoryID: cat.ID, Quantity: 24,
		CostPrice: decimal.NewFromInt(80), SellingPrice: decimal.NewFromInt(150),
	})
	require.NoError(t, err)
	deleted, err := data.CreateItem(ctx, ItemInput{Name: "Old", SKU: "O-1"})
	require.NoError(t, err)
	require.NoError(t, data.DeleteItem(ctx, deleted.ID))

	var buf bytes.Buffer
	require.NoError(t, data.ExportItemsCSV(&buf))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2, "header plus the one active item")
	require.Equal(t, []string{"id", "name", "sku", "quantity", "cost", "price", "category"}, rows[0])
	require.Equal(t, "Cola", rows[1][1])
	require.Equal(t, "24", rows[1][3])
	require.Equal(t, "Drinks", rows[1][6])

	buf.Reset()
	require.NoError(t, data.ExportJSON(&buf))
	var snap Snapshot
	require.NoError(t, json.Unmarshal(buf.Bytes(), &snap))
	require.Equal(t, sess.ShopID(), snap.Shop.ID)
	require.Len(t, snap.Items, 2, "JSON export includes soft-deleted records")
	require.Len(t, snap.Categories, 1)
}
