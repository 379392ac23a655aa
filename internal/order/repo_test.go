package order

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/velora/bizportal/internal/models"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Order{},
		&models.OrderLine{},
		&models.PaymentAttempt{},
		&models.RecoveryMarker{},
	))

	return NewRepo(db)
}

func testOrder() *models.Order {
	return &models.Order{
		Customer: models.Customer{
			Name:  "Jane Client",
			Email: "jane@example.com",
			Phone: "+27 82 555 0100",
		},
		Subtotal:    decimal.RequireFromString("1000.00"),
		TaxAmount:   decimal.RequireFromString("150.00"),
		TotalAmount: decimal.RequireFromString("1150.00"),
	}
}

func testLines() []models.OrderLine {
	return []models.OrderLine{
		{
			ItemCode:  "SVC-CONSULT-01",
			ItemKind:  models.ItemKindService,
			Quantity:  2,
			UnitPrice: decimal.RequireFromString("500.00"),
			LineTotal: decimal.RequireFromString("1000.00"),
		},
	}
}

func TestCreateOrderWithLines(t *testing.T) {
	r := newTestRepo(t)

	id, err := r.CreateOrderWithLines(context.Background(), testOrder(), testLines())
	require.NoError(t, err)
	require.NotZero(t, id)

	got, err := r.GetOrder(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending.String(), got.Status)
	require.Len(t, got.Lines, 1)
	assert.True(t, got.TotalAmount.Equal(got.Subtotal.Add(got.TaxAmount)))
}

func TestCreateOrderWithLines_AtomicOnFailure(t *testing.T) {
	r := newTestRepo(t)

	// Losing the lines table mid-write forces the second insert to fail;
	// the already-inserted order row must roll back with it.
	require.NoError(t, r.DB.Migrator().DropTable(&models.OrderLine{}))

	_, err := r.CreateOrderWithLines(context.Background(), testOrder(), testLines())
	require.Error(t, err)

	var count int64
	require.NoError(t, r.DB.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count, "no partial order may survive a failed create")
}

func TestCreateOrderWithLines_NullableLineRef(t *testing.T) {
	r := newTestRepo(t)

	internal := uuid.NewString()
	lines := []models.OrderLine{
		{ItemID: &internal, ItemCode: internal, ItemKind: models.ItemKindProduct, Quantity: 1, UnitPrice: decimal.RequireFromString("10.00"), LineTotal: decimal.RequireFromString("10.00")},
		{ItemID: nil, ItemCode: "LEGACY-77", ItemKind: models.ItemKindService, Quantity: 1, UnitPrice: decimal.RequireFromString("20.00"), LineTotal: decimal.RequireFromString("20.00")},
	}

	id, err := r.CreateOrderWithLines(context.Background(), testOrder(), lines)
	require.NoError(t, err)

	got, err := r.GetOrder(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)
	require.NotNil(t, got.Lines[0].ItemID)
	assert.Equal(t, internal, *got.Lines[0].ItemID)
	assert.Nil(t, got.Lines[1].ItemID)
	assert.Equal(t, "LEGACY-77", got.Lines[1].ItemCode)
}

func TestCreateOrderWithLines_DuplicateIdempotencyKey(t *testing.T) {
	r := newTestRepo(t)

	key := uuid.NewString()

	first := testOrder()
	first.IdempotencyKey = &key
	_, err := r.CreateOrderWithLines(context.Background(), first, testLines())
	require.NoError(t, err)

	second := testOrder()
	second.IdempotencyKey = &key
	_, err = r.CreateOrderWithLines(context.Background(), second, testLines())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateCheckout)

	var count int64
	require.NoError(t, r.DB.Model(&models.Order{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSetStatus(t *testing.T) {
	r := newTestRepo(t)

	id, err := r.CreateOrderWithLines(context.Background(), testOrder(), testLines())
	require.NoError(t, err)

	require.NoError(t, r.SetStatus(context.Background(), id, StatusAwaitingPayment))
	require.NoError(t, r.SetStatus(context.Background(), id, StatusPaid))

	got, err := r.GetOrder(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid.String(), got.Status)
}

func TestSetStatus_RejectsIllegalTransition(t *testing.T) {
	r := newTestRepo(t)

	id, err := r.CreateOrderWithLines(context.Background(), testOrder(), testLines())
	require.NoError(t, err)

	err = r.SetStatus(context.Background(), id, StatusPaid)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	require.NoError(t, r.SetStatus(context.Background(), id, StatusFailed))
	err = r.SetStatus(context.Background(), id, StatusAwaitingPayment)
	assert.ErrorIs(t, err, ErrIllegalTransition, "failed is terminal")
}

func TestSetStatus_UnknownOrder(t *testing.T) {
	r := newTestRepo(t)

	err := r.SetStatus(context.Background(), 42, StatusFailed)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendPaymentAttempt_InsertOnly(t *testing.T) {
	r := newTestRepo(t)

	id, err := r.CreateOrderWithLines(context.Background(), testOrder(), testLines())
	require.NoError(t, err)

	first := &models.PaymentAttempt{ExternalTransactionID: "ORDER-1-100", GatewayResponseRaw: `{"error":"boom"}`}
	require.NoError(t, r.AppendPaymentAttempt(context.Background(), id, first))

	second := &models.PaymentAttempt{ExternalTransactionID: "ORDER-1-200", PaylinkURL: "https://pay.example/x"}
	require.NoError(t, r.AppendPaymentAttempt(context.Background(), id, second))

	got, err := r.GetOrder(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, got.Attempts, 2)
	assert.Empty(t, got.Attempts[0].PaylinkURL)
	assert.Equal(t, "https://pay.example/x", got.Attempts[1].PaylinkURL)
}

func TestRecoveryMarker_Upsert(t *testing.T) {
	r := newTestRepo(t)
	id := models.Identity{SessionID: uuid.NewString()}

	require.NoError(t, r.SaveRecoveryMarker(context.Background(), id, 1, decimal.RequireFromString("100.00")))
	require.NoError(t, r.SaveRecoveryMarker(context.Background(), id, 2, decimal.RequireFromString("250.00")))

	marker, err := r.LatestRecoveryMarker(context.Background(), id)
	require.NoError(t, err)
	assert.EqualValues(t, 2, marker.LastOrderID)
	assert.True(t, marker.LastOrderTotal.Equal(decimal.RequireFromString("250.00")))

	var count int64
	require.NoError(t, r.DB.Model(&models.RecoveryMarker{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "one marker per identity")
}

func TestListOrders(t *testing.T) {
	r := newTestRepo(t)

	account := uuid.New()
	for i := 0; i < 3; i++ {
		o := testOrder()
		o.OwnerAccount = &account
		_, err := r.CreateOrderWithLines(context.Background(), o, testLines())
		require.NoError(t, err)
	}
	guestOrder := testOrder()
	_, err := r.CreateOrderWithLines(context.Background(), guestOrder, testLines())
	require.NoError(t, err)

	orders, err := r.ListOrders(context.Background(), account.String(), 10, 0)
	require.NoError(t, err)
	assert.Len(t, orders, 3)
}
