package orderControllers

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/heyadhira/photoframe-api/config"
	cartControllers "github.com/heyadhira/photoframe-api/controllers/cart"
	paymentControllers "github.com/heyadhira/photoframe-api/controllers/payment"
	"github.com/heyadhira/photoframe-api/models"
	"github.com/heyadhira/photoframe-api/notify"
)

const webhookSecret = "test-webhook-secret"

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:             "test",
		PaymentWebhookSecret:  webhookSecret,
		PaymentSessionTTL:     15 * time.Minute,
		ShippingFee:           decimal.NewFromInt(50),
		FreeShippingThreshold: decimal.NewFromInt(1000),
		CODAdvanceRate:        decimal.RequireFromString("0.10"),
		Currency:              "INR",
		MailFrom:              "orders@photoframe.example",
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.PaymentSession{},
		&models.Notification{},
	))
	return db
}

func seedUsers(t *testing.T, db *gorm.DB) {
	t.Helper()
	users := []models.User{
		{ID: "u1", Email: "u1@example.com", Name: "Asha", Role: models.RoleUser},
		{ID: "a1", Email: "a1@example.com", Name: "Admin One", Role: models.RoleAdmin},
		{ID: "a2", Email: "a2@example.com", Name: "Admin Two", Role: models.RoleAdmin},
	}
	for i := range users {
		require.NoError(t, db.Create(&users[i]).Error)
	}
	require.NoError(t, db.Create(&models.Product{
		ID: "P1", Name: "Sunset Over Hills", Subsection: "basic", Active: true,
	}).Error)
}

func fillCart(t *testing.T, db *gorm.DB, userID, size, format string, qty int) {
	t.Helper()
	_, err := cartControllers.AddOrIncrement(db, userID, cartControllers.AddItemInput{
		ProductID: "P1", Quantity: qty, Size: size, Format: format,
	})
	require.NoError(t, err)
}

func placeReq(method, sessionRef, paymentID string) PlaceOrderRequest {
	return PlaceOrderRequest{
		ShippingAddress: models.Address{
			FullName:   "Asha Rao",
			Street:     "12 Hill Road",
			City:       "Bangalore",
			State:      "KA",
			Country:    "IN",
			PostalCode: "560001",
		},
		PaymentMethod:    method,
		SessionRef:       sessionRef,
		PaymentID:        paymentID,
		PaymentSignature: paymentControllers.Sign(webhookSecret, sessionRef, paymentID),
	}
}

func TestPlaceOrderFullPayment(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db)
	fillCart(t, db, "u1", "18X24", "frame", 1)

	result, err := PlaceOrder(db, testConfig(), "u1", placeReq("card", "sess_1", "pay_1"))
	require.NoError(t, err)

	order := result.Order
	assert.True(t, order.Subtotal.Equal(decimal.NewFromInt(1799)))
	assert.True(t, order.Shipping.Equal(decimal.Zero), "1799 clears the free-shipping threshold")
	assert.True(t, order.Total.Equal(decimal.NewFromInt(1799)))
	assert.True(t, order.Total.Equal(order.Subtotal.Add(order.Shipping)))
	assert.Equal(t, models.PaymentStatusCompleted, order.PaymentStatus)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Sunset Over Hills", order.Items[0].ProductName)

	assert.True(t, result.Payment.Amount.Equal(decimal.NewFromInt(1799)))
	assert.True(t, result.Remaining.IsZero())

	// The originating cart is empty immediately after checkout.
	var cart models.Cart
	require.NoError(t, db.Preload("Items").Where("user_id = ?", "u1").First(&cart).Error)
	assert.Empty(t, cart.Items)
}

func TestPlaceOrderBelowThresholdChargesShipping(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db)
	fillCart(t, db, "u1", "18X24", "rolled", 1) // 699

	result, err := PlaceOrder(db, testConfig(), "u1", placeReq("card", "sess_1", "pay_1"))
	require.NoError(t, err)

	assert.True(t, result.Order.Subtotal.Equal(decimal.NewFromInt(699)))
	assert.True(t, result.Order.Shipping.Equal(decimal.NewFromInt(50)))
	assert.True(t, result.Order.Total.Equal(decimal.NewFromInt(749)))
}

func TestPlaceOrderCODSplit(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db)
	fillCart(t, db, "u1", "18X24", "frame", 1) // 1799, free shipping

	result, err := PlaceOrder(db, testConfig(), "u1", placeReq("cod", "sess_1", "pay_1"))
	require.NoError(t, err)

	order := result.Order
	assert.Equal(t, models.PaymentMethodCOD, order.PaymentMethod)
	assert.Equal(t, models.PaymentStatusPartial, order.PaymentStatus)

	assert.True(t, result.Advance.Equal(decimal.RequireFromString("179.90")), "advance = %s", result.Advance)
	assert.True(t, result.Remaining.Equal(decimal.RequireFromString("1619.10")))
	assert.True(t, result.Advance.Add(result.Remaining).Equal(order.Total))
	assert.True(t, result.Payment.Amount.Equal(result.Advance))

	// Exactly one payment row: the balance is never a second record.
	var payments int64
	require.NoError(t, db.Model(&models.Payment{}).Where("order_id = ?", order.ID).Count(&payments).Error)
	assert.EqualValues(t, 1, payments)
}

func TestPlaceOrderReplayedCallbackConflicts(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db)
	fillCart(t, db, "u1", "18X24", "frame", 1)

	_, err := PlaceOrder(db, testConfig(), "u1", placeReq("card", "sess_1", "pay_1"))
	require.NoError(t, err)

	// Same payment reference again, even with a refilled cart.
	fillCart(t, db, "u1", "18X24", "frame", 1)
	_, err = PlaceOrder(db, testConfig(), "u1", placeReq("card", "sess_1", "pay_1"))
	assert.ErrorIs(t, err, ErrDuplicateOrder)

	var orders int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	assert.EqualValues(t, 1, orders)
}

func TestPlaceOrderInvalidSignature(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db)
	fillCart(t, db, "u1", "18X24", "frame", 1)

	req := placeReq("card", "sess_1", "pay_1")
	req.PaymentSignature = paymentControllers.Sign("wrong-secret", "sess_1", "pay_1")
	_, err := PlaceOrder(db, testConfig(), "u1", req)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db)

	_, err := PlaceOrder(db, testConfig(), "u1", placeReq("card", "sess_1", "pay_1"))
	assert.ErrorIs(t, err, ErrCartEmpty)
}

func TestPlaceOrderExpiredSessionAbandoned(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db)
	fillCart(t, db, "u1", "18X24", "frame", 1)

	require.NoError(t, db.Create(&models.PaymentSession{
		Ref:       "sess_old",
		UserID:    "u1",
		Flow:      "full",
		Amount:    decimal.NewFromInt(1799),
		Status:    models.SessionCreated,
		CreatedAt: time.Now().Add(-time.Hour),
		ExpiresAt: time.Now().Add(-45 * time.Minute),
	}).Error)

	_, err := PlaceOrder(db, testConfig(), "u1", placeReq("card", "sess_old", "pay_1"))
	assert.ErrorIs(t, err, ErrSessionExpired)

	var session models.PaymentSession
	require.NoError(t, db.First(&session, "ref = ?", "sess_old").Error)
	assert.Equal(t, models.SessionAbandoned, session.Status)

	// No partial order or payment exists for an abandoned attempt.
	var orders, payments int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	require.NoError(t, db.Model(&models.Payment{}).Count(&payments).Error)
	assert.EqualValues(t, 0, orders)
	assert.EqualValues(t, 0, payments)
}

func seedSession(t *testing.T, db *gorm.DB, ref, userID, flow string, amount decimal.Decimal) {
	t.Helper()
	require.NoError(t, db.Create(&models.PaymentSession{
		Ref:       ref,
		UserID:    userID,
		Flow:      flow,
		Amount:    amount,
		Status:    models.SessionCreated,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}).Error)
}

func TestPlaceOrderSessionMustMatchCheckout(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db)
	fillCart(t, db, "u1", "18X24", "frame", 1) // 1799, free shipping

	// Session captured only the 10% advance; a card checkout would record a
	// full-total settlement the widget never took.
	seedSession(t, db, "sess_cod", "u1", "cod", decimal.RequireFromString("179.90"))
	_, err := PlaceOrder(db, testConfig(), "u1", placeReq("card", "sess_cod", "pay_1"))
	assert.ErrorIs(t, err, ErrSessionMismatch)

	// Session belonging to another user cannot be consumed.
	seedSession(t, db, "sess_other", "a1", "full", decimal.NewFromInt(1799))
	_, err = PlaceOrder(db, testConfig(), "u1", placeReq("card", "sess_other", "pay_2"))
	assert.ErrorIs(t, err, ErrSessionMismatch)

	// Session amount that disagrees with the server-computed capture.
	seedSession(t, db, "sess_stale", "u1", "full", decimal.NewFromInt(100))
	_, err = PlaceOrder(db, testConfig(), "u1", placeReq("card", "sess_stale", "pay_3"))
	assert.ErrorIs(t, err, ErrSessionMismatch)

	var orders int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	assert.EqualValues(t, 0, orders)

	// The matching flow goes through and consumes the session.
	result, err := PlaceOrder(db, testConfig(), "u1", placeReq("cod", "sess_cod", "pay_4"))
	require.NoError(t, err)
	assert.True(t, result.Payment.Amount.Equal(decimal.RequireFromString("179.90")))
	assert.Equal(t, models.PaymentStatusPartial, result.Order.PaymentStatus)

	var session models.PaymentSession
	require.NoError(t, db.First(&session, "ref = ?", "sess_cod").Error)
	assert.Equal(t, models.SessionConsumed, session.Status)
}

func TestConcurrentReplaySameReference(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db)
	fillCart(t, db, "u1", "18X24", "frame", 1)
	fillCart(t, db, "a1", "18X24", "frame", 1)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, uid := range []string{"u1", "a1"} {
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()
			_, err := PlaceOrder(db, testConfig(), uid, placeReq("card", "sess_1", "pay_1"))
			errs <- err
		}(uid)
	}
	wg.Wait()
	close(errs)

	var placed, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			placed++
		case errors.Is(err, ErrDuplicateOrder):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, placed, "exactly one order wins the reference")
	assert.Equal(t, 1, conflicts, "the loser gets the duplicate sentinel, not a raw DB error")

	var orders int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	assert.EqualValues(t, 1, orders)
}

func TestPlaceOrderFansOutNotifications(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db)
	fillCart(t, db, "u1", "18X24", "frame", 1)

	result, err := PlaceOrder(db, testConfig(), "u1", placeReq("card", "sess_1", "pay_1"))
	require.NoError(t, err)

	notifier := notify.New(db, zap.NewNop())
	notifier.OrderPlaced(result.Order)

	var mine []models.Notification
	require.NoError(t, db.Where("user_id = ?", "u1").Find(&mine).Error)
	require.Len(t, mine, 1)
	assert.Equal(t, models.NotificationOrderPlaced, mine[0].Type)

	for _, adminID := range []string{"a1", "a2"} {
		var theirs []models.Notification
		require.NoError(t, db.Where("user_id = ?", adminID).Find(&theirs).Error)
		require.Len(t, theirs, 1, "every admin gets the broadcast")
		assert.Equal(t, models.NotificationNewOrder, theirs[0].Type)
	}
}

func placeTestOrder(t *testing.T, db *gorm.DB) *models.Order {
	t.Helper()
	fillCart(t, db, "u1", "18X24", "frame", 1)
	result, err := PlaceOrder(db, testConfig(), "u1", placeReq("card", "sess_1", "pay_1"))
	require.NoError(t, err)
	return result.Order
}

func strPtr(s string) *string { return &s }

func TestStatusTransitionNotifiesOwner(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db)
	order := placeTestOrder(t, db)
	notifier := notify.New(db, zap.NewNop())
	lg := zap.NewNop()

	_, err := ApplyUpdate(db, lg, notifier, order.ID, UpdateOrderInput{Status: strPtr("processing")})
	require.NoError(t, err)

	var before int64
	require.NoError(t, db.Model(&models.Notification{}).Where("user_id = ?", "u1").Count(&before).Error)

	updated, err := ApplyUpdate(db, lg, notifier, order.ID, UpdateOrderInput{Status: strPtr("shipped")})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, updated.Status)

	var after int64
	require.NoError(t, db.Model(&models.Notification{}).Where("user_id = ?", "u1").Count(&after).Error)
	assert.Equal(t, before+1, after, "exactly one new notification")

	var shipped []models.Notification
	require.NoError(t, db.Where("user_id = ? AND message LIKE ?", "u1", "%shipped%").Find(&shipped).Error)
	require.Len(t, shipped, 1)
	assert.Contains(t, shipped[0].Message, order.ID)
}

func TestNoopTransitionIsSilent(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db)
	order := placeTestOrder(t, db)
	notifier := notify.New(db, zap.NewNop())
	lg := zap.NewNop()

	_, err := ApplyUpdate(db, lg, notifier, order.ID, UpdateOrderInput{Status: strPtr("processing")})
	require.NoError(t, err)

	var before int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&before).Error)

	_, err = ApplyUpdate(db, lg, notifier, order.ID, UpdateOrderInput{Status: strPtr("processing")})
	require.NoError(t, err)

	var after int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&after).Error)
	assert.Equal(t, before, after)
}

func TestInvalidTransitionRejected(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db)
	order := placeTestOrder(t, db)

	_, _, err := UpdateOrder(db, order.ID, UpdateOrderInput{Status: strPtr("delivered")})
	assert.ErrorIs(t, err, ErrInvalidTransition, "pending cannot jump to delivered")

	_, _, err = UpdateOrder(db, order.ID, UpdateOrderInput{Status: strPtr("snoozed")})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCancellationOnlyBeforeShipping(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db)
	order := placeTestOrder(t, db)

	_, _, err := UpdateOrder(db, order.ID, UpdateOrderInput{Status: strPtr("processing")})
	require.NoError(t, err)
	_, _, err = UpdateOrder(db, order.ID, UpdateOrderInput{Status: strPtr("shipped")})
	require.NoError(t, err)

	_, _, err = UpdateOrder(db, order.ID, UpdateOrderInput{Status: strPtr("cancelled")})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMergeUpdateLeavesOtherAxisAlone(t *testing.T) {
	db := newTestDB(t)
	seedUsers(t, db)
	order := placeTestOrder(t, db)

	updated, previous, err := UpdateOrder(db, order.ID, UpdateOrderInput{PaymentStatus: strPtr("failed")})
	require.NoError(t, err)
	assert.Equal(t, order.Status, updated.Status, "delivery status untouched")
	assert.Equal(t, previous, updated.Status)
	assert.Equal(t, models.PaymentStatusFailed, updated.PaymentStatus)
	assert.True(t, updated.UpdatedAt.After(order.UpdatedAt) || updated.UpdatedAt.Equal(order.UpdatedAt))
}
