package cartControllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/heyadhira/photoframe-api/config"
	"github.com/heyadhira/photoframe-api/middleware"
	"github.com/heyadhira/photoframe-api/models"
	"github.com/heyadhira/photoframe-api/pricing"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
	))
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, id, subsection string) {
	t.Helper()
	require.NoError(t, db.Create(&models.Product{
		ID:         id,
		Name:       "Sunset Over Hills",
		Subsection: subsection,
		Active:     true,
		CreatedAt:  time.Now(),
	}).Error)
}

func TestAddOrIncrementMergesSameKey(t *testing.T) {
	db := newTestDB(t)
	seedProduct(t, db, "P1", "basic")

	_, err := AddOrIncrement(db, "u1", AddItemInput{
		ProductID: "P1", Quantity: 2, Size: "18X24", Format: "frame",
	})
	require.NoError(t, err)

	// Same compound key, different spelling of the size.
	item, err := AddOrIncrement(db, "u1", AddItemInput{
		ProductID: "P1", Quantity: 3, Size: "18×24", Format: "frame",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)

	var count int64
	require.NoError(t, db.Model(&models.CartItem{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "duplicate keys must never coexist")
	assert.True(t, item.UnitPrice.Equal(decimal.NewFromInt(1799)))
}

func TestAddDistinctKeysCreateSeparateLines(t *testing.T) {
	db := newTestDB(t)
	seedProduct(t, db, "P1", "basic")

	_, err := AddOrIncrement(db, "u1", AddItemInput{
		ProductID: "P1", Quantity: 1, Size: "18X24", Format: "frame",
	})
	require.NoError(t, err)

	_, err = AddOrIncrement(db, "u1", AddItemInput{
		ProductID: "P1", Quantity: 1, Size: "24X36", Format: "frame",
	})
	require.NoError(t, err)

	_, err = AddOrIncrement(db, "u1", AddItemInput{
		ProductID: "P1", Quantity: 1, Size: "18X24", Format: "canvas",
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.CartItem{}).Count(&count).Error)
	assert.EqualValues(t, 3, count)
}

func TestAddUnavailableFormatRejected(t *testing.T) {
	db := newTestDB(t)
	seedProduct(t, db, "P1", "basic")

	// 30X40 has no frame price: the format must be disabled, not priced.
	_, err := AddOrIncrement(db, "u1", AddItemInput{
		ProductID: "P1", Quantity: 1, Size: "30X40", Format: "frame",
	})
	assert.ErrorIs(t, err, pricing.ErrUnavailable)

	var count int64
	require.NoError(t, db.Model(&models.CartItem{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestAddUnknownProduct(t *testing.T) {
	db := newTestDB(t)

	_, err := AddOrIncrement(db, "u1", AddItemInput{
		ProductID: "missing", Quantity: 1, Size: "18X24", Format: "frame",
	})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestSetQuantityAbsolute(t *testing.T) {
	db := newTestDB(t)
	seedProduct(t, db, "P1", "basic")

	_, err := AddOrIncrement(db, "u1", AddItemInput{
		ProductID: "P1", Quantity: 4, Size: "18X24", Format: "frame",
	})
	require.NoError(t, err)

	key := LineKey{ProductID: "P1", Size: "18X24", Format: "frame"}
	item, err := SetQuantity(db, "u1", key, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)

	// Repeating the same set stays absolute, never accumulates.
	item, err = SetQuantity(db, "u1", key, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)
}

func TestSetQuantityRejectsBelowOne(t *testing.T) {
	db := newTestDB(t)
	seedProduct(t, db, "P1", "basic")

	_, err := AddOrIncrement(db, "u1", AddItemInput{
		ProductID: "P1", Quantity: 1, Size: "18X24", Format: "frame",
	})
	require.NoError(t, err)

	key := LineKey{ProductID: "P1", Size: "18X24", Format: "frame"}
	_, err = SetQuantity(db, "u1", key, 0)
	assert.ErrorIs(t, err, ErrQuantityTooSmall)
	_, err = SetQuantity(db, "u1", key, -3)
	assert.ErrorIs(t, err, ErrQuantityTooSmall)
}

func TestSetQuantityUnknownLine(t *testing.T) {
	db := newTestDB(t)
	_, err := SetQuantity(db, "u1", LineKey{ProductID: "P1", Size: "18X24", Format: "frame"}, 2)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestRemoveMatchesFullCompoundKey(t *testing.T) {
	db := newTestDB(t)
	seedProduct(t, db, "P1", "basic")

	_, err := AddOrIncrement(db, "u1", AddItemInput{
		ProductID: "P1", Quantity: 1, Size: "18X24", Format: "frame",
	})
	require.NoError(t, err)
	_, err = AddOrIncrement(db, "u1", AddItemInput{
		ProductID: "P1", Quantity: 1, Size: "24X36", Format: "frame",
	})
	require.NoError(t, err)

	require.NoError(t, Remove(db, "u1", LineKey{ProductID: "P1", Size: "18X24", Format: "frame"}))

	var items []models.CartItem
	require.NoError(t, db.Find(&items).Error)
	require.Len(t, items, 1, "only the matching line goes away")
	assert.Equal(t, "24X36", items[0].Size)

	// Removing again is a miss.
	err = Remove(db, "u1", LineKey{ProductID: "P1", Size: "18X24", Format: "frame"})
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestConcurrentIncrementsLoseNoUpdates(t *testing.T) {
	db := newTestDB(t)
	seedProduct(t, db, "P1", "basic")

	const n = 20
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := AddOrIncrement(db, "u1", AddItemInput{
				ProductID: "P1", Quantity: 1, Size: "18X24", Format: "frame",
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	var items []models.CartItem
	require.NoError(t, db.Find(&items).Error)
	require.Len(t, items, 1)
	assert.Equal(t, n, items[0].Quantity)
}

func TestGetCartEmptyKeepsResponseShape(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	cfg := &config.Config{
		ShippingFee:           decimal.NewFromInt(50),
		FreeShippingThreshold: decimal.NewFromInt(1000),
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/cart", nil)
	c.Set(middleware.ContextUserID, "u1")

	GetCartHandler(db, cfg)(c)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Items    []models.CartItem `json:"items"`
		Subtotal decimal.Decimal   `json:"subtotal"`
		Shipping decimal.Decimal   `json:"shipping"`
		Total    decimal.Decimal   `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body.Items)
	assert.True(t, body.Subtotal.IsZero())
	assert.True(t, body.Shipping.Equal(decimal.NewFromInt(50)))
	assert.True(t, body.Total.Equal(decimal.NewFromInt(50)))
}

func TestSubtotal(t *testing.T) {
	items := []models.CartItem{
		{UnitPrice: decimal.NewFromInt(1799), Quantity: 2},
		{UnitPrice: decimal.NewFromInt(699), Quantity: 1},
	}
	assert.True(t, Subtotal(items).Equal(decimal.NewFromInt(4297)))
}
