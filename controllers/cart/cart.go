package cartControllers

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/heyadhira/photoframe-api/config"
	"github.com/heyadhira/photoframe-api/middleware"
	"github.com/heyadhira/photoframe-api/models"
	"github.com/heyadhira/photoframe-api/pricing"
)

var (
	ErrProductNotFound  = errors.New("product does not exist")
	ErrQuantityTooSmall = errors.New("quantity must be at least 1")
	ErrItemNotFound     = errors.New("cart item not found")
)

// LineKey is the compound identity of a cart line. Every cart mutation
// addresses lines by this full key; product id alone is never enough.
type LineKey struct {
	ProductID string
	Size      string
	Color     string
	Format    string
}

func (k LineKey) normalized() LineKey {
	k.Size = pricing.NormalizeSize(k.Size)
	k.Format = strings.ToLower(strings.TrimSpace(k.Format))
	return k
}

// userLocks serializes cart mutations per user. The store's read-modify-write
// is not atomic on its own, so concurrent increments for one user must queue
// here to avoid lost updates. Entries are one mutex per user and are never
// evicted.
// TODO: evict entries for long-inactive users once the user base outgrows
// a single map.
var userLocks sync.Map // userID -> *sync.Mutex

// WithUserLock runs fn while holding the given user's cart lock. Checkout
// uses it too, so a concurrent add cannot interleave with order creation.
func WithUserLock(userID string, fn func() error) error {
	v, _ := userLocks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()
	return fn()
}

// AddItemInput is the POST /cart body. Price and subsection are derived
// server-side from the product and the price tables; client-sent values are
// never trusted.
type AddItemInput struct {
	ProductID  string `json:"product_id" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,min=1"`
	Size       string `json:"size" binding:"required"`
	Color      string `json:"color"`
	Format     string `json:"format" binding:"required"`
	FrameColor string `json:"frame_color"`
	Price      string `json:"price"`      // ignored, resolved server-side
	Subsection string `json:"subsection"` // ignored, taken from the product
}

type SetQuantityInput struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Format    string `json:"format"`
}

func ensureCart(tx *gorm.DB, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := tx.Where(models.Cart{UserID: userID}).FirstOrCreate(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddOrIncrement adds a line to the user's cart, or bumps the quantity when a
// line with the same compound key already exists. Repeated adds accumulate;
// they never overwrite.
func AddOrIncrement(db *gorm.DB, userID string, in AddItemInput) (*models.CartItem, error) {
	var product models.Product
	if err := db.First(&product, "id = ?", in.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	format, err := pricing.ParseFormat(in.Format)
	if err != nil {
		return nil, err
	}
	subsection := pricing.ParseSubsection(product.Subsection)
	unitPrice, err := pricing.Resolve(in.Size, format, subsection)
	if err != nil {
		return nil, err
	}

	key := LineKey{ProductID: in.ProductID, Size: in.Size, Color: in.Color, Format: string(format)}.normalized()

	var out *models.CartItem
	err = WithUserLock(userID, func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			cart, err := ensureCart(tx, userID)
			if err != nil {
				return err
			}

			var item models.CartItem
			err = tx.Where(
				"cart_id = ? AND product_id = ? AND size = ? AND color = ? AND format = ?",
				cart.CartID, key.ProductID, key.Size, key.Color, key.Format,
			).First(&item).Error

			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				item = models.CartItem{
					CartID:      cart.CartID,
					ProductID:   product.ID,
					ProductName: product.Name,
					Size:        key.Size,
					Color:       key.Color,
					Format:      key.Format,
					FrameColor:  in.FrameColor,
					Subsection:  string(subsection),
					UnitPrice:   unitPrice,
					Quantity:    in.Quantity,
					AddedAt:     time.Now(),
				}
				if err := tx.Create(&item).Error; err != nil {
					return err
				}
			case err != nil:
				return err
			default:
				item.Quantity += in.Quantity
				item.UnitPrice = unitPrice
				item.AddedAt = time.Now()
				if err := tx.Save(&item).Error; err != nil {
					return err
				}
			}

			out = &item
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetQuantity sets a line's quantity to an absolute value. Values below 1
// are rejected; removal is its own operation.
func SetQuantity(db *gorm.DB, userID string, key LineKey, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, ErrQuantityTooSmall
	}
	key = key.normalized()

	var out *models.CartItem
	err := WithUserLock(userID, func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			var cart models.Cart
			if err := tx.Where("user_id = ?", userID).First(&cart).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrItemNotFound
				}
				return err
			}

			var item models.CartItem
			err := tx.Where(
				"cart_id = ? AND product_id = ? AND size = ? AND color = ? AND format = ?",
				cart.CartID, key.ProductID, key.Size, key.Color, key.Format,
			).First(&item).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrItemNotFound
				}
				return err
			}

			item.Quantity = quantity
			if err := tx.Save(&item).Error; err != nil {
				return err
			}
			out = &item
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Remove deletes the line matching the full compound key.
func Remove(db *gorm.DB, userID string, key LineKey) error {
	key = key.normalized()
	return WithUserLock(userID, func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			var cart models.Cart
			if err := tx.Where("user_id = ?", userID).First(&cart).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrItemNotFound
				}
				return err
			}

			res := tx.Where(
				"cart_id = ? AND product_id = ? AND size = ? AND color = ? AND format = ?",
				cart.CartID, key.ProductID, key.Size, key.Color, key.Format,
			).Delete(&models.CartItem{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrItemNotFound
			}
			return nil
		})
	})
}

// ClearItemsTx wipes a cart's lines inside an existing transaction. Order
// creation is the only caller; the cart and the new order commit together.
func ClearItemsTx(tx *gorm.DB, cartID uint) error {
	return tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}

// -------- Handlers --------

// GET /cart
func GetCartHandler(db *gorm.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)

		var cart models.Cart
		if err := db.Preload("Items").Where("user_id = ?", userID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Same shape as the populated response.
				shipping := cfg.ShippingFor(decimal.Zero)
				c.JSON(http.StatusOK, gin.H{
					"items":    []models.CartItem{},
					"subtotal": decimal.Zero,
					"shipping": shipping,
					"total":    shipping,
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
			return
		}

		subtotal := Subtotal(cart.Items)
		shipping := cfg.ShippingFor(subtotal)
		c.JSON(http.StatusOK, gin.H{
			"items":    cart.Items,
			"subtotal": subtotal,
			"shipping": shipping,
			"total":    subtotal.Add(shipping),
		})
	}
}

// POST /cart
func AddToCartHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)

		var in AddItemInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		item, err := AddOrIncrement(db, userID, in)
		if err != nil {
			switch {
			case errors.Is(err, ErrProductNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			case errors.Is(err, pricing.ErrUnavailable), errors.Is(err, pricing.ErrUnknownFormat):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add item to cart"})
			}
			return
		}
		c.JSON(http.StatusCreated, item)
	}
}

// PUT /cart
func SetQuantityHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)

		var in SetQuantityInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		key := LineKey{ProductID: in.ProductID, Size: in.Size, Color: in.Color, Format: in.Format}
		item, err := SetQuantity(db, userID, key, in.Quantity)
		if err != nil {
			switch {
			case errors.Is(err, ErrQuantityTooSmall):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			case errors.Is(err, ErrItemNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart item"})
			}
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

// DELETE /cart/:product_id?size=&color=&format=
func RemoveItemHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		key := LineKey{
			ProductID: c.Param("product_id"),
			Size:      c.Query("size"),
			Color:     c.Query("color"),
			Format:    c.Query("format"),
		}

		if err := Remove(db, userID, key); err != nil {
			if errors.Is(err, ErrItemNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete item"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Cart item deleted"})
	}
}
