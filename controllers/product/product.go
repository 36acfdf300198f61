package productControllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/heyadhira/photoframe-api/models"
	"github.com/heyadhira/photoframe-api/pricing"
)

// GET /products
func GetProductsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var products []models.Product
		if err := db.Where("active = ?", true).Find(&products).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"products": products})
	}
}

// GET /products/:id returns the product plus its per-size format availability,
// so the storefront can disable formats with no table entry instead of showing
// a guessed price.
func GetProductByIDHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var product models.Product
		if err := db.First(&product, "id = ?", c.Param("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch product"})
			return
		}

		sub := pricing.ParseSubsection(product.Subsection)
		prices := make(map[string]map[pricing.Format]string)
		for _, size := range pricing.Sizes(sub) {
			formats := pricing.Formats(size, sub)
			row := make(map[pricing.Format]string, len(formats))
			for f, price := range formats {
				row[f] = price.StringFixed(2)
			}
			prices[size] = row
		}

		c.JSON(http.StatusOK, gin.H{"product": product, "prices": prices})
	}
}
