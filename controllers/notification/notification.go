package notificationControllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/heyadhira/photoframe-api/middleware"
	"github.com/heyadhira/photoframe-api/models"
)

// GET /notifications returns the caller's notifications, newest first.
func ListNotificationsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)

		var notifications []models.Notification
		if err := db.Where("user_id = ?", userID).
			Order("created_at DESC").
			Find(&notifications).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"notifications": notifications})
	}
}

// POST /notifications/:id/read is scoped to the recipient. Marking read never
// touches the underlying order.
func MarkReadHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)

		res := db.Model(&models.Notification{}).
			Where("id = ? AND user_id = ?", c.Param("id"), userID).
			Update("read", true)
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
	}
}

// DELETE /notifications/:id, scoped to the recipient.
func DeleteNotificationHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)

		res := db.Where("id = ? AND user_id = ?", c.Param("id"), userID).
			Delete(&models.Notification{})
		if res.Error != nil && !errors.Is(res.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete notification"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
	}
}
