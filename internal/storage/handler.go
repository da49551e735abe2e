package storage

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nosh-kitchen/nosh-backend/internal/dish"
	"github.com/nosh-kitchen/nosh-backend/pkg/logger"
)

const presignTTL = 24 * time.Hour

// RegisterImageRoutes adds the optional image upload endpoint. The returned
// URL is suitable for a dish's imageUrl field.
func RegisterImageRoutes(r gin.IRouter, s *MinIOStorage) {
	r.POST("/api/images", func(c *gin.Context) {
		file, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Validation failed",
				"errors": []dish.FieldError{
					{Field: "image", Message: "image file is required"},
				},
			})
			return
		}

		ext := filepath.Ext(file.Filename)
		if !dish.ValidImageExtension(ext) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Validation failed",
				"errors": []dish.FieldError{
					{Field: "image", Message: "unsupported image extension", Value: ext},
				},
			})
			return
		}

		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal Server Error"})
			return
		}
		defer src.Close()

		key := fmt.Sprintf("dishes/%d%s", time.Now().UnixNano(), ext)
		contentType := file.Header.Get("Content-Type")
		url, err := s.UploadImage(c.Request.Context(), key, src, file.Size, contentType, presignTTL)
		if err != nil {
			logger.Errorf("image upload: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal Server Error"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Image uploaded successfully",
			"data":    gin.H{"imageUrl": url},
		})
	})
}
