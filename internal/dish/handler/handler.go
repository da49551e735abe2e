package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nosh-kitchen/nosh-backend/internal/dish"
	"github.com/nosh-kitchen/nosh-backend/internal/dish/service"
	"github.com/nosh-kitchen/nosh-backend/pkg/logger"
)

// RegisterDishRoutes wires the dish catalog endpoints onto the router.
func RegisterDishRoutes(r gin.IRouter, svc service.Service) {
	g := r.Group("/api/dishes")
	g.GET("", listDishes(svc))
	g.GET("/published", listPublished(svc))
	g.GET("/:id", getDish(svc))
	g.POST("", createDish(svc))
	g.PUT("/:id", updateDish(svc))
	g.PATCH("/:id/toggle-published", togglePublished(svc))
	g.DELETE("/:id", deleteDish(svc))
}

// RegisterMetaRoutes adds the health and info endpoints.
func RegisterMetaRoutes(r gin.IRouter, environment string, start time.Time) {
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"message":     "NOSH API is running!",
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"uptime":      time.Since(start).String(),
			"environment": environment,
		})
	})
	r.GET("/api/info", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"name":        "NOSH API",
				"version":     "1.0.0",
				"description": "Dish management system API",
				"endpoints": gin.H{
					"dishes": "/api/dishes",
					"health": "/api/health",
					"info":   "/api/info",
				},
			},
		})
	})
}

type createRequest struct {
	DishID      string `json:"dishId"`
	DishName    string `json:"dishName"`
	ImageURL    string `json:"imageUrl"`
	IsPublished *bool  `json:"isPublished"`
}

func listDishes(svc service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := dish.Filter{
			Search: c.Query("search"),
			SortBy: c.Query("sortBy"),
			Order:  c.Query("order"),
		}
		if v := c.Query("published"); v != "" {
			published, err := strconv.ParseBool(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"success": false,
					"message": "Validation failed",
					"errors": []dish.FieldError{
						{Field: "published", Message: "published must be a boolean value", Value: v},
					},
				})
				return
			}
			f.Published = &published
		}

		dishes, err := svc.List(c.Request.Context(), f)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "count": len(dishes), "data": dishes})
	}
}

func listPublished(svc service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		published := true
		dishes, err := svc.List(c.Request.Context(), dish.Filter{Published: &published})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "count": len(dishes), "data": dishes})
	}
}

func getDish(svc service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": d})
	}
}

func createDish(svc service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badBody(c, err)
			return
		}
		c.Set("dishId", req.DishID)
		d := &dish.Dish{
			DishID:      req.DishID,
			DishName:    req.DishName,
			ImageURL:    req.ImageURL,
			IsPublished: true,
		}
		if req.IsPublished != nil {
			d.IsPublished = *req.IsPublished
		}
		created, err := svc.Create(c.Request.Context(), d)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Dish created successfully",
			"data":    created,
		})
	}
}

func updateDish(svc service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var p dish.Patch
		if err := c.ShouldBindJSON(&p); err != nil {
			badBody(c, err)
			return
		}
		d, err := svc.Update(c.Request.Context(), c.Param("id"), p)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Dish updated successfully",
			"data":    d,
		})
	}
}

func togglePublished(svc service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := svc.TogglePublished(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		state := "unpublished"
		if d.IsPublished {
			state = "published"
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": fmt.Sprintf("Dish %s successfully", state),
			"data":    d,
		})
	}
}

func deleteDish(svc service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Dish deleted successfully"})
	}
}

func badBody(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": "Invalid request body",
		"errors":  []dish.FieldError{{Field: "body", Message: err.Error()}},
	})
}

// writeError maps service outcomes onto the response envelope: validation and
// conflict/not-found are caller-recoverable 4xx with structured detail,
// everything else is a generic 500.
func writeError(c *gin.Context, err error) {
	var verr *dish.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Validation failed",
			"errors":  verr.Fields,
		})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Dish not found"})
	case errors.Is(err, service.ErrDuplicate):
		id := c.Param("id")
		if id == "" {
			id = duplicateIDFromBody(c)
		}
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"message": fmt.Sprintf("dishId '%s' already exists", id),
			"errors": []dish.FieldError{
				{Field: "dishId", Message: "dishId must be unique", Value: id},
			},
		})
	default:
		logger.Errorf("dish handler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Internal Server Error",
		})
	}
}

func duplicateIDFromBody(c *gin.Context) string {
	// the create handler stashes the dishId for conflict reporting
	if v, ok := c.Get("dishId"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
