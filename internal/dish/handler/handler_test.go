package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/nosh-kitchen/nosh-backend/internal/dish"
	"github.com/nosh-kitchen/nosh-backend/internal/dish/repository"
	"github.com/nosh-kitchen/nosh-backend/internal/dish/service"
)

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Count   int               `json:"count"`
	Data    json.RawMessage   `json:"data"`
	Errors  []dish.FieldError `json:"errors"`
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	g := gin.New()
	svc := service.New(repository.NewMemoryRepo(), nil)
	RegisterDishRoutes(g, svc)
	RegisterMetaRoutes(g, "test", time.Now())
	return g
}

func do(t *testing.T, g *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func createDishReq(t *testing.T, g *gin.Engine, id, name string, published bool) {
	t.Helper()
	body := fmt.Sprintf(`{"dishId":%q,"dishName":%q,"imageUrl":"https://x/%s.jpg","isPublished":%t}`, id, name, id, published)
	w, env := do(t, g, http.MethodPost, "/api/dishes", body)
	require.Equal(t, http.StatusCreated, w.Code)
	require.True(t, env.Success)
}

func TestCreateAndGetDish(t *testing.T) {
	g := newRouter(t)

	w, env := do(t, g, http.MethodPost, "/api/dishes",
		`{"dishId":"d1","dishName":"caesar salad","imageUrl":"https://x/a.jpg","isPublished":true}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "Dish created successfully", env.Message)

	var d dish.Dish
	require.NoError(t, json.Unmarshal(env.Data, &d))
	require.Equal(t, "d1", d.DishID)
	require.True(t, d.IsPublished)
	require.False(t, d.CreatedAt.IsZero())

	w, env = do(t, g, http.MethodGet, "/api/dishes/d1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, env.Success)
}

func TestCreateDefaultsToPublished(t *testing.T) {
	g := newRouter(t)
	w, env := do(t, g, http.MethodPost, "/api/dishes",
		`{"dishId":"d1","dishName":"caesar salad","imageUrl":"https://x/a.jpg"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var d dish.Dish
	require.NoError(t, json.Unmarshal(env.Data, &d))
	require.True(t, d.IsPublished)
}

func TestCreateValidationFailed(t *testing.T) {
	g := newRouter(t)
	w, env := do(t, g, http.MethodPost, "/api/dishes",
		`{"dishId":"d1","dishName":"caesar salad","imageUrl":"https://x/a.bmp"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.False(t, env.Success)
	require.Equal(t, "Validation failed", env.Message)
	require.Len(t, env.Errors, 1)
	require.Equal(t, "imageUrl", env.Errors[0].Field)
	require.Equal(t, "https://x/a.bmp", env.Errors[0].Value)
}

func TestCreateDuplicateConflict(t *testing.T) {
	g := newRouter(t)
	createDishReq(t, g, "d1", "caesar salad", true)

	w, env := do(t, g, http.MethodPost, "/api/dishes",
		`{"dishId":"d1","dishName":"impostor dish","imageUrl":"https://x/b.jpg"}`)
	require.Equal(t, http.StatusConflict, w.Code)
	require.False(t, env.Success)
	require.Contains(t, env.Message, "d1")
	require.Len(t, env.Errors, 1)
	require.Equal(t, "dishId", env.Errors[0].Field)

	// existing record is unchanged
	_, env = do(t, g, http.MethodGet, "/api/dishes/d1", "")
	var d dish.Dish
	require.NoError(t, json.Unmarshal(env.Data, &d))
	require.Equal(t, "caesar salad", d.DishName)
}

func TestListWithFilters(t *testing.T) {
	g := newRouter(t)
	createDishReq(t, g, "d1", "Caesar Salad", true)
	createDishReq(t, g, "d2", "pasta carbonara", false)
	createDishReq(t, g, "d3", "greek salad", true)

	w, env := do(t, g, http.MethodGet, "/api/dishes", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 3, env.Count)

	_, env = do(t, g, http.MethodGet, "/api/dishes?published=true", "")
	require.Equal(t, 2, env.Count)
	var dishes []dish.Dish
	require.NoError(t, json.Unmarshal(env.Data, &dishes))
	for _, d := range dishes {
		require.True(t, d.IsPublished)
	}

	_, env = do(t, g, http.MethodGet, "/api/dishes?search=salad", "")
	require.Equal(t, 2, env.Count)

	_, env = do(t, g, http.MethodGet, "/api/dishes?search=salad&sortBy=dishName&order=asc", "")
	require.NoError(t, json.Unmarshal(env.Data, &dishes))
	require.Equal(t, "Caesar Salad", dishes[0].DishName)

	w, env = do(t, g, http.MethodGet, "/api/dishes?published=maybe", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "published", env.Errors[0].Field)
}

func TestListPublishedShortcut(t *testing.T) {
	g := newRouter(t)
	createDishReq(t, g, "d1", "caesar salad", true)
	createDishReq(t, g, "d2", "secret dish", false)

	w, env := do(t, g, http.MethodGet, "/api/dishes/published", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, env.Count)
}

func TestGetUnknownDish(t *testing.T) {
	g := newRouter(t)
	w, env := do(t, g, http.MethodGet, "/api/dishes/nope", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.False(t, env.Success)
	require.Equal(t, "Dish not found", env.Message)
}

func TestUpdatePartial(t *testing.T) {
	g := newRouter(t)
	createDishReq(t, g, "d1", "caesar salad", true)

	w, env := do(t, g, http.MethodPut, "/api/dishes/d1", `{"isPublished":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	var d dish.Dish
	require.NoError(t, json.Unmarshal(env.Data, &d))
	require.False(t, d.IsPublished)
	require.Equal(t, "caesar salad", d.DishName)

	w, _ = do(t, g, http.MethodPut, "/api/dishes/d1", `{"dishName":"x"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, g, http.MethodPut, "/api/dishes/missing", `{"dishName":"new name"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTogglePublishedRoundTrip(t *testing.T) {
	g := newRouter(t)
	createDishReq(t, g, "d1", "caesar salad", true)

	w, env := do(t, g, http.MethodPatch, "/api/dishes/d1/toggle-published", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Dish unpublished successfully", env.Message)
	var d dish.Dish
	require.NoError(t, json.Unmarshal(env.Data, &d))
	require.False(t, d.IsPublished)

	_, env = do(t, g, http.MethodPatch, "/api/dishes/d1/toggle-published", "")
	require.Equal(t, "Dish published successfully", env.Message)
	require.NoError(t, json.Unmarshal(env.Data, &d))
	require.True(t, d.IsPublished)

	w, _ = do(t, g, http.MethodPatch, "/api/dishes/nope/toggle-published", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteDish(t *testing.T) {
	g := newRouter(t)
	createDishReq(t, g, "d1", "caesar salad", true)

	w, env := do(t, g, http.MethodDelete, "/api/dishes/d1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Dish deleted successfully", env.Message)

	w, _ = do(t, g, http.MethodDelete, "/api/dishes/d1", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetaRoutes(t *testing.T) {
	g := newRouter(t)

	w, env := do(t, g, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, env.Success)

	w, env = do(t, g, http.MethodGet, "/api/info", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, env.Success)
	require.Contains(t, string(env.Data), "/api/dishes")
}
