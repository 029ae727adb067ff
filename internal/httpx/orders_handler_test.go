package httpx

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morningroast/brewpass/internal/fault"
	"github.com/morningroast/brewpass/internal/orders"
	"github.com/morningroast/brewpass/internal/redisx"
)

type stubOrderReader struct {
	order orders.Order
}

func (s *stubOrderReader) ListByUser(_ context.Context, userID int64) ([]orders.Order, error) {
	if userID != s.order.UserID {
		return []orders.Order{}, nil
	}
	return []orders.Order{s.order}, nil
}

func (s *stubOrderReader) OrderByID(_ context.Context, userID int64, orderID string) (orders.Order, []orders.LineSnapshot, error) {
	if userID != s.order.UserID || orderID != s.order.ID {
		return orders.Order{}, nil, fault.NotFound("order not found")
	}
	return s.order, nil, nil
}

func statusRequest(uid int64, orderID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/orders/"+orderID+"/status", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", orderID)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = context.WithValue(ctx, ctxKeyUserID, uid)
	return req.WithContext(ctx)
}

// The status cache is keyed per owner; a cached entry for one user must never
// answer another user's request for the same order id.
func TestOrderStatusCacheScopedToOwner(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	o := orders.Order{ID: "6cbde9e1-9f75-4b60-9a36-3f4c3f0a8e11", UserID: 1, Status: orders.StatusPaid}
	h := &OrdersHandler{Orders: &stubOrderReader{order: o}, Redis: rdb}

	require.NoError(t, mr.Set(fmt.Sprintf(redisx.KeyOrderStatus, int64(1), o.ID), `{"status":"PAID"}`))

	rr := httptest.NewRecorder()
	h.status(rr, statusRequest(1, o.ID))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "PAID")

	rr = httptest.NewRecorder()
	h.status(rr, statusRequest(2, o.ID))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.NotContains(t, rr.Body.String(), "PAID")
}

func TestOrderStatusRepopulatesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	o := orders.Order{ID: "6cbde9e1-9f75-4b60-9a36-3f4c3f0a8e11", UserID: 1, Status: orders.StatusPending}
	h := &OrdersHandler{Orders: &stubOrderReader{order: o}, Redis: rdb}

	rr := httptest.NewRecorder()
	h.status(rr, statusRequest(1, o.ID))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "PENDING")
	assert.True(t, mr.Exists(fmt.Sprintf(redisx.KeyOrderStatus, int64(1), o.ID)))
}
