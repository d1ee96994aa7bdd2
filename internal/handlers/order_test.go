package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tabletap/gateway/internal/credstore"
	"github.com/tabletap/gateway/internal/models"
	"github.com/tabletap/gateway/internal/testutil"
)

func Test_OrderHandler(t *testing.T) {
	t.Parallel()

	now := time.Now()
	staffAccess := testutil.MintToken(t, models.RoleEmployee, models.TokenTypeAccess, now, now.Add(15*time.Minute))
	guestAccess := testutil.MintToken(t, models.RoleGuest, models.TokenTypeAccess, now, now.Add(15*time.Minute))

	ordersUpstream := func() *http.ServeMux {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /orders", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"message": "ok", "data": [
				{"id": 1, "guestId": 1, "tableNumber": 5, "quantity": 1, "status": "Pending", "dishSnapshot": {"id": 10, "price": "50"}},
				{"id": 2, "guestId": 1, "tableNumber": 5, "quantity": 2, "status": "Paid", "dishSnapshot": {"id": 11, "price": "20"}},
				{"id": 3, "guestId": 2, "tableNumber": 5, "quantity": 1, "status": "Paid", "dishSnapshot": {"id": 12, "price": "45"}}
			]}`))
		})
		return mux
	}

	staffGet := func(t *testing.T, url string, path string) *http.Response {
		t.Helper()

		req, err := http.NewRequest(http.MethodGet, url+path, nil)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: credstore.KeyAccessToken, Value: staffAccess})

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	t.Run("list ok", func(t *testing.T) {
		url, _ := newGateway(t, ordersUpstream())

		resp := staffGet(t, url, "/api/orders")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", string(body))

		var list []models.Order
		require.NoError(t, json.Unmarshal(body, &list))
		require.Len(t, list, 3)
		require.Equal(t, "Pending", list[0].Status)
	})

	t.Run("statistics ok", func(t *testing.T) {
		url, _ := newGateway(t, ordersUpstream())

		resp := staffGet(t, url, "/api/orders/statistics")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", string(body))

		var stats struct {
			StatusTotals         map[string]int64                       `json:"statusTotals"`
			TableTallies         map[string]map[string]map[string]int64 `json:"tableTallies"`
			ServingGuestsByTable map[string]map[string][]models.Order   `json:"servingGuestsByTable"`
		}
		require.NoError(t, json.Unmarshal(body, &stats))

		require.Equal(t, int64(1), stats.StatusTotals["Pending"])
		require.Equal(t, int64(2), stats.StatusTotals["Paid"])
		require.Equal(t, int64(0), stats.StatusTotals["Rejected"])

		require.Equal(t, int64(1), stats.TableTallies["5"]["1"]["Pending"])
		require.Equal(t, int64(1), stats.TableTallies["5"]["2"]["Paid"])

		// Guest 1 still has a pending order, guest 2 is settled
		require.Contains(t, stats.ServingGuestsByTable["5"], "1")
		require.NotContains(t, stats.ServingGuestsByTable["5"], "2")
	})

	t.Run("date bounds are forwarded", func(t *testing.T) {
		mux := http.NewServeMux()
		var gotFrom, gotTo string
		mux.HandleFunc("GET /orders", func(w http.ResponseWriter, r *http.Request) {
			gotFrom = r.URL.Query().Get("fromDate")
			gotTo = r.URL.Query().Get("toDate")
			_, _ = w.Write([]byte(`{"message": "ok", "data": []}`))
		})
		url, _ := newGateway(t, mux)

		resp := staffGet(t, url, "/api/orders?fromDate=2026-08-01T00:00:00Z&toDate=2026-08-30T00:00:00Z")
		defer func() { _ = resp.Body.Close() }()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "2026-08-01T00:00:00Z", gotFrom)
		require.Equal(t, "2026-08-30T00:00:00Z", gotTo)
	})

	t.Run("invalid date bound", func(t *testing.T) {
		url, _ := newGateway(t, ordersUpstream())

		resp := staffGet(t, url, "/api/orders?fromDate=yesterday")
		defer func() { _ = resp.Body.Close() }()

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("guest token is rejected", func(t *testing.T) {
		url, _ := newGateway(t, ordersUpstream())

		req, err := http.NewRequest(http.MethodGet, url+"/api/orders", nil)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: credstore.KeyAccessToken, Value: guestAccess})

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		require.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("no token is unauthorized", func(t *testing.T) {
		url, _ := newGateway(t, ordersUpstream())

		resp, err := http.Get(url + "/api/orders")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
