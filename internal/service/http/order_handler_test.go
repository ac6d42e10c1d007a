package httpsvc_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpsvc "github.com/vladislavdragonenkov/salesorders/internal/service/http"
	"github.com/vladislavdragonenkov/salesorders/internal/service/order"
	"github.com/vladislavdragonenkov/salesorders/internal/storage/memory"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestServer() *httptest.Server {
	svc := order.NewService(
		memory.NewOrderRepository(),
		order.WithClock(func() time.Time { return testNow }),
	)
	router := httpsvc.NewRouter(httpsvc.NewOrderHandler(svc, nil), nil)
	return httptest.NewServer(router)
}

func orderBody(customer, date string) []byte {
	return []byte(fmt.Sprintf(`{
		"date": %q,
		"customer": %q,
		"details": [
			{"product": "Widget", "quantity": 5, "unit_price": "100.00"},
			{"product": "Gadget", "quantity": 3, "unit_price": "150.00"}
		]
	}`, date, customer))
}

func doRequest(t *testing.T, method, url, role string, body []byte) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	require.NoError(t, err)
	if role != "" {
		req.Header.Set("X-Role", role)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&decoded)
	}
	return resp, decoded
}

func TestOrderHandler_CreateAndGet(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	resp, body := doRequest(t, http.MethodPost, server.URL+"/api/v1/orders", httpsvc.RoleVendor,
		orderBody("Acme Corporation", "2025-05-10T10:00:00Z"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.Equal(t, "Pending", body["status"])
	assert.Equal(t, "950.00", body["total"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	id := int64(body["id"].(float64))
	resp, body = doRequest(t, http.MethodGet, fmt.Sprintf("%s/api/v1/orders/%d", server.URL, id), httpsvc.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Acme Corporation", body["customer"])
	assert.Len(t, body["details"], 2)
}

func TestOrderHandler_RoleGate(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	// Без роли запрос отклоняется.
	resp, _ := doRequest(t, http.MethodPost, server.URL+"/api/v1/orders", "",
		orderBody("Acme Corporation", "2025-05-10T10:00:00Z"))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Продавец может создавать, но не обновлять и не удалять.
	resp, body := doRequest(t, http.MethodPost, server.URL+"/api/v1/orders", httpsvc.RoleVendor,
		orderBody("Acme Corporation", "2025-05-10T10:00:00Z"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := int64(body["id"].(float64))

	resp, _ = doRequest(t, http.MethodPut, fmt.Sprintf("%s/api/v1/orders/%d", server.URL, id), httpsvc.RoleVendor,
		orderBody("Acme Corporation", "2025-05-10T10:00:00Z"))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doRequest(t, http.MethodDelete, fmt.Sprintf("%s/api/v1/orders/%d", server.URL, id), httpsvc.RoleVendor, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestOrderHandler_FaultCodes(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	// 404 — заказ не существует.
	resp, _ := doRequest(t, http.MethodGet, server.URL+"/api/v1/orders/424242", httpsvc.RoleAdmin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// 400 — валидация: клиент короче трёх символов.
	resp, body := doRequest(t, http.MethodPost, server.URL+"/api/v1/orders", httpsvc.RoleAdmin,
		orderBody("AB", "2025-05-10T10:00:00Z"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["error"])

	// 409 — второй заказ того же клиента в тот же день.
	resp, _ = doRequest(t, http.MethodPost, server.URL+"/api/v1/orders", httpsvc.RoleAdmin,
		orderBody("Acme Corporation", "2025-05-10T10:00:00Z"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = doRequest(t, http.MethodPost, server.URL+"/api/v1/orders", httpsvc.RoleAdmin,
		orderBody("Acme Corporation", "2025-05-10T18:00:00Z"))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// 400 — невалидный идентификатор.
	resp, _ = doRequest(t, http.MethodGet, server.URL+"/api/v1/orders/abc", httpsvc.RoleAdmin, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// 400 — кривой JSON.
	resp, _ = doRequest(t, http.MethodPost, server.URL+"/api/v1/orders", httpsvc.RoleAdmin, []byte("{"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOrderHandler_UpdateAndDelete(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	resp, body := doRequest(t, http.MethodPost, server.URL+"/api/v1/orders", httpsvc.RoleAdmin,
		orderBody("Acme Corporation", "2025-05-10T10:00:00Z"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := int64(body["id"].(float64))

	updateBody := []byte(`{
		"date": "2025-05-10T10:00:00Z",
		"customer": "Acme Corporation",
		"details": [
			{"product": "Widget", "quantity": 2, "unit_price": "100.00"}
		]
	}`)
	resp, body = doRequest(t, http.MethodPut, fmt.Sprintf("%s/api/v1/orders/%d", server.URL, id), httpsvc.RoleAdmin, updateBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "200.00", body["total"])
	assert.Equal(t, "Pending", body["status"])
	assert.Len(t, body["details"], 1)

	resp, _ = doRequest(t, http.MethodDelete, fmt.Sprintf("%s/api/v1/orders/%d", server.URL, id), httpsvc.RoleAdmin, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doRequest(t, http.MethodGet, fmt.Sprintf("%s/api/v1/orders/%d", server.URL, id), httpsvc.RoleAdmin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOrderHandler_List(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	for day := 1; day <= 5; day++ {
		resp, _ := doRequest(t, http.MethodPost, server.URL+"/api/v1/orders", httpsvc.RoleAdmin,
			orderBody("Acme Corporation", fmt.Sprintf("2025-05-%02dT10:00:00Z", day)))
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, body := doRequest(t, http.MethodGet,
		server.URL+"/api/v1/orders?page=1&page_size=2&customer=acme", httpsvc.RoleVendor, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Len(t, body["items"], 2)
	assert.Equal(t, float64(5), body["total_count"])
	assert.Equal(t, float64(3), body["total_pages"])
	assert.Equal(t, false, body["has_previous"])
	assert.Equal(t, true, body["has_next"])

	// Некорректная дата фильтра.
	resp, _ = doRequest(t, http.MethodGet, server.URL+"/api/v1/orders?date_from=tomorrow", httpsvc.RoleAdmin, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
