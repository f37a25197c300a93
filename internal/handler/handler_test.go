package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-api/internal/domain/auth"
	"github.com/xenking/storefront-api/internal/domain/card"
	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/user"
)

// --- Mock implementations ---

type mockCardRepo struct {
	byID      map[string]*card.Card
	byUser    map[string][]card.Card
	createErr error
}

func newCardRepo() *mockCardRepo {
	return &mockCardRepo{
		byID:   make(map[string]*card.Card),
		byUser: make(map[string][]card.Card),
	}
}

func (m *mockCardRepo) Create(_ context.Context, c *card.Card) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.byID[c.ID] = c
	m.byUser[c.UserID] = append(m.byUser[c.UserID], *c)
	return nil
}

func (m *mockCardRepo) GetByID(_ context.Context, id string) (*card.Card, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, card.ErrNotFound
	}
	return c, nil
}

func (m *mockCardRepo) ListByUser(_ context.Context, userID string) ([]card.Card, error) {
	cards := m.byUser[userID]
	if len(cards) == 0 {
		return nil, card.ErrNoCards
	}
	return cards, nil
}

func (m *mockCardRepo) List(_ context.Context) ([]card.Card, error) {
	all := make([]card.Card, 0, len(m.byID))
	for _, c := range m.byID {
		all = append(all, *c)
	}
	return all, nil
}

func (m *mockCardRepo) Update(_ context.Context, id string, p card.Patch) (*card.Card, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, card.ErrNotFound
	}
	if p.Address != nil {
		c.Address = *p.Address
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	return c, nil
}

func (m *mockCardRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return card.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type mockOrderRepo struct {
	byID   map[string]*order.Order
	byUser map[string][]order.Order
}

func newOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{
		byID:   make(map[string]*order.Order),
		byUser: make(map[string][]order.Order),
	}
}

func (m *mockOrderRepo) Create(_ context.Context, o *order.Order) error {
	m.byID[o.ID] = o
	m.byUser[o.UserID] = append(m.byUser[o.UserID], *o)
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	orders := m.byUser[userID]
	if len(orders) == 0 {
		return nil, order.ErrNoOrders
	}
	return orders, nil
}

func (m *mockOrderRepo) List(_ context.Context) ([]order.Order, error) {
	all := make([]order.Order, 0, len(m.byID))
	for _, o := range m.byID {
		all = append(all, *o)
	}
	return all, nil
}

func (m *mockOrderRepo) UpdateAddress(_ context.Context, id, address string) (*order.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o.Address = address
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return order.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type mockUserLookup struct {
	byID map[string]user.Summary
}

func (m *mockUserLookup) FindByID(_ context.Context, id string) (*user.Summary, error) {
	s, ok := m.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &s, nil
}

func (m *mockUserLookup) FindByIDs(_ context.Context, ids []string) (map[string]user.Summary, error) {
	out := make(map[string]user.Summary, len(ids))
	for _, id := range ids {
		if s, ok := m.byID[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

type mockAPIKeyRepo struct {
	byHash map[string]*auth.APIKeyInfo
}

func (m *mockAPIKeyRepo) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	info, ok := m.byHash[hash]
	if !ok {
		return nil, auth.ErrKeyNotFound
	}
	return info, nil
}

// --- Helpers ---

const (
	testPepper = "test-pepper"
	testAPIKey = "apitest"
	testUserID = "u-1"
)

type fixture struct {
	router    chi.Router
	cardRepo  *mockCardRepo
	orderRepo *mockOrderRepo
}

func hashKey(key string) string {
	mac := hmac.New(sha256.New, []byte(testPepper))
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

func newFixture() *fixture {
	cardRepo := newCardRepo()
	orderRepo := newOrderRepo()
	users := &mockUserLookup{byID: map[string]user.Summary{
		testUserID: {ID: testUserID, Name: "Jane Doe", Email: "jane@example.com"},
	}}
	apikeys := &mockAPIKeyRepo{byHash: map[string]*auth.APIKeyInfo{
		hashKey(testAPIKey): {ID: "k-1", KeyHash: hashKey(testAPIKey), Name: "test key", UserID: testUserID},
	}}

	h := New(card.NewService(cardRepo), order.NewService(orderRepo, users))
	sec := NewSecurity(apikeys, []byte(testPepper))

	router := chi.NewRouter()
	h.AppendRoutes(router, sec.RequireAPIKey)

	return &fixture{router: router, cardRepo: cardRepo, orderRepo: orderRepo}
}

func (f *fixture) do(t *testing.T, method, path, apiKey string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if apiKey != "" {
		req.Header.Set("api_key", apiKey)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func validCardBody() map[string]any {
	return map[string]any{
		"email":      "jane@example.com",
		"name":       "Jane Doe",
		"cardNumber": "4111111111111111",
		"expMonth":   "05",
		"expYear":    "2030",
		"cvv":        "123",
		"address":    "1 Main St",
	}
}

func validOrderBody() map[string]any {
	return map[string]any{
		"userId":  testUserID,
		"address": "1 Main St",
		"email":   "jane@example.com",
		"cardNo":  "4111111111111111",
		"mm":      "05",
		"yy":      "2030",
		"name":    "Jane Doe",
		"price":   "49.99",
	}
}

// --- Card tests ---

func TestSaveCard_Created(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/card/save", testAPIKey, validCardBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.NotEmpty(t, body["id"])
	// Identity comes from the API key when the body has no userid.
	assert.Equal(t, testUserID, body["userid"])
}

func TestSaveCard_BodyUserIDWins(t *testing.T) {
	f := newFixture()

	payload := validCardBody()
	payload["userid"] = "u-other"

	rec := f.do(t, http.MethodPost, "/card/save", testAPIKey, payload)
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "u-other", body["userid"])
}

func TestSaveCard_Unauthorized(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/card/save", "", validCardBody())
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSaveCard_WrongKey(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/card/save", "not-the-key", validCardBody())
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSaveCard_ShortNumber(t *testing.T) {
	f := newFixture()

	payload := validCardBody()
	payload["cardNumber"] = "4111"

	rec := f.do(t, http.MethodPost, "/card/save", testAPIKey, payload)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode[errorResponse](t, rec)
	assert.Equal(t, http.StatusBadRequest, body.Code)
	assert.Contains(t, body.Message, "cardNumber")
}

func TestSaveCard_MissingCVV(t *testing.T) {
	f := newFixture()

	payload := validCardBody()
	delete(payload, "cvv")

	rec := f.do(t, http.MethodPost, "/card/save", testAPIKey, payload)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSaveCard_DuplicateNumber(t *testing.T) {
	f := newFixture()
	f.cardRepo.createErr = card.ErrDuplicateNumber

	rec := f.do(t, http.MethodPost, "/card/save", testAPIKey, validCardBody())
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decode[errorResponse](t, rec)
	assert.Equal(t, "card number already exists", body.Message)
}

func TestMyCards_Empty(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/card/", testAPIKey, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	body := decode[errorResponse](t, rec)
	assert.Equal(t, "no cards found for this user", body.Message)
}

func TestMyCards_ReturnsCallerCards(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/card/save", testAPIKey, validCardBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodGet, "/card/", testAPIKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cards := decode[[]map[string]any](t, rec)
	require.Len(t, cards, 1)
	assert.Equal(t, testUserID, cards[0]["userid"])
}

func TestListCards_EmptyArray(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/card/all", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cards := decode[[]map[string]any](t, rec)
	assert.Empty(t, cards)
}

func TestGetCard_NotFound(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/card/missing", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateCard_UnknownFieldRejected(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPut, "/card/c-1", "", map[string]any{"email": "new@example.com"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateCard_PatchesAddress(t *testing.T) {
	f := newFixture()

	created := decode[map[string]any](t, f.do(t, http.MethodPost, "/card/save", testAPIKey, validCardBody()))
	id := created["id"].(string)

	rec := f.do(t, http.MethodPut, "/card/"+id, "", map[string]any{"address": "2 Side St"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "2 Side St", body["address"])
}

func TestDeleteCard_Message(t *testing.T) {
	f := newFixture()

	created := decode[map[string]any](t, f.do(t, http.MethodPost, "/card/save", testAPIKey, validCardBody()))
	id := created["id"].(string)

	rec := f.do(t, http.MethodDelete, "/card/"+id, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[messageResponse](t, rec)
	assert.Equal(t, "Card deleted successfully", body.Message)
}

func TestDeleteCard_NotFound(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodDelete, "/card/missing", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

// --- Order tests ---

func TestCreateOrder_Created(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/order/createOrder", "", validOrderBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, testUserID, body["userId"])
	assert.Equal(t, "05", body["mm"])
	assert.Equal(t, "2030", body["yy"])
}

func TestCreateOrder_MissingAddress(t *testing.T) {
	f := newFixture()

	payload := validOrderBody()
	delete(payload, "address")

	rec := f.do(t, http.MethodPost, "/order/createOrder", "", payload)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode[errorResponse](t, rec)
	assert.Equal(t, "address is required", body.Message)
}

func TestCreateOrder_InvalidBody(t *testing.T) {
	f := newFixture()

	req := httptest.NewRequest(http.MethodPost, "/order/createOrder", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOrder_ResolvesUser(t *testing.T) {
	f := newFixture()

	created := decode[map[string]any](t, f.do(t, http.MethodPost, "/order/createOrder", "", validOrderBody()))
	id := created["id"].(string)

	rec := f.do(t, http.MethodGet, "/order/"+id, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	u, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Jane Doe", u["name"])
	assert.Equal(t, "jane@example.com", u["email"])
}

func TestGetOrder_NotFound(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/order/missing", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrdersByUser_Empty(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/order/getOrders/u-none", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	body := decode[errorResponse](t, rec)
	assert.Equal(t, "no orders found for this user", body.Message)
}

func TestOrdersByUser_ReturnsOrders(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/order/createOrder", "", validOrderBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodGet, "/order/getOrders/"+testUserID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	orders := decode[[]map[string]any](t, rec)
	require.Len(t, orders, 1)
	assert.Equal(t, testUserID, orders[0]["userId"])
}

func TestListOrders_EmptyArray(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/order/all", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	orders := decode[[]map[string]any](t, rec)
	assert.Empty(t, orders)
}

func TestUpdateOrderAddress_Updates(t *testing.T) {
	f := newFixture()

	created := decode[map[string]any](t, f.do(t, http.MethodPost, "/order/createOrder", "", validOrderBody()))
	id := created["id"].(string)

	rec := f.do(t, http.MethodPut, "/order/"+id, "", map[string]any{"newAddress": "2 Side St"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "2 Side St", body["address"])
	assert.Equal(t, created["cardNo"], body["cardNo"])
}

func TestUpdateOrderAddress_EmptyRejected(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPut, "/order/o-1", "", map[string]any{"newAddress": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode[errorResponse](t, rec)
	assert.Equal(t, "newAddress is required", body.Message)
}

func TestDeleteOrder_Message(t *testing.T) {
	f := newFixture()

	created := decode[map[string]any](t, f.do(t, http.MethodPost, "/order/createOrder", "", validOrderBody()))
	id := created["id"].(string)

	rec := f.do(t, http.MethodDelete, "/order/"+id, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[messageResponse](t, rec)
	assert.Equal(t, "Order deleted successfully", body.Message)

	rec = f.do(t, http.MethodGet, "/order/"+id, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPrice_SerializedAsNumber(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/order/createOrder", "", validOrderBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"price":49.99`)

	body := decode[map[string]any](t, rec)
	price, ok := body["price"].(float64)
	require.True(t, ok, "price must be a JSON number, got %T", body["price"])
	assert.InDelta(t, 49.99, price, 1e-9)
}
