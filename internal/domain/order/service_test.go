package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-api/internal/domain/user"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	byID      map[string]*Order
	byUser    map[string][]Order
	lastOrder *Order
	createErr error
}

func newOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{
		byID:   make(map[string]*Order),
		byUser: make(map[string][]Order),
	}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.lastOrder = o
	m.byID[o.ID] = o
	m.byUser[o.UserID] = append(m.byUser[o.UserID], *o)
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID string) ([]Order, error) {
	orders := m.byUser[userID]
	if len(orders) == 0 {
		return nil, ErrNoOrders
	}
	return orders, nil
}

func (m *mockOrderRepo) List(_ context.Context) ([]Order, error) {
	var all []Order
	for _, o := range m.byID {
		all = append(all, *o)
	}
	return all, nil
}

func (m *mockOrderRepo) UpdateAddress(_ context.Context, id, address string) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	o.Address = address
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type mockUserLookup struct {
	byID map[string]user.Summary
	err  error
}

func (m *mockUserLookup) FindByID(_ context.Context, id string) (*user.Summary, error) {
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &s, nil
}

func (m *mockUserLookup) FindByIDs(_ context.Context, ids []string) (map[string]user.Summary, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]user.Summary, len(ids))
	for _, id := range ids {
		if s, ok := m.byID[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

// --- Helpers ---

func newUserLookup(users ...user.Summary) *mockUserLookup {
	byID := make(map[string]user.Summary, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return &mockUserLookup{byID: byID}
}

func validRequest() CreateOrderRequest {
	return CreateOrderRequest{
		UserID:   "u-1",
		Address:  "1 Main St",
		Email:    "jane@example.com",
		CardNo:   "4111111111111111",
		ExpMonth: "05",
		ExpYear:  "2030",
		Name:     "Jane Doe",
		Price:    decimal.RequireFromString("49.99"),
	}
}

// --- Tests ---

func TestCreateOrder_AssignsID(t *testing.T) {
	repo := newOrderRepo()
	svc := NewService(repo, newUserLookup())

	o, err := svc.CreateOrder(context.Background(), validRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, o, repo.lastOrder)
}

func TestCreateOrder_MissingField(t *testing.T) {
	svc := NewService(newOrderRepo(), newUserLookup())

	req := validRequest()
	req.Address = ""

	_, err := svc.CreateOrder(context.Background(), req)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "address", verr.Field)
}

func TestCreateOrder_ZeroPriceAccepted(t *testing.T) {
	svc := NewService(newOrderRepo(), newUserLookup())

	req := validRequest()
	req.Price = decimal.Zero

	_, err := svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
}

func TestCreateOrder_SnapshotsCardFields(t *testing.T) {
	repo := newOrderRepo()
	svc := NewService(repo, newUserLookup())

	req := validRequest()
	o, err := svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, req.CardNo, o.CardNo)
	assert.Equal(t, req.ExpMonth, o.ExpMonth)
	assert.Equal(t, req.ExpYear, o.ExpYear)
	assert.Equal(t, req.Name, o.Name)
}

func TestGetOrder_ResolvesUser(t *testing.T) {
	repo := newOrderRepo()
	svc := NewService(repo, newUserLookup(user.Summary{ID: "u-1", Name: "Jane Doe", Email: "jane@example.com"}))

	created, err := svc.CreateOrder(context.Background(), validRequest())
	require.NoError(t, err)

	o, err := svc.GetOrder(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, o.User)
	assert.Equal(t, "Jane Doe", o.User.Name)
}

func TestGetOrder_DanglingUserLeftNil(t *testing.T) {
	repo := newOrderRepo()
	svc := NewService(repo, newUserLookup())

	created, err := svc.CreateOrder(context.Background(), validRequest())
	require.NoError(t, err)

	o, err := svc.GetOrder(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Nil(t, o.User)
}

func TestGetOrder_NotFound(t *testing.T) {
	svc := NewService(newOrderRepo(), newUserLookup())

	_, err := svc.GetOrder(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOrdersForUser_Empty(t *testing.T) {
	svc := NewService(newOrderRepo(), newUserLookup())

	_, err := svc.OrdersForUser(context.Background(), "u-none")
	require.ErrorIs(t, err, ErrNoOrders)
}

func TestOrdersForUser_AttachesSummaryToAll(t *testing.T) {
	repo := newOrderRepo()
	svc := NewService(repo, newUserLookup(user.Summary{ID: "u-1", Name: "Jane Doe", Email: "jane@example.com"}))

	_, err := svc.CreateOrder(context.Background(), validRequest())
	require.NoError(t, err)
	_, err = svc.CreateOrder(context.Background(), validRequest())
	require.NoError(t, err)

	orders, err := svc.OrdersForUser(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	for _, o := range orders {
		require.NotNil(t, o.User)
		assert.Equal(t, "u-1", o.User.ID)
	}
}

func TestAllOrders_BatchResolvesUsers(t *testing.T) {
	repo := newOrderRepo()
	svc := NewService(repo, newUserLookup(
		user.Summary{ID: "u-1", Name: "Jane Doe", Email: "jane@example.com"},
		user.Summary{ID: "u-2", Name: "John Roe", Email: "john@example.com"},
	))

	_, err := svc.CreateOrder(context.Background(), validRequest())
	require.NoError(t, err)

	second := validRequest()
	second.UserID = "u-2"
	_, err = svc.CreateOrder(context.Background(), second)
	require.NoError(t, err)

	orders, err := svc.AllOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 2)
	for _, o := range orders {
		require.NotNil(t, o.User)
		assert.Equal(t, o.UserID, o.User.ID)
	}
}

func TestAllOrders_Empty(t *testing.T) {
	svc := NewService(newOrderRepo(), newUserLookup())

	orders, err := svc.AllOrders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestUpdateAddress_EmptyRejected(t *testing.T) {
	svc := NewService(newOrderRepo(), newUserLookup())

	_, err := svc.UpdateAddress(context.Background(), "o-1", "")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "newAddress", verr.Field)
}

func TestUpdateAddress_OnlyAddressChanges(t *testing.T) {
	repo := newOrderRepo()
	svc := NewService(repo, newUserLookup())

	created, err := svc.CreateOrder(context.Background(), validRequest())
	require.NoError(t, err)

	updated, err := svc.UpdateAddress(context.Background(), created.ID, "2 Side St")
	require.NoError(t, err)
	assert.Equal(t, "2 Side St", updated.Address)
	assert.Equal(t, created.CardNo, updated.CardNo)
	assert.Equal(t, created.Price, updated.Price)
}

func TestUpdateAddress_NotFound(t *testing.T) {
	svc := NewService(newOrderRepo(), newUserLookup())

	_, err := svc.UpdateAddress(context.Background(), "missing", "2 Side St")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCancelOrder_NotFound(t *testing.T) {
	svc := NewService(newOrderRepo(), newUserLookup())

	err := svc.CancelOrder(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCancelOrder_Deletes(t *testing.T) {
	repo := newOrderRepo()
	svc := NewService(repo, newUserLookup())

	created, err := svc.CreateOrder(context.Background(), validRequest())
	require.NoError(t, err)

	require.NoError(t, svc.CancelOrder(context.Background(), created.ID))

	_, err = svc.GetOrder(context.Background(), created.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateOrder_WrapsRepoError(t *testing.T) {
	repo := newOrderRepo()
	repo.createErr = errors.New("connection reset")
	svc := NewService(repo, newUserLookup())

	_, err := svc.CreateOrder(context.Background(), validRequest())
	require.Error(t, err)
}
