package service

import (
	"context"
	"testing"
	"time"

	"spice-store/internal/domain"
	"spice-store/internal/notification"
	"spice-store/internal/repository"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock repositories for testing

type mockProductRepository struct {
	products map[uuid.UUID]*domain.Product
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[uuid.UUID]*domain.Product)}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if _, ok := m.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) DeleteByCategory(ctx context.Context, categoryID uuid.UUID) ([]*domain.Product, error) {
	var deleted []*domain.Product
	for id, p := range m.products {
		if p.CategoryID == categoryID {
			deleted = append(deleted, p)
			delete(m.products, id)
		}
	}
	return deleted, nil
}

func (m *mockProductRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	p, ok := m.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.IsActive = active
	return nil
}

func (m *mockProductRepository) IncrementFavorites(ctx context.Context, id uuid.UUID) error {
	p, ok := m.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.FavoriteCount++
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return p, nil
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	var out []*domain.Product
	for _, p := range m.products {
		if filter.ActiveOnly && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *mockProductRepository) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int, error) {
	count := 0
	for _, p := range m.products {
		if p.CategoryID == categoryID {
			count++
		}
	}
	return count, nil
}

// mockOrderRepository mirrors the transactional contract of the real one:
// Transition either applies the status change and every stock delta, or
// nothing at all.
type mockOrderRepository struct {
	orders      map[uuid.UUID]*domain.Order
	productRepo *mockProductRepository
	seq         int
	statsByStat []repository.StatusCounts
}

func newMockOrderRepository(productRepo *mockProductRepository) *mockOrderRepository {
	return &mockOrderRepository{
		orders:      make(map[uuid.UUID]*domain.Order),
		productRepo: productRepo,
	}
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	m.seq++
	order.Code = domain.OrderCode(time.Now(), m.seq)
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepository) Transition(ctx context.Context, orderID uuid.UUID, from, to domain.OrderStatus, reason string, deltas []repository.StockDelta) (*domain.Order, error) {
	order, ok := m.orders[orderID]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	if order.Status != from {
		return nil, repository.ErrStatusConflict
	}

	// Validate every delta before applying any, matching the rollback
	// semantics of the SQL transaction.
	for _, d := range deltas {
		p, ok := m.productRepo.products[d.ProductID]
		if !ok {
			continue
		}
		if p.Stock+d.Delta < 0 {
			return nil, repository.ErrInsufficientStock
		}
	}
	for _, d := range deltas {
		if p, ok := m.productRepo.products[d.ProductID]; ok {
			p.Stock += d.Delta
		}
	}

	now := time.Now()
	order.Status = to
	order.UpdatedAt = now
	switch to {
	case domain.OrderStatusConfirmed:
		order.ConfirmedAt = &now
	case domain.OrderStatusShipped:
		order.ShippedAt = &now
	case domain.OrderStatusDelivered:
		order.DeliveredAt = &now
	case domain.OrderStatusCancelled:
		order.CancelledAt = &now
		order.CancelReason = reason
	}
	return order, nil
}

func (m *mockOrderRepository) MarkNotified(ctx context.Context, id uuid.UUID) error {
	order, ok := m.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	order.Notified = true
	order.UpdatedAt = time.Now()
	return nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (m *mockOrderRepository) FindByCode(ctx context.Context, code string) (*domain.Order, error) {
	for _, order := range m.orders {
		if order.Code == code {
			return order, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrderRepository) List(ctx context.Context, filter repository.OrderFilter, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Order, int, error) {
	var out []*domain.Order
	for _, order := range m.orders {
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		out = append(out, order)
	}
	return out, len(out), nil
}

func (m *mockOrderRepository) CountReferencingProduct(ctx context.Context, productID uuid.UUID, statuses []domain.OrderStatus) (int, error) {
	count := 0
	for _, order := range m.orders {
		matched := false
		for _, s := range statuses {
			if order.Status == s {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		for _, item := range order.Items {
			if item.ProductID == productID {
				count++
				break
			}
		}
	}
	return count, nil
}

func (m *mockOrderRepository) StatsByStatus(ctx context.Context, since time.Time) ([]repository.StatusCounts, error) {
	return m.statsByStat, nil
}

func (m *mockOrderRepository) DailyTrend(ctx context.Context, since time.Time) ([]repository.DailyPoint, error) {
	return nil, nil
}

var testNotificationStore = notification.Store{Name: "Spice Store", Currency: "₹", Contact: "919876543210"}

func newTestProduct(repo *mockProductRepository, price string, stock int) *domain.Product {
	p := &domain.Product{
		ID:          uuid.New(),
		Name:        "Test Spice",
		CategoryID:  uuid.New(),
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
		MaxOrderQty: 10,
		IsActive:    true,
	}
	repo.products[p.ID] = p
	return p
}

func newOrderServiceFixture() (OrderService, *mockProductRepository, *mockOrderRepository) {
	productRepo := newMockProductRepository()
	orderRepo := newMockOrderRepository(productRepo)
	return NewOrderService(orderRepo, productRepo, testNotificationStore), productRepo, orderRepo
}

// An order total is always the sum of effective price times quantity over
// its lines, regardless of discounts.
func TestProperty_OrderTotalMatchesItems(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("total equals the sum of line subtotals", prop.ForAll(
		func(priceCents []int, quantities []int, discounted []bool) bool {
			n := len(priceCents)
			if len(quantities) < n {
				n = len(quantities)
			}
			if len(discounted) < n {
				n = len(discounted)
			}
			if n == 0 {
				return true
			}

			service, productRepo, _ := newOrderServiceFixture()
			ctx := context.Background()

			expected := decimal.Zero
			items := make([]CreateOrderItem, 0, n)
			for i := 0; i < n; i++ {
				price := decimal.New(int64(priceCents[i]), -2)
				p := &domain.Product{
					ID:          uuid.New(),
					Name:        "Spice",
					Price:       price,
					Stock:       100,
					MaxOrderQty: 10,
					IsActive:    true,
				}
				if discounted[i] {
					p.DiscountPrice = decimal.NullDecimal{Decimal: price.Div(decimal.NewFromInt(2)), Valid: true}
				}
				productRepo.products[p.ID] = p

				items = append(items, CreateOrderItem{ProductID: p.ID, Quantity: quantities[i]})
				expected = expected.Add(p.EffectivePrice().Mul(decimal.NewFromInt(int64(quantities[i]))))
			}

			order, link, err := service.Create(ctx, domain.CustomerInfo{Name: "Test"}, items)
			if err != nil {
				t.Logf("FAIL: Create returned error: %v", err)
				return false
			}
			if !order.Total.Equal(expected) {
				t.Logf("FAIL: total %s, expected %s", order.Total, expected)
				return false
			}
			if link == "" {
				t.Logf("FAIL: missing notification link")
				return false
			}
			return true
		},
		gen.SliceOfN(3, gen.IntRange(1, 100000)),
		gen.SliceOfN(3, gen.IntRange(1, 10)),
		gen.SliceOfN(3, gen.Bool()),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestCreateOrderValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("empty order rejected", func(t *testing.T) {
		service, _, _ := newOrderServiceFixture()
		_, _, err := service.Create(ctx, domain.CustomerInfo{}, nil)
		assert.ErrorIs(t, err, ErrEmptyOrder)
	})

	t.Run("unknown product", func(t *testing.T) {
		service, _, _ := newOrderServiceFixture()
		_, _, err := service.Create(ctx, domain.CustomerInfo{}, []CreateOrderItem{
			{ProductID: uuid.New(), Quantity: 1},
		})
		var itemErr *ItemError
		require.ErrorAs(t, err, &itemErr)
		assert.Equal(t, "product not found", itemErr.Reason)
	})

	t.Run("inactive product", func(t *testing.T) {
		service, productRepo, _ := newOrderServiceFixture()
		p := newTestProduct(productRepo, "50.00", 10)
		p.IsActive = false

		_, _, err := service.Create(ctx, domain.CustomerInfo{}, []CreateOrderItem{
			{ProductID: p.ID, Quantity: 1},
		})
		var itemErr *ItemError
		require.ErrorAs(t, err, &itemErr)
		assert.Equal(t, p.Name, itemErr.ProductName)
	})

	t.Run("quantity above per-order limit", func(t *testing.T) {
		service, productRepo, _ := newOrderServiceFixture()
		p := newTestProduct(productRepo, "50.00", 100)
		p.MaxOrderQty = 3

		_, _, err := service.Create(ctx, domain.CustomerInfo{}, []CreateOrderItem{
			{ProductID: p.ID, Quantity: 4},
		})
		var itemErr *ItemError
		require.ErrorAs(t, err, &itemErr)
		assert.Contains(t, itemErr.Reason, "limit of 3")
	})

	t.Run("quantity above stock", func(t *testing.T) {
		service, productRepo, _ := newOrderServiceFixture()
		p := newTestProduct(productRepo, "50.00", 2)

		_, _, err := service.Create(ctx, domain.CustomerInfo{}, []CreateOrderItem{
			{ProductID: p.ID, Quantity: 5},
		})
		var itemErr *ItemError
		require.ErrorAs(t, err, &itemErr)
		assert.Contains(t, itemErr.Reason, "only 2 in stock")
	})

	t.Run("any bad line fails the whole order", func(t *testing.T) {
		service, productRepo, orderRepo := newOrderServiceFixture()
		good := newTestProduct(productRepo, "50.00", 10)

		_, _, err := service.Create(ctx, domain.CustomerInfo{}, []CreateOrderItem{
			{ProductID: good.ID, Quantity: 1},
			{ProductID: uuid.New(), Quantity: 1},
		})
		assert.Error(t, err)
		assert.Empty(t, orderRepo.orders)
	})
}

func TestCreateOrderSnapshotsCatalogData(t *testing.T) {
	service, productRepo, _ := newOrderServiceFixture()
	ctx := context.Background()

	p := newTestProduct(productRepo, "200.00", 10)
	p.DiscountPrice = decimal.NullDecimal{Decimal: decimal.RequireFromString("150.00"), Valid: true}
	p.Images = []string{"https://img.example/chilli.jpg"}
	p.SKU = "SP-CH-100"

	order, _, err := service.Create(ctx, domain.CustomerInfo{Name: "Asha"}, []CreateOrderItem{
		{ProductID: p.ID, Quantity: 2},
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)

	item := order.Items[0]
	assert.Equal(t, p.Name, item.Name)
	assert.True(t, item.Price.Equal(decimal.RequireFromString("150.00")))
	assert.Equal(t, "https://img.example/chilli.jpg", item.Image)
	assert.Equal(t, "SP-CH-100", item.SKU)

	// Creation never touches stock; reservation happens at confirmation.
	assert.Equal(t, 10, p.Stock)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.NotEmpty(t, order.Code)
}

func TestConfirmThenCancelRestoresStock(t *testing.T) {
	service, productRepo, _ := newOrderServiceFixture()
	ctx := context.Background()

	p := newTestProduct(productRepo, "100.00", 10)
	order, _, err := service.Create(ctx, domain.CustomerInfo{}, []CreateOrderItem{
		{ProductID: p.ID, Quantity: 3},
	})
	require.NoError(t, err)

	updated, msg, err := service.UpdateStatus(ctx, order.ID, domain.OrderStatusConfirmed, "")
	require.NoError(t, err)
	assert.Equal(t, 7, p.Stock)
	assert.NotNil(t, updated.ConfirmedAt)
	assert.Contains(t, msg, "confirmed")

	updated, _, err = service.UpdateStatus(ctx, order.ID, domain.OrderStatusCancelled, "out for too long")
	require.NoError(t, err)
	assert.Equal(t, 10, p.Stock)
	assert.Equal(t, "out for too long", updated.CancelReason)
	assert.NotNil(t, updated.CancelledAt)
}

func TestCancelPendingLeavesStockUntouched(t *testing.T) {
	service, productRepo, _ := newOrderServiceFixture()
	ctx := context.Background()

	p := newTestProduct(productRepo, "100.00", 10)
	order, _, err := service.Create(ctx, domain.CustomerInfo{}, []CreateOrderItem{
		{ProductID: p.ID, Quantity: 4},
	})
	require.NoError(t, err)

	updated, _, err := service.UpdateStatus(ctx, order.ID, domain.OrderStatusCancelled, "")
	require.NoError(t, err)
	assert.Equal(t, 10, p.Stock)
	assert.Equal(t, "Cancelled by admin", updated.CancelReason)
}

func TestConfirmFailsWhenStockRanOut(t *testing.T) {
	service, productRepo, _ := newOrderServiceFixture()
	ctx := context.Background()

	p := newTestProduct(productRepo, "100.00", 5)
	order, _, err := service.Create(ctx, domain.CustomerInfo{}, []CreateOrderItem{
		{ProductID: p.ID, Quantity: 5},
	})
	require.NoError(t, err)

	// Stock was consumed elsewhere between checkout and confirmation.
	p.Stock = 2

	_, _, err = service.UpdateStatus(ctx, order.ID, domain.OrderStatusConfirmed, "")
	assert.ErrorIs(t, err, repository.ErrInsufficientStock)
	assert.Equal(t, 2, p.Stock)

	got, err := service.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, got.Status)
}

func TestInvalidTransition(t *testing.T) {
	service, productRepo, _ := newOrderServiceFixture()
	ctx := context.Background()

	p := newTestProduct(productRepo, "100.00", 10)
	order, _, err := service.Create(ctx, domain.CustomerInfo{}, []CreateOrderItem{
		{ProductID: p.ID, Quantity: 1},
	})
	require.NoError(t, err)

	_, _, err = service.UpdateStatus(ctx, order.ID, domain.OrderStatusDelivered, "")
	var transitionErr *TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, "cannot change status from pending to delivered", err.Error())
}

func TestForceCancel(t *testing.T) {
	ctx := context.Background()

	advanceTo := func(t *testing.T, service OrderService, orderID uuid.UUID, statuses ...domain.OrderStatus) {
		t.Helper()
		for _, status := range statuses {
			_, _, err := service.UpdateStatus(ctx, orderID, status, "")
			require.NoError(t, err)
		}
	}

	t.Run("shipped order restores stock", func(t *testing.T) {
		service, productRepo, _ := newOrderServiceFixture()
		p := newTestProduct(productRepo, "100.00", 10)
		order, _, err := service.Create(ctx, domain.CustomerInfo{}, []CreateOrderItem{
			{ProductID: p.ID, Quantity: 3},
		})
		require.NoError(t, err)
		advanceTo(t, service, order.ID, domain.OrderStatusConfirmed, domain.OrderStatusShipped)
		assert.Equal(t, 7, p.Stock)

		updated, _, err := service.ForceCancel(ctx, order.ID, "package lost")
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusCancelled, updated.Status)
		assert.Equal(t, "package lost", updated.CancelReason)
		assert.Equal(t, 10, p.Stock)
	})

	t.Run("delivered order cancels without touching stock", func(t *testing.T) {
		service, productRepo, _ := newOrderServiceFixture()
		p := newTestProduct(productRepo, "100.00", 10)
		order, _, err := service.Create(ctx, domain.CustomerInfo{}, []CreateOrderItem{
			{ProductID: p.ID, Quantity: 3},
		})
		require.NoError(t, err)
		advanceTo(t, service, order.ID,
			domain.OrderStatusConfirmed, domain.OrderStatusShipped, domain.OrderStatusDelivered)
		assert.Equal(t, 7, p.Stock)

		updated, _, err := service.ForceCancel(ctx, order.ID, "")
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusCancelled, updated.Status)
		// The goods left the building; cancelling the record must not
		// re-inflate inventory.
		assert.Equal(t, 7, p.Stock)
	})

	t.Run("already cancelled", func(t *testing.T) {
		service, productRepo, _ := newOrderServiceFixture()
		p := newTestProduct(productRepo, "100.00", 10)
		order, _, err := service.Create(ctx, domain.CustomerInfo{}, []CreateOrderItem{
			{ProductID: p.ID, Quantity: 1},
		})
		require.NoError(t, err)

		_, _, err = service.ForceCancel(ctx, order.ID, "")
		require.NoError(t, err)

		_, _, err = service.ForceCancel(ctx, order.ID, "")
		assert.ErrorIs(t, err, ErrAlreadyCancelled)
	})
}

// Confirming then cancelling any order leaves every product's stock exactly
// where it started.
func TestProperty_ConfirmCancelIsStockNeutral(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("confirm followed by cancel nets to zero stock change", prop.ForAll(
		func(stock, quantity int) bool {
			if quantity > stock {
				return true
			}

			service, productRepo, _ := newOrderServiceFixture()
			ctx := context.Background()

			p := newTestProduct(productRepo, "80.00", stock)
			order, _, err := service.Create(ctx, domain.CustomerInfo{}, []CreateOrderItem{
				{ProductID: p.ID, Quantity: quantity},
			})
			if err != nil {
				return true
			}

			if _, _, err := service.UpdateStatus(ctx, order.ID, domain.OrderStatusConfirmed, ""); err != nil {
				t.Logf("FAIL: confirm failed: %v", err)
				return false
			}
			if p.Stock != stock-quantity {
				t.Logf("FAIL: stock after confirm %d, expected %d", p.Stock, stock-quantity)
				return false
			}

			if _, _, err := service.UpdateStatus(ctx, order.ID, domain.OrderStatusCancelled, ""); err != nil {
				t.Logf("FAIL: cancel failed: %v", err)
				return false
			}
			if p.Stock != stock {
				t.Logf("FAIL: stock after cancel %d, expected %d", p.Stock, stock)
				return false
			}
			return true
		},
		gen.IntRange(1, 50),
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestStatsExcludesCancelledRevenue(t *testing.T) {
	service, _, orderRepo := newOrderServiceFixture()
	ctx := context.Background()

	orderRepo.statsByStat = []repository.StatusCounts{
		{Status: domain.OrderStatusDelivered, Count: 4, Revenue: decimal.RequireFromString("400.00")},
		{Status: domain.OrderStatusPending, Count: 2, Revenue: decimal.RequireFromString("150.00")},
		{Status: domain.OrderStatusCancelled, Count: 3, Revenue: decimal.RequireFromString("999.00")},
	}

	stats, err := service.Stats(ctx, "30d")
	require.NoError(t, err)

	assert.Equal(t, 9, stats.TotalOrders)
	assert.True(t, stats.TotalRevenue.Equal(decimal.RequireFromString("550.00")),
		"revenue %s should exclude cancelled orders", stats.TotalRevenue)
}

func TestStatsRejectsUnknownPeriod(t *testing.T) {
	service, _, _ := newOrderServiceFixture()

	_, err := service.Stats(context.Background(), "14d")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownPeriod)
	assert.Contains(t, err.Error(), "unknown period")

	// The empty period falls back to the default window.
	_, err = service.Stats(context.Background(), "")
	assert.NoError(t, err)
}
