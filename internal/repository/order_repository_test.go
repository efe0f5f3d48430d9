package repository

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"testing"
	"time"

	"spice-store/internal/database"
	"spice-store/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var testDB *sql.DB

func setupTestDB() (func(context.Context, ...testcontainers.TerminateOption) error, error) {
	var (
		dbName = "testdb"
		dbPwd  = "password"
		dbUser = "user"
	)

	dbContainer, err := postgres.Run(
		context.Background(),
		"postgres:15",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	if err != nil {
		return nil, err
	}

	dbHost, err := dbContainer.Host(context.Background())
	if err != nil {
		return dbContainer.Terminate, err
	}

	dbPort, err := dbContainer.MappedPort(context.Background(), "5432/tcp")
	if err != nil {
		return dbContainer.Terminate, err
	}

	connStr := "postgres://" + dbUser + ":" + dbPwd + "@" + dbHost + ":" + dbPort.Port() + "/" + dbName + "?sslmode=disable"
	testDB, err = sql.Open("pgx", connStr)
	if err != nil {
		return dbContainer.Terminate, err
	}

	if err := database.RunMigrations(testDB, "../../migrations", zap.NewNop()); err != nil {
		return dbContainer.Terminate, err
	}

	return dbContainer.Terminate, nil
}

func TestMain(m *testing.M) {
	teardown, err := setupTestDB()
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}

	m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Fatalf("could not teardown postgres container: %v", err)
		}
	}
}

func seedProduct(t *testing.T, stock int) *domain.Product {
	t.Helper()
	ctx := context.Background()

	categoryRepo := NewCategoryRepository(testDB)
	category := &domain.Category{
		ID:        uuid.New(),
		Name:      "cat-" + uuid.New().String(),
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, categoryRepo.Create(ctx, category))

	productRepo := NewProductRepository(testDB)
	product := &domain.Product{
		ID:          uuid.New(),
		Name:        "Kashmiri Chilli 100g",
		CategoryID:  category.ID,
		Price:       decimal.RequireFromString("120.00"),
		Images:      []string{"https://img.example/a.jpg"},
		Stock:       stock,
		MaxOrderQty: 10,
		Tags:        []string{"chilli", "whole"},
		Specs:       map[string]string{"origin": "Kashmir"},
		IsActive:    true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	require.NoError(t, productRepo.Create(ctx, product))
	return product
}

func seedOrder(t *testing.T, product *domain.Product, quantity int) *domain.Order {
	t.Helper()

	repo := NewOrderRepository(testDB)
	order := &domain.Order{
		ID: uuid.New(),
		Customer: domain.CustomerInfo{
			Name:    "Asha Verma",
			Phone:   "+919812345678",
			Address: "14 Lake View Road, Pune",
		},
		Items: []domain.OrderItem{{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  quantity,
		}},
		Total:     product.Price.Mul(decimal.NewFromInt(int64(quantity))),
		Status:    domain.OrderStatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, repo.Create(context.Background(), order))
	return order
}

func TestOrderCreateAssignsSequentialCodes(t *testing.T) {
	product := seedProduct(t, 100)

	first := seedOrder(t, product, 1)
	second := seedOrder(t, product, 1)

	prefix := "ORD-" + time.Now().Format("20060102") + "-"
	assert.True(t, strings.HasPrefix(first.Code, prefix), "code %s", first.Code)
	assert.True(t, strings.HasPrefix(second.Code, prefix), "code %s", second.Code)
	assert.NotEqual(t, first.Code, second.Code)
	assert.Greater(t, second.Code, first.Code)
}

func TestOrderRoundTrip(t *testing.T) {
	product := seedProduct(t, 100)
	order := seedOrder(t, product, 3)

	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	got, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.Code, got.Code)
	assert.Equal(t, domain.OrderStatusPending, got.Status)
	assert.Equal(t, "Asha Verma", got.Customer.Name)
	require.Len(t, got.Items, 1)
	assert.Equal(t, product.ID, got.Items[0].ProductID)
	assert.Equal(t, 3, got.Items[0].Quantity)
	assert.True(t, got.Total.Equal(decimal.RequireFromString("360.00")))

	byCode, err := repo.FindByCode(ctx, order.Code)
	require.NoError(t, err)
	assert.Equal(t, order.ID, byCode.ID)

	_, err = repo.FindByCode(ctx, "ORD-19700101-0000")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestTransitionAppliesStockAtomically(t *testing.T) {
	product := seedProduct(t, 10)
	order := seedOrder(t, product, 4)

	orderRepo := NewOrderRepository(testDB)
	productRepo := NewProductRepository(testDB)
	ctx := context.Background()

	deltas := []StockDelta{{ProductID: product.ID, Delta: -4}}
	updated, err := orderRepo.Transition(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusConfirmed, "", deltas)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, updated.Status)
	assert.NotNil(t, updated.ConfirmedAt)

	got, err := productRepo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.Stock)

	// The compare-and-swap rejects a stale transition.
	_, err = orderRepo.Transition(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusConfirmed, "", deltas)
	assert.ErrorIs(t, err, ErrStatusConflict)

	got, err = productRepo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.Stock, "losing transition must not touch stock")
}

func TestTransitionRollsBackOnInsufficientStock(t *testing.T) {
	product := seedProduct(t, 2)
	order := seedOrder(t, product, 2)

	orderRepo := NewOrderRepository(testDB)
	productRepo := NewProductRepository(testDB)
	ctx := context.Background()

	deltas := []StockDelta{{ProductID: product.ID, Delta: -5}}
	_, err := orderRepo.Transition(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusConfirmed, "", deltas)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	// Everything rolled back: status and stock are untouched.
	got, err := orderRepo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, got.Status)

	p, err := productRepo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Stock)
}

func TestOrderCodeDayFollowsCreationDate(t *testing.T) {
	product := seedProduct(t, 100)
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	backdated := time.Now().AddDate(0, 0, -2)
	newOrder := func() *domain.Order {
		return &domain.Order{
			ID: uuid.New(),
			Customer: domain.CustomerInfo{
				Name:    "Asha Verma",
				Phone:   "+919812345678",
				Address: "14 Lake View Road, Pune",
			},
			Items: []domain.OrderItem{{
				ProductID: product.ID,
				Name:      product.Name,
				Price:     product.Price,
				Quantity:  1,
			}},
			Total:     product.Price,
			Status:    domain.OrderStatusPending,
			CreatedAt: backdated,
			UpdatedAt: backdated,
		}
	}

	first := newOrder()
	require.NoError(t, repo.Create(ctx, first))
	second := newOrder()
	require.NoError(t, repo.Create(ctx, second))

	// The sequence counter is keyed on the same date the code embeds: a
	// creation date with no sequence row yet starts counting at 1 instead of
	// continuing the current day's counter.
	day := backdated.Format("20060102")
	assert.Equal(t, "ORD-"+day+"-0001", first.Code)
	assert.Equal(t, "ORD-"+day+"-0002", second.Code)
}

func TestMarkNotified(t *testing.T) {
	product := seedProduct(t, 10)
	order := seedOrder(t, product, 1)

	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	require.NoError(t, repo.MarkNotified(ctx, order.ID))

	got, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, got.Notified)

	assert.ErrorIs(t, repo.MarkNotified(ctx, uuid.New()), ErrOrderNotFound)
}

func TestProductSKUConflict(t *testing.T) {
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	first := seedProduct(t, 5)
	first.SKU = "SPC-CHILLI-100"
	require.NoError(t, repo.Update(ctx, first))

	clash := &domain.Product{
		ID:          uuid.New(),
		Name:        "Kashmiri Chilli 250g",
		CategoryID:  first.CategoryID,
		Price:       decimal.RequireFromString("220.00"),
		SKU:         "SPC-CHILLI-100",
		Stock:       5,
		MaxOrderQty: 10,
		IsActive:    true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	assert.ErrorIs(t, repo.Create(ctx, clash), ErrSKUConflict)

	// The same SKU is also rejected when an update would move onto it.
	other := seedProduct(t, 5)
	other.SKU = "SPC-CHILLI-100"
	assert.ErrorIs(t, repo.Update(ctx, other), ErrSKUConflict)

	// Products without a SKU never collide with each other.
	unset := seedProduct(t, 5)
	assert.Empty(t, unset.SKU)
}

func TestProductJSONBRoundTrip(t *testing.T) {
	product := seedProduct(t, 5)

	repo := NewProductRepository(testDB)
	got, err := repo.FindByID(context.Background(), product.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://img.example/a.jpg"}, got.Images)
	assert.Equal(t, []string{"chilli", "whole"}, got.Tags)
	assert.Equal(t, map[string]string{"origin": "Kashmir"}, got.Specs)
}

func TestAdminBootstrapGate(t *testing.T) {
	repo := NewAdminRepository(testDB)
	ctx := context.Background()

	newAdmin := func(email string) *domain.Admin {
		return &domain.Admin{
			ID:           uuid.New(),
			Name:         "Owner",
			Email:        email,
			PasswordHash: "$2a$10$notarealhashnotarealhashnotarealhashnotarealha",
			Role:         domain.RoleSuperAdmin,
			IsActive:     true,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}
	}

	require.NoError(t, repo.CreateFirst(ctx, newAdmin("first@spice.example")))

	err := repo.CreateFirst(ctx, newAdmin("second@spice.example"))
	assert.ErrorIs(t, err, ErrAdminExists)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
