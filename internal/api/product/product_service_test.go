package product

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/secondhand-market/internal/types"
)

func newTestService() (*ProductServiceImpl, *MockProductRepo, *MockCategoryResolver) {
	repo := new(MockProductRepo)
	categories := new(MockCategoryResolver)
	return NewProductService(repo, categories, slog.Default()), repo, categories
}

func sampleProduct(seller uuid.UUID) *types.Product {
	now := time.Now()
	return &types.Product{
		ID:             uuid.New(),
		SellerID:       seller,
		SellerUsername: "seller01",
		CategoryID:     1,
		CategorySlug:   "electronics",
		Title:          "Phone",
		Price:          120,
		Condition:      types.ConditionGood,
		Status:         types.ProductStatusAvailable,
		ViewCount:      4,
		Images:         []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestProductService_SearchProducts(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes and pages", func(t *testing.T) {
		svc, repo, _ := newTestService()
		want := types.ProductFilter{Category: "books", Status: "available", Sort: types.SortNewest, Page: 2, Limit: 20}
		items := make([]types.Product, 20)
		repo.On("Search", mock.Anything, want).Return(items, nil)
		repo.On("Count", mock.Anything, want).Return(45, nil)

		page, err := svc.SearchProducts(ctx, types.ProductFilter{Category: "Books", Page: 2})
		require.NoError(t, err)
		assert.Equal(t, 45, page.Total)
		assert.Equal(t, 2, page.Page)
		assert.Equal(t, 20, page.Limit)
		assert.True(t, page.HasMore)
		repo.AssertExpectations(t)
	})

	t.Run("last page has no more", func(t *testing.T) {
		svc, repo, _ := newTestService()
		repo.On("Search", mock.Anything, mock.Anything).Return(make([]types.Product, 5), nil)
		repo.On("Count", mock.Anything, mock.Anything).Return(45, nil)

		page, err := svc.SearchProducts(ctx, types.ProductFilter{Page: 3})
		require.NoError(t, err)
		assert.False(t, page.HasMore)
	})

	t.Run("invalid filter skips the database", func(t *testing.T) {
		svc, repo, _ := newTestService()
		_, err := svc.SearchProducts(ctx, types.ProductFilter{Sort: "cheapest"})
		assert.ErrorIs(t, err, types.ErrValidation)
		repo.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
	})

	t.Run("count failure fails the page", func(t *testing.T) {
		svc, repo, _ := newTestService()
		repo.On("Search", mock.Anything, mock.Anything).Return([]types.Product{}, nil)
		repo.On("Count", mock.Anything, mock.Anything).Return(0, errors.New("timeout"))

		_, err := svc.SearchProducts(ctx, types.ProductFilter{})
		assert.Error(t, err)
	})
}

func TestProductService_GetProduct(t *testing.T) {
	ctx := context.Background()
	seller := uuid.New()

	t.Run("attaches gallery and counts the view", func(t *testing.T) {
		svc, repo, _ := newTestService()
		p := sampleProduct(seller)
		images := []string{"https://cdn.example.com/1.jpg", "https://cdn.example.com/2.jpg"}
		repo.On("GetByID", mock.Anything, p.ID).Return(p, nil)
		repo.On("GetImages", mock.Anything, p.ID).Return(images, nil)
		repo.On("IncrementViewCount", mock.Anything, p.ID).Return(nil)

		got, err := svc.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, images, got.Images)
		require.NotNil(t, got.ThumbnailURL)
		assert.Equal(t, images[0], *got.ThumbnailURL)
		assert.Equal(t, 5, got.ViewCount)
	})

	t.Run("view count failure is ignored", func(t *testing.T) {
		svc, repo, _ := newTestService()
		p := sampleProduct(seller)
		repo.On("GetByID", mock.Anything, p.ID).Return(p, nil)
		repo.On("GetImages", mock.Anything, p.ID).Return([]string{}, nil)
		repo.On("IncrementViewCount", mock.Anything, p.ID).Return(errors.New("deadlock"))

		got, err := svc.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, got.ViewCount)
		assert.Nil(t, got.ThumbnailURL)
	})

	t.Run("not found", func(t *testing.T) {
		svc, repo, _ := newTestService()
		id := uuid.New()
		repo.On("GetByID", mock.Anything, id).Return(nil, types.ErrNotFound)
		repo.On("GetImages", mock.Anything, id).Return([]string{}, nil).Maybe()

		_, err := svc.GetProduct(ctx, id)
		assert.ErrorIs(t, err, types.ErrNotFound)
		repo.AssertNotCalled(t, "IncrementViewCount", mock.Anything, id)
	})
}

func TestProductService_CreateProduct(t *testing.T) {
	ctx := context.Background()
	seller := uuid.New()

	t.Run("creates with resolved category", func(t *testing.T) {
		svc, repo, categories := newTestService()
		created := sampleProduct(seller)
		categories.On("GetBySlug", mock.Anything, "electronics").Return(&types.Category{ID: 1, Slug: "electronics"}, nil)
		repo.On("Create", mock.Anything, NewProduct{
			SellerID: seller, CategoryID: 1, Title: "Phone", Description: "Barely used",
			Price: 120, Condition: types.ConditionGood, Location: "Lisbon",
			Images: []string{"https://cdn.example.com/p.jpg"},
		}).Return(created.ID, nil)
		repo.On("GetByID", mock.Anything, created.ID).Return(created, nil)
		repo.On("GetImages", mock.Anything, created.ID).Return([]string{"https://cdn.example.com/p.jpg"}, nil)

		got, err := svc.CreateProduct(ctx, seller, types.CreateProductParams{
			CategorySlug: "electronics", Title: " Phone ", Description: "Barely used",
			Price: 120, Location: "Lisbon", Images: []string{"https://cdn.example.com/p.jpg"},
		})
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Len(t, got.Images, 1)
		repo.AssertExpectations(t)
	})

	t.Run("unknown category is a validation error", func(t *testing.T) {
		svc, repo, categories := newTestService()
		categories.On("GetBySlug", mock.Anything, "cars").Return(nil, types.ErrNotFound)

		_, err := svc.CreateProduct(ctx, seller, types.CreateProductParams{CategorySlug: "cars", Title: "Van"})
		assert.ErrorIs(t, err, types.ErrValidation)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects bad input before lookups", func(t *testing.T) {
		svc, _, categories := newTestService()
		for name, params := range map[string]types.CreateProductParams{
			"no title":       {CategorySlug: "books"},
			"negative price": {CategorySlug: "books", Title: "Book", Price: -1},
			"bad condition":  {CategorySlug: "books", Title: "Book", Condition: "mint"},
			"bad image":      {CategorySlug: "books", Title: "Book", Images: []string{"javascript:alert(1)"}},
		} {
			_, err := svc.CreateProduct(ctx, seller, params)
			assert.ErrorIs(t, err, types.ErrValidation, name)
		}
		categories.AssertNotCalled(t, "GetBySlug", mock.Anything, mock.Anything)
	})
}

func TestProductService_UpdateProduct(t *testing.T) {
	ctx := context.Background()
	seller := uuid.New()

	t.Run("only the seller may edit", func(t *testing.T) {
		svc, repo, _ := newTestService()
		p := sampleProduct(seller)
		repo.On("GetByID", mock.Anything, p.ID).Return(p, nil)

		title := "Mine now"
		_, err := svc.UpdateProduct(ctx, uuid.New(), p.ID, types.UpdateProductParams{Title: &title})
		assert.ErrorIs(t, err, types.ErrForbidden)
	})

	t.Run("sold products are frozen", func(t *testing.T) {
		svc, repo, _ := newTestService()
		p := sampleProduct(seller)
		p.Status = types.ProductStatusSold
		repo.On("GetByID", mock.Anything, p.ID).Return(p, nil)

		price := 1.0
		_, err := svc.UpdateProduct(ctx, seller, p.ID, types.UpdateProductParams{Price: &price})
		assert.ErrorIs(t, err, types.ErrConflict)
	})

	t.Run("updates provided fields", func(t *testing.T) {
		svc, repo, _ := newTestService()
		p := sampleProduct(seller)
		price := 99.0
		images := []string{}
		repo.On("GetByID", mock.Anything, p.ID).Return(p, nil)
		repo.On("Update", mock.Anything, p.ID, ProductUpdate{Price: &price, Images: &images}).Return(nil)
		repo.On("GetImages", mock.Anything, p.ID).Return([]string{}, nil)

		_, err := svc.UpdateProduct(ctx, seller, p.ID, types.UpdateProductParams{Price: &price, Images: &images})
		require.NoError(t, err)
		repo.AssertCalled(t, "Update", mock.Anything, p.ID, ProductUpdate{Price: &price, Images: &images})
	})
}

func TestProductService_StatusAndDelete(t *testing.T) {
	ctx := context.Background()
	seller := uuid.New()

	t.Run("status locked by an order", func(t *testing.T) {
		svc, repo, _ := newTestService()
		p := sampleProduct(seller)
		repo.On("GetByID", mock.Anything, p.ID).Return(p, nil)
		repo.On("HasActiveOrder", mock.Anything, p.ID).Return(true, nil)

		_, err := svc.UpdateStatus(ctx, seller, p.ID, types.ProductStatusReserved)
		assert.ErrorIs(t, err, types.ErrConflict)
	})

	t.Run("invalid status", func(t *testing.T) {
		svc, _, _ := newTestService()
		_, err := svc.UpdateStatus(ctx, seller, uuid.New(), "gone")
		assert.ErrorIs(t, err, types.ErrValidation)
	})

	t.Run("reserve", func(t *testing.T) {
		svc, repo, _ := newTestService()
		p := sampleProduct(seller)
		repo.On("GetByID", mock.Anything, p.ID).Return(p, nil)
		repo.On("HasActiveOrder", mock.Anything, p.ID).Return(false, nil)
		repo.On("UpdateStatus", mock.Anything, p.ID, types.ProductStatusReserved).Return(nil)
		repo.On("GetImages", mock.Anything, p.ID).Return([]string{}, nil)

		_, err := svc.UpdateStatus(ctx, seller, p.ID, types.ProductStatusReserved)
		require.NoError(t, err)
		repo.AssertCalled(t, "UpdateStatus", mock.Anything, p.ID, types.ProductStatusReserved)
	})

	t.Run("delete blocked by an active order", func(t *testing.T) {
		svc, repo, _ := newTestService()
		p := sampleProduct(seller)
		repo.On("GetByID", mock.Anything, p.ID).Return(p, nil)
		repo.On("HasActiveOrder", mock.Anything, p.ID).Return(true, nil)

		assert.ErrorIs(t, svc.DeleteProduct(ctx, seller, p.ID), types.ErrConflict)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("delete", func(t *testing.T) {
		svc, repo, _ := newTestService()
		p := sampleProduct(seller)
		repo.On("GetByID", mock.Anything, p.ID).Return(p, nil)
		repo.On("HasActiveOrder", mock.Anything, p.ID).Return(false, nil)
		repo.On("Delete", mock.Anything, p.ID).Return(nil)

		require.NoError(t, svc.DeleteProduct(ctx, seller, p.ID))
	})
}
