package product

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/FACorreiaa/secondhand-market/internal/types"
)

type MockProductRepo struct {
	mock.Mock
}

func (m *MockProductRepo) Search(ctx context.Context, f types.ProductFilter) ([]types.Product, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Product), args.Error(1)
}

func (m *MockProductRepo) Count(ctx context.Context, f types.ProductFilter) (int, error) {
	args := m.Called(ctx, f)
	return args.Int(0), args.Error(1)
}

func (m *MockProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// Copy so callers mutating the result do not leak between calls.
	p := *args.Get(0).(*types.Product)
	return &p, args.Error(1)
}

func (m *MockProductRepo) GetImages(ctx context.Context, id uuid.UUID) ([]string, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockProductRepo) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockProductRepo) Create(ctx context.Context, p NewProduct) (uuid.UUID, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockProductRepo) Update(ctx context.Context, id uuid.UUID, u ProductUpdate) error {
	return m.Called(ctx, id, u).Error(0)
}

func (m *MockProductRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status types.ProductStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockProductRepo) HasActiveOrder(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type MockCategoryResolver struct {
	mock.Mock
}

func (m *MockCategoryResolver) GetBySlug(ctx context.Context, slug string) (*types.Category, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Category), args.Error(1)
}

type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) productResult(args mock.Arguments) (*types.Product, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Product), args.Error(1)
}

func (m *MockProductService) SearchProducts(ctx context.Context, filter types.ProductFilter) (*types.ProductPage, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ProductPage), args.Error(1)
}

func (m *MockProductService) GetProduct(ctx context.Context, id uuid.UUID) (*types.Product, error) {
	return m.productResult(m.Called(ctx, id))
}

func (m *MockProductService) CreateProduct(ctx context.Context, sellerID uuid.UUID, params types.CreateProductParams) (*types.Product, error) {
	return m.productResult(m.Called(ctx, sellerID, params))
}

func (m *MockProductService) UpdateProduct(ctx context.Context, userID, id uuid.UUID, params types.UpdateProductParams) (*types.Product, error) {
	return m.productResult(m.Called(ctx, userID, id, params))
}

func (m *MockProductService) UpdateStatus(ctx context.Context, userID, id uuid.UUID, status types.ProductStatus) (*types.Product, error) {
	return m.productResult(m.Called(ctx, userID, id, status))
}

func (m *MockProductService) DeleteProduct(ctx context.Context, userID, id uuid.UUID) error {
	return m.Called(ctx, userID, id).Error(0)
}
