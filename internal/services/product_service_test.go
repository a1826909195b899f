package services_test

import (
	"fmt"
	"testing"

	"greenbasket/internal/models"
	"greenbasket/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockProductRepository is a mock implementation of repositories.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetAll(category string) ([]models.Product, error) {
	args := m.Called(category)
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(id string) (*models.Product, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Create(product *models.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

func (m *MockProductRepository) Update(product *models.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func TestProductService_GetAllProducts(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo)

	expectedProducts := []models.Product{
		{ID: "1", Name: "Bamboo Toothbrush", Price: 149, Category: "bathroom", Stock: 100},
		{ID: "2", Name: "Jute Tote Bag", Price: 350, Category: "bags", Stock: 50},
	}

	mockRepo.On("GetAll", "").Return(expectedProducts, nil).Once()
	products, err := service.GetAllProducts("")
	assert.NoError(t, err)
	assert.Len(t, products, 2)
	assert.Equal(t, expectedProducts, products)
	mockRepo.AssertExpectations(t)

	// Category filtering passes straight through to the repository.
	mockRepo.On("GetAll", "bags").Return(expectedProducts[1:], nil).Once()
	products, err = service.GetAllProducts("bags")
	assert.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, "Jute Tote Bag", products[0].Name)
	mockRepo.AssertExpectations(t)
}

func TestProductService_GetProductByID(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo)

	expectedProduct := &models.Product{ID: "1", Name: "Bamboo Toothbrush", Price: 149, Stock: 100}

	mockRepo.On("GetByID", "1").Return(expectedProduct, nil).Once()
	product, err := service.GetProductByID("1")
	assert.NoError(t, err)
	assert.Equal(t, expectedProduct, product)
	mockRepo.AssertExpectations(t)

	mockRepo.On("GetByID", "99").Return(nil, fmt.Errorf("product with ID 99 not found")).Once()
	product, err = service.GetProductByID("99")
	assert.Error(t, err)
	assert.Nil(t, product)
	assert.Contains(t, err.Error(), "not found")
	mockRepo.AssertExpectations(t)
}

func TestProductService_CreateUpdateDelete(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo)

	newProduct := &models.Product{Name: "Steel Straw Set", Price: 199, Stock: 20}

	mockRepo.On("Create", newProduct).Return(nil).Once()
	assert.NoError(t, service.CreateProduct(newProduct))

	updated := &models.Product{ID: "1", Name: "Steel Straw Set XL", Price: 249, Stock: 15}
	mockRepo.On("Update", updated).Return(nil).Once()
	assert.NoError(t, service.UpdateProduct(updated))

	mockRepo.On("Delete", "1").Return(nil).Once()
	assert.NoError(t, service.DeleteProduct("1"))

	mockRepo.On("Delete", "99").Return(fmt.Errorf("product with ID 99 not found for deletion")).Once()
	err := service.DeleteProduct("99")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found for deletion")
	mockRepo.AssertExpectations(t)
}
