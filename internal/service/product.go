package service

import (
	"context"
	"fmt"

	"github.com/utafrali/storefront/pkg/pagination"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
)

// ProductService serves the read-only catalog.
type ProductService struct {
	products repository.ProductRepository
}

// NewProductService creates a new product service.
func NewProductService(products repository.ProductRepository) *ProductService {
	return &ProductService{products: products}
}

// ListProducts returns a page of products matching params.Search.
func (s *ProductService) ListProducts(ctx context.Context, params pagination.Params) (*pagination.Result[domain.Product], error) {
	products, total, err := s.products.List(ctx, repository.ProductFilter{
		Search:  params.Search,
		Page:    params.Page,
		PerPage: params.PerPage,
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	result := pagination.NewResult(products, total, params)
	return &result, nil
}

// GetProduct returns a single product.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.GetByID(ctx, id)
}
