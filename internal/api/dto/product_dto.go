package dto

import "github.com/spec-kit/storefront/internal/domain"

// CreateProductRequest payload for POST /product.
type CreateProductRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
	Category    string   `json:"category"`
	Stock       *int     `json:"stock"`
}

// UpdateProductRequest payload for PUT /update/:id. Absent fields are kept.
type UpdateProductRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Category    *string  `json:"category"`
	Stock       *int     `json:"stock"`
}

// Patch converts the request into a domain patch.
func (r UpdateProductRequest) Patch() domain.ProductPatch {
	return domain.ProductPatch{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Category:    r.Category,
		Stock:       r.Stock,
	}
}

// ProductMutationResponse wraps the result of an update or delete.
type ProductMutationResponse struct {
	Message string          `json:"message"`
	Product *domain.Product `json:"product"`
}
