package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/storefront/internal/catalog"
	"github.com/spec-kit/storefront/internal/domain"
	"github.com/spec-kit/storefront/internal/events"
	"github.com/spec-kit/storefront/internal/repository"
	apperrors "github.com/spec-kit/storefront/pkg/util"
)

const productStore = "product store"

// NewProduct is the input of Create.
type NewProduct struct {
	Name        string
	Description string
	Price       *float64
	Category    string
	Stock       int
}

// CatalogService owns catalog reads and mutations. Every committed mutation
// is published so the cache purge runs before the call returns.
type CatalogService struct {
	products     repository.ProductRepository
	reader       *catalog.Reader
	dispatcher   events.Dispatcher
	purgeTimeout time.Duration
	defaultLimit int
	logger       *zap.Logger
}

// CatalogDependencies bundles collaborators of CatalogService.
type CatalogDependencies struct {
	Products     repository.ProductRepository
	Reader       *catalog.Reader
	Dispatcher   events.Dispatcher
	PurgeTimeout time.Duration
	DefaultLimit int
	Logger       *zap.Logger
}

// NewCatalogService builds the service.
func NewCatalogService(deps CatalogDependencies) *CatalogService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.PurgeTimeout <= 0 {
		deps.PurgeTimeout = 2 * time.Second
	}
	if deps.DefaultLimit <= 0 {
		deps.DefaultLimit = 10
	}
	return &CatalogService{
		products:     deps.Products,
		reader:       deps.Reader,
		dispatcher:   deps.Dispatcher,
		purgeTimeout: deps.PurgeTimeout,
		defaultLimit: deps.DefaultLimit,
		logger:       logger,
	}
}

// ListPage serves one page through the read-through cache.
func (s *CatalogService) ListPage(ctx context.Context, page, limit int) (*catalog.PageResult, error) {
	return s.reader.Page(ctx, catalog.NewQuery(page, limit, s.defaultLimit))
}

// Create validates and stores a product.
func (s *CatalogService) Create(ctx context.Context, in NewProduct) (*domain.Product, error) {
	if err := validateNewProduct(in); err != nil {
		return nil, err
	}
	product := &domain.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       *in.Price,
		Category:    in.Category,
		Stock:       in.Stock,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, apperrors.NewDependencyError(productStore, err)
	}
	s.publish(ctx, events.EventProductCreated, product)
	return product, nil
}

// Update applies a partial update.
func (s *CatalogService) Update(ctx context.Context, id string, patch domain.ProductPatch) (*domain.Product, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}
	product, err := s.products.Update(ctx, id, patch)
	if err != nil {
		return nil, mapProductErr(err)
	}
	s.publish(ctx, events.EventProductUpdated, product)
	return product, nil
}

// Delete removes a product and returns it.
func (s *CatalogService) Delete(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.products.Delete(ctx, id)
	if err != nil {
		return nil, mapProductErr(err)
	}
	s.publish(ctx, events.EventProductDeleted, product)
	return product, nil
}

// publish runs the mutation subscribers. The store write has committed by
// now, so subscriber failures are logged and never fail the call. The purge
// outlives a cancelled request but is bounded by purgeTimeout.
func (s *CatalogService) publish(ctx context.Context, eventType events.EventType, product *domain.Product) {
	if s.dispatcher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.purgeTimeout)
	defer cancel()

	if err := s.dispatcher.Publish(ctx, events.NewProductEvent(eventType, product)); err != nil {
		s.logger.Warn("catalog cache purge failed; stale pages possible until TTL",
			zap.String("event", string(eventType)),
			zap.String("product_id", product.ID),
			zap.Error(err))
	}
}

func mapProductErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("Product", nil)
	}
	return apperrors.NewDependencyError(productStore, err)
}

func validateNewProduct(in NewProduct) error {
	details := map[string]any{}
	if strings.TrimSpace(in.Name) == "" {
		details["name"] = "required"
	}
	if in.Price == nil {
		details["price"] = "required"
	} else if !validPrice(*in.Price) {
		details["price"] = "must be a non-negative number"
	}
	if in.Stock < 0 {
		details["stock"] = "must not be negative"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid product", details)
	}
	return nil
}

func validatePatch(p domain.ProductPatch) error {
	details := map[string]any{}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		details["name"] = "must not be empty"
	}
	if p.Price != nil && !validPrice(*p.Price) {
		details["price"] = "must be a non-negative number"
	}
	if p.Stock != nil && *p.Stock < 0 {
		details["stock"] = "must not be negative"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid product", details)
	}
	return nil
}

func validPrice(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
