package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/cartsplit/internal/domain"
	"github.com/iho/cartsplit/internal/infrastructure/metrics"
)

// ProductUseCase handles product instances of open sessions and the catalogue.
type ProductUseCase struct {
	writer      sessionWriter
	productRepo ProductRepository
	nutrition   NutritionSource
	cache       Cache
	cacheTTL    time.Duration
	idGen       IDGenerator
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// NewProductUseCase creates a new ProductUseCase. nutrition and cache may be nil.
func NewProductUseCase(
	txManager TransactionManager,
	sessionRepo SessionRepository,
	productRepo ProductRepository,
	broadcaster Broadcaster,
	retrier Retrier,
	nutrition NutritionSource,
	cache Cache,
	idGen IDGenerator,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *ProductUseCase {
	return &ProductUseCase{
		writer: sessionWriter{
			txManager:   txManager,
			sessionRepo: sessionRepo,
			retrier:     retrier,
			broadcaster: broadcaster,
		},
		productRepo: productRepo,
		nutrition:   nutrition,
		cache:       cache,
		cacheTTL:    ProductCacheTTL,
		idGen:       idGen,
		metrics:     metrics,
		logger:      logger,
	}
}

// WithCacheTTL overrides how long product lookups stay cached.
func (uc *ProductUseCase) WithCacheTTL(ttl time.Duration) *ProductUseCase {
	if ttl > 0 {
		uc.cacheTTL = ttl
	}
	return uc
}

// AddProductInput represents input for adding a product instance.
// Quantity defaults to 1 and Participants to the caller.
type AddProductInput struct {
	Caller       string
	SessionEmail string
	ProductID    string
	Barcode      string
	Name         string
	Quantity     int
	UnitPrice    decimal.Decimal
	Participants []string
}

// AddProduct adds a product instance to the caller's open session.
func (uc *ProductUseCase) AddProduct(ctx context.Context, input AddProductInput) (*domain.Session, error) {
	if input.Quantity == 0 {
		input.Quantity = 1
	}
	if input.Participants == nil {
		input.Participants = []string{input.Caller}
	}
	if err := domain.ValidateQuantity(input.Quantity); err != nil {
		return nil, err
	}
	if err := domain.ValidateMoney(input.UnitPrice); err != nil {
		return nil, err
	}
	if input.ProductID == "" && input.Barcode == "" {
		if err := domain.ValidateProductName(input.Name); err != nil {
			return nil, err
		}
	}

	session, err := uc.writer.update(ctx, input.Caller, input.SessionEmail,
		func(ctx context.Context, tx Transaction, current domain.Session) (domain.Session, error) {
			product, err := uc.productRepo.Resolve(ctx, tx, domain.ProductLookup{
				ID:      input.ProductID,
				Barcode: input.Barcode,
				Name:    strings.TrimSpace(input.Name),
			}, uc.idGen.Generate())
			if err != nil {
				return domain.Session{}, err
			}

			return current.WithProduct(domain.ProductInstance{
				ID:           uc.idGen.Generate(),
				Product:      *product,
				Participants: input.Participants,
				Quantity:     input.Quantity,
				UnitPrice:    input.UnitPrice,
				CreatedAt:    time.Now().UTC(),
			})
		})
	if err != nil {
		return nil, err
	}

	uc.forgetSearch(ctx, input.Name)
	if uc.metrics != nil {
		uc.metrics.ProductsAdded.Inc()
	}

	return session, nil
}

// PatchProductInput represents input for editing a product instance.
type PatchProductInput struct {
	Caller            string
	SessionEmail      string
	ProductInstanceID string
	Quantity          *int
	UnitPrice         *decimal.Decimal
	Participants      []string
}

// PatchProduct edits quantity, price or participants of a product instance.
func (uc *ProductUseCase) PatchProduct(ctx context.Context, input PatchProductInput) (*domain.Session, error) {
	if input.Quantity != nil {
		if err := domain.ValidateQuantity(*input.Quantity); err != nil {
			return nil, err
		}
	}
	if input.UnitPrice != nil {
		if err := domain.ValidateMoney(*input.UnitPrice); err != nil {
			return nil, err
		}
	}

	return uc.writer.update(ctx, input.Caller, input.SessionEmail,
		func(_ context.Context, _ Transaction, current domain.Session) (domain.Session, error) {
			return current.WithProductPatched(input.ProductInstanceID, domain.ProductPatch{
				Quantity:     input.Quantity,
				UnitPrice:    input.UnitPrice,
				Participants: input.Participants,
			})
		})
}

// RemoveProductInput represents input for removing a product instance.
type RemoveProductInput struct {
	Caller            string
	SessionEmail      string
	ProductInstanceID string
}

// RemoveProduct removes a product instance from the session.
func (uc *ProductUseCase) RemoveProduct(ctx context.Context, input RemoveProductInput) (*domain.Session, error) {
	return uc.writer.update(ctx, input.Caller, input.SessionEmail,
		func(_ context.Context, _ Transaction, current domain.Session) (domain.Session, error) {
			return current.WithoutProduct(input.ProductInstanceID)
		})
}

// ProductParticipantInput identifies a participant on a product instance.
type ProductParticipantInput struct {
	Caller            string
	SessionEmail      string
	ProductInstanceID string
	Email             string
}

// AddProductParticipant tags a session participant on a product instance.
func (uc *ProductUseCase) AddProductParticipant(ctx context.Context, input ProductParticipantInput) (*domain.Session, error) {
	return uc.writer.update(ctx, input.Caller, input.SessionEmail,
		func(_ context.Context, _ Transaction, current domain.Session) (domain.Session, error) {
			return current.WithProductParticipant(input.ProductInstanceID, input.Email)
		})
}

// RemoveProductParticipant untags a participant from a product instance.
func (uc *ProductUseCase) RemoveProductParticipant(ctx context.Context, input ProductParticipantInput) (*domain.Session, error) {
	return uc.writer.update(ctx, input.Caller, input.SessionEmail,
		func(_ context.Context, _ Transaction, current domain.Session) (domain.Session, error) {
			return current.WithoutProductParticipant(input.ProductInstanceID, input.Email)
		})
}

// SearchProduct returns the most recently bought product matching name,
// or nil when nothing matches.
func (uc *ProductUseCase) SearchProduct(ctx context.Context, name string) (*domain.ProductDetails, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidProductName
	}

	key := searchCacheKey(name)
	if cached, ok := uc.cachedDetails(ctx, key); ok {
		return cached, nil
	}

	details, err := uc.productRepo.SearchLatestByName(ctx, name)
	if errors.Is(err, domain.ErrProductNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	uc.storeDetails(ctx, key, details)
	return details, nil
}

// GetProduct returns a catalogue product with its last price and, when it
// has a barcode, public nutrition data.
func (uc *ProductUseCase) GetProduct(ctx context.Context, id string) (*domain.ProductDetails, error) {
	key := "product:" + id
	if cached, ok := uc.cachedDetails(ctx, key); ok {
		return cached, nil
	}

	details, err := uc.productRepo.GetDetails(ctx, id)
	if err != nil {
		return nil, err
	}

	if uc.nutrition != nil && details.Product.Barcode != nil {
		nutrition, err := uc.nutrition.Lookup(ctx, *details.Product.Barcode)
		if err != nil {
			uc.logger.Warn().Err(err).Str("barcode", *details.Product.Barcode).Msg("nutrition lookup failed")
		} else {
			details.Nutrition = nutrition
		}
	}

	uc.storeDetails(ctx, key, details)
	return details, nil
}

func searchCacheKey(name string) string {
	return "product:search:" + strings.ToLower(strings.TrimSpace(name))
}

func (uc *ProductUseCase) forgetSearch(ctx context.Context, name string) {
	if uc.cache == nil || strings.TrimSpace(name) == "" {
		return
	}
	if err := uc.cache.Delete(ctx, searchCacheKey(name)); err != nil {
		uc.logger.Warn().Err(err).Msg("failed to invalidate product search cache")
	}
}

func (uc *ProductUseCase) cachedDetails(ctx context.Context, key string) (*domain.ProductDetails, bool) {
	if uc.cache == nil {
		return nil, false
	}

	raw, err := uc.cache.Get(ctx, key)
	if err != nil || raw == nil {
		uc.observeCache("miss")
		return nil, false
	}

	var cached cachedProduct
	if err := json.Unmarshal(raw, &cached); err != nil {
		uc.observeCache("miss")
		return nil, false
	}

	uc.observeCache("hit")
	return cached.toDomain(), true
}

func (uc *ProductUseCase) storeDetails(ctx context.Context, key string, details *domain.ProductDetails) {
	if uc.cache == nil || details == nil {
		return
	}

	raw, err := json.Marshal(cachedProductFromDomain(details))
	if err != nil {
		return
	}
	if err := uc.cache.Set(ctx, key, raw, uc.cacheTTL); err != nil {
		uc.logger.Warn().Err(err).Str("key", key).Msg("failed to cache product")
	}
}

func (uc *ProductUseCase) observeCache(result string) {
	if uc.metrics != nil {
		uc.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}

// cachedProduct is the cache encoding of domain.ProductDetails.
type cachedProduct struct {
	ID            string            `json:"id"`
	Barcode       *string           `json:"barcode,omitempty"`
	Name          string            `json:"name"`
	LastUnitPrice decimal.Decimal   `json:"last_unit_price"`
	LastQuantity  int               `json:"last_quantity"`
	LastSeen      *time.Time        `json:"last_seen,omitempty"`
	Nutrition     *domain.Nutrition `json:"nutrition,omitempty"`
}

func cachedProductFromDomain(d *domain.ProductDetails) cachedProduct {
	return cachedProduct{
		ID:            d.Product.ID,
		Barcode:       d.Product.Barcode,
		Name:          d.Product.Name,
		LastUnitPrice: d.LastUnitPrice,
		LastQuantity:  d.LastQuantity,
		LastSeen:      d.LastSeen,
		Nutrition:     d.Nutrition,
	}
}

func (c cachedProduct) toDomain() *domain.ProductDetails {
	return &domain.ProductDetails{
		Product:       domain.Product{ID: c.ID, Barcode: c.Barcode, Name: c.Name},
		LastUnitPrice: c.LastUnitPrice,
		LastQuantity:  c.LastQuantity,
		LastSeen:      c.LastSeen,
		Nutrition:     c.Nutrition,
	}
}
