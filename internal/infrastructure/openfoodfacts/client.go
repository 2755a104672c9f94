// Package openfoodfacts looks up public nutrition data by barcode.
package openfoodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/iho/cartsplit/internal/domain"
)

// DefaultBaseURL is the public OpenFoodFacts API.
const DefaultBaseURL = "https://world.openfoodfacts.org"

const productFields = "brands,image_url,nutriscore_grade,nutriments,ingredients_text"

// Client implements usecase.NutritionSource.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries uint64
}

// NewClient creates a client for baseURL. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: 2,
	}
}

type productResponse struct {
	Status  int `json:"status"`
	Product struct {
		Brands          string `json:"brands"`
		ImageURL        string `json:"image_url"`
		NutriscoreGrade string `json:"nutriscore_grade"`
		IngredientsText string `json:"ingredients_text"`
		Nutriments      struct {
			EnergyKcal100g float64 `json:"energy-kcal_100g"`
		} `json:"nutriments"`
	} `json:"product"`
}

// Lookup returns nutrition data for barcode, or nil when the database does
// not know it. Server errors are retried with backoff.
func (c *Client) Lookup(ctx context.Context, barcode string) (*domain.Nutrition, error) {
	endpoint := fmt.Sprintf("%s/api/v2/product/%s.json?fields=%s",
		c.baseURL, url.PathEscape(barcode), productFields)

	var body productResponse
	found := true

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "cartsplit/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			found = false
			return nil
		case resp.StatusCode >= 500:
			return fmt.Errorf("openfoodfacts: status %d", resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(fmt.Errorf("openfoodfacts: status %d", resp.StatusCode))
		}

		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return backoff.Permanent(fmt.Errorf("openfoodfacts: decode: %w", err))
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}

	if !found || body.Status != 1 {
		return nil, nil
	}

	p := body.Product
	return &domain.Nutrition{
		Brand:       p.Brands,
		ImageURL:    p.ImageURL,
		NutriScore:  p.NutriscoreGrade,
		EnergyKcal:  p.Nutriments.EnergyKcal100g,
		Ingredients: p.IngredientsText,
	}, nil
}

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	return b
}
