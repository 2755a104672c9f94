package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductLookup identifies a canonical product by id, barcode or name,
// tried in that order.
type ProductLookup struct {
	ID      string
	Barcode string
	Name    string
}

// ProductDetails is a catalogue product with the latest price it was bought at.
type ProductDetails struct {
	Product       Product
	LastUnitPrice decimal.Decimal
	LastQuantity  int
	LastSeen      *time.Time
	Nutrition     *Nutrition
}

// Nutrition is the public food-database record of a barcode.
type Nutrition struct {
	Brand       string  `json:"brand"`
	ImageURL    string  `json:"image_url"`
	NutriScore  string  `json:"nutriscore"`
	EnergyKcal  float64 `json:"energy_kcal_100g"`
	Ingredients string  `json:"ingredients"`
}

// Device binds a user to its latest push registration token.
type Device struct {
	Email             string
	RegistrationToken string
	UpdatedAt         time.Time
}
