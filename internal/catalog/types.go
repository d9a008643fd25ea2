package catalog

import "roastery/internal/media"

type RoastLevel string

const (
	RoastLight    RoastLevel = "light"
	RoastMedium   RoastLevel = "medium"
	RoastDark     RoastLevel = "dark"
	RoastEspresso RoastLevel = "espresso"
)

func ValidRoastLevel(r RoastLevel) bool {
	switch r {
	case RoastLight, RoastMedium, RoastDark, RoastEspresso:
		return true
	}
	return false
}

type WeightUnit string

const (
	WeightGrams     WeightUnit = "g"
	WeightKilograms WeightUnit = "kg"
)

type Seller struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoUrl"`
}

type Category struct {
	ID          string `json:"id"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	Name        string `json:"name"`
}

type Media struct {
	ID        string     `json:"id"`
	MediaURL  string     `json:"mediaUrl"`
	MediaType media.Kind `json:"mediaType"`
}

// Listing mirrors the Coffee record the GraphQL backend owns. This service
// never persists one; it assembles, submits and filters them.
type Listing struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Origin        string     `json:"origin"`
	RoastLevel    RoastLevel `json:"roastLevel"`
	Price         float64    `json:"price"`
	Currency      string     `json:"currency"`
	Weight        float64    `json:"weight"`
	WeightUnit    WeightUnit `json:"weightUnit"`
	IsAvailable   bool       `json:"isAvailable"`
	StockQuantity int        `json:"stockQuantity"`
	Categories    []Category `json:"categories"`
	Seller        Seller     `json:"seller"`
	Medias        []Media    `json:"medias"`
	CreatedAt     string     `json:"createdAt,omitempty"`
	UpdatedAt     string     `json:"updatedAt,omitempty"`
}

// Page is one page of listings plus the backend's opaque cursor.
type Page struct {
	Items     []Listing `json:"items"`
	NextToken string    `json:"nextToken,omitempty"`
}
