package models

// ImportedProduct is the normalized record produced by an import run.
// Every field is best-effort: extraction misses leave the documented
// zero value rather than failing the import.
type ImportedProduct struct {
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Price         string    `json:"price"`
	PriceFound    bool      `json:"priceFound"`
	OriginalPrice string    `json:"originalPrice"`
	PriceRange    string    `json:"priceRange"`
	Discount      string    `json:"discount"`
	Images        []string  `json:"images"`
	Rating        float64   `json:"rating"`
	ReviewCount   int       `json:"reviewCount"`
	OrdersCount   int       `json:"ordersCount"`
	ShippingCost  string    `json:"shippingCost"`
	DeliveryTime  string    `json:"deliveryTime"`
	SKU           string    `json:"sku"`
	Variants      []Variant `json:"variants"`
	Slug          string    `json:"slug"`
	AffiliateLink string    `json:"affiliateLink"`
	AliexpressURL string    `json:"aliexpressUrl"`
}

type Variant struct {
	Group   string          `json:"group"`
	Options []VariantOption `json:"options"`
}

type VariantOption struct {
	Label    string `json:"label"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Complete reports whether the record is good enough to stop the
// fallback chain: a title plus at least one image.
func (p *ImportedProduct) Complete() bool {
	return p != nil && p.Title != "" && len(p.Images) > 0
}

// ImportResult is the wire shape returned to the admin UI. Business
// failures travel as Success=false, never as transport errors.
type ImportResult struct {
	Success bool             `json:"success"`
	Data    *ImportedProduct `json:"data,omitempty"`
	Error   string           `json:"error,omitempty"`
}
