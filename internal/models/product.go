package models

import "fmt"

// Product is one matched product as carried on the update channel. Every
// optional field may be absent on the wire; decoding tolerates any subset.
// No uniqueness is enforced - the same product may appear for several sites
// and is distinguished only by its display key.
type Product struct {
	Title        string   `json:"title"`
	Price        float64  `json:"price"`
	Size         string   `json:"size,omitempty"`
	Material     string   `json:"material,omitempty"`
	Category     string   `json:"category,omitempty"`
	ImageURL     string   `json:"image_url"`
	ProductURL   string   `json:"product_url"`
	Site         string   `json:"site"`
	Confidence   float64  `json:"confidence"`
	Rating       *float64 `json:"rating,omitempty"`
	ReviewsCount *int     `json:"reviews_count,omitempty"`
}

// DisplayKey returns the presentation key for a product at the given
// position in a result page (site+title+position).
func (p *Product) DisplayKey(position int) string {
	return fmt.Sprintf("%s-%s-%d", p.Site, p.Title, position)
}
