package types

// ProductImage references a hosted catalogue image.
type ProductImage struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// ProductImages is stored as a jsonb column on products.
type ProductImages []ProductImage

// First returns the primary image URL or an empty string.
func (p ProductImages) First() string {
	if len(p) == 0 {
		return ""
	}
	return p[0].URL
}
