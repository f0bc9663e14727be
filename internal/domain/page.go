package domain

// CatalogPage is the envelope served by the catalog listing and stored in the
// cache. It is derived and disposable.
type CatalogPage struct {
	Page          int       `json:"page"`
	TotalPages    int       `json:"totalPages"`
	TotalProducts int64     `json:"totalProducts"`
	Products      []Product `json:"products"`
}
