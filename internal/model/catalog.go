package model

// Tag is administrator-managed reference data. Name, color and slug are each
// unique across all tags.
type Tag struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Slug  string `json:"slug"`
}

// Ingredient is administrator-managed reference data. Unit is serialized as
// measurement_unit to match the public API.
type Ingredient struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Unit string `json:"measurement_unit"`
}
