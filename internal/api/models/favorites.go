package models

// Favorites is the ordered favorites list.
type Favorites struct {
	Items []string `json:"items"`
}

// FavoriteToggle is the result of toggling one city.
type FavoriteToggle struct {
	City       string   `json:"city"`
	IsFavorite bool     `json:"isFavorite"`
	Items      []string `json:"items"`
}
