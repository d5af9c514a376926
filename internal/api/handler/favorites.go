package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/stormwatch/stormwatch/internal/api/models"
	"github.com/stormwatch/stormwatch/internal/api/response"
	"github.com/stormwatch/stormwatch/internal/favorites"
)

// FavoritesHandler handles favorites endpoints.
type FavoritesHandler struct {
	dashboard Dashboard
	logger    zerolog.Logger
}

// NewFavoritesHandler creates a new FavoritesHandler.
func NewFavoritesHandler(d Dashboard, logger zerolog.Logger) *FavoritesHandler {
	return &FavoritesHandler{dashboard: d, logger: logger}
}

// ListFavorites handles GET /v1/favorites.
func (h *FavoritesHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Favorites{Items: h.dashboard.Favorites()})
}

// ToggleFavorite handles PUT /v1/favorites/{city}: adds the city if absent,
// removes it otherwise.
func (h *FavoritesHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	city, err := url.PathUnescape(chi.URLParam(r, "city"))
	if err != nil {
		response.BadRequest(w, r, "invalid city", []models.FieldError{
			{Field: "city", Message: "invalid escape sequence", Code: "INVALID"},
		})
		return
	}

	items, err := h.dashboard.ToggleFavorite(r.Context(), city)
	switch {
	case errors.Is(err, favorites.ErrEmptyCity):
		response.BadRequest(w, r, "Please enter a city name", []models.FieldError{
			{Field: "city", Message: "required", Code: "REQUIRED"},
		})
		return
	case err != nil:
		h.logger.Error().Err(err).Str("city", city).Msg("failed to save favorites")
		response.ServiceUnavailable(w, r, "Favorites could not be saved. Please try again.")
		return
	}

	response.JSON(w, r, http.StatusOK, models.FavoriteToggle{
		City:       city,
		IsFavorite: h.dashboard.IsFavorite(city),
		Items:      items,
	})
}
