package handler

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/invopop/jsonschema"

	"github.com/stormwatch/stormwatch/internal/api/models"
	"github.com/stormwatch/stormwatch/internal/api/response"
	"github.com/stormwatch/stormwatch/internal/condition"
)

// MetadataHandler handles metadata endpoints.
type MetadataHandler struct {
	schemas map[string]*jsonschema.Schema
	names   []string
}

// NewMetadataHandler creates a new MetadataHandler. Response schemas are
// reflected once here.
func NewMetadataHandler() *MetadataHandler {
	reflector := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
	}

	types := map[string]any{
		"weather":           &models.Weather{},
		"favorites":         &models.Favorites{},
		"favorite-toggle":   &models.FavoriteToggle{},
		"alert-status":      &models.AlertStatus{},
		"permission-update": &models.PermissionUpdate{},
		"icons":             &models.Icons{},
		"problem":           &models.Problem{},
	}

	h := &MetadataHandler{schemas: make(map[string]*jsonschema.Schema, len(types))}
	for name, v := range types {
		h.schemas[name] = reflector.Reflect(v)
		h.names = append(h.names, name)
	}
	sort.Strings(h.names)
	return h
}

// GetIcons handles GET /v1/metadata/icons.
func (h *MetadataHandler) GetIcons(w http.ResponseWriter, r *http.Request) {
	icons := condition.Icons()
	out := models.Icons{
		Conditions: make(map[string]string, len(icons)),
		Fallback:   string(condition.IconFallback),
		Severe:     condition.SevereMarkers(),
	}
	for k, v := range icons {
		out.Conditions[k] = string(v)
	}
	response.JSON(w, r, http.StatusOK, out)
}

// ListSchemas handles GET /v1/metadata/schemas.
func (h *MetadataHandler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.SchemaList{Items: h.names})
}

// GetSchema handles GET /v1/metadata/schemas/{name}.
func (h *MetadataHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	schema, ok := h.schemas[name]
	if !ok {
		response.NotFound(w, r, "unknown schema "+name)
		return
	}
	response.JSON(w, r, http.StatusOK, schema)
}
