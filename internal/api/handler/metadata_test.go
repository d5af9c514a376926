package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stormwatch/stormwatch/internal/api/handler"
	"github.com/stormwatch/stormwatch/internal/api/models"
	"github.com/stormwatch/stormwatch/internal/condition"
)

func TestMetadataHandler_GetIcons(t *testing.T) {
	h := handler.NewMetadataHandler()

	w := serve(h.GetIcons, httptest.NewRequest(http.MethodGet, "/v1/metadata/icons", http.NoBody))

	require.Equal(t, http.StatusOK, w.Code)
	var icons models.Icons
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &icons))
	assert.Equal(t, string(condition.IconSun), icons.Conditions["Clear"])
	assert.Equal(t, string(condition.IconBolt), icons.Conditions["Thunderstorm"])
	assert.Equal(t, string(condition.IconFallback), icons.Fallback)
	assert.Contains(t, icons.Severe, "rain")
	assert.Contains(t, icons.Severe, "snow")
}

func TestMetadataHandler_ListSchemas(t *testing.T) {
	h := handler.NewMetadataHandler()

	w := serve(h.ListSchemas, httptest.NewRequest(http.MethodGet, "/v1/metadata/schemas", http.NoBody))

	require.Equal(t, http.StatusOK, w.Code)
	var list models.SchemaList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, []string{
		"alert-status",
		"favorite-toggle",
		"favorites",
		"icons",
		"permission-update",
		"problem",
		"weather",
	}, list.Items)
}

func TestMetadataHandler_GetSchema(t *testing.T) {
	h := handler.NewMetadataHandler()

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/v1/metadata/schemas/weather", http.NoBody), "name", "weather")
	w := serve(h.GetSchema, req)

	require.Equal(t, http.StatusOK, w.Code)
	var schema map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &schema))
	assert.Equal(t, "object", schema["type"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "temperature")
	assert.Contains(t, props, "daily")

	updatedAt, ok := props["updatedAt"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "date-time", updatedAt["format"])
}

func TestMetadataHandler_GetSchema_Unknown(t *testing.T) {
	h := handler.NewMetadataHandler()

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/v1/metadata/schemas/nope", http.NoBody), "name", "nope")
	w := serve(h.GetSchema, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	decodeProblem(t, w)
}
