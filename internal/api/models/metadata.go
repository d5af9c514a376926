package models

// Icons maps main conditions to icon classes.
type Icons struct {
	Conditions map[string]string `json:"conditions"`
	Fallback   string            `json:"fallback"`
	Severe     []string          `json:"severe" jsonschema:"description=Condition substrings that raise alerts"`
}

// SchemaList names the available JSON schemas.
type SchemaList struct {
	Items []string `json:"items"`
}
