package session

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kaptinlin/jsonschema"
)

//go:embed schema/preferences.schema.json
var preferencesSchemaJSON []byte

var preferencesSchema = mustCompile(preferencesSchemaJSON)

func mustCompile(data []byte) *jsonschema.Schema {
	schema, err := jsonschema.NewCompiler().Compile(data)
	if err != nil {
		panic(fmt.Sprintf("failed to compile preferences schema: %v", err))
	}
	return schema
}

// Preferences are the per-session dashboard settings.
type Preferences struct {
	AutoRefresh              bool `json:"auto_refresh"`
	ItemsPerPage             int  `json:"items_per_page"`
	ShowSuccessNotifications bool `json:"show_success_notifications"`
	ShowErrorNotifications   bool `json:"show_error_notifications"`
	DebugMode                bool `json:"debug_mode"`
	APITimeoutSeconds        int  `json:"api_timeout"`
}

// DefaultPreferences returns the settings of a fresh session.
func DefaultPreferences() Preferences {
	return Preferences{
		AutoRefresh:              true,
		ItemsPerPage:             12,
		ShowSuccessNotifications: true,
		ShowErrorNotifications:   true,
		DebugMode:                false,
		APITimeoutSeconds:        10,
	}
}

// APITimeout returns the content API timeout chosen by the user.
func (p Preferences) APITimeout() time.Duration {
	if p.APITimeoutSeconds <= 0 {
		return time.Duration(DefaultPreferences().APITimeoutSeconds) * time.Second
	}
	return time.Duration(p.APITimeoutSeconds) * time.Second
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(msgs)
	return "settings validation failed: " + strings.Join(msgs, "; ")
}

// ValidatePreferences checks a partial update against the preferences
// schema. Unknown keys are rejected.
func ValidatePreferences(update map[string]interface{}) error {
	result := preferencesSchema.Validate(update)
	if result.IsValid() {
		return nil
	}

	fields := make(map[string]string, len(result.Errors))
	for field, evalErr := range result.Errors {
		fields[field] = evalErr.Error()
	}
	return &ValidationError{Fields: fields}
}

// Merge validates a partial JSON update and applies it on top of p.
func (p Preferences) Merge(raw []byte) (Preferences, error) {
	var update map[string]interface{}
	if err := json.Unmarshal(raw, &update); err != nil {
		return p, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err := ValidatePreferences(update); err != nil {
		return p, err
	}

	merged := p
	if err := json.Unmarshal(raw, &merged); err != nil {
		return p, fmt.Errorf("failed to apply settings: %w", err)
	}
	return merged, nil
}
