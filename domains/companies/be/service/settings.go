package service

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Company settings are an open key-value bag, but the shape of the bag itself
// is pinned so arbitrary payloads cannot grow without bound.
const settingsSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "maxProperties": 64,
  "propertyNames": {
    "minLength": 1,
    "maxLength": 64
  }
}`

var (
	settingsSchemaOnce sync.Once
	settingsSchema     *jsonschema.Schema
)

func compiledSettingsSchema() *jsonschema.Schema {
	settingsSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("company-settings.json", strings.NewReader(settingsSchemaJSON)); err != nil {
			panic(fmt.Sprintf("adding company settings schema: %v", err))
		}
		settingsSchema = compiler.MustCompile("company-settings.json")
	})
	return settingsSchema
}

func validateSettings(settings map[string]any) error {
	if settings == nil {
		return nil
	}
	if err := compiledSettingsSchema().Validate(settings); err != nil {
		var validationErr *jsonschema.ValidationError
		if errors.As(err, &validationErr) {
			return fmt.Errorf("settings rejected: %s", validationErr.Message)
		}
		return fmt.Errorf("settings rejected: %w", err)
	}
	return nil
}
