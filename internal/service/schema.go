package service

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"todo-service/internal/repository"
)

const todosSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "text"],
    "properties": {
      "id": {"type": "integer"},
      "uuid": {"type": "string"},
      "text": {"type": "string"},
      "completed": {"type": "boolean"},
      "created_at": {"type": "string", "format": "date-time"},
      "updated_at": {"type": "string", "format": "date-time"},
      "completed_at": {"type": ["string", "null"], "format": "date-time"},
      "priority": {"type": ["string", "null"]},
      "due_date": {"type": ["string", "null"]},
      "category_id": {"type": ["integer", "null"]},
      "tags": {"type": ["array", "null"], "items": {"type": "string"}},
      "notes": {"type": ["string", "null"]},
      "estimated_time": {"type": ["integer", "null"]},
      "actual_time": {"type": ["integer", "null"]},
      "subtasks": {"type": ["array", "null"]},
      "recurring": {"type": ["boolean", "null"]},
      "recurring_pattern": {"type": ["string", "null"]}
    }
  }
}`

const categoriesSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "name"],
    "properties": {
      "id": {"type": "integer"},
      "name": {"type": "string"},
      "color": {"type": ["string", "null"]},
      "icon": {"type": ["string", "null"]}
    }
  }
}`

const tagsSchema = `{
  "type": "array",
  "items": {"type": "string"}
}`

var collectionSchemas = mustCompileSchemas(map[string]string{
	repository.CollectionTodos:      todosSchema,
	repository.CollectionCategories: categoriesSchema,
	repository.CollectionTags:       tagsSchema,
})

func mustCompileSchemas(sources map[string]string) map[string]*jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	for name, src := range sources {
		if err := compiler.AddResource(name+".schema.json", strings.NewReader(src)); err != nil {
			panic(fmt.Sprintf("add %s schema: %v", name, err))
		}
	}

	schemas := make(map[string]*jsonschema.Schema, len(sources))
	for name := range sources {
		schema, err := compiler.Compile(name + ".schema.json")
		if err != nil {
			panic(fmt.Sprintf("compile %s schema: %v", name, err))
		}
		schemas[name] = schema
	}
	return schemas
}

// validateCollection checks an imported collection payload against its schema.
func validateCollection(name string, raw json.RawMessage) error {
	schema, ok := collectionSchemas[name]
	if !ok {
		return fmt.Errorf("no schema for collection %s", name)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%s: %s", name, firstSchemaError(err))
	}
	return nil
}

// firstSchemaError returns the first leaf cause of a schema failure.
func firstSchemaError(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	if ve.InstanceLocation == "" {
		return ve.Message
	}
	return fmt.Sprintf("%s: %s", ve.InstanceLocation, ve.Message)
}
