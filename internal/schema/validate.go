// Package schema provides JSON schema validation for patcheval data files.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	schemafs "github.com/patcheval/patcheval/schema"
)

var (
	taskSchema  *jsonschema.Schema
	compileOnce sync.Once
	compileErr  error
)

// compileSchemas compiles all embedded schemas once.
func compileSchemas() error {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()

		taskData, err := schemafs.FS.ReadFile("task.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("read task schema: %w", err)
			return
		}

		taskDoc, err := jsonschema.UnmarshalJSON(bytes.NewReader(taskData))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal task schema: %w", err)
			return
		}

		if err := compiler.AddResource("task.schema.json", taskDoc); err != nil {
			compileErr = fmt.Errorf("add task schema resource: %w", err)
			return
		}

		taskSchema, err = compiler.Compile("task.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("compile task schema: %w", err)
			return
		}
	})

	return compileErr
}

// ValidateTask validates one JSON task instance object against the schema.
func ValidateTask(data []byte) error {
	if err := compileSchemas(); err != nil {
		return err
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := taskSchema.Validate(v); err != nil {
		return fmt.Errorf("task validation failed: %w", err)
	}

	return nil
}
