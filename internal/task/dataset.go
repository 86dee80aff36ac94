package task

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/patcheval/patcheval/internal/errors"
	"github.com/patcheval/patcheval/internal/schema"
)

// LoadDataset reads task instances from path and returns them keyed by
// instance id. Supported layouts: a JSON array of instance objects, a JSON
// object keyed by instance id, or JSONL (one instance per line, chosen by a
// .jsonl extension). Every instance object is validated against the embedded
// task schema before decoding.
func LoadDataset(path string) (map[string]*Instance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Configf("read dataset: %v", err)
	}

	var raws []json.RawMessage
	if strings.HasSuffix(path, ".jsonl") {
		raws, err = splitLines(data)
	} else {
		raws, err = splitDocument(data)
	}
	if err != nil {
		return nil, errors.Configf("parse dataset %s: %v", path, err)
	}

	instances := make(map[string]*Instance, len(raws))
	for i, raw := range raws {
		if err := schema.ValidateTask(raw); err != nil {
			return nil, errors.Configf("dataset %s, instance %d: %v", path, i+1, err)
		}
		var inst Instance
		if err := json.Unmarshal(raw, &inst); err != nil {
			return nil, errors.Configf("dataset %s, instance %d: %v", path, i+1, err)
		}
		if _, dup := instances[inst.InstanceID]; dup {
			return nil, errors.Configf("dataset %s: duplicate instance id %s", path, inst.InstanceID)
		}
		instances[inst.InstanceID] = &inst
	}
	return instances, nil
}

// splitDocument accepts either a top-level array or an object keyed by
// instance id and returns the raw instance objects.
func splitDocument(data []byte) ([]json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var arr []json.RawMessage
		if err := json.Unmarshal(data, &arr); err != nil {
			return nil, err
		}
		return arr, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	raws := make([]json.RawMessage, 0, len(obj))
	for _, raw := range obj {
		raws = append(raws, raw)
	}
	return raws, nil
}

func splitLines(data []byte) ([]json.RawMessage, error) {
	var raws []json.RawMessage
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !json.Valid([]byte(line)) {
			return nil, fmt.Errorf("line %d: invalid JSON", lineNo)
		}
		raws = append(raws, json.RawMessage(line))
	}
	return raws, scanner.Err()
}
