package task

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/patcheval/patcheval/internal/errors"
)

// Prediction is one model output record: which instance it targets, which
// model produced it, and the patch text. Patch is nullable; a null or empty
// patch flows through the harness and is classified like any other.
type Prediction struct {
	InstanceID string  `json:"instance_id"`
	Model      string  `json:"model_name_or_path"`
	Patch      *string `json:"model_patch"`
}

// LoadPredictions reads prediction records from a JSONL file, one JSON
// object per line. Blank lines are skipped; a malformed line fails the whole
// load with its line number.
func LoadPredictions(path string) ([]Prediction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Configf("read predictions: %v", err)
	}
	defer f.Close()

	var preds []Prediction
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var p Prediction
		if err := json.Unmarshal(line, &p); err != nil {
			return nil, errors.Configf("predictions %s, line %d: %v", path, lineNo, err)
		}
		if p.InstanceID == "" {
			return nil, errors.Configf("predictions %s, line %d: missing instance_id", path, lineNo)
		}
		preds = append(preds, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Configf("read predictions %s: %v", path, err)
	}
	return preds, nil
}
