package task

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/patcheval/patcheval/internal/errors"
)

// GoldenModelName returns the synthetic model name stamped on golden
// predictions for a benchmark.
func GoldenModelName(benchName string) string {
	return benchName + "_golden"
}

// WriteGoldenPredictions writes one prediction per task instance using the
// instance's own gold patch, in JSONL form. A sanity baseline: evaluating
// golden predictions should classify every instance as tests-passed. Any
// pre-existing file at outPath is replaced. Instances are written in sorted
// id order for deterministic output.
func WriteGoldenPredictions(instances map[string]*Instance, outPath, benchName string) error {
	ids := make([]string, 0, len(instances))
	for id := range instances {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	model := GoldenModelName(benchName)

	f, err := os.Create(outPath)
	if err != nil {
		return errors.Configf("create golden predictions: %v", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, id := range ids {
		inst := instances[id]
		rec := Prediction{
			InstanceID: inst.InstanceID,
			Model:      model,
			Patch:      inst.GoldPatch(),
		}
		if err := enc.Encode(rec); err != nil {
			return errors.Wrap(err, "write golden prediction "+id)
		}
	}
	return nil
}
