// Package task defines task instances and the collaborators that feed them
// to the harness: dataset loading, prediction records, and golden-prediction
// generation.
package task

import "strings"

// Instance identifies one (repository, target commit, expected behavior)
// triple to evaluate. It is read-only from the environment manager's
// perspective; only Prediction and Model are attached later, by the driver,
// at classification time.
type Instance struct {
	InstanceID string `json:"instance_id"`
	Repo       string `json:"repo"`
	Version    string `json:"version"`
	BaseCommit string `json:"base_commit,omitempty"`
	Patch      string `json:"patch"`      // reference gold patch
	TestPatch  string `json:"test_patch"` // adds/modifies tests
	TestCmd    string `json:"test_cmd,omitempty"`

	// Attached for evaluation runs. Prediction is nullable: a model may
	// produce no patch at all, which is itself a loggable outcome.
	Model      string  `json:"model_name_or_path,omitempty"`
	Prediction *string `json:"model_patch,omitempty"`
}

// GoldPatch returns the gold patch as a nullable patch text, the form
// ApplyPatch consumes.
func (i *Instance) GoldPatch() *string {
	return &i.Patch
}

// EnvironmentName derives the stable environment name for an instance:
// the repository with path separators flattened, joined with the version.
// matplotlib/matplotlib at 3.5 becomes matplotlib__matplotlib__3.5.
func (i *Instance) EnvironmentName() string {
	return strings.ReplaceAll(i.Repo, "/", "__") + "__" + i.Version
}
