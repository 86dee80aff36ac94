package schema

import (
	"strings"
	"testing"
)

const validTask = `{
	"instance_id": "matplotlib__matplotlib-22835",
	"repo": "matplotlib/matplotlib",
	"version": "3.5",
	"base_commit": "c33557d",
	"patch": "diff --git a/a.py b/a.py\n",
	"test_patch": "diff --git a/test_a.py b/test_a.py\n",
	"test_cmd": "pytest --no-header -rA lib/matplotlib/tests/test_artist.py"
}`

func TestValidateTaskAccepts(t *testing.T) {
	if err := ValidateTask([]byte(validTask)); err != nil {
		t.Errorf("valid task rejected: %v", err)
	}
}

func TestValidateTaskNullPrediction(t *testing.T) {
	task := strings.Replace(validTask, `"test_cmd":`, `"model_patch": null, "test_cmd":`, 1)
	if err := ValidateTask([]byte(task)); err != nil {
		t.Errorf("null model_patch must validate: %v", err)
	}
}

func TestValidateTaskMissingRequired(t *testing.T) {
	task := `{"repo": "matplotlib/matplotlib", "version": "3.5"}`
	if err := ValidateTask([]byte(task)); err == nil {
		t.Error("expected validation failure for missing instance_id")
	}
}

func TestValidateTaskBadJSON(t *testing.T) {
	if err := ValidateTask([]byte("{not json")); err == nil {
		t.Error("expected error for malformed JSON")
	}
}
