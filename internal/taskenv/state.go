package taskenv

// State tracks where a Manager is in the environment lifecycle. Transitions
// run strictly forward except teardown, which is reachable from any state.
type State int

const (
	StateUninitialized State = iota
	StateProvisioned
	StatePatched
	StateTested
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateProvisioned:
		return "provisioned"
	case StatePatched:
		return "patched"
	case StateTested:
		return "tested"
	case StateTornDown:
		return "torn_down"
	default:
		return "unknown"
	}
}

// PatchKind labels why a patch is being applied. A new Patch record (never
// an edit) is created when the driver substitutes a minimal variant, so the
// kind travels with the text.
type PatchKind string

const (
	PatchPredTry        PatchKind = "pred_try"
	PatchPredMinimalTry PatchKind = "pred_minimal_try"
	PatchPred           PatchKind = "pred"
	PatchPredMinimal    PatchKind = "pred_minimal"
	PatchTest           PatchKind = "test"
	PatchGold           PatchKind = "gold"
)
