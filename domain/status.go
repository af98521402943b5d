package domain

import "fmt"

// StepStatus is the outcome of a single executed pipeline step.
type StepStatus string

const (
	StepStatusOK      StepStatus = "ok"
	StepStatusSkipped StepStatus = "skipped"
	StepStatusFailed  StepStatus = "failed"
)

func (s StepStatus) String() string {
	return string(s)
}

func ParseStepStatus(s string) (StepStatus, error) {
	switch StepStatus(s) {
	case StepStatusOK, StepStatusSkipped, StepStatusFailed:
		return StepStatus(s), nil
	default:
		return "", fmt.Errorf("invalid step status: %q", s)
	}
}

// RunKind distinguishes the recorded run types.
type RunKind string

const (
	RunKindRelease RunKind = "release"
	RunKindDeploy  RunKind = "deploy"
)

func (k RunKind) String() string {
	return string(k)
}

func ParseRunKind(s string) (RunKind, error) {
	switch RunKind(s) {
	case RunKindRelease, RunKindDeploy:
		return RunKind(s), nil
	default:
		return "", fmt.Errorf("invalid run kind: %q", s)
	}
}
