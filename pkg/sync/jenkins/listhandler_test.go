package jenkins

import (
	"testing"

	buildv1 "github.com/openshift/api/build/v1"
)

type recordingRunner struct {
	triggered []string
}

func (r *recordingRunner) Trigger(job *Job, build *buildv1.Build) (bool, error) {
	r.triggered = append(r.triggered, build.Name)
	return true, nil
}

func (r *recordingRunner) Cancel(job *Job, build *buildv1.Build, force bool) error {
	return nil
}

func TestSequentialListHandler(t *testing.T) {
	runner := &recordingRunner{}
	handler := &SequentialListHandler{Runner: runner}
	job := &Job{Name: "test-frontend"}

	newBuild := func(name string) *buildv1.Build {
		b := &buildv1.Build{}
		b.Name = name
		return b
	}
	running := newBuild("running-1")
	running.Status.Phase = buildv1.BuildPhaseRunning
	cancelled := newBuild("cancelled-1")
	cancelled.Status.Cancelled = true

	err := handler.HandleBuildList(job, []*buildv1.Build{
		newBuild("b1"),
		running,
		cancelled,
		newBuild("b2"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runner.triggered) != 2 || runner.triggered[0] != "b1" || runner.triggered[1] != "b2" {
		t.Errorf("expected [b1 b2] in order, got %v", runner.triggered)
	}
}
