package jenkins

import (
	"k8s.io/apimachinery/pkg/types"

	buildv1 "github.com/openshift/api/build/v1"
)

// Job identifies the Jenkins workflow job that is the one to one
// counterpart of an OpenShift BuildConfig. The sync engine treats the
// job as opaque beyond its identity.
type Job struct {
	// Name is the full name of the job on the Jenkins side.
	Name string

	// BuildConfigNamespace and BuildConfigName identify the owning
	// BuildConfig.
	BuildConfigNamespace string
	BuildConfigName      string

	// BuildConfigUID is the unique id of the owning BuildConfig, used
	// to correlate build deletion with build config deletion.
	BuildConfigUID types.UID
}

// JobRunner starts and stops Jenkins job runs for builds.
type JobRunner interface {
	// Trigger starts a job run for the given build and reports whether
	// a run was started. Implementations must guarantee at most one
	// trigger per build identity, so replayed watch events are safe.
	Trigger(job *Job, build *buildv1.Build) (bool, error)

	// Cancel stops the job run associated with the given build. It is
	// idempotent: cancelling a run that is absent or already stopped is
	// not an error. When force is set the runner suppresses any status
	// write back to the cluster, since the build record may already be
	// gone.
	Cancel(job *Job, build *buildv1.Build, force bool) error
}

// BuildListHandler consumes the ordered builds of a single BuildConfig
// from an initial listing and applies the config's run policy to them.
type BuildListHandler interface {
	HandleBuildList(job *Job, builds []*buildv1.Build) error
}

// PhaseUpdater writes a build phase transition back to the cluster.
type PhaseUpdater interface {
	UpdateBuildPhase(build *buildv1.Build, phase buildv1.BuildPhase) error
}
