package jenkins

import (
	buildv1 "github.com/openshift/api/build/v1"

	"github.com/khatribharat/jenkins-sync-plugin/pkg/sync/buildutil"
)

// SequentialListHandler starts job runs for a config's listed builds in
// the order given, which for a replayed listing is build number order.
// Jenkins itself queues the runs, so serial run policies hold as long
// as submission order does; builds already past the triggerable point
// are skipped.
type SequentialListHandler struct {
	Runner JobRunner
}

var _ BuildListHandler = &SequentialListHandler{}

func (h *SequentialListHandler) HandleBuildList(job *Job, builds []*buildv1.Build) error {
	for _, build := range builds {
		if buildutil.IsBuildCancelled(build.Status) || !buildutil.IsBuildNew(build.Status) {
			continue
		}
		if _, err := h.Runner.Trigger(job, build); err != nil {
			return err
		}
	}
	return nil
}
