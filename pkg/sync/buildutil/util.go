package buildutil

import (
	"fmt"
	"strconv"

	"k8s.io/apimachinery/pkg/types"

	buildv1 "github.com/openshift/api/build/v1"
)

// ConfigNameForBuild returns the name of the build config from a
// build object.
func ConfigNameForBuild(build *buildv1.Build) string {
	if build == nil {
		return ""
	}
	if build.Status.Config != nil && len(build.Status.Config.Name) > 0 {
		return build.Status.Config.Name
	}
	if build.Annotations != nil {
		if _, exists := build.Annotations[buildv1.BuildConfigAnnotation]; exists {
			return build.Annotations[buildv1.BuildConfigAnnotation]
		}
	}
	return build.Labels[buildv1.BuildConfigLabel]
}

// BuildNumber returns the given build's number from its build number
// annotation. An error is returned if the annotation is missing or does
// not parse as an integer.
func BuildNumber(build *buildv1.Build) (int64, error) {
	annotations := build.Annotations
	if num, exists := annotations[buildv1.BuildNumberAnnotation]; exists {
		return strconv.ParseInt(num, 10, 64)
	}
	return 0, fmt.Errorf("build %s/%s does not have %s annotation", build.Namespace, build.Name, buildv1.BuildNumberAnnotation)
}

// BuildConfigOwnerUID returns the UID of the BuildConfig owner reference
// carried by the build, or the empty UID if the build has no BuildConfig
// owner.
func BuildConfigOwnerUID(build *buildv1.Build) types.UID {
	for _, ref := range build.OwnerReferences {
		if ref.Kind == "BuildConfig" && len(ref.UID) > 0 {
			return ref.UID
		}
	}
	return ""
}

// IsPipelineStrategyBuild returns true if the build has the Jenkins
// pipeline strategy. Builds with any other strategy are not managed as
// Jenkins job runs.
func IsPipelineStrategyBuild(build *buildv1.Build) bool {
	return build != nil && build.Spec.Strategy.JenkinsPipelineStrategy != nil
}

// IsPipelineStrategyBuildConfig returns true if the build config has the
// Jenkins pipeline strategy.
func IsPipelineStrategyBuildConfig(bc *buildv1.BuildConfig) bool {
	return bc != nil && bc.Spec.Strategy.JenkinsPipelineStrategy != nil
}

// IsBuildNew returns true if the build has not yet been accepted for
// execution. A build with an empty phase is treated as new since phase
// assignment may lag creation.
func IsBuildNew(status buildv1.BuildStatus) bool {
	return status.Phase == buildv1.BuildPhaseNew || len(status.Phase) == 0
}

// IsBuildCancelled returns true if cancellation has been requested on
// the build.
func IsBuildCancelled(status buildv1.BuildStatus) bool {
	return status.Cancelled
}

// IsBuildCancellable returns true if the build is in a phase from which
// cancellation is still meaningful.
func IsBuildCancellable(status buildv1.BuildStatus) bool {
	switch status.Phase {
	case buildv1.BuildPhaseNew, buildv1.BuildPhasePending, buildv1.BuildPhaseRunning:
		return true
	}
	return false
}
