package jenkins

import (
	"fmt"
	"path"
	"strings"

	buildv1 "github.com/openshift/api/build/v1"

	"github.com/khatribharat/jenkins-sync-plugin/pkg/sync/buildutil"
)

const (
	// DefaultJenkinsfilePath is the location of the pipeline script in
	// the source repository when the build config does not name one.
	DefaultJenkinsfilePath = "Jenkinsfile"

	// GroovySandboxAnnotation disables the groovy sandbox for inline
	// pipeline scripts when set to "false" on the BuildConfig.
	GroovySandboxAnnotation = "jenkins.openshift.org/groovy-sandbox"
)

// FlowDefinition describes how Jenkins obtains the pipeline script for
// a job: either an inline script, or a path within the build config's
// git source.
type FlowDefinition struct {
	// Script is the inline pipeline script. When set the SCM fields are
	// empty.
	Script  string
	Sandbox bool

	// ScriptPath locates the pipeline script within the repository at
	// GitURI. Populated only when Script is empty.
	ScriptPath string
	GitURI     string
	GitRef     string
}

// FlowFromBuildConfig maps a pipeline-strategy BuildConfig to the flow
// definition of its Jenkins job. An inline Jenkinsfile takes precedence
// over a script path in the git source. A non-pipeline config yields
// nil with no error.
//
// The BuildConfig watcher that creates and updates jobs in Jenkins is
// the consumer of this mapping; the build controller in this binary
// only binds existing jobs, so nothing under cmd calls it directly.
func FlowFromBuildConfig(bc *buildv1.BuildConfig) (*FlowDefinition, error) {
	if !buildutil.IsPipelineStrategyBuildConfig(bc) {
		return nil, nil
	}

	strategy := bc.Spec.Strategy.JenkinsPipelineStrategy
	if len(strategy.Jenkinsfile) > 0 {
		sandbox := true
		if flag, exists := bc.Annotations[GroovySandboxAnnotation]; exists && strings.EqualFold(flag, "false") {
			sandbox = false
		}
		return &FlowDefinition{Script: strategy.Jenkinsfile, Sandbox: sandbox}, nil
	}

	source := bc.Spec.Source
	if source.Git == nil || len(source.Git.URI) == 0 {
		return nil, fmt.Errorf("build config %s/%s has no inline pipeline script and no git source", bc.Namespace, bc.Name)
	}
	scriptPath := strategy.JenkinsfilePath
	if len(scriptPath) == 0 {
		scriptPath = DefaultJenkinsfilePath
	}
	if len(source.ContextDir) > 0 {
		scriptPath = path.Join(source.ContextDir, scriptPath)
	}
	return &FlowDefinition{
		ScriptPath: scriptPath,
		GitURI:     source.Git.URI,
		GitRef:     source.Git.Ref,
	}, nil
}
