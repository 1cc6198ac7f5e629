package jenkins

import (
	"testing"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	buildv1 "github.com/openshift/api/build/v1"
)

func pipelineBuildConfig() *buildv1.BuildConfig {
	bc := &buildv1.BuildConfig{
		ObjectMeta: metav1.ObjectMeta{Namespace: "test", Name: "frontend"},
	}
	bc.Spec.Strategy.JenkinsPipelineStrategy = &buildv1.JenkinsPipelineBuildStrategy{}
	return bc
}

func TestFlowFromBuildConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*buildv1.BuildConfig)
		expect    *FlowDefinition
		expectErr bool
		expectNil bool
	}{
		{
			name: "not a pipeline config",
			mutate: func(bc *buildv1.BuildConfig) {
				bc.Spec.Strategy.JenkinsPipelineStrategy = nil
				bc.Spec.Strategy.DockerStrategy = &buildv1.DockerBuildStrategy{}
			},
			expectNil: true,
		},
		{
			name: "inline script sandboxed by default",
			mutate: func(bc *buildv1.BuildConfig) {
				bc.Spec.Strategy.JenkinsPipelineStrategy.Jenkinsfile = "node {}"
			},
			expect: &FlowDefinition{Script: "node {}", Sandbox: true},
		},
		{
			name: "inline script with sandbox disabled",
			mutate: func(bc *buildv1.BuildConfig) {
				bc.Spec.Strategy.JenkinsPipelineStrategy.Jenkinsfile = "node {}"
				bc.Annotations = map[string]string{GroovySandboxAnnotation: "False"}
			},
			expect: &FlowDefinition{Script: "node {}", Sandbox: false},
		},
		{
			name: "git source with default path",
			mutate: func(bc *buildv1.BuildConfig) {
				bc.Spec.Source.Git = &buildv1.GitBuildSource{URI: "https://example.com/repo.git", Ref: "main"}
			},
			expect: &FlowDefinition{ScriptPath: "Jenkinsfile", GitURI: "https://example.com/repo.git", GitRef: "main"},
		},
		{
			name: "git source with context dir and explicit path",
			mutate: func(bc *buildv1.BuildConfig) {
				bc.Spec.Source.Git = &buildv1.GitBuildSource{URI: "https://example.com/repo.git"}
				bc.Spec.Source.ContextDir = "services/frontend"
				bc.Spec.Strategy.JenkinsPipelineStrategy.JenkinsfilePath = "ci/Jenkinsfile"
			},
			expect: &FlowDefinition{ScriptPath: "services/frontend/ci/Jenkinsfile", GitURI: "https://example.com/repo.git"},
		},
		{
			name:      "no script and no source",
			mutate:    func(bc *buildv1.BuildConfig) {},
			expectErr: true,
		},
	}

	for _, tc := range tests {
		bc := pipelineBuildConfig()
		tc.mutate(bc)
		flow, err := FlowFromBuildConfig(bc)
		if tc.expectErr {
			if err == nil {
				t.Errorf("%s: expected error", tc.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
			continue
		}
		if tc.expectNil {
			if flow != nil {
				t.Errorf("%s: expected nil flow, got %#v", tc.name, flow)
			}
			continue
		}
		if *flow != *tc.expect {
			t.Errorf("%s: expected %#v, got %#v", tc.name, tc.expect, flow)
		}
	}
}
