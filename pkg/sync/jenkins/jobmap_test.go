package jenkins

import (
	"testing"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"

	buildv1 "github.com/openshift/api/build/v1"
	corev1 "k8s.io/api/core/v1"
)

func testBuildConfig(namespace, name string, uid types.UID) *buildv1.BuildConfig {
	return &buildv1.BuildConfig{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name, UID: uid},
	}
}

func TestJobMapBindAndLookup(t *testing.T) {
	m := NewJobMap()
	bc := testBuildConfig("test", "frontend", types.UID("uid-1"))
	job := &Job{Name: "test-frontend"}
	m.Bind(bc, job)

	if got := m.JobFor("test", "frontend"); got != job {
		t.Errorf("expected job by name, got %v", got)
	}
	if got := m.JobForUID(types.UID("uid-1")); got != job {
		t.Errorf("expected job by uid, got %v", got)
	}
	if job.BuildConfigNamespace != "test" || job.BuildConfigName != "frontend" || job.BuildConfigUID != types.UID("uid-1") {
		t.Errorf("bind did not record build config identity: %#v", job)
	}
	if got := m.JobFor("test", "backend"); got != nil {
		t.Errorf("expected no job for unbound config, got %v", got)
	}

	m.Unbind("test", "frontend", types.UID("uid-1"))
	if m.JobFor("test", "frontend") != nil || m.JobForUID(types.UID("uid-1")) != nil {
		t.Errorf("unbind left stale entries")
	}
}

func TestJobForBuild(t *testing.T) {
	m := NewJobMap()
	bc := testBuildConfig("test", "frontend", types.UID("uid-1"))
	job := &Job{Name: "test-frontend"}
	m.Bind(bc, job)

	byStatus := &buildv1.Build{
		ObjectMeta: metav1.ObjectMeta{Namespace: "test", Name: "frontend-1"},
		Status: buildv1.BuildStatus{
			Config: &corev1.ObjectReference{Name: "frontend"},
		},
	}
	if got := m.JobForBuild(byStatus); got != job {
		t.Errorf("expected resolution through status config name, got %v", got)
	}

	byOwnerUID := &buildv1.Build{
		ObjectMeta: metav1.ObjectMeta{
			Namespace: "test",
			Name:      "frontend-2",
			OwnerReferences: []metav1.OwnerReference{
				{Kind: "BuildConfig", UID: types.UID("uid-1")},
			},
		},
	}
	if got := m.JobForBuild(byOwnerUID); got != job {
		t.Errorf("expected resolution through owner reference uid, got %v", got)
	}

	orphan := &buildv1.Build{
		ObjectMeta: metav1.ObjectMeta{Namespace: "test", Name: "orphan-1"},
	}
	if got := m.JobForBuild(orphan); got != nil {
		t.Errorf("expected no job for orphan build, got %v", got)
	}
}
