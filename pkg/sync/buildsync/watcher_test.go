package buildsync

import (
	"testing"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/apimachinery/pkg/watch"

	buildv1 "github.com/openshift/api/build/v1"
)

type fakeBuildLister struct {
	list      *buildv1.BuildList
	err       error
	selectors []string
}

func (f *fakeBuildLister) List(namespace string, opts metav1.ListOptions) (*buildv1.BuildList, error) {
	f.selectors = append(f.selectors, opts.FieldSelector)
	return f.list, f.err
}

type fakeBuildWatcher struct {
	watcher  *watch.FakeWatcher
	versions []string
}

func (f *fakeBuildWatcher) Watch(namespace string, opts metav1.ListOptions) (watch.Interface, error) {
	f.versions = append(f.versions, opts.ResourceVersion)
	return f.watcher, nil
}

func waitForCondition(t *testing.T, what string, cond func() bool) {
	t.Helper()
	if err := wait.Poll(10*time.Millisecond, 2*time.Second, func() (bool, error) {
		return cond(), nil
	}); err != nil {
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestResyncNamespaceReplaysListingAndWatches(t *testing.T) {
	h := newTestHarness()
	h.getter.configs["test/cfg"] = pipelineConfig("cfg", "cfg-uid")
	h.bind("cfg", "cfg-uid")

	listed := pipelineBuild("listed-1", "cfg", "1")
	lister := &fakeBuildLister{
		list: &buildv1.BuildList{
			ListMeta: metav1.ListMeta{ResourceVersion: "42"},
			Items:    []buildv1.Build{*listed},
		},
	}
	watcher := &fakeBuildWatcher{watcher: watch.NewFake()}
	h.controller.buildLister = lister
	h.controller.buildWatcher = watcher

	h.controller.resyncNamespace("test")
	defer h.controller.stopWatches()

	if len(lister.selectors) != 1 || lister.selectors[0] != "status.phase=New" {
		t.Errorf("expected a phase=New listing, got %v", lister.selectors)
	}
	if len(h.handler.handled) != 1 || h.handler.handled[0].builds[0] != "listed-1" {
		t.Errorf("listed build not replayed: %v", h.handler.handled)
	}
	if len(watcher.versions) != 1 || watcher.versions[0] != "42" {
		t.Errorf("watch not resumed from the listing's resource version: %v", watcher.versions)
	}

	// live events flow into the reconciler
	watcher.watcher.Add(pipelineBuild("live-1", "cfg", "2"))
	waitForCondition(t, "live build trigger", func() bool {
		h.controller.lock.Lock()
		defer h.controller.lock.Unlock()
		return len(h.runner.triggered) == 1
	})

	// a second resync while the watch is alive does not rewatch
	h.controller.resyncNamespace("test")
	if len(watcher.versions) != 1 {
		t.Errorf("healthy watch was re-established: %v", watcher.versions)
	}

	// watch closure clears the slot so the next resync rewatches
	watcher.watcher.Stop()
	waitForCondition(t, "watch slot cleared", func() bool {
		h.controller.watchLock.Lock()
		defer h.controller.watchLock.Unlock()
		_, watching := h.controller.watches["test"]
		return !watching
	})
}

func TestResyncFlushesBeforeListing(t *testing.T) {
	h := newTestHarness()
	h.controller.buildLister = &fakeBuildLister{list: &buildv1.BuildList{}}
	watcher := &fakeBuildWatcher{watcher: watch.NewFake()}
	h.controller.buildWatcher = watcher

	// park a build, then make it resolvable
	h.controller.HandleBuildEvent(watch.Added, pipelineBuild("parked-1", "cfg", "1"))
	h.bind("cfg", "cfg-uid")

	h.controller.resync()
	defer h.controller.stopWatches()

	if len(h.runner.triggered) != 1 || h.runner.triggered[0] != "parked-1" {
		t.Errorf("pending build not flushed by resync: %v", h.runner.triggered)
	}
}
