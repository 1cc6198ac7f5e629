package buildsync

import (
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/klog"

	buildv1 "github.com/openshift/api/build/v1"
)

// Run drives the controller until stopCh closes. Every resync period
// the pending cache is flushed and each namespace is relisted; the
// relist also (re)establishes the namespace's watch from the listing's
// resource version whenever the previous watch has gone away.
func (c *BuildSyncController) Run(stopCh <-chan struct{}) {
	defer utilruntime.HandleCrash()
	defer c.stopWatches()

	klog.Infof("starting build sync for namespaces %v", c.namespaces)
	wait.Until(c.resync, c.resyncPeriod, stopCh)
	c.drainPending()
	klog.Infof("shutting down build sync")
}

func (c *BuildSyncController) drainPending() {
	c.lock.Lock()
	defer c.lock.Unlock()
	if n := c.pending.len(); n > 0 {
		klog.Infof("discarding %d builds still waiting for a job", n)
	}
	c.pending.snapshotAndClear()
}

func (c *BuildSyncController) resync() {
	// a previously unresolvable build's job may exist by now; retry
	// before listing so relisted builds do not jump the queue
	c.FlushPendingBuilds()
	for _, namespace := range c.namespaces {
		c.resyncNamespace(namespace)
	}
}

func (c *BuildSyncController) resyncNamespace(namespace string) {
	resourceVersion := "0"
	listOpts := metav1.ListOptions{
		FieldSelector: fields.OneTermEqualSelector("status.phase", string(buildv1.BuildPhaseNew)).String(),
	}
	list, err := c.buildLister.List(namespace, listOpts)
	if err != nil {
		klog.Errorf("failed to list new builds in namespace %s: %v", namespace, err)
	} else {
		builds := make([]*buildv1.Build, 0, len(list.Items))
		for i := range list.Items {
			builds = append(builds, &list.Items[i])
		}
		c.OnInitialBuilds(builds)
		resourceVersion = list.ResourceVersion
	}

	c.watchLock.Lock()
	_, watching := c.watches[namespace]
	c.watchLock.Unlock()
	if watching {
		return
	}

	klog.Infof("creating build watch for namespace %s at resource version %s", namespace, resourceVersion)
	w, err := c.buildWatcher.Watch(namespace, metav1.ListOptions{ResourceVersion: resourceVersion})
	if err != nil {
		klog.Errorf("failed to establish build watch for namespace %s: %v", namespace, err)
		return
	}
	c.watchLock.Lock()
	c.watches[namespace] = w
	c.watchLock.Unlock()
	go c.pumpEvents(namespace, w)
}

// pumpEvents feeds one namespace's watch into the reconciler until the
// channel closes; the next resync then relists and rewatches.
func (c *BuildSyncController) pumpEvents(namespace string, w watch.Interface) {
	defer c.forgetWatch(namespace, w)
	for event := range w.ResultChan() {
		c.dispatchEvent(event)
	}
	klog.V(2).Infof("build watch for namespace %s closed", namespace)
}

// dispatchEvent isolates the reconciler from a single bad event: a
// panic while handling one event is logged and the watch keeps going.
func (c *BuildSyncController) dispatchEvent(event watch.Event) {
	defer func() {
		if r := recover(); r != nil {
			utilruntime.HandleError(fmt.Errorf("recovered from panic handling build event: %v", r))
		}
	}()
	build, ok := event.Object.(*buildv1.Build)
	if !ok {
		if event.Type == watch.Error {
			klog.Warningf("build watch error event: %#v", event.Object)
		}
		return
	}
	c.HandleBuildEvent(event.Type, build)
}

func (c *BuildSyncController) forgetWatch(namespace string, w watch.Interface) {
	c.watchLock.Lock()
	defer c.watchLock.Unlock()
	if c.watches[namespace] == w {
		delete(c.watches, namespace)
	}
}

func (c *BuildSyncController) stopWatches() {
	c.watchLock.Lock()
	defer c.watchLock.Unlock()
	for namespace, w := range c.watches {
		w.Stop()
		delete(c.watches, namespace)
	}
}
