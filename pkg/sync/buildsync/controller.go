package buildsync

import (
	"fmt"
	"sync"
	"time"

	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/tools/record"
	"k8s.io/klog"

	buildv1 "github.com/openshift/api/build/v1"
	corev1 "k8s.io/api/core/v1"

	"github.com/khatribharat/jenkins-sync-plugin/pkg/sync/buildutil"
	"github.com/khatribharat/jenkins-sync-plugin/pkg/sync/client"
	"github.com/khatribharat/jenkins-sync-plugin/pkg/sync/jenkins"
)

// Config carries the collaborators and settings for a
// BuildSyncController.
type Config struct {
	// Namespaces are the namespaces whose builds are synced.
	Namespaces []string

	// ResyncPeriod is the interval of the relist/flush timer task.
	ResyncPeriod time.Duration

	BuildLister       client.BuildLister
	BuildWatcher      client.BuildWatcher
	BuildConfigGetter client.BuildConfigGetter
	BuildPhaseUpdater client.BuildPhaseUpdater

	Jobs        *jenkins.JobMap
	Runner      jenkins.JobRunner
	ListHandler jenkins.BuildListHandler

	Recorder record.EventRecorder
}

// BuildSyncController keeps Jenkins job runs in sync with OpenShift
// builds. Two independent paths feed it: a periodic relist of new-phase
// builds, and per-namespace watches delivering live events. Builds and
// build configs arrive on channels with no mutual ordering, so a build
// whose config has no Jenkins job yet is parked in a pending cache and
// retried on every relist and on every modify event.
//
// All reconciliation runs under one mutex. Events for different builds
// serialize against each other, which keeps the cache invariants simple
// at the cost of throughput; a stalled remote call stalls the engine,
// and the next relist catches up.
type BuildSyncController struct {
	lock sync.Mutex

	namespaces   []string
	resyncPeriod time.Duration

	buildLister       client.BuildLister
	buildWatcher      client.BuildWatcher
	buildConfigGetter client.BuildConfigGetter
	buildPhaseUpdater client.BuildPhaseUpdater

	jobs        *jenkins.JobMap
	runner      jenkins.JobRunner
	listHandler jenkins.BuildListHandler
	recorder    record.EventRecorder

	pending     *pendingBuildCache
	deleteLocks *uidLockRegistry

	watchLock sync.Mutex
	watches   map[string]watch.Interface
}

func NewBuildSyncController(cfg Config) *BuildSyncController {
	return &BuildSyncController{
		namespaces:        cfg.Namespaces,
		resyncPeriod:      cfg.ResyncPeriod,
		buildLister:       cfg.BuildLister,
		buildWatcher:      cfg.BuildWatcher,
		buildConfigGetter: cfg.BuildConfigGetter,
		buildPhaseUpdater: cfg.BuildPhaseUpdater,
		jobs:              cfg.Jobs,
		runner:            cfg.Runner,
		listHandler:       cfg.ListHandler,
		recorder:          cfg.Recorder,
		pending:           newPendingBuildCache(),
		deleteLocks:       newUIDLockRegistry(),
		watches:           make(map[string]watch.Interface),
	}
}

// HandleBuildEvent processes a single watch event. Errors are logged at
// this boundary; a bad event never takes the watch loop down.
func (c *BuildSyncController) HandleBuildEvent(eventType watch.EventType, build *buildv1.Build) {
	if !buildutil.IsPipelineStrategyBuild(build) {
		return
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	var err error
	switch eventType {
	case watch.Added:
		_, err = c.handleBuildAdd(build)
	case watch.Modified:
		err = c.handleBuildModify(build)
	case watch.Deleted:
		err = c.handleBuildDelete(build)
	}
	if err != nil {
		utilruntime.HandleError(fmt.Errorf("error handling %s event for build %s/%s: %v", eventType, build.Namespace, build.Name, err))
	}
}

// handleBuildAdd decides whether a new build starts a job run. It
// returns whether a run was triggered.
func (c *BuildSyncController) handleBuildAdd(build *buildv1.Build) (bool, error) {
	if buildutil.IsBuildCancelled(build.Status) {
		// never ran; record the terminal phase on the cluster instead
		// of triggering
		return false, c.buildPhaseUpdater.UpdateBuildPhase(build, buildv1.BuildPhaseCancelled)
	}
	if !buildutil.IsBuildNew(build.Status) {
		// replayed event for a build already past the triggerable point
		return false, nil
	}

	job := c.jobs.JobForBuild(build)
	if job == nil {
		klog.V(2).Infof("skipping build %s/%s, no job at this time", build.Namespace, build.Name)
		c.pending.add(build)
		return false, nil
	}
	return c.triggerJob(job, build)
}

// handleBuildModify cancels the run of a build whose cancellation was
// requested. Any other modification is treated as a hint that build
// config state may have changed and pending builds may now resolve.
func (c *BuildSyncController) handleBuildModify(build *buildv1.Build) error {
	if buildutil.IsBuildCancellable(build.Status) && buildutil.IsBuildCancelled(build.Status) {
		job := c.jobs.JobForBuild(build)
		if job == nil {
			// cancelled before its job ever existed; it must not be
			// triggered by a later flush
			c.pending.remove(build)
			return nil
		}
		// the build may have been parked before the job existed; a
		// cancelled build must never be triggered by a later flush
		c.pending.remove(build)
		if err := c.runner.Cancel(job, build, false); err != nil {
			c.recorder.Eventf(build, corev1.EventTypeWarning, "CancelFailed", "Failed to cancel Jenkins run for build %s/%s: %v", build.Namespace, build.Name, err)
			return err
		}
		cancelledBuildsCounter.Inc()
		return nil
	}
	c.flushPendingLocked()
	return nil
}

// OnInitialBuilds replays an unordered listing of new builds. The
// builds are ordered by build number and grouped per build config so
// the per-config handler can apply the config's run policy against the
// true historical sequence.
func (c *BuildSyncController) OnInitialBuilds(builds []*buildv1.Build) {
	c.lock.Lock()
	defer c.lock.Unlock()

	sortBuildsByNumber(builds)
	for _, group := range groupBuildsByConfig(builds, c.buildConfigGetter) {
		bc := group.config
		job := c.jobs.JobFor(bc.Namespace, bc.Name)
		if job == nil {
			for _, build := range group.builds {
				klog.V(2).Infof("skipping listed new build %s/%s, no job at this time", build.Namespace, build.Name)
				c.pending.add(build)
			}
			continue
		}
		if err := c.listHandler.HandleBuildList(job, group.builds); err != nil {
			utilruntime.HandleError(fmt.Errorf("error handling builds of config %s/%s: %v", bc.Namespace, bc.Name, err))
		}
	}
}

// FlushPendingBuilds retries builds that arrived before their config's
// job existed.
func (c *BuildSyncController) FlushPendingBuilds() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.flushPendingLocked()
}

func (c *BuildSyncController) flushPendingLocked() {
	snapshot := c.pending.snapshotAndClear()
	// retry oldest builds first so runs start in execution order
	sortBuildsByNumber(snapshot)
	for _, build := range snapshot {
		job := c.jobs.JobForBuild(build)
		if job == nil {
			c.pending.add(build)
			continue
		}
		klog.V(2).Infof("triggering job run for previously skipped build %s/%s", build.Namespace, build.Name)
		if _, err := c.triggerJob(job, build); err != nil {
			klog.Warningf("flush of build %s/%s failed: %v", build.Namespace, build.Name, err)
		}
	}
}

func (c *BuildSyncController) triggerJob(job *jenkins.Job, build *buildv1.Build) (bool, error) {
	started, err := c.runner.Trigger(job, build)
	if err != nil {
		c.recorder.Eventf(build, corev1.EventTypeWarning, "TriggerFailed", "Failed to trigger Jenkins job %s for build %s/%s: %v", job.Name, build.Namespace, build.Name, err)
		return false, err
	}
	if started {
		triggeredBuildsCounter.Inc()
	}
	return started, nil
}
