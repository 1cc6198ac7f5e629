package buildsync

import (
	"sync"

	"k8s.io/apimachinery/pkg/types"
	"k8s.io/klog"

	buildv1 "github.com/openshift/api/build/v1"

	"github.com/khatribharat/jenkins-sync-plugin/pkg/sync/buildutil"
)

// uidLockRegistry maps a BuildConfig uid to a canonical mutex. Build
// deletion and build config deletion may race on the same owner; both
// paths lock the owner's uid so cleanup runs at most once per owner.
// Equal uid values arriving through different event objects must map to
// the identical mutex, hence a registry rather than per-string locks.
// Entries are refcounted and dropped once the last holder releases, so
// the map does not grow with every owner ever deleted against.
type uidLockRegistry struct {
	lock    sync.Mutex
	entries map[types.UID]*uidLockEntry
}

type uidLockEntry struct {
	mu   sync.Mutex
	refs int
}

func newUIDLockRegistry() *uidLockRegistry {
	return &uidLockRegistry{entries: make(map[types.UID]*uidLockEntry)}
}

// lockFor returns the mutex for the given uid, creating it on first
// use. Every lockFor must be paired with a release.
func (r *uidLockRegistry) lockFor(uid types.UID) *sync.Mutex {
	r.lock.Lock()
	defer r.lock.Unlock()
	entry, exists := r.entries[uid]
	if !exists {
		entry = &uidLockEntry{}
		r.entries[uid] = entry
	}
	entry.refs++
	return &entry.mu
}

// release drops a reference taken by lockFor and reclaims the entry
// when no holder remains.
func (r *uidLockRegistry) release(uid types.UID) {
	r.lock.Lock()
	defer r.lock.Unlock()
	entry, exists := r.entries[uid]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(r.entries, uid)
	}
}

// handleBuildDelete drives the cleanup of the Jenkins job run a deleted
// build is mapped one to one with. When the build carries a BuildConfig
// owner reference the cleanup serializes, via the owner's uid lock,
// with concurrent build config deletion; if that path already tore the
// whole job down there is nothing left to do here.
func (c *BuildSyncController) handleBuildDelete(build *buildv1.Build) error {
	if uid := buildutil.BuildConfigOwnerUID(build); len(uid) > 0 {
		mu := c.deleteLocks.lockFor(uid)
		mu.Lock()
		defer c.deleteLocks.release(uid)
		defer mu.Unlock()
		if c.jobs.JobForUID(uid) == nil {
			klog.V(4).Infof("job for build config %s already removed, nothing to clean up for build %s/%s", uid, build.Namespace, build.Name)
			return nil
		}
		return c.innerHandleBuildDelete(build)
	}
	// no parent build config to race with, just clean up
	return c.innerHandleBuildDelete(build)
}

// innerHandleBuildDelete cancels the run for the deleted build. The
// cancel is forced: the build record is already gone from the cluster,
// so no status is written back, and the call must not depend on any
// end-user context since it runs off a background watch callback.
func (c *BuildSyncController) innerHandleBuildDelete(build *buildv1.Build) error {
	job := c.jobs.JobForBuild(build)
	if job == nil {
		// build was created and deleted before its config was ever
		// seen; make sure it cannot be triggered later
		c.pending.remove(build)
		return nil
	}
	if err := c.runner.Cancel(job, build, true); err != nil {
		return err
	}
	cancelledBuildsCounter.Inc()
	return nil
}
