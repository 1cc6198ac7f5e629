package buildsync

import (
	"k8s.io/apimachinery/pkg/types"

	buildv1 "github.com/openshift/api/build/v1"

	"github.com/khatribharat/jenkins-sync-plugin/pkg/sync/buildutil"
)

// pendingBuildKey identifies a cached build. The uid distinguishes a
// deleted and recreated build of the same name.
type pendingBuildKey struct {
	namespace string
	name      string
	uid       types.UID
}

func keyForBuild(build *buildv1.Build) pendingBuildKey {
	return pendingBuildKey{namespace: build.Namespace, name: build.Name, uid: build.UID}
}

// pendingBuildCache holds builds whose watch events arrived before a
// Jenkins job existed for their build config. Watch events for builds
// and build configs are delivered on independent channels with no
// ordering between them, so a build can be seen minutes before its
// config; parking it here avoids waiting a whole relist interval before
// the job run starts.
//
// The cache is not self locking. All access happens under the
// controller's mutex.
type pendingBuildCache struct {
	builds map[pendingBuildKey]*buildv1.Build
}

func newPendingBuildCache() *pendingBuildCache {
	return &pendingBuildCache{builds: make(map[pendingBuildKey]*buildv1.Build)}
}

// add inserts the build, replacing any earlier snapshot of the same
// build. Non-pipeline builds are never cached.
func (c *pendingBuildCache) add(build *buildv1.Build) {
	if !buildutil.IsPipelineStrategyBuild(build) {
		return
	}
	c.builds[keyForBuild(build)] = build
	pendingBuildsGauge.Set(float64(len(c.builds)))
}

// remove drops the build if present.
func (c *pendingBuildCache) remove(build *buildv1.Build) {
	delete(c.builds, keyForBuild(build))
	pendingBuildsGauge.Set(float64(len(c.builds)))
}

// snapshotAndClear atomically swaps the current contents for an empty
// set and returns what was held. Flushing retries against the snapshot
// and re-adds unresolvable builds, so a build is never lost between the
// swap and the retry, and a flush racing new insertions cannot loop.
func (c *pendingBuildCache) snapshotAndClear() []*buildv1.Build {
	snapshot := make([]*buildv1.Build, 0, len(c.builds))
	for _, build := range c.builds {
		snapshot = append(snapshot, build)
	}
	c.builds = make(map[pendingBuildKey]*buildv1.Build)
	pendingBuildsGauge.Set(0)
	return snapshot
}

func (c *pendingBuildCache) len() int {
	return len(c.builds)
}
