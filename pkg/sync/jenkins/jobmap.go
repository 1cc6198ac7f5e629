package jenkins

import (
	"sync"

	"k8s.io/apimachinery/pkg/types"

	buildv1 "github.com/openshift/api/build/v1"

	"github.com/khatribharat/jenkins-sync-plugin/pkg/sync/buildutil"
)

// JobMap is the registry binding BuildConfigs to their Jenkins jobs. It
// is indexed both by namespace/name and by BuildConfig UID so that build
// deletion, which may arrive after the config object is gone, can still
// resolve the job through the owner reference uid.
//
// A bound job is visible to lookups as soon as Bind returns.
type JobMap struct {
	lock   sync.RWMutex
	byName map[string]*Job
	byUID  map[types.UID]*Job
}

func NewJobMap() *JobMap {
	return &JobMap{
		byName: make(map[string]*Job),
		byUID:  make(map[types.UID]*Job),
	}
}

func namespacedName(namespace, name string) string {
	return namespace + "/" + name
}

// Bind associates the job with the given BuildConfig.
func (m *JobMap) Bind(bc *buildv1.BuildConfig, job *Job) {
	job.BuildConfigNamespace = bc.Namespace
	job.BuildConfigName = bc.Name
	job.BuildConfigUID = bc.UID

	m.lock.Lock()
	defer m.lock.Unlock()
	m.byName[namespacedName(bc.Namespace, bc.Name)] = job
	if len(bc.UID) > 0 {
		m.byUID[bc.UID] = job
	}
}

// Unbind removes any job bound to the given BuildConfig identity.
func (m *JobMap) Unbind(namespace, name string, uid types.UID) {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.byName, namespacedName(namespace, name))
	if len(uid) > 0 {
		delete(m.byUID, uid)
	}
}

// JobFor returns the job bound to the BuildConfig with the given
// namespace and name, or nil.
func (m *JobMap) JobFor(namespace, name string) *Job {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.byName[namespacedName(namespace, name)]
}

// JobForUID returns the job bound to the BuildConfig with the given
// uid, or nil.
func (m *JobMap) JobForUID(uid types.UID) *Job {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.byUID[uid]
}

// JobForBuild resolves the job owning the given build, first through
// the build's declared config name and then through its BuildConfig
// owner reference uid.
func (m *JobMap) JobForBuild(build *buildv1.Build) *Job {
	if name := buildutil.ConfigNameForBuild(build); len(name) > 0 {
		if job := m.JobFor(build.Namespace, name); job != nil {
			return job
		}
	}
	if uid := buildutil.BuildConfigOwnerUID(build); len(uid) > 0 {
		return m.JobForUID(uid)
	}
	return nil
}
