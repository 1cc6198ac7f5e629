package jenkins

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"k8s.io/klog"

	buildv1 "github.com/openshift/api/build/v1"

	"github.com/khatribharat/jenkins-sync-plugin/pkg/sync/buildutil"
)

// RESTRunner drives job runs through the Jenkins remote access API.
// Triggering is at most once per build identity: replayed watch events
// and repeated cache flushes for a build that was already started do not
// start a second run.
type RESTRunner struct {
	baseURL  string
	username string
	apiToken string
	client   *http.Client

	// PhaseUpdater, when set, records a Cancelled phase on the cluster
	// build after a successful cancel. Forced cancels skip it.
	PhaseUpdater PhaseUpdater

	lock      sync.Mutex
	triggered map[string]struct{}
}

func NewRESTRunner(baseURL, username, apiToken string) *RESTRunner {
	return &RESTRunner{
		baseURL:   strings.TrimRight(baseURL, "/"),
		username:  username,
		apiToken:  apiToken,
		client:    &http.Client{Timeout: 30 * time.Second},
		triggered: make(map[string]struct{}),
	}
}

// buildKey identifies a build across replayed events. The uid is
// preferred; recreated builds with the same name get distinct keys.
func buildKey(build *buildv1.Build) string {
	if len(build.UID) > 0 {
		return string(build.UID)
	}
	return build.Namespace + "/" + build.Name
}

func (r *RESTRunner) post(path string, params url.Values) (*http.Response, error) {
	endpoint := r.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequest(http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if len(r.username) > 0 {
		req.SetBasicAuth(r.username, r.apiToken)
	}
	return r.client.Do(req)
}

// Trigger implements JobRunner.
func (r *RESTRunner) Trigger(job *Job, build *buildv1.Build) (bool, error) {
	key := buildKey(build)
	r.lock.Lock()
	if _, exists := r.triggered[key]; exists {
		r.lock.Unlock()
		klog.V(4).Infof("build %s/%s already triggered, ignoring", build.Namespace, build.Name)
		return false, nil
	}
	r.triggered[key] = struct{}{}
	r.lock.Unlock()

	params := url.Values{}
	params.Set("BUILD_NAME", build.Name)
	params.Set("BUILD_NAMESPACE", build.Namespace)
	resp, err := r.post(fmt.Sprintf("/job/%s/buildWithParameters", url.PathEscape(job.Name)), params)
	if err != nil {
		// allow a later flush to retry
		r.lock.Lock()
		delete(r.triggered, key)
		r.lock.Unlock()
		return false, fmt.Errorf("triggering job %s for build %s/%s: %v", job.Name, build.Namespace, build.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		r.lock.Lock()
		delete(r.triggered, key)
		r.lock.Unlock()
		return false, fmt.Errorf("triggering job %s for build %s/%s: unexpected status %s", job.Name, build.Namespace, build.Name, resp.Status)
	}
	klog.V(2).Infof("triggered job %s for build %s/%s", job.Name, build.Namespace, build.Name)
	return true, nil
}

// Cancel implements JobRunner.
func (r *RESTRunner) Cancel(job *Job, build *buildv1.Build, force bool) error {
	num, err := buildutil.BuildNumber(build)
	if err != nil {
		if force {
			klog.Warningf("cannot determine run number while force cancelling build %s/%s: %v", build.Namespace, build.Name, err)
			return nil
		}
		return err
	}
	resp, err := r.post(fmt.Sprintf("/job/%s/%d/stop", url.PathEscape(job.Name), num), nil)
	if err != nil {
		return fmt.Errorf("cancelling job %s run %d for build %s/%s: %v", job.Name, num, build.Namespace, build.Name, err)
	}
	defer resp.Body.Close()
	// a run that never started or is already finished is not an error
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("cancelling job %s run %d for build %s/%s: unexpected status %s", job.Name, num, build.Namespace, build.Name, resp.Status)
	}
	if !force && r.PhaseUpdater != nil {
		if err := r.PhaseUpdater.UpdateBuildPhase(build, buildv1.BuildPhaseCancelled); err != nil {
			return err
		}
	}
	klog.V(2).Infof("cancelled job %s run %d for build %s/%s", job.Name, num, build.Namespace, build.Name)
	return nil
}
