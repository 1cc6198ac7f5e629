package client

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/watch"

	buildv1 "github.com/openshift/api/build/v1"
	buildv1client "github.com/openshift/client-go/build/clientset/versioned/typed/build/v1"
)

// BuildLister provides a low-level generic interface for listing builds.
type BuildLister interface {
	List(namespace string, opts metav1.ListOptions) (*buildv1.BuildList, error)
}

// BuildWatcher opens a watch for builds in a namespace.
type BuildWatcher interface {
	Watch(namespace string, opts metav1.ListOptions) (watch.Interface, error)
}

// BuildConfigGetter performs a point lookup of a build config.
type BuildConfigGetter interface {
	Get(namespace, name string) (*buildv1.BuildConfig, error)
}

// BuildPhaseUpdater writes a phase transition to a build's status
// subresource.
type BuildPhaseUpdater interface {
	UpdateBuildPhase(build *buildv1.Build, phase buildv1.BuildPhase) error
}

// ClientBuildClient delegates build operations to an OpenShift build
// client.
type ClientBuildClient struct {
	Client buildv1client.BuildV1Interface
}

var _ BuildLister = &ClientBuildClient{}
var _ BuildWatcher = &ClientBuildClient{}
var _ BuildPhaseUpdater = &ClientBuildClient{}

// List lists the builds in a namespace using the OpenShift client.
func (c ClientBuildClient) List(namespace string, opts metav1.ListOptions) (*buildv1.BuildList, error) {
	return c.Client.Builds(namespace).List(opts)
}

// Watch watches builds in a namespace using the OpenShift client.
func (c ClientBuildClient) Watch(namespace string, opts metav1.ListOptions) (watch.Interface, error) {
	return c.Client.Builds(namespace).Watch(opts)
}

// UpdateBuildPhase records the given phase on the build's status
// subresource. The build object passed in is not mutated.
func (c ClientBuildClient) UpdateBuildPhase(build *buildv1.Build, phase buildv1.BuildPhase) error {
	updated := build.DeepCopy()
	updated.Status.Phase = phase
	_, err := c.Client.Builds(updated.Namespace).UpdateStatus(updated)
	return err
}

// ClientBuildConfigClient delegates build config lookups to an OpenShift
// build client.
type ClientBuildConfigClient struct {
	Client buildv1client.BuildV1Interface
}

var _ BuildConfigGetter = &ClientBuildConfigClient{}

// Get returns the named build config using the OpenShift client.
func (c ClientBuildConfigClient) Get(namespace, name string) (*buildv1.BuildConfig, error) {
	return c.Client.BuildConfigs(namespace).Get(name, metav1.GetOptions{})
}
