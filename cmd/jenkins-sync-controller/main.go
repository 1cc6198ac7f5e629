package main

import (
	goflag "flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/client-go/kubernetes"
	typedcorev1 "k8s.io/client-go/kubernetes/typed/core/v1"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/tools/record"
	"k8s.io/klog"

	buildv1 "github.com/openshift/api/build/v1"
	buildclientset "github.com/openshift/client-go/build/clientset/versioned"

	"github.com/khatribharat/jenkins-sync-plugin/pkg/sync/buildsync"
	syncclient "github.com/khatribharat/jenkins-sync-plugin/pkg/sync/client"
	"github.com/khatribharat/jenkins-sync-plugin/pkg/sync/jenkins"
)

type options struct {
	kubeconfig   string
	namespaces   []string
	resyncPeriod time.Duration
	listenAddr   string

	jenkinsURL   string
	jenkinsUser  string
	jenkinsToken string
}

func (o *options) validate() error {
	if len(o.namespaces) == 0 {
		return fmt.Errorf("at least one --namespace is required")
	}
	if len(o.jenkinsURL) == 0 {
		return fmt.Errorf("--jenkins-url is required")
	}
	if o.resyncPeriod <= 0 {
		return fmt.Errorf("--resync-period must be positive")
	}
	return nil
}

func (o *options) run() error {
	config, err := clientcmd.BuildConfigFromFlags("", o.kubeconfig)
	if err != nil {
		return fmt.Errorf("building client configuration: %v", err)
	}
	buildClient, err := buildclientset.NewForConfig(config)
	if err != nil {
		return fmt.Errorf("building OpenShift build client: %v", err)
	}
	kubeClient, err := kubernetes.NewForConfig(config)
	if err != nil {
		return fmt.Errorf("building Kubernetes client: %v", err)
	}

	scheme := runtime.NewScheme()
	utilruntime.Must(corev1.AddToScheme(scheme))
	utilruntime.Must(buildv1.AddToScheme(scheme))
	eventBroadcaster := record.NewBroadcaster()
	eventBroadcaster.StartLogging(klog.V(4).Infof)
	eventBroadcaster.StartRecordingToSink(&typedcorev1.EventSinkImpl{Interface: kubeClient.CoreV1().Events("")})
	recorder := eventBroadcaster.NewRecorder(scheme, corev1.EventSource{Component: "jenkins-sync"})

	buildv1Client := buildClient.BuildV1()
	buildClientWrapper := syncclient.ClientBuildClient{Client: buildv1Client}

	runner := jenkins.NewRESTRunner(o.jenkinsURL, o.jenkinsUser, o.jenkinsToken)
	runner.PhaseUpdater = buildClientWrapper

	controller := buildsync.NewBuildSyncController(buildsync.Config{
		Namespaces:        o.namespaces,
		ResyncPeriod:      o.resyncPeriod,
		BuildLister:       buildClientWrapper,
		BuildWatcher:      buildClientWrapper,
		BuildConfigGetter: syncclient.ClientBuildConfigClient{Client: buildv1Client},
		BuildPhaseUpdater: buildClientWrapper,
		Jobs:              jenkins.NewJobMap(),
		Runner:            runner,
		ListHandler:       &jenkins.SequentialListHandler{Runner: runner},
		Recorder:          recorder,
	})

	if len(o.listenAddr) > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintln(w, "ok")
		})
		go func() {
			if err := http.ListenAndServe(o.listenAddr, mux); err != nil {
				klog.Fatalf("metrics listener failed: %v", err)
			}
		}()
	}

	stopCh := make(chan struct{})
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		close(stopCh)
	}()

	controller.Run(stopCh)
	return nil
}

func newCommand() *cobra.Command {
	o := &options{
		resyncPeriod: 5 * time.Minute,
		listenAddr:   ":8080",
	}
	cmd := &cobra.Command{
		Use:   "jenkins-sync-controller",
		Short: "Keeps Jenkins pipeline job runs in sync with OpenShift builds",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.validate(); err != nil {
				return err
			}
			return o.run()
		},
		SilenceUsage: true,
	}
	flags := cmd.Flags()
	flags.StringVar(&o.kubeconfig, "kubeconfig", o.kubeconfig, "Path to a kubeconfig; uses in-cluster configuration when empty.")
	flags.StringSliceVar(&o.namespaces, "namespace", o.namespaces, "Namespace whose builds are synced; may be repeated.")
	flags.DurationVar(&o.resyncPeriod, "resync-period", o.resyncPeriod, "Interval between relists of new builds.")
	flags.StringVar(&o.listenAddr, "listen-addr", o.listenAddr, "Address for /metrics and /healthz; empty disables the listener.")
	flags.StringVar(&o.jenkinsURL, "jenkins-url", o.jenkinsURL, "Base URL of the Jenkins master.")
	flags.StringVar(&o.jenkinsUser, "jenkins-user", o.jenkinsUser, "Username for the Jenkins remote access API.")
	flags.StringVar(&o.jenkinsToken, "jenkins-token", o.jenkinsToken, "API token for the Jenkins remote access API.")
	return cmd
}

func main() {
	klog.InitFlags(nil)
	pflag.CommandLine.AddGoFlagSet(goflag.CommandLine)

	command := newCommand()
	command.Flags().AddFlagSet(pflag.CommandLine)
	if err := command.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
