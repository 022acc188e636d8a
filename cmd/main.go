package main

import (
	"flag"
	"os"

	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	"github.com/mrrauch/glance-operator/internal/common"
	"github.com/mrrauch/glance-operator/internal/config"
	"github.com/mrrauch/glance-operator/internal/controller"
	"github.com/mrrauch/glance-operator/internal/metrics"
)

func main() {
	setupLog := ctrl.Log.WithName("setup")

	cfg, err := config.Load()
	if err != nil {
		// The logger is not configured yet.
		ctrl.SetLogger(zap.New())
		setupLog.Error(err, "unable to load configuration")
		os.Exit(1)
	}

	flag.StringVar(&cfg.MetricsAddr, "metrics-bind-address", cfg.MetricsAddr, "The address the metrics endpoint binds to.")
	flag.StringVar(&cfg.ProbeAddr, "health-probe-bind-address", cfg.ProbeAddr, "The address the probe endpoint binds to.")
	flag.BoolVar(&cfg.LeaderElect, "leader-elect", cfg.LeaderElect, "Enable leader election for the controller manager.")
	flag.StringVar(&cfg.WatchNamespace, "watch-namespace", cfg.WatchNamespace, "Namespace to watch. All namespaces when empty.")
	flag.StringVar(&cfg.PebbleSocketDir, "pebble-socket-dir", cfg.PebbleSocketDir, "Directory holding the workload containers' pebble sockets.")
	flag.DurationVar(&cfg.RequeueDelay, "requeue-delay", cfg.RequeueDelay, "Delay before retrying a configuration pass that is waiting.")
	opts := zap.Options{Development: false}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	mgrOpts := ctrl.Options{
		Scheme:                 common.SetupScheme(),
		Metrics:                metricsserver.Options{BindAddress: cfg.MetricsAddr},
		HealthProbeBindAddress: cfg.ProbeAddr,
		LeaderElection:         cfg.LeaderElect,
		LeaderElectionID:       "glance-operator.openstack.org",
	}
	if cfg.WatchNamespace != "" {
		mgrOpts.Cache = cache.Options{DefaultNamespaces: map[string]cache.Config{cfg.WatchNamespace: {}}}
	}

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), mgrOpts)
	if err != nil {
		setupLog.Error(err, "unable to create manager")
		os.Exit(1)
	}

	if err := (&controller.GlanceReconciler{
		Client:       mgr.GetClient(),
		Scheme:       mgr.GetScheme(),
		Workload:     controller.PebbleWorkload(cfg.PebbleSocket()),
		Metrics:      metrics.Default(),
		RequeueDelay: cfg.RequeueDelay,
	}).SetupWithManager(mgr); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "Glance")
		os.Exit(1)
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		os.Exit(1)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		os.Exit(1)
	}

	setupLog.Info("starting manager", "pebbleSocket", cfg.PebbleSocket())
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		setupLog.Error(err, "problem running manager")
		os.Exit(1)
	}
}
