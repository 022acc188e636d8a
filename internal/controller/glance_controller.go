package controller

import (
	"context"
	"errors"
	"time"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/equality"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"
	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"

	glancev1alpha1 "github.com/mrrauch/glance-operator/api/v1alpha1"
	"github.com/mrrauch/glance-operator/internal/charm"
	"github.com/mrrauch/glance-operator/internal/common"
	"github.com/mrrauch/glance-operator/internal/metrics"
	"github.com/mrrauch/glance-operator/internal/pebble"
	"github.com/mrrauch/glance-operator/internal/relation"
	"github.com/mrrauch/glance-operator/internal/storage"
	"github.com/mrrauch/glance-operator/internal/templating"
)

const (
	serviceName  = "glance-api"
	serviceUser  = "glance"
	serviceGroup = "glance"

	defaultRequeueDelay = 10 * time.Second
)

// Workload is the glance-api container as seen by the reconciler.
type Workload interface {
	charm.Supervisor
	templating.FileWriter
}

// WorkloadFactory returns the workload of an instance.
type WorkloadFactory func(ctx context.Context, instance *glancev1alpha1.Glance) (Workload, error)

// PebbleWorkload returns a factory supervising glance-api through the pebble
// daemon listening on socket.
func PebbleWorkload(socket string) WorkloadFactory {
	return func(ctx context.Context, instance *glancev1alpha1.Glance) (Workload, error) {
		c, err := pebble.Dial(socket)
		if err != nil {
			return nil, err
		}
		return pebble.NewSupervisor(c, serviceName), nil
	}
}

// GlanceReconciler reconciles a Glance object.
type GlanceReconciler struct {
	client.Client
	Scheme *runtime.Scheme

	Workload     WorkloadFactory
	Metrics      *metrics.Recorder
	Evaluator    storage.Evaluator
	RequeueDelay time.Duration
}

// +kubebuilder:rbac:groups=openstack.k8s.io,resources=glances,verbs=get;list;watch;update;patch
// +kubebuilder:rbac:groups=openstack.k8s.io,resources=glances/status,verbs=get;update;patch
// +kubebuilder:rbac:groups="",resources=secrets;services;persistentvolumeclaims,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=batch,resources=jobs,verbs=get;list;watch;create;delete
// +kubebuilder:rbac:groups=gateway.networking.k8s.io,resources=httproutes,verbs=get;list;watch;create;update;patch

// Reconcile runs one configuration pass for a Glance instance.
func (r *GlanceReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	logger := log.FromContext(ctx)

	instance := &glancev1alpha1.Glance{}
	if err := r.Get(ctx, req.NamespacedName, instance); err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}

	// Handle deletion
	if !instance.DeletionTimestamp.IsZero() {
		if common.HasFinalizer(instance, common.FinalizerName) {
			r.metrics().Forget(instance.Namespace, instance.Name)
			common.RemoveFinalizer(instance, common.FinalizerName)
			if err := r.Update(ctx, instance); err != nil {
				return ctrl.Result{}, err
			}
		}
		return ctrl.Result{}, nil
	}

	// Ensure finalizer
	if !common.HasFinalizer(instance, common.FinalizerName) {
		common.AddFinalizer(instance, common.FinalizerName)
		if err := r.Update(ctx, instance); err != nil {
			return ctrl.Result{}, err
		}
		return ctrl.Result{Requeue: true}, nil
	}

	orch, sink, err := r.orchestrator(ctx, instance)
	if err != nil {
		return ctrl.Result{}, err
	}

	event := eventFor(instance)
	logger = logger.WithValues("event", event.Kind)
	ctx = log.IntoContext(ctx, logger)

	result, cfgErr := orch.ConfigureService(ctx, event, charm.State{Bootstrapped: instance.Status.Bootstrapped})
	r.metrics().ObserveConfigure(string(result.Phase))
	if result.Phase != charm.PhaseWaitingOnRelations {
		r.metrics().SetBackend(instance.Namespace, instance.Name, backendName(result.Verdict))
	}

	before := instance.Status.DeepCopy()
	applyResult(instance, result, sink, cfgErr)
	if !equality.Semantic.DeepEqual(before, &instance.Status) {
		if err := r.Status().Update(ctx, instance); err != nil {
			logger.Error(err, "failed to update status")
			return ctrl.Result{}, err
		}
		if ready := common.IsReady(instance.Status.Conditions); ready != common.IsReady(before.Conditions) {
			logger.Info("Readiness changed", "ready", ready, "phase", result.Phase)
		}
	}

	if cfgErr != nil {
		logger.Error(cfgErr, "Configuration failed", "phase", result.Phase)
		return ctrl.Result{}, cfgErr
	}
	if result.Phase.Waiting() {
		return ctrl.Result{RequeueAfter: r.requeueDelay()}, nil
	}
	return ctrl.Result{}, nil
}

// orchestrator observes every relation and storage of the instance and
// returns the orchestrator for one pass.
func (r *GlanceReconciler) orchestrator(ctx context.Context, instance *glancev1alpha1.Glance) (*charm.Orchestrator, *conditionSink, error) {
	local := &relation.LocalRepository{Client: r.Client}
	if err := local.Ensure(ctx, instance); err != nil {
		return nil, nil, err
	}

	handlers := []relation.Handler{
		&relation.Database{Client: r.Client},
		&relation.Identity{Client: r.Client},
		&relation.Ingress{Client: r.Client},
	}
	relations := make([]charm.Relation, 0, len(handlers))
	for _, h := range handlers {
		state, err := h.Observe(ctx, instance)
		if err != nil {
			return nil, nil, err
		}
		relations = append(relations, state)
	}

	ceph, err := (&relation.Ceph{Client: r.Client}).Observe(ctx, instance)
	if err != nil {
		return nil, nil, err
	}
	attached, err := local.Count(ctx, instance)
	if err != nil {
		return nil, nil, err
	}

	workload, err := r.Workload(ctx, instance)
	if err != nil {
		return nil, nil, err
	}

	sink := &conditionSink{}
	return &charm.Orchestrator{
		Config: charm.Config{
			AppName:      instance.Name,
			ReleaseLabel: instance.Release(),
			Debug:        instance.Spec.Debug,
			APIPort:      relation.APIPort,
			ServiceUser:  serviceUser,
			ServiceGroup: serviceGroup,
			RBDPool:      relation.RBDPool(instance),
		},
		Evaluator:       r.Evaluator,
		Relations:       relations,
		StorageRelation: ceph,
		Storage: charm.StorageInventoryFunc(func(name string) int {
			if name != relation.LocalRepositoryName {
				return 0
			}
			return attached
		}),
		Renderer:   templating.NewRenderer(workload),
		Supervisor: workload,
		Status:     sink,
	}, sink, nil
}

// eventFor names the lifecycle event a reconcile stands for.
func eventFor(instance *glancev1alpha1.Glance) charm.Event {
	switch {
	case instance.Status.OpenStackRelease != "" && instance.Status.OpenStackRelease != instance.Release():
		return charm.Event{Kind: charm.EventUpgrade, Source: instance.Release()}
	case instance.Generation != instance.Status.ObservedGeneration:
		return charm.Event{Kind: charm.EventConfigChanged}
	default:
		return charm.Event{Kind: charm.EventRelationChanged}
	}
}

// applyResult writes the outcome of a pass into the instance status. The
// Ready condition only changes when the pass set a service status or failed.
func applyResult(instance *glancev1alpha1.Glance, result charm.Result, sink *conditionSink, cfgErr error) {
	status := &instance.Status
	gen := instance.Generation

	if result.State.Bootstrapped {
		status.Bootstrapped = true
	}
	status.Phase = glancev1alpha1.GlancePhase(result.Phase)
	status.ObservedGeneration = gen

	relationsReady := result.Phase != charm.PhaseWaitingOnRelations
	if relationsReady {
		status.Conditions = common.SetCondition(status.Conditions, string(glancev1alpha1.ConditionRelationsReady),
			metav1.ConditionTrue, "RelationsReady", "", gen)
	} else {
		status.Conditions = common.SetCondition(status.Conditions, string(glancev1alpha1.ConditionRelationsReady),
			metav1.ConditionFalse, "WaitingOnRelations", "Waiting for database, identity-service and ingress", gen)
	}

	if relationsReady {
		if result.Verdict.IsReady() {
			backend := result.Verdict.Backend().Kind.String()
			status.StorageBackend = backend
			status.Conditions = common.SetCondition(status.Conditions, string(glancev1alpha1.ConditionStorageReady),
				metav1.ConditionTrue, "BackendSelected", "Using "+backend+" storage", gen)
		} else {
			status.StorageBackend = ""
			status.Conditions = common.SetCondition(status.Conditions, string(glancev1alpha1.ConditionStorageReady),
				metav1.ConditionFalse, storageReason(result.Verdict.Reason()), string(result.Verdict.Reason()), gen)
		}
	}

	status.Conditions = leaveBlocked(status.Conditions, result.Phase, gen)
	if sink.status != nil {
		s := *sink.status
		cond := metav1.ConditionFalse
		if s.Kind == charm.StatusActive {
			cond = metav1.ConditionTrue
		}
		status.Conditions = common.SetCondition(status.Conditions, string(glancev1alpha1.ConditionReady),
			cond, string(s.Kind), s.Message, gen)
	}
	if cfgErr != nil {
		status.Conditions = common.SetCondition(status.Conditions, string(glancev1alpha1.ConditionReady),
			metav1.ConditionFalse, "ProvisioningFailed", cfgErr.Error(), gen)
	}

	if result.Phase == charm.PhaseRunning && cfgErr == nil {
		status.OpenStackRelease = instance.Release()
		status.APIEndpoint = relation.InternalURL(instance)
	}
}

// leaveBlocked replaces a Blocked Ready condition when a later pass waits on
// relations or on the ceph key instead.
func leaveBlocked(conditions []metav1.Condition, phase charm.Phase, gen int64) []metav1.Condition {
	if phase != charm.PhaseWaitingOnRelations && phase != charm.PhaseWaitingOnStorage {
		return conditions
	}
	ready := common.FindCondition(conditions, string(glancev1alpha1.ConditionReady))
	if ready == nil || ready.Reason != string(charm.StatusBlocked) {
		return conditions
	}
	message := "Waiting for relations"
	if phase == charm.PhaseWaitingOnStorage {
		message = "Ceph credential key not yet present"
	}
	return common.SetCondition(conditions, string(glancev1alpha1.ConditionReady),
		metav1.ConditionFalse, string(charm.StatusWaiting), message, gen)
}

// backendName is the metrics label of the backend a verdict selected.
func backendName(v storage.Verdict) string {
	if !v.IsReady() {
		return "none"
	}
	return v.Backend().Kind.String()
}

func storageReason(reason storage.Reason) string {
	if reason == storage.ReasonNoBackend {
		return "NoBackend"
	}
	return "CredentialPending"
}

// conditionSink keeps the last service status set during a pass.
type conditionSink struct {
	status *charm.ServiceStatus
}

func (s *conditionSink) SetStatus(status charm.ServiceStatus) {
	s.status = &status
}

func (r *GlanceReconciler) metrics() *metrics.Recorder {
	if r.Metrics == nil {
		r.Metrics = metrics.Default()
	}
	return r.Metrics
}

func (r *GlanceReconciler) requeueDelay() time.Duration {
	if r.RequeueDelay > 0 {
		return r.RequeueDelay
	}
	return defaultRequeueDelay
}

// glancesForSecret maps a ceph client Secret to the instances reading it.
func (r *GlanceReconciler) glancesForSecret(ctx context.Context, obj client.Object) []reconcile.Request {
	list := &glancev1alpha1.GlanceList{}
	if err := r.List(ctx, list, client.InNamespace(obj.GetNamespace())); err != nil {
		log.FromContext(ctx).Error(err, "failed to list glances for secret", "secret", obj.GetName())
		return nil
	}
	var requests []reconcile.Request
	for _, g := range list.Items {
		if g.Spec.Ceph != nil && g.Spec.Ceph.SecretName == obj.GetName() {
			requests = append(requests, reconcile.Request{NamespacedName: types.NamespacedName{Name: g.Name, Namespace: g.Namespace}})
		}
	}
	return requests
}

// glanceForStorage maps a local-repository claim to its instance.
func (r *GlanceReconciler) glanceForStorage(_ context.Context, obj client.Object) []reconcile.Request {
	labels := obj.GetLabels()
	if labels[relation.StorageNameLabel] != relation.LocalRepositoryName {
		return nil
	}
	name := labels["app.kubernetes.io/instance"]
	if name == "" {
		return nil
	}
	return []reconcile.Request{{NamespacedName: types.NamespacedName{Name: name, Namespace: obj.GetNamespace()}}}
}

// SetupWithManager sets up the controller with the Manager.
func (r *GlanceReconciler) SetupWithManager(mgr ctrl.Manager) error {
	if r.Workload == nil {
		return errors.New("glance reconciler needs a workload factory")
	}
	return ctrl.NewControllerManagedBy(mgr).
		For(&glancev1alpha1.Glance{}).
		Owns(&corev1.Service{}).
		Owns(&batchv1.Job{}).
		Owns(&gatewayv1.HTTPRoute{}).
		Watches(&corev1.Secret{}, handler.EnqueueRequestsFromMapFunc(r.glancesForSecret)).
		Watches(&corev1.PersistentVolumeClaim{}, handler.EnqueueRequestsFromMapFunc(r.glanceForStorage)).
		Complete(r)
}
