package charm

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mrrauch/glance-operator/internal/storage"
)

const (
	GlanceConfPath = "/etc/glance/glance-api.conf"
	CephConfPath   = "/etc/ceph/ceph.conf"

	// LocalStorageName is the storage the deployment system attaches for the
	// file backend.
	LocalStorageName = "local-repository"
)

// Context names understood by the renderer.
const (
	ContextOptions    = "options"
	ContextCeph       = "ceph"
	ContextCephConfig = "ceph_config"
)

// Config holds the per-application settings of the orchestrator.
type Config struct {
	// AppName names the cephx client and its keyring.
	AppName      string
	ReleaseLabel string
	Debug        bool
	APIPort      int32
	ServiceUser  string
	ServiceGroup string
	// RBDPool is the pool images are stored in when ceph is the backend.
	RBDPool string
	// BootstrapCommands run once, before the service is first started.
	BootstrapCommands [][]string
}

// DefaultBootstrapCommands migrate the glance database.
var DefaultBootstrapCommands = [][]string{
	{"sudo", "-u", "glance", "glance-manage", "--config-dir", "/etc/glance", "db", "sync"},
}

// State is persisted by the hosting runtime between calls.
type State struct {
	// Bootstrapped is set once the bootstrap commands have succeeded and is
	// never reset.
	Bootstrapped bool
}

// Result is the outcome of one ConfigureService call.
type Result struct {
	Phase   Phase
	State   State
	Verdict storage.Verdict
}

// Orchestrator configures the Glance workload from a snapshot of its
// relations and storage.
type Orchestrator struct {
	Config    Config
	Evaluator storage.Evaluator

	// Relations are the declared relations that must finish their handshake
	// before storage is considered.
	Relations []Relation
	// StorageRelation is the networked storage relation.
	StorageRelation storage.RelationState
	Storage         StorageInventory

	Renderer   Renderer
	Supervisor Supervisor
	Status     StatusSink
}

// ConfigureService runs one configuration pass. It is safe to call on every
// lifecycle event; a pass that finds nothing changed leaves status, files and
// state as they were.
func (o *Orchestrator) ConfigureService(ctx context.Context, event Event, state State) (Result, error) {
	logger := log.FromContext(ctx).WithValues("event", event.Kind)
	result := Result{Phase: PhaseWaitingOnRelations, State: state}

	for _, rel := range o.Relations {
		if !rel.Ready() {
			logger.V(1).Info("Deferring configuration, relation not ready", "relation", rel.Name())
			return result, nil
		}
	}

	result.Phase = PhaseWaitingOnStorage
	verdict := o.Evaluator.Evaluate(o.StorageRelation, o.Storage.CountAttachedStorage(LocalStorageName))
	result.Verdict = verdict
	if !verdict.IsReady() {
		if verdict.Reason() == storage.ReasonNoBackend {
			logger.V(1).Info("Neither local storage nor ceph relation exists")
			o.Status.SetStatus(Blocked(MissingStorageMessage))
			result.Phase = PhaseBlocked
			return result, nil
		}
		logger.V(1).Info("Ceph key is not yet present, waiting")
		return result, nil
	}

	result.Phase = PhaseProvisioning
	backend := verdict.Backend()
	contexts := o.contexts(verdict)

	ready := o.Supervisor.Ready(ctx)
	if ready {
		if backend.Kind == storage.BackendNetworked {
			logger.V(1).Info("Setting up ceph packages in workload container")
			if err := o.installCephClient(ctx, backend.CredentialKey); err != nil {
				return result, err
			}
		} else {
			logger.V(1).Info("Using local storage")
		}
		for _, file := range o.configFiles(backend) {
			if err := o.Renderer.Render(ctx, contexts, file); err != nil {
				return result, &ProvisioningError{Step: "render " + file.Path, Err: err}
			}
		}
		if err := o.Supervisor.InitService(ctx, contexts); err != nil {
			return result, &ProvisioningError{Step: "init service", Err: err}
		}
	}

	next, err := o.configureWorkload(ctx, ready, result.State)
	result.State = next
	if err != nil {
		return result, err
	}
	if !ready {
		return result, nil
	}

	if result.State.Bootstrapped {
		if err := o.Supervisor.StartService(ctx); err != nil {
			return result, &ProvisioningError{Step: "start service", Err: err}
		}
	}
	o.Status.SetStatus(Active())
	result.Phase = PhaseRunning
	return result, nil
}

// configureWorkload runs the steps every OpenStack API service shares: wait for
// the container, then bootstrap once.
func (o *Orchestrator) configureWorkload(ctx context.Context, ready bool, state State) (State, error) {
	if !ready {
		log.FromContext(ctx).V(1).Info("Workload container not ready")
		o.Status.SetStatus(Waiting("Waiting for glance-api container"))
		return state, nil
	}
	if state.Bootstrapped {
		return state, nil
	}
	for _, cmd := range o.bootstrapCommands() {
		if err := o.Supervisor.Execute(ctx, cmd, true); err != nil {
			return state, &ProvisioningError{Step: "bootstrap", Command: cmd, Err: err}
		}
	}
	state.Bootstrapped = true
	return state, nil
}

func (o *Orchestrator) installCephClient(ctx context.Context, key string) error {
	for _, cmd := range CephClientCommands(o.Config.AppName, key) {
		if err := o.Supervisor.Execute(ctx, cmd, true); err != nil {
			return &ProvisioningError{Step: "ceph client setup", Command: cmd, Err: err}
		}
	}
	return nil
}

// CephClientCommands returns the commands that install the ceph client and
// write the keyring for app.
func CephClientCommands(app, key string) [][]string {
	return [][]string{
		{"apt", "update"},
		{"apt", "install", "-y", "ceph-common"},
		{
			"ceph-authtool",
			KeyringPath(app),
			"--create-keyring",
			fmt.Sprintf("--name=client.%s", app),
			fmt.Sprintf("--add-key=%s", key),
		},
	}
}

// KeyringPath is where the cephx keyring of app is written.
func KeyringPath(app string) string {
	return fmt.Sprintf("/etc/ceph/ceph.client.%s.keyring", app)
}

func (o *Orchestrator) bootstrapCommands() [][]string {
	if o.Config.BootstrapCommands != nil {
		return o.Config.BootstrapCommands
	}
	return DefaultBootstrapCommands
}

func (o *Orchestrator) configFiles(backend storage.Backend) []ConfigFile {
	files := []ConfigFile{o.configFile(GlanceConfPath)}
	if backend.Kind == storage.BackendNetworked {
		files = append(files, o.configFile(CephConfPath))
	}
	return files
}

func (o *Orchestrator) configFile(path string) ConfigFile {
	return ConfigFile{
		Path:        path,
		User:        o.Config.ServiceUser,
		Group:       o.Config.ServiceGroup,
		Permissions: 0o640,
	}
}

func (o *Orchestrator) contexts(verdict storage.Verdict) Contexts {
	contexts := Contexts{{
		Name: ContextOptions,
		Data: map[string]string{
			"app_name":      o.Config.AppName,
			"release":       o.Config.ReleaseLabel,
			"debug":         strconv.FormatBool(o.Config.Debug),
			"api_port":      strconv.Itoa(int(o.Config.APIPort)),
			"service_user":  o.Config.ServiceUser,
			"service_group": o.Config.ServiceGroup,
		},
	}}
	for _, rel := range o.Relations {
		contexts = append(contexts, Context{Name: ContextName(rel.Name()), Data: rel.Context()})
	}
	contexts = append(contexts, Context{Name: ContextCeph, Data: verdict.Context()})
	if verdict.Backend().Kind == storage.BackendNetworked {
		contexts = append(contexts, Context{
			Name: ContextCephConfig,
			Data: map[string]string{
				"keyring":   KeyringPath(o.Config.AppName),
				"rbd_pool":  o.Config.RBDPool,
				"rbd_user":  o.Config.AppName,
				"ceph_conf": CephConfPath,
			},
		})
	}
	return contexts
}

// ContextName maps a relation name to the name of its render context.
func ContextName(relation string) string {
	return strings.ReplaceAll(relation, "-", "_")
}
