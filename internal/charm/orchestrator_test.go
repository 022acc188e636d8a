package charm

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mrrauch/glance-operator/internal/storage"
)

type fakeSupervisor struct {
	ready     bool
	execFail  map[string]error
	executed  [][]string
	inits     int
	starts    int
	lastInit  Contexts
	startFail error
}

func (f *fakeSupervisor) Ready(context.Context) bool { return f.ready }

func (f *fakeSupervisor) Execute(_ context.Context, args []string, _ bool) error {
	f.executed = append(f.executed, args)
	if err, ok := f.execFail[args[0]]; ok {
		return err
	}
	return nil
}

func (f *fakeSupervisor) InitService(_ context.Context, contexts Contexts) error {
	f.inits++
	f.lastInit = contexts
	return nil
}

func (f *fakeSupervisor) StartService(context.Context) error {
	f.starts++
	return f.startFail
}

type renderCall struct {
	file     ConfigFile
	contexts Contexts
}

type fakeRenderer struct {
	calls []renderCall
}

func (f *fakeRenderer) Render(_ context.Context, contexts Contexts, file ConfigFile) error {
	f.calls = append(f.calls, renderCall{file: file, contexts: contexts})
	return nil
}

func (f *fakeRenderer) paths() []string {
	var out []string
	for _, c := range f.calls {
		out = append(out, c.file.Path)
	}
	return out
}

type statusRecorder struct {
	statuses []ServiceStatus
}

func (s *statusRecorder) SetStatus(status ServiceStatus) {
	s.statuses = append(s.statuses, status)
}

func (s *statusRecorder) last() (ServiceStatus, bool) {
	if len(s.statuses) == 0 {
		return ServiceStatus{}, false
	}
	return s.statuses[len(s.statuses)-1], true
}

type harness struct {
	orch       *Orchestrator
	supervisor *fakeSupervisor
	renderer   *fakeRenderer
	status     *statusRecorder
}

func newHarness(relationsReady bool, ceph storage.RelationState, local int) *harness {
	sup := &fakeSupervisor{ready: true}
	ren := &fakeRenderer{}
	st := &statusRecorder{}
	return &harness{
		orch: &Orchestrator{
			Config: Config{
				AppName:      "glance",
				ReleaseLabel: "xena",
				APIPort:      9292,
				ServiceUser:  "glance",
				ServiceGroup: "glance",
				RBDPool:      "glance",
			},
			Relations: []Relation{
				storage.RelationState{RelationName: "database", IsPresent: true, IsReady: relationsReady, Data: map[string]string{"host": "db"}},
				storage.RelationState{RelationName: "identity-service", IsPresent: true, IsReady: true},
			},
			StorageRelation: ceph,
			Storage:         StorageInventoryFunc(func(string) int { return local }),
			Renderer:        ren,
			Supervisor:      sup,
			Status:          st,
		},
		supervisor: sup,
		renderer:   ren,
		status:     st,
	}
}

func noCeph() storage.RelationState { return storage.RelationState{RelationName: "ceph"} }

func readyCeph(key string) storage.RelationState {
	return storage.RelationState{
		RelationName: "ceph",
		IsPresent:    true,
		IsReady:      true,
		Data:         map[string]string{"key": key, "auth": "cephx", "mon_hosts": "10.0.0.1"},
	}
}

func TestConfigureService_RelationsNotReady(t *testing.T) {
	h := newHarness(false, noCeph(), 1)

	res, err := h.orch.ConfigureService(context.Background(), Event{Kind: EventConfigChanged}, State{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Phase != PhaseWaitingOnRelations {
		t.Fatalf("expected phase %s, got %s", PhaseWaitingOnRelations, res.Phase)
	}
	if len(h.status.statuses) != 0 {
		t.Fatalf("expected status untouched, got %v", h.status.statuses)
	}
	if len(h.renderer.calls) != 0 || len(h.supervisor.executed) != 0 {
		t.Fatal("expected no file writes or commands")
	}
}

func TestConfigureService_LocalStorage(t *testing.T) {
	h := newHarness(true, noCeph(), 1)

	res, err := h.orch.ConfigureService(context.Background(), Event{Kind: EventStorageAttached, Source: LocalStorageName}, State{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Phase != PhaseRunning {
		t.Fatalf("expected phase %s, got %s", PhaseRunning, res.Phase)
	}
	if !res.State.Bootstrapped {
		t.Fatal("expected bootstrap flag to be set")
	}
	if s, _ := h.status.last(); s != Active() {
		t.Fatalf("expected Active, got %s", s)
	}
	for _, cmd := range h.supervisor.executed {
		if cmd[0] == "apt" || cmd[0] == "ceph-authtool" {
			t.Fatalf("unexpected package command %v", cmd)
		}
	}
	if diff := cmp.Diff(DefaultBootstrapCommands, h.supervisor.executed); diff != "" {
		t.Fatalf("commands mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{GlanceConfPath}, h.renderer.paths()); diff != "" {
		t.Fatalf("rendered files mismatch (-want +got):\n%s", diff)
	}
	if got := h.renderer.calls[0].contexts.Get(ContextCeph); len(got) != 0 {
		t.Fatalf("expected empty ceph context for local storage, got %v", got)
	}
	if h.supervisor.starts != 1 {
		t.Fatalf("expected one start, got %d", h.supervisor.starts)
	}
}

func TestConfigureService_CephNotReady(t *testing.T) {
	ceph := storage.RelationState{RelationName: "ceph", IsPresent: true}
	h := newHarness(true, ceph, 1)

	res, err := h.orch.ConfigureService(context.Background(), Event{Kind: EventRelationChanged, Source: "ceph"}, State{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Phase != PhaseWaitingOnStorage {
		t.Fatalf("expected phase %s, got %s", PhaseWaitingOnStorage, res.Phase)
	}
	for _, s := range h.status.statuses {
		if s.Kind == StatusBlocked {
			t.Fatalf("expected no blocked status, got %s", s)
		}
	}
	if len(h.renderer.calls) != 0 {
		t.Fatalf("expected no config written, got %v", h.renderer.paths())
	}
	if res.State.Bootstrapped {
		t.Fatal("expected bootstrap flag untouched")
	}
}

func TestConfigureService_CephReady(t *testing.T) {
	const key = "AQBUfpVeNl7CHxAA8/f6WTcYFxW2dJ5VyvWmJg=="
	h := newHarness(true, readyCeph(key), 0)

	res, err := h.orch.ConfigureService(context.Background(), Event{Kind: EventRelationChanged, Source: "ceph"}, State{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Phase != PhaseRunning {
		t.Fatalf("expected phase %s, got %s", PhaseRunning, res.Phase)
	}

	want := [][]string{
		{"apt", "update"},
		{"apt", "install", "-y", "ceph-common"},
		{"ceph-authtool", "/etc/ceph/ceph.client.glance.keyring", "--create-keyring", "--name=client.glance", "--add-key=" + key},
	}
	want = append(want, DefaultBootstrapCommands...)
	if diff := cmp.Diff(want, h.supervisor.executed); diff != "" {
		t.Fatalf("commands mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{GlanceConfPath, CephConfPath}, h.renderer.paths()); diff != "" {
		t.Fatalf("rendered files mismatch (-want +got):\n%s", diff)
	}
	contexts := h.renderer.calls[0].contexts
	if contexts.Get(ContextCeph)["key"] != key {
		t.Fatalf("expected ceph context with key, got %v", contexts.Get(ContextCeph))
	}
	if contexts.Get(ContextCephConfig)["keyring"] != "/etc/ceph/ceph.client.glance.keyring" {
		t.Fatalf("unexpected ceph_config context %v", contexts.Get(ContextCephConfig))
	}
	if contexts.Get("identity_service") == nil {
		t.Fatal("expected relation contexts to be merged")
	}
	if h.supervisor.inits != 1 {
		t.Fatalf("expected one init, got %d", h.supervisor.inits)
	}
}

func TestConfigureService_NoStorage(t *testing.T) {
	h := newHarness(true, noCeph(), 0)

	res, err := h.orch.ConfigureService(context.Background(), Event{Kind: EventConfigChanged}, State{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Phase != PhaseBlocked {
		t.Fatalf("expected phase %s, got %s", PhaseBlocked, res.Phase)
	}
	want := Blocked("Missing storage. Relate to networked storage or add local storage to continue.")
	if s, _ := h.status.last(); s != want {
		t.Fatalf("expected %s, got %s", want, s)
	}
	if len(h.renderer.calls) != 0 || len(h.supervisor.executed) != 0 {
		t.Fatal("expected no side effects when blocked")
	}
}

func TestConfigureService_Idempotent(t *testing.T) {
	h := newHarness(true, noCeph(), 1)

	first, err := h.orch.ConfigureService(context.Background(), Event{Kind: EventConfigChanged}, State{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	firstStatus, _ := h.status.last()
	firstRender := h.renderer.calls[len(h.renderer.calls)-1]

	second, err := h.orch.ConfigureService(context.Background(), Event{Kind: EventConfigChanged}, first.State)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.State != first.State {
		t.Fatalf("expected state unchanged, got %+v then %+v", first.State, second.State)
	}
	if s, _ := h.status.last(); s != firstStatus {
		t.Fatalf("expected status unchanged, got %s then %s", firstStatus, s)
	}
	lastRender := h.renderer.calls[len(h.renderer.calls)-1]
	if firstRender.file != lastRender.file {
		t.Fatalf("rendered file changed from %+v to %+v", firstRender.file, lastRender.file)
	}
	if diff := cmp.Diff(firstRender.contexts, lastRender.contexts); diff != "" {
		t.Fatalf("render input changed (-first +second):\n%s", diff)
	}
	// db sync only runs once.
	if len(h.supervisor.executed) != len(DefaultBootstrapCommands) {
		t.Fatalf("expected bootstrap commands once, got %v", h.supervisor.executed)
	}
}

func TestConfigureService_ProvisioningFailureAborts(t *testing.T) {
	h := newHarness(true, readyCeph("AQC"), 0)
	h.supervisor.execFail = map[string]error{"apt": errors.New("exit status 100")}

	res, err := h.orch.ConfigureService(context.Background(), Event{Kind: EventRelationChanged}, State{})
	if err == nil {
		t.Fatal("expected provisioning error")
	}
	if !IsProvisioningError(err) {
		t.Fatalf("expected ProvisioningError, got %T", err)
	}
	if len(h.supervisor.executed) != 1 {
		t.Fatalf("expected abort after first command, got %v", h.supervisor.executed)
	}
	if len(h.renderer.calls) != 0 {
		t.Fatal("expected no config rendered after failed install")
	}
	if res.State.Bootstrapped {
		t.Fatal("expected bootstrap flag untouched")
	}
}

func TestConfigureService_BootstrapFailureKeepsFlagUnset(t *testing.T) {
	h := newHarness(true, noCeph(), 1)
	h.supervisor.execFail = map[string]error{"sudo": errors.New("exit status 1")}

	res, err := h.orch.ConfigureService(context.Background(), Event{Kind: EventConfigChanged}, State{})
	if !IsProvisioningError(err) {
		t.Fatalf("expected ProvisioningError, got %v", err)
	}
	if res.State.Bootstrapped {
		t.Fatal("expected bootstrap flag to stay unset")
	}
	if h.supervisor.starts != 0 {
		t.Fatal("expected service not started")
	}
}

func TestConfigureService_ContainerNotReady(t *testing.T) {
	h := newHarness(true, noCeph(), 1)
	h.supervisor.ready = false

	res, err := h.orch.ConfigureService(context.Background(), Event{Kind: EventConfigChanged}, State{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Phase != PhaseProvisioning {
		t.Fatalf("expected phase %s, got %s", PhaseProvisioning, res.Phase)
	}
	if s, _ := h.status.last(); s.Kind != StatusWaiting {
		t.Fatalf("expected waiting status, got %s", s)
	}
	if len(h.renderer.calls) != 0 || h.supervisor.starts != 0 {
		t.Fatal("expected nothing rendered or started")
	}
}

func TestConfigureService_BootstrappedServiceStartsEveryPass(t *testing.T) {
	h := newHarness(true, noCeph(), 1)

	res, err := h.orch.ConfigureService(context.Background(), Event{Kind: EventUpgrade}, State{Bootstrapped: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.supervisor.executed) != 0 {
		t.Fatalf("expected no bootstrap commands, got %v", h.supervisor.executed)
	}
	if h.supervisor.starts != 1 || !res.State.Bootstrapped {
		t.Fatal("expected service start with flag kept")
	}
}

func TestProvisioningError_Message(t *testing.T) {
	err := &ProvisioningError{Step: "bootstrap", Command: []string{"glance-manage", "db", "sync"}, Err: errors.New("exit status 1")}
	want := `bootstrap: "glance-manage db sync": exit status 1`
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
	if !errors.Is(err, err.Err) {
		t.Fatal("expected error to unwrap to its cause")
	}
}

func TestPhaseWaiting(t *testing.T) {
	tests := []struct {
		phase Phase
		want  bool
	}{
		{PhaseWaitingOnRelations, true},
		{PhaseWaitingOnStorage, true},
		{PhaseProvisioning, true},
		{PhaseBlocked, false},
		{PhaseRunning, false},
	}
	for _, tt := range tests {
		if got := tt.phase.Waiting(); got != tt.want {
			t.Errorf("%s.Waiting() = %v, want %v", tt.phase, got, tt.want)
		}
	}
}
