// Package pebble supervises the Glance workload container through its pebble
// daemon.
package pebble

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/canonical/pebble/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mrrauch/glance-operator/internal/charm"
)

// Process is a running exec.
type Process interface {
	Wait() error
}

// Client is the subset of the pebble client the supervisor uses.
type Client interface {
	SysInfo() (*client.SysInfo, error)
	Exec(opts *client.ExecOptions) (Process, error)
	Push(opts *client.PushOptions) error
	Pull(opts *client.PullOptions) error
	AddLayer(opts *client.AddLayerOptions) error
	Services(opts *client.ServicesOptions) ([]*client.ServiceInfo, error)
	Start(opts *client.ServiceOptions) (string, error)
	WaitChange(id string, opts *client.WaitChangeOptions) (*client.Change, error)
}

type socketClient struct {
	*client.Client
}

var _ Client = socketClient{}

func (c socketClient) Exec(opts *client.ExecOptions) (Process, error) {
	return c.Client.Exec(opts)
}

// Dial connects to the pebble daemon listening on socket.
func Dial(socket string) (Client, error) {
	c, err := client.New(&client.Config{Socket: socket})
	if err != nil {
		return nil, fmt.Errorf("connect to pebble at %s: %w", socket, err)
	}
	return socketClient{c}, nil
}

// Supervisor implements charm.Supervisor for one pebble service.
type Supervisor struct {
	client      Client
	service     string
	execTimeout time.Duration
	waitTimeout time.Duration
}

var _ charm.Supervisor = (*Supervisor)(nil)

// NewSupervisor returns a supervisor for service.
func NewSupervisor(c Client, service string) *Supervisor {
	return &Supervisor{
		client:      c,
		service:     service,
		execTimeout: 5 * time.Minute,
		waitTimeout: time.Minute,
	}
}

// Ready reports whether pebble answers.
func (s *Supervisor) Ready(ctx context.Context) bool {
	if _, err := s.client.SysInfo(); err != nil {
		log.FromContext(ctx).V(1).Info("Pebble not ready", "service", s.service, "error", err.Error())
		return false
	}
	return true
}

// Execute runs args in the workload container. A non-zero exit is only an
// error when failOnNonzeroExit is set.
func (s *Supervisor) Execute(ctx context.Context, args []string, failOnNonzeroExit bool) error {
	if len(args) == 0 {
		return errors.New("empty command")
	}
	logger := log.FromContext(ctx).WithValues("command", strings.Join(args, " "))

	var stdout, stderr bytes.Buffer
	proc, err := s.client.Exec(&client.ExecOptions{
		Command: args,
		Timeout: s.execTimeout,
		Stdout:  &stdout,
		Stderr:  &stderr,
	})
	if err != nil {
		return fmt.Errorf("exec %s: %w", args[0], err)
	}
	if err := proc.Wait(); err != nil {
		var exitErr *client.ExitError
		if errors.As(err, &exitErr) && !failOnNonzeroExit {
			logger.Info("Command exited non-zero", "code", exitErr.ExitCode(), "stderr", stderr.String())
			return nil
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	logger.V(1).Info("Command completed", "stdout", stdout.String())
	return nil
}

// InitService installs the service layer. The service is not started.
func (s *Supervisor) InitService(ctx context.Context, contexts charm.Contexts) error {
	data, err := serviceLayer(s.service, contexts)
	if err != nil {
		return fmt.Errorf("encode layer: %w", err)
	}
	if err := s.client.AddLayer(&client.AddLayerOptions{
		Combine:   true,
		Label:     s.service,
		LayerData: data,
	}); err != nil {
		return fmt.Errorf("add layer %s: %w", s.service, err)
	}
	log.FromContext(ctx).V(1).Info("Service layer added", "service", s.service)
	return nil
}

// StartService starts the service and waits for the change. An active service
// is left alone.
func (s *Supervisor) StartService(ctx context.Context) error {
	infos, err := s.client.Services(&client.ServicesOptions{Names: []string{s.service}})
	if err != nil {
		return fmt.Errorf("list services: %w", err)
	}
	for _, info := range infos {
		if info.Name == s.service && info.Current == client.StatusActive {
			return nil
		}
	}

	changeID, err := s.client.Start(&client.ServiceOptions{Names: []string{s.service}})
	if err != nil {
		return fmt.Errorf("start %s: %w", s.service, err)
	}
	change, err := s.client.WaitChange(changeID, &client.WaitChangeOptions{Timeout: s.waitTimeout})
	if err != nil {
		return fmt.Errorf("wait for start of %s: %w", s.service, err)
	}
	if change.Err != "" {
		return fmt.Errorf("start %s: %s", s.service, change.Err)
	}
	log.FromContext(ctx).Info("Service started", "service", s.service)
	return nil
}

// WriteFile pushes data to path unless the file already holds it.
func (s *Supervisor) WriteFile(ctx context.Context, path string, data []byte, perm os.FileMode, user, group string) error {
	var current bytes.Buffer
	if err := s.client.Pull(&client.PullOptions{Path: path, Target: &current}); err == nil && bytes.Equal(current.Bytes(), data) {
		log.FromContext(ctx).V(1).Info("File unchanged", "path", path)
		return nil
	}
	if err := s.client.Push(&client.PushOptions{
		Source:      bytes.NewReader(data),
		Path:        path,
		MakeDirs:    true,
		Permissions: perm,
		User:        user,
		Group:       group,
	}); err != nil {
		return fmt.Errorf("push %s: %w", path, err)
	}
	return nil
}
