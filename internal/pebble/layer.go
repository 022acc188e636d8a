package pebble

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/mrrauch/glance-operator/internal/charm"
)

type layer struct {
	Summary     string             `yaml:"summary"`
	Description string             `yaml:"description,omitempty"`
	Services    map[string]service `yaml:"services"`
}

type service struct {
	Override    string            `yaml:"override"`
	Summary     string            `yaml:"summary"`
	Command     string            `yaml:"command"`
	Startup     string            `yaml:"startup"`
	User        string            `yaml:"user,omitempty"`
	Group       string            `yaml:"group,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
}

// serviceLayer builds the pebble layer of the service. The service starts
// disabled; it is started explicitly once bootstrapped.
func serviceLayer(name string, contexts charm.Contexts) ([]byte, error) {
	opts := contexts.Get(charm.ContextOptions)
	svc := service{
		Override: "replace",
		Summary:  fmt.Sprintf("%s service", name),
		Command:  fmt.Sprintf("%s --config-file %s", name, charm.GlanceConfPath),
		Startup:  "disabled",
		User:     opts["service_user"],
		Group:    opts["service_group"],
	}
	if release := opts["release"]; release != "" {
		svc.Environment = map[string]string{"OS_RELEASE": release}
	}
	l := layer{
		Summary:     fmt.Sprintf("%s layer", name),
		Description: fmt.Sprintf("pebble config layer for %s", name),
		Services:    map[string]service{name: svc},
	}
	return yaml.Marshal(l)
}
