// Package templating renders the Glance and Ceph configuration files.
package templating

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"gopkg.in/ini.v1"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mrrauch/glance-operator/internal/charm"
)

// FileWriter writes a rendered file into the workload container.
type FileWriter interface {
	WriteFile(ctx context.Context, path string, data []byte, perm os.FileMode, user, group string) error
}

// Template builds one config file from the render contexts.
type Template func(contexts charm.Contexts) (*ini.File, error)

// Renderer implements charm.Renderer.
type Renderer struct {
	writer    FileWriter
	templates map[string]Template
}

var _ charm.Renderer = (*Renderer)(nil)

// NewRenderer returns a renderer knowing glance-api.conf and ceph.conf.
func NewRenderer(w FileWriter) *Renderer {
	return &Renderer{
		writer: w,
		templates: map[string]Template{
			charm.GlanceConfPath: GlanceAPIConf,
			charm.CephConfPath:   CephConf,
		},
	}
}

// Render renders file from contexts and writes it with the file's ownership.
func (r *Renderer) Render(ctx context.Context, contexts charm.Contexts, file charm.ConfigFile) error {
	data, err := r.RenderBytes(contexts, file.Path)
	if err != nil {
		return err
	}
	if err := r.writer.WriteFile(ctx, file.Path, data, file.Permissions, file.User, file.Group); err != nil {
		return err
	}
	log.FromContext(ctx).V(1).Info("Rendered config file", "path", file.Path)
	return nil
}

// RenderBytes renders the file at path without writing it.
func (r *Renderer) RenderBytes(contexts charm.Contexts, path string) ([]byte, error) {
	tmpl, ok := r.templates[path]
	if !ok {
		return nil, fmt.Errorf("no template for %s", path)
	}
	f, err := tmpl(contexts)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", path, err)
	}
	var buf bytes.Buffer
	// oslo.config rejects keys that precede the first section header and
	// ini.v1 omits the header of a leading DEFAULT section.
	if names := f.SectionStrings(); len(names) > 0 && names[0] == ini.DefaultSection {
		buf.WriteString("[" + ini.DefaultSection + "]\n")
	}
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode %s: %w", path, err)
	}
	return buf.Bytes(), nil
}

// iniSection is an ordered list of key/value pairs. Pairs with an empty value
// are left out.
type iniSection struct {
	name string
	kv   [][2]string
}

func build(sections []iniSection) (*ini.File, error) {
	f := ini.Empty()
	for _, s := range sections {
		sec := f.Section(s.name)
		for _, pair := range s.kv {
			if pair[1] == "" {
				continue
			}
			if _, err := sec.NewKey(pair[0], pair[1]); err != nil {
				return nil, fmt.Errorf("section %s key %s: %w", s.name, pair[0], err)
			}
		}
	}
	if len(f.Section(ini.DefaultSection).Keys()) == 0 {
		f.DeleteSection(ini.DefaultSection)
	}
	return f, nil
}
