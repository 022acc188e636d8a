// Package metrics exposes Glance configuration metrics on the manager's
// metrics endpoint.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var backends = []string{"none", "local", "ceph"}

// Recorder records the outcome of configuration passes.
type Recorder struct {
	storageBackend *prometheus.GaugeVec
	configureTotal *prometheus.CounterVec
}

// NewRecorder returns a recorder whose collectors are registered on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		storageBackend: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "glance_operator",
			Name:      "storage_backend",
			Help:      "Storage backend selected for a Glance instance, 1 for the active backend.",
		}, []string{"namespace", "name", "backend"}),
		configureTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "glance_operator",
			Name:      "configure_total",
			Help:      "Configuration passes by the phase they ended in.",
		}, []string{"phase"}),
	}
	reg.MustRegister(r.storageBackend, r.configureTotal)
	return r
}

var (
	defaultOnce     sync.Once
	defaultRecorder *Recorder
)

// Default returns the recorder registered on controller-runtime's registry.
func Default() *Recorder {
	defaultOnce.Do(func() {
		defaultRecorder = NewRecorder(metrics.Registry)
	})
	return defaultRecorder
}

// ObserveConfigure counts one configuration pass ending in phase.
func (r *Recorder) ObserveConfigure(phase string) {
	r.configureTotal.WithLabelValues(phase).Inc()
}

// SetBackend marks backend as the active one for the instance.
func (r *Recorder) SetBackend(namespace, name, backend string) {
	for _, b := range backends {
		v := 0.0
		if b == backend {
			v = 1
		}
		r.storageBackend.WithLabelValues(namespace, name, b).Set(v)
	}
}

// Forget drops the series of a deleted instance.
func (r *Recorder) Forget(namespace, name string) {
	r.storageBackend.DeletePartialMatch(prometheus.Labels{"namespace": namespace, "name": name})
}
