package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// DefaultOpenStackRelease is the release label used when none is set.
const DefaultOpenStackRelease = "xena"

// GlanceSpec defines the desired state of the Glance (Image) service.
type GlanceSpec struct {
	// OpenStackRelease labels the OpenStack release the workload runs.
	// +kubebuilder:default="xena"
	// +optional
	OpenStackRelease string `json:"openstackRelease,omitempty"`

	// Debug enables debug logging in glance-api.
	// +optional
	Debug bool `json:"debug,omitempty"`

	// Database configures the database relation.
	// +optional
	Database DatabaseConfig `json:"database,omitempty"`

	// Identity configures the identity-service relation.
	// +optional
	Identity IdentityConfig `json:"identity,omitempty"`

	// Ceph relates Glance to networked ceph storage. When set it takes
	// precedence over local storage, even while the ceph credentials are
	// still being negotiated.
	// +optional
	Ceph *CephRelation `json:"ceph,omitempty"`

	// LocalRepository requests local storage for the file backend.
	// +optional
	LocalRepository *StorageConfig `json:"localRepository,omitempty"`

	// PublicHostname overrides the generated external hostname for this API service.
	// +optional
	PublicHostname string `json:"publicHostname,omitempty"`

	// GatewayRef selects the Gateway the API is exposed through.
	// +optional
	GatewayRef GatewayRef `json:"gatewayRef,omitempty"`
}

// CephRelation defines the ceph-client relation of Glance.
type CephRelation struct {
	// SecretName references the Secret the ceph provider publishes the
	// negotiated client attributes in (key, auth, mon_hosts).
	SecretName string `json:"secretName"`

	// PoolName is the RBD pool images are stored in.
	// +kubebuilder:default="glance"
	// +optional
	PoolName string `json:"poolName,omitempty"`

	// AppName is the ceph application enabled on the pool.
	// +kubebuilder:default="rbd"
	// +optional
	AppName string `json:"appName,omitempty"`

	// AllowECOverwrites requests erasure-coded overwrites on the pool.
	// +kubebuilder:default=true
	// +optional
	AllowECOverwrites *bool `json:"allowECOverwrites,omitempty"`
}

// GlancePhase is the configuration phase of a Glance instance.
type GlancePhase string

// GlanceStatus defines the observed state of Glance.
type GlanceStatus struct {
	CommonStatus `json:",inline"`

	// Phase is the configuration phase reached by the last reconcile.
	// +optional
	Phase GlancePhase `json:"phase,omitempty"`

	// StorageBackend is the image store in use: local or ceph.
	// +optional
	StorageBackend string `json:"storageBackend,omitempty"`

	// Bootstrapped is set once the database has been migrated and the
	// service started for the first time. It is never cleared.
	// +optional
	Bootstrapped bool `json:"bootstrapped,omitempty"`

	// OpenStackRelease is the release label last configured.
	// +optional
	OpenStackRelease string `json:"openstackRelease,omitempty"`

	// APIEndpoint is the internal API URL of the Glance service.
	// +optional
	APIEndpoint string `json:"apiEndpoint,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Ready",type=string,JSONPath=`.status.conditions[?(@.type=="Ready")].status`
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Storage",type=string,JSONPath=`.status.storageBackend`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// Glance is the Schema for the glances API.
type Glance struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   GlanceSpec   `json:"spec,omitempty"`
	Status GlanceStatus `json:"status,omitempty"`
}

// Release returns the configured release label or the default.
func (g *Glance) Release() string {
	if g.Spec.OpenStackRelease != "" {
		return g.Spec.OpenStackRelease
	}
	return DefaultOpenStackRelease
}

// +kubebuilder:object:root=true

// GlanceList contains a list of Glance.
type GlanceList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Glance `json:"items"`
}

func init() {
	SchemeBuilder.Register(&Glance{}, &GlanceList{})
}
