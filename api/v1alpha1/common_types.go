package v1alpha1

import (
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// DatabaseEngine selects the SQL backend of the database relation.
// +kubebuilder:validation:Enum=mysql;mariadb;postgresql
type DatabaseEngine string

const (
	DatabaseEngineMySQL      DatabaseEngine = "mysql"
	DatabaseEngineMariaDB    DatabaseEngine = "mariadb"
	DatabaseEnginePostgreSQL DatabaseEngine = "postgresql"
)

// DatabaseConfig defines the database relation of a service.
type DatabaseConfig struct {
	// SecretName references the Secret holding the service's database password.
	// The operator generates it if it does not exist.
	// +optional
	SecretName string `json:"secretName,omitempty"`

	// Engine selects which SQL backend this service should use.
	// +kubebuilder:default="mysql"
	// +optional
	Engine DatabaseEngine `json:"engine,omitempty"`
}

// IdentityConfig defines the identity-service relation of a service.
type IdentityConfig struct {
	// Region is the Keystone region the endpoints are registered in.
	// +kubebuilder:default="RegionOne"
	// +optional
	Region string `json:"region,omitempty"`
}

// StorageConfig defines persistent storage settings.
type StorageConfig struct {
	// Size is the requested storage size.
	// +kubebuilder:default="10Gi"
	Size resource.Quantity `json:"size,omitempty"`

	// StorageClassName is the name of the StorageClass to use.
	// +optional
	StorageClassName *string `json:"storageClassName,omitempty"`
}

// GatewayRef references a Gateway API Gateway resource for external routing.
type GatewayRef struct {
	// Name of the Gateway resource.
	// +optional
	Name string `json:"name,omitempty"`

	// Namespace of the Gateway resource. If empty, service namespace is used.
	// +optional
	Namespace string `json:"namespace,omitempty"`

	// Optional listener name to bind routes to a specific Gateway listener.
	// +optional
	ListenerName string `json:"listenerName,omitempty"`
}

// ConditionType represents the type of a status condition.
type ConditionType string

const (
	// ConditionReady mirrors the service status: True when active, False
	// while waiting or blocked.
	ConditionReady ConditionType = "Ready"

	// ConditionRelationsReady indicates every declared relation finished its handshake.
	ConditionRelationsReady ConditionType = "RelationsReady"

	// ConditionStorageReady indicates a storage backend was selected.
	ConditionStorageReady ConditionType = "StorageReady"
)

// CommonStatus contains status fields shared by all service CRs.
type CommonStatus struct {
	// Conditions represent the latest available observations of the resource's state.
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`

	// ObservedGeneration is the most recent generation observed by the controller.
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
}
