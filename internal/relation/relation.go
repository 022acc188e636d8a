// Package relation turns the Kubernetes resources Glance depends on into
// relation snapshots for the configuration orchestrator.
package relation

import (
	"context"
	"fmt"

	glancev1alpha1 "github.com/mrrauch/glance-operator/api/v1alpha1"
	"github.com/mrrauch/glance-operator/internal/storage"
)

// Declared relation names.
const (
	DatabaseRelation = "database"
	IdentityRelation = "identity-service"
	IngressRelation  = "ingress"
	CephRelation     = "ceph"
)

// APIPort is the port glance-api listens on.
const APIPort int32 = 9292

// StorageNameLabel marks a PersistentVolumeClaim as attached storage of the
// named kind.
const StorageNameLabel = "storage.glance.openstack.org/name"

// Handler drives one relation. Observe makes the local side of the handshake
// exist and reports how far the peer has got.
type Handler interface {
	Name() string
	Observe(ctx context.Context, instance *glancev1alpha1.Glance) (storage.RelationState, error)
}

// Labels returns the labels of resources owned by the named Glance instance.
func Labels(name string) map[string]string {
	return map[string]string{
		"app.kubernetes.io/name":       "glance",
		"app.kubernetes.io/instance":   name,
		"app.kubernetes.io/managed-by": "glance-operator",
	}
}

// APIServiceName is the Service fronting glance-api.
func APIServiceName(instance string) string {
	return fmt.Sprintf("%s-api", instance)
}

// InternalURL is the in-cluster API URL of the instance.
func InternalURL(instance *glancev1alpha1.Glance) string {
	return fmt.Sprintf("http://%s.%s.svc:%d", APIServiceName(instance.Name), instance.Namespace, APIPort)
}

// PublicURL is the external API URL, falling back to the internal one when no
// public hostname is configured.
func PublicURL(instance *glancev1alpha1.Glance) string {
	if instance.Spec.PublicHostname == "" {
		return InternalURL(instance)
	}
	return fmt.Sprintf("https://%s", instance.Spec.PublicHostname)
}

func pending(name string) storage.RelationState {
	return storage.RelationState{RelationName: name, IsPresent: true}
}

func ready(name string, data map[string]string) storage.RelationState {
	return storage.RelationState{RelationName: name, IsPresent: true, IsReady: true, Data: data}
}
