package relation

import (
	"context"

	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	glancev1alpha1 "github.com/mrrauch/glance-operator/api/v1alpha1"
	"github.com/mrrauch/glance-operator/internal/common"
	"github.com/mrrauch/glance-operator/internal/storage"
)

// Ceph reads the ceph-client attributes the storage provider publishes into
// the Secret named by spec.ceph.secretName. The relation is present as soon
// as spec.ceph is set, whether or not the Secret exists yet.
type Ceph struct {
	Client client.Client
}

var _ Handler = (*Ceph)(nil)

func (c *Ceph) Name() string { return CephRelation }

func (c *Ceph) Observe(ctx context.Context, instance *glancev1alpha1.Glance) (storage.RelationState, error) {
	if instance.Spec.Ceph == nil {
		return storage.RelationState{RelationName: CephRelation}, nil
	}

	data, err := common.ReadSecretData(ctx, c.Client, instance.Spec.Ceph.SecretName, instance.Namespace)
	if err != nil {
		return pending(CephRelation), err
	}
	if data == nil {
		log.FromContext(ctx).V(1).Info("Ceph client secret not published yet", "secret", instance.Spec.Ceph.SecretName)
		return pending(CephRelation), nil
	}
	return ready(CephRelation, data), nil
}

// RBDPool returns the pool images are stored in.
func RBDPool(instance *glancev1alpha1.Glance) string {
	if instance.Spec.Ceph != nil && instance.Spec.Ceph.PoolName != "" {
		return instance.Spec.Ceph.PoolName
	}
	return "glance"
}
