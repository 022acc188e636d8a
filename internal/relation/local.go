package relation

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	glancev1alpha1 "github.com/mrrauch/glance-operator/api/v1alpha1"
	"github.com/mrrauch/glance-operator/internal/charm"
)

// LocalRepositoryName is the attached storage backing the file store.
const LocalRepositoryName = charm.LocalStorageName

var defaultLocalRepositorySize = resource.MustParse("10Gi")

// LocalRepository requests and counts the local-repository volumes of an
// instance.
type LocalRepository struct {
	Client client.Client
}

// PVCName is the claim requested for the instance's local repository.
func (l *LocalRepository) PVCName(instance string) string {
	return fmt.Sprintf("%s-%s", instance, LocalRepositoryName)
}

// Ensure creates the claim when spec.localRepository is set.
func (l *LocalRepository) Ensure(ctx context.Context, instance *glancev1alpha1.Glance) error {
	if instance.Spec.LocalRepository == nil {
		return nil
	}
	size := instance.Spec.LocalRepository.Size
	if size.IsZero() {
		size = defaultLocalRepositorySize
	}

	pvc := &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{
			Name:      l.PVCName(instance.Name),
			Namespace: instance.Namespace,
		},
	}
	_, err := controllerutil.CreateOrUpdate(ctx, l.Client, pvc, func() error {
		pvc.Labels = l.selector(instance.Name)
		if pvc.CreationTimestamp.IsZero() {
			pvc.Spec.AccessModes = []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce}
			pvc.Spec.StorageClassName = instance.Spec.LocalRepository.StorageClassName
		}
		pvc.Spec.Resources = corev1.VolumeResourceRequirements{
			Requests: corev1.ResourceList{
				corev1.ResourceStorage: size,
			},
		}
		return controllerutil.SetOwnerReference(instance, pvc, l.Client.Scheme())
	})
	return err
}

// Count returns how many local-repository claims of the instance are bound.
func (l *LocalRepository) Count(ctx context.Context, instance *glancev1alpha1.Glance) (int, error) {
	pvcs := &corev1.PersistentVolumeClaimList{}
	if err := l.Client.List(ctx, pvcs,
		client.InNamespace(instance.Namespace),
		client.MatchingLabels(map[string]string{
			"app.kubernetes.io/instance": instance.Name,
			StorageNameLabel:             LocalRepositoryName,
		}),
	); err != nil {
		return 0, fmt.Errorf("list local storage: %w", err)
	}
	var bound int
	for _, pvc := range pvcs.Items {
		if pvc.Status.Phase == corev1.ClaimBound {
			bound++
		}
	}
	return bound, nil
}

func (l *LocalRepository) selector(instance string) map[string]string {
	labels := Labels(instance)
	labels[StorageNameLabel] = LocalRepositoryName
	return labels
}
