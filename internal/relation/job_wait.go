package relation

import (
	"context"

	batchv1 "k8s.io/api/batch/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mrrauch/glance-operator/internal/common"
)

// jobDone reports whether the named Job completed. A failed Job is deleted so
// the next pass recreates it.
func jobDone(ctx context.Context, c client.Client, name, namespace string) (bool, error) {
	complete, err := common.IsJobComplete(ctx, c, name, namespace)
	if err != nil {
		return false, err
	}
	if complete {
		return true, nil
	}

	failed, err := common.IsJobFailed(ctx, c, name, namespace)
	if err != nil {
		return false, err
	}
	if failed {
		log.FromContext(ctx).Info("Job failed, recreating", "job", name)
		job := &batchv1.Job{
			ObjectMeta: metav1.ObjectMeta{
				Name:      name,
				Namespace: namespace,
			},
		}
		propagation := metav1.DeletePropagationBackground
		if err := c.Delete(ctx, job, &client.DeleteOptions{PropagationPolicy: &propagation}); err != nil && !apierrors.IsNotFound(err) {
			return false, err
		}
	}
	return false, nil
}
