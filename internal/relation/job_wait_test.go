package relation

import (
	"context"
	"testing"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/mrrauch/glance-operator/internal/common"
)

func jobWithCondition(name string, condType batchv1.JobConditionType) *batchv1.Job {
	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "openstack"},
		Status: batchv1.JobStatus{Conditions: []batchv1.JobCondition{
			{Type: condType, Status: corev1.ConditionTrue},
		}},
	}
}

func TestJobDone_Complete(t *testing.T) {
	c := fake.NewClientBuilder().WithScheme(common.SetupScheme()).
		WithObjects(jobWithCondition("glance-db-create", batchv1.JobComplete)).Build()

	done, err := jobDone(context.Background(), c, "glance-db-create", "openstack")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !done {
		t.Fatal("expected complete job to be done")
	}
}

func TestJobDone_Pending(t *testing.T) {
	job := &batchv1.Job{ObjectMeta: metav1.ObjectMeta{Name: "glance-db-create", Namespace: "openstack"}}
	c := fake.NewClientBuilder().WithScheme(common.SetupScheme()).WithObjects(job).Build()

	done, err := jobDone(context.Background(), c, "glance-db-create", "openstack")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done {
		t.Fatal("expected pending job not to be done")
	}
}

func TestJobDone_FailedJobIsDeleted(t *testing.T) {
	c := fake.NewClientBuilder().WithScheme(common.SetupScheme()).
		WithObjects(jobWithCondition("glance-endpoint-create", batchv1.JobFailed)).Build()

	done, err := jobDone(context.Background(), c, "glance-endpoint-create", "openstack")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done {
		t.Fatal("expected failed job not to be done")
	}

	err = c.Get(context.Background(), types.NamespacedName{Name: "glance-endpoint-create", Namespace: "openstack"}, &batchv1.Job{})
	if !apierrors.IsNotFound(err) {
		t.Fatalf("expected failed job to be deleted, got %v", err)
	}
}
