package common

import (
	"context"
	"fmt"
	"net/url"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	"github.com/mrrauch/glance-operator/internal/images"
)

// DatabaseParams holds parameters for creating a database and user.
type DatabaseParams struct {
	Name           string
	Namespace      string
	Engine         string
	DatabaseName   string
	Username       string
	SecretName     string
	DatabaseSecret string
	DatabaseHost   string
}

// DatabaseJobName is the name of the db-create Job of the named instance.
func DatabaseJobName(name string) string {
	return fmt.Sprintf("%s-db-create", name)
}

// EnsureDatabase creates a Job that provisions a database and user in the selected SQL backend.
func EnsureDatabase(ctx context.Context, c client.Client, params DatabaseParams, owner metav1.Object) error {
	jobName := DatabaseJobName(params.Name)

	existing := &batchv1.Job{}
	err := c.Get(ctx, types.NamespacedName{Name: jobName, Namespace: params.Namespace}, existing)
	if err == nil {
		return nil
	}
	if !errors.IsNotFound(err) {
		return err
	}

	engine := params.Engine
	if engine == "" {
		engine = "mysql"
	}

	rootPasswordVar := "ROOT_PASSWORD"
	var script string
	switch engine {
	case "postgresql":
		script = fmt.Sprintf(
			`PGPASSWORD="$%s" psql -h %s -U postgres -tc "SELECT 1 FROM pg_roles WHERE rolname='%s'" | grep -q 1 || PGPASSWORD="$%s" psql -h %s -U postgres -c "CREATE ROLE %s LOGIN PASSWORD '$SERVICE_PASSWORD'"; `+
				`PGPASSWORD="$%s" psql -h %s -U postgres -tc "SELECT 1 FROM pg_database WHERE datname='%s'" | grep -q 1 || PGPASSWORD="$%s" psql -h %s -U postgres -c "CREATE DATABASE %s OWNER %s"`,
			rootPasswordVar, params.DatabaseHost, params.Username, rootPasswordVar, params.DatabaseHost, params.Username,
			rootPasswordVar, params.DatabaseHost, params.DatabaseName, rootPasswordVar, params.DatabaseHost, params.DatabaseName, params.Username,
		)
	default:
		script = fmt.Sprintf(
			`mysql -h %s -u root -p"$%s" -e "CREATE DATABASE IF NOT EXISTS %s; CREATE USER IF NOT EXISTS '%s'@'%%' IDENTIFIED BY '$SERVICE_PASSWORD'; GRANT ALL ON %s.* TO '%s'@'%%'; FLUSH PRIVILEGES;"`,
			params.DatabaseHost, rootPasswordVar, params.DatabaseName, params.Username, params.DatabaseName, params.Username,
		)
	}

	backoffLimit := int32(4)
	job := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      jobName,
			Namespace: params.Namespace,
		},
		Spec: batchv1.JobSpec{
			BackoffLimit: &backoffLimit,
			Template: corev1.PodTemplateSpec{
				Spec: corev1.PodSpec{
					RestartPolicy: corev1.RestartPolicyOnFailure,
					Containers: []corev1.Container{
						{
							Name:    "db-create",
							Image:   images.DatabaseClient(engine),
							Command: []string{"sh", "-c", script},
							Env: []corev1.EnvVar{
								secretEnv(rootPasswordVar, params.DatabaseSecret, "password"),
								secretEnv("SERVICE_PASSWORD", params.SecretName, "password"),
							},
						},
					},
				},
			},
		},
	}

	if owner != nil {
		_ = controllerutil.SetOwnerReference(owner, job, c.Scheme())
	}
	return c.Create(ctx, job)
}

// ConnectionURL returns the SQLAlchemy connection string for the given engine.
func ConnectionURL(engine, username, password, host, database string) string {
	scheme := "mysql+pymysql"
	if engine == "postgresql" {
		scheme = "postgresql+psycopg2"
	}
	u := url.URL{
		Scheme: scheme,
		User:   url.UserPassword(username, password),
		Host:   host,
		Path:   "/" + database,
	}
	return u.String()
}

func secretEnv(name, secret, key string) corev1.EnvVar {
	return corev1.EnvVar{
		Name: name,
		ValueFrom: &corev1.EnvVarSource{
			SecretKeyRef: &corev1.SecretKeySelector{
				LocalObjectReference: corev1.LocalObjectReference{Name: secret},
				Key:                  key,
			},
		},
	}
}

// IsJobComplete returns true if the Job has a Complete condition.
func IsJobComplete(ctx context.Context, c client.Client, name, namespace string) (bool, error) {
	return jobHasCondition(ctx, c, name, namespace, batchv1.JobComplete)
}

// IsJobFailed returns true if the Job has a Failed condition.
func IsJobFailed(ctx context.Context, c client.Client, name, namespace string) (bool, error) {
	return jobHasCondition(ctx, c, name, namespace, batchv1.JobFailed)
}

func jobHasCondition(ctx context.Context, c client.Client, name, namespace string, condType batchv1.JobConditionType) (bool, error) {
	job := &batchv1.Job{}
	if err := c.Get(ctx, types.NamespacedName{Name: name, Namespace: namespace}, job); err != nil {
		if errors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	for _, cond := range job.Status.Conditions {
		if cond.Type == condType && cond.Status == corev1.ConditionTrue {
			return true, nil
		}
	}
	return false, nil
}
