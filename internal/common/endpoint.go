package common

import (
	"context"
	"fmt"
	"strings"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
)

// EndpointParams holds parameters for registering a service user, service and
// endpoints in Keystone.
type EndpointParams struct {
	Name        string
	Namespace   string
	ServiceName string
	ServiceType string
	InternalURL string
	PublicURL   string
	AdminURL    string
	Region      string

	// ServiceUser is created in ServiceProject with the admin role. Its
	// password is read from ServicePasswordSecret.
	ServiceUser           string
	ServiceProject        string
	ServicePasswordSecret string

	KeystoneSecret string
	KeystoneURL    string
	BootstrapImage string
}

// EndpointJobName is the name of the Keystone registration Job of the named instance.
func EndpointJobName(name string) string {
	return fmt.Sprintf("%s-endpoint-create", name)
}

// EnsureKeystoneEndpoint creates a Job that registers the service and its endpoints in Keystone.
func EnsureKeystoneEndpoint(ctx context.Context, c client.Client, params EndpointParams, owner metav1.Object) error {
	jobName := EndpointJobName(params.Name)

	existing := &batchv1.Job{}
	err := c.Get(ctx, types.NamespacedName{Name: jobName, Namespace: params.Namespace}, existing)
	if err == nil {
		return nil
	}
	if !errors.IsNotFound(err) {
		return err
	}

	project := params.ServiceProject
	if project == "" {
		project = "service"
	}

	steps := []string{}
	if params.ServiceUser != "" {
		steps = append(steps,
			fmt.Sprintf(`(openstack project show %s >/dev/null 2>&1 || openstack project create --domain default %s)`, project, project),
			fmt.Sprintf(`(openstack user show %s >/dev/null 2>&1 || openstack user create --domain default --password "$SERVICE_PASSWORD" %s)`, params.ServiceUser, params.ServiceUser),
			fmt.Sprintf(`openstack role add --project %s --user %s admin`, project, params.ServiceUser),
		)
	}
	steps = append(steps,
		fmt.Sprintf(`(openstack service show %s >/dev/null 2>&1 || openstack service create --name %s --description "%s service" %s)`, params.ServiceName, params.ServiceName, params.ServiceName, params.ServiceType),
	)
	for _, ep := range []struct{ iface, url string }{
		{"internal", params.InternalURL},
		{"public", params.PublicURL},
		{"admin", params.AdminURL},
	} {
		steps = append(steps, fmt.Sprintf(
			`(openstack endpoint list --service %s --interface %s --region %s -f value -c ID | grep -q . || openstack endpoint create --region %s %s %s %s)`,
			params.ServiceType, ep.iface, params.Region, params.Region, params.ServiceType, ep.iface, ep.url,
		))
	}
	script := strings.Join(steps, " && ")

	env := []corev1.EnvVar{
		{Name: "OS_AUTH_URL", Value: params.KeystoneURL},
		{Name: "OS_USERNAME", Value: "admin"},
		{Name: "OS_PROJECT_NAME", Value: "admin"},
		{Name: "OS_USER_DOMAIN_NAME", Value: "Default"},
		{Name: "OS_PROJECT_DOMAIN_NAME", Value: "Default"},
		{Name: "OS_IDENTITY_API_VERSION", Value: "3"},
		secretEnv("OS_PASSWORD", params.KeystoneSecret, "password"),
	}
	if params.ServicePasswordSecret != "" {
		env = append(env, secretEnv("SERVICE_PASSWORD", params.ServicePasswordSecret, "password"))
	}

	backoffLimit := int32(6)
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
							Name:    "endpoint-create",
							Image:   params.BootstrapImage,
							Command: []string{"sh", "-c", script},
							Env:     env,
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
