package relation

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	glancev1alpha1 "github.com/mrrauch/glance-operator/api/v1alpha1"
	"github.com/mrrauch/glance-operator/internal/common"
	"github.com/mrrauch/glance-operator/internal/storage"
)

// Ingress exposes glance-api through a Service and a Gateway API HTTPRoute.
type Ingress struct {
	Client client.Client
}

var _ Handler = (*Ingress)(nil)

func (i *Ingress) Name() string { return IngressRelation }

func (i *Ingress) Observe(ctx context.Context, instance *glancev1alpha1.Glance) (storage.RelationState, error) {
	name := APIServiceName(instance.Name)
	if err := i.ensureService(ctx, instance, name); err != nil {
		return pending(IngressRelation), fmt.Errorf("ensure service: %w", err)
	}

	if err := common.EnsureHTTPRoute(ctx, i.Client, common.HTTPRouteParams{
		Name:             name,
		Namespace:        instance.Namespace,
		Hostname:         instance.Spec.PublicHostname,
		ServiceName:      name,
		ServicePort:      APIPort,
		GatewayName:      instance.Spec.GatewayRef.Name,
		GatewayNamespace: instance.Spec.GatewayRef.Namespace,
		ListenerName:     instance.Spec.GatewayRef.ListenerName,
	}, instance); err != nil {
		return pending(IngressRelation), fmt.Errorf("ensure httproute: %w", err)
	}

	return ready(IngressRelation, map[string]string{
		"internal_url": InternalURL(instance),
		"public_url":   PublicURL(instance),
	}), nil
}

func (i *Ingress) ensureService(ctx context.Context, instance *glancev1alpha1.Glance, name string) error {
	svc := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: instance.Namespace,
		},
	}
	_, err := controllerutil.CreateOrUpdate(ctx, i.Client, svc, func() error {
		svc.Labels = Labels(instance.Name)
		svc.Spec.Selector = Labels(instance.Name)
		svc.Spec.Ports = []corev1.ServicePort{
			{
				Name:       "api",
				Port:       APIPort,
				TargetPort: intstr.FromInt32(APIPort),
				Protocol:   corev1.ProtocolTCP,
			},
		}
		return controllerutil.SetOwnerReference(instance, svc, i.Client.Scheme())
	})
	return err
}
