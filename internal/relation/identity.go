package relation

import (
	"context"
	"fmt"

	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	glancev1alpha1 "github.com/mrrauch/glance-operator/api/v1alpha1"
	"github.com/mrrauch/glance-operator/internal/common"
	"github.com/mrrauch/glance-operator/internal/images"
	"github.com/mrrauch/glance-operator/internal/storage"
)

const (
	serviceUser    = "glance"
	serviceProject = "service"
	defaultRegion  = "RegionOne"
)

// Identity registers the glance user, the image service and its endpoints in
// Keystone.
type Identity struct {
	Client client.Client
}

var _ Handler = (*Identity)(nil)

func (i *Identity) Name() string { return IdentityRelation }

func (i *Identity) Observe(ctx context.Context, instance *glancev1alpha1.Glance) (storage.RelationState, error) {
	secretName := ServicePasswordSecretName(instance.Name)
	if err := common.EnsureSecret(ctx, i.Client, secretName, instance.Namespace, map[string]int{"password": 32}, instance); err != nil {
		return pending(IdentityRelation), fmt.Errorf("ensure service password: %w", err)
	}

	region := instance.Spec.Identity.Region
	if region == "" {
		region = defaultRegion
	}
	keystoneURL, keystoneSecret := keystoneDependency(instance.Name, instance.Namespace)
	internalURL := InternalURL(instance)
	if err := common.EnsureKeystoneEndpoint(ctx, i.Client, common.EndpointParams{
		Name:                  instance.Name,
		Namespace:             instance.Namespace,
		ServiceName:           "glance",
		ServiceType:           "image",
		InternalURL:           internalURL,
		PublicURL:             PublicURL(instance),
		AdminURL:              internalURL,
		Region:                region,
		ServiceUser:           serviceUser,
		ServiceProject:        serviceProject,
		ServicePasswordSecret: secretName,
		KeystoneSecret:        keystoneSecret,
		KeystoneURL:           keystoneURL,
		BootstrapImage:        images.DefaultOpenStackClient,
	}, instance); err != nil {
		return pending(IdentityRelation), fmt.Errorf("ensure keystone endpoint: %w", err)
	}

	done, err := jobDone(ctx, i.Client, common.EndpointJobName(instance.Name), instance.Namespace)
	if err != nil || !done {
		log.FromContext(ctx).V(1).Info("Waiting for keystone registration", "relation", IdentityRelation)
		return pending(IdentityRelation), err
	}

	creds, err := common.ReadSecretData(ctx, i.Client, secretName, instance.Namespace)
	if err != nil {
		return pending(IdentityRelation), err
	}
	if creds["password"] == "" {
		return pending(IdentityRelation), nil
	}

	return ready(IdentityRelation, map[string]string{
		"auth_url": keystoneURL,
		"region":   region,
		"project":  serviceProject,
		"username": serviceUser,
		"password": creds["password"],
	}), nil
}

// ServicePasswordSecretName is the Secret holding the Keystone password of the
// glance service user.
func ServicePasswordSecretName(instance string) string {
	return fmt.Sprintf("%s-service-password", instance)
}
