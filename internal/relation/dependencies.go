package relation

import (
	"fmt"
	"strings"
)

// serviceSuffix is what a control plane appends to its own name to name the
// Glance instance it manages.
const serviceSuffix = "-glance"

func controlPlanePrefix(instanceName string) string {
	if !strings.HasSuffix(instanceName, serviceSuffix) {
		return ""
	}
	return strings.TrimSuffix(instanceName, serviceSuffix)
}

func databaseDependency(instanceName, namespace string) (host, rootSecret string) {
	databaseName := "database"
	if prefix := controlPlanePrefix(instanceName); prefix != "" {
		databaseName = fmt.Sprintf("%s-database", prefix)
	}

	return fmt.Sprintf("%s.%s.svc", databaseName, namespace), fmt.Sprintf("%s-root-password", databaseName)
}

func keystoneDependency(instanceName, namespace string) (url, adminSecret string) {
	keystoneName := "keystone"
	if prefix := controlPlanePrefix(instanceName); prefix != "" {
		keystoneName = fmt.Sprintf("%s-keystone", prefix)
	}

	return fmt.Sprintf("http://%s-api.%s.svc:5000/v3", keystoneName, namespace), fmt.Sprintf("%s-admin-password", keystoneName)
}
