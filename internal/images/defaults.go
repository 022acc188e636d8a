package images

// Default images of the Jobs the Glance operator runs. The glance-api
// container itself is provided by the deployment system.
// OpenStack images are from the Kolla project for the 2025.1 (Epoxy) release.
const (
	// DefaultOpenStackClient runs the Keystone registration Job.
	DefaultOpenStackClient = "quay.io/openstack.kolla/keystone:2025.1"

	DefaultMySQLClient      = "mysql:8.4"
	DefaultMariaDBClient    = "mariadb:11"
	DefaultPostgreSQLClient = "postgres:17"
)

// DatabaseClient returns the client image for the given SQL engine.
func DatabaseClient(engine string) string {
	switch engine {
	case "mariadb":
		return DefaultMariaDBClient
	case "postgresql":
		return DefaultPostgreSQLClient
	default:
		return DefaultMySQLClient
	}
}
