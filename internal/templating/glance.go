package templating

import (
	"errors"

	"gopkg.in/ini.v1"

	"github.com/mrrauch/glance-operator/internal/charm"
)

// FilestoreDir is where the file backend keeps images. The local-repository
// storage is mounted here.
const FilestoreDir = "/var/lib/glance/images/"

// GlanceAPIConf renders glance-api.conf. The store is ceph when the ceph
// context carries data, the local filestore otherwise.
func GlanceAPIConf(contexts charm.Contexts) (*ini.File, error) {
	opts := contexts.Get(charm.ContextOptions)
	db := contexts.Get("database")
	identity := contexts.Get("identity_service")
	ceph := contexts.Get(charm.ContextCeph)
	cephConfig := contexts.Get(charm.ContextCephConfig)

	if db["connection"] == "" {
		return nil, errors.New("database context has no connection")
	}

	backend, backendType := "filestore", "file"
	if len(ceph) > 0 {
		backend, backendType = "ceph", "rbd"
	}

	sections := []iniSection{
		{ini.DefaultSection, [][2]string{
			{"debug", opts["debug"]},
			{"bind_port", opts["api_port"]},
			{"enabled_backends", backend + ":" + backendType},
		}},
		{"database", [][2]string{
			{"connection", db["connection"]},
			{"connection_recycle_time", "200"},
		}},
		{"keystone_authtoken", [][2]string{
			{"www_authenticate_uri", identity["auth_url"]},
			{"auth_url", identity["auth_url"]},
			{"auth_type", "password"},
			{"project_domain_name", "Default"},
			{"user_domain_name", "Default"},
			{"project_name", identity["project"]},
			{"username", identity["username"]},
			{"password", identity["password"]},
			{"region_name", identity["region"]},
		}},
		{"paste_deploy", [][2]string{{"flavor", "keystone"}}},
		{"glance_store", [][2]string{{"default_backend", backend}}},
	}
	if backend == "ceph" {
		sections = append(sections, iniSection{"ceph", [][2]string{
			{"rbd_store_chunk_size", "8"},
			{"rbd_store_pool", cephConfig["rbd_pool"]},
			{"rbd_store_user", cephConfig["rbd_user"]},
			{"rbd_store_ceph_conf", cephConfig["ceph_conf"]},
		}})
	} else {
		sections = append(sections, iniSection{"filestore", [][2]string{{"filesystem_store_datadir", FilestoreDir}}})
	}

	return build(sections)
}

// CephConf renders ceph.conf from the negotiated ceph relation data.
func CephConf(contexts charm.Contexts) (*ini.File, error) {
	ceph := contexts.Get(charm.ContextCeph)
	if ceph["mon_hosts"] == "" {
		return nil, errors.New("ceph context has no mon_hosts")
	}

	return build([]iniSection{
		{"global", [][2]string{
			{"auth supported", ceph["auth"]},
			{"mon host", ceph["mon_hosts"]},
			{"keyring", "/etc/ceph/$cluster.$name.keyring"},
			{"log to syslog", "false"},
			{"err to syslog", "false"},
			{"clog to syslog", "false"},
		}},
		{"client", [][2]string{
			{"rbd default features", ceph["rbd_features"]},
		}},
	})
}
