package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileRole(t *testing.T) {
	cases := []struct {
		path string
		want Role
	}{
		{"etc/apps/search/local/savedsearches.conf", RoleSearch},
		{"etc/users/alice/search/local/macros.conf", RoleSearch},
		{"etc/apps/ta/local/eventtypes.conf", RoleSearch},
		{"etc/users/alice/search/local/data/ui/views/dash.xml", RoleSearch},
		{"etc/users/alice/search/local/data/ui/panels/panel.xml", RoleSearch},
		{"etc/users/alice/search/history/host1.csv", RoleSearch},
		{"etc/apps/ta/local/inputs.conf", RoleInput},
		{"etc/apps/ta/local/http_inputs.conf", RoleInput},
		{"etc/apps/ta/local/transforms.conf", RoleTransform},
		{"etc/apps/ta/local/wmi.conf", RoleMisc},
		{"etc/apps/ta/local/metric_alerts.conf", RoleMisc},
		{"etc/apps/ta/local/metric_rollups.conf", RoleMisc},
		{"etc/apps/ta/local/indexes.conf", RoleExcluded},
		{"etc/apps/ta/lookups/hosts.csv", RoleNone},
		{"etc/apps/ta/default/savedsearches.conf", RoleNone},
		{"etc/apps/ta/local/props.conf", RoleNone},
		{"etc/apps/ta/local/readme.txt", RoleNone},
		{"etc/apps/ta/local/dash.xml", RoleNone},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FileRole(tc.path), "path %s", tc.path)
	}
}

func TestIdentity(t *testing.T) {
	t.Run("local conf", func(t *testing.T) {
		key, class := Identity("alice/search/local/savedsearches.conf")
		assert.Equal(t, MergeStanza, class)
		assert.Equal(t, Key{User: "alice", App: "search", Namespace: "local", Filename: "savedsearches.conf"}, key)
	})

	t.Run("metadata", func(t *testing.T) {
		key, class := Identity("alice/search/metadata/local.meta")
		assert.Equal(t, MergeStanza, class)
		assert.Equal(t, "metadata", key.Namespace)
	})

	t.Run("history drops filename", func(t *testing.T) {
		key, class := Identity("alice/search/history/sh01.csv")
		assert.Equal(t, MergeHistory, class)
		assert.Empty(t, key.Filename)
		assert.Equal(t, "history", key.Namespace)
	})

	t.Run("history files from different hosts share a key", func(t *testing.T) {
		k1, _ := Identity("alice/search/history/sh01.csv")
		k2, _ := Identity("alice/search/history/sh02.csv")
		assert.Equal(t, k1, k2)
	})

	t.Run("lookups", func(t *testing.T) {
		_, class := Identity("alice/search/lookups/hosts.csv")
		assert.Equal(t, MergeRename, class)
	})

	t.Run("dashboard xml", func(t *testing.T) {
		key, class := Identity("alice/search/local/data/ui/views/dash.xml")
		assert.Equal(t, MergeRename, class)
		assert.Equal(t, "local/data/ui/views", key.Namespace)
	})

	t.Run("out of scope", func(t *testing.T) {
		_, class := Identity("alice/search/local/data/models/model.json")
		assert.Equal(t, MergeNone, class)
		_, class = Identity("alice/search")
		assert.Equal(t, MergeNone, class)
	})
}

func TestKeyRemap(t *testing.T) {
	key := Key{User: "alice", App: "search", Namespace: "local", Filename: "macros.conf"}
	users := map[string]string{"alice": "alice.smith"}

	assert.Equal(t, "alice.smith", key.Remap(users).User)
	assert.Equal(t, "bob", Key{User: "bob"}.Remap(users).User, "unmapped users pass through")
}

func TestSearchRoots(t *testing.T) {
	t.Run("DS gets deployment-apps and apps", func(t *testing.T) {
		roots := SearchRoots("/opt/splunk", InstanceDS, "")
		assert.Len(t, roots, 5)
		assert.Contains(t, roots, "/opt/splunk/etc/deployment-apps")
		assert.Contains(t, roots, "/opt/splunk/etc/apps")
	})

	t.Run("SH managed by DS skips apps", func(t *testing.T) {
		roots := SearchRoots("/opt/splunk", InstanceSH, "etc/apps")
		assert.NotContains(t, roots, "/opt/splunk/etc/apps")
		assert.Contains(t, roots, "/opt/splunk/etc/users")
	})

	t.Run("CM with managed master-apps keeps apps", func(t *testing.T) {
		roots := SearchRoots("/opt/splunk", InstanceCM, "etc/master-apps")
		assert.Contains(t, roots, "/opt/splunk/etc/apps")
		assert.NotContains(t, roots, "/opt/splunk/etc/master-apps")
	})

	t.Run("deployer default gets shcluster", func(t *testing.T) {
		roots := SearchRoots("/opt/splunk", InstanceDeployer, "")
		assert.Contains(t, roots, "/opt/splunk/etc/shcluster/apps")
	})
}
