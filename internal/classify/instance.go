package classify

import "path/filepath"

// Instance names the deployment role the tool is running on. The role picks
// which configuration directories are scanned: directories a deployment
// server already manages on this host are skipped so the change lands in one
// place only.
type Instance string

const (
	InstanceDS       Instance = "DS"
	InstanceCM       Instance = "CM"
	InstanceSH       Instance = "SH"
	InstanceIDX      Instance = "IDX"
	InstanceHF       Instance = "HF"
	InstanceDeployer Instance = "DEPLOYER"
	InstanceCaptain  Instance = "CAPTAIN"
	InstanceOther    Instance = "OTHER"
)

// Instances lists every accepted instance selector, for CLI validation.
func Instances() []string {
	return []string{"DS", "CM", "SH", "IDX", "HF", "DEPLOYER", "CAPTAIN", "OTHER"}
}

// ManagedDirectories lists the accepted --managed-directory values.
func ManagedDirectories() []string {
	return []string{"etc/apps", "etc/master-apps", "etc/shcluster/apps"}
}

// SearchRoots returns the directories under target that should be scanned
// for the given instance. managed, when non-empty, names the directory an
// external deployment controller populates on this host; the counterpart
// directory is then dropped from the scan.
func SearchRoots(target string, inst Instance, managed string) []string {
	system := filepath.Join(target, "etc/system")
	disabled := filepath.Join(target, "etc/disabled-apps")
	users := filepath.Join(target, "etc/users")
	apps := filepath.Join(target, "etc/apps")
	deployment := filepath.Join(target, "etc/deployment-apps")
	master := filepath.Join(target, "etc/master-apps")
	shcluster := filepath.Join(target, "etc/shcluster/apps")

	all := []string{system, disabled, users}

	switch inst {
	case InstanceDS:
		return append(all, deployment, apps)
	case InstanceCM:
		switch managed {
		case "":
			return append(all, apps, master)
		case "etc/apps":
			return append(all, master)
		case "etc/master-apps":
			return append(all, apps)
		}
	case InstanceDeployer:
		switch managed {
		case "":
			return append(all, apps, shcluster)
		case "etc/apps":
			return append(all, shcluster)
		case "etc/shcluster/apps":
			return append(all, apps)
		}
	case InstanceSH, InstanceIDX, InstanceHF, InstanceOther:
		if managed == "etc/apps" {
			return all
		}
		return append(all, apps)
	}
	return all
}
