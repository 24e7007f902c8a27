package common

// Set via -ldflags "-X aktis-pm-agent/internal/common.Version=..." at release time.
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

func GetVersion() string {
	return Version
}

func GetBuild() string {
	return Build
}

func GetGitCommit() string {
	return GitCommit
}

// UserAgent identifies this service on outbound tracker, model and proxy calls.
func UserAgent() string {
	return "aktis-pm-agent/" + GetFullVersion()
}

func GetFullVersion() string {
	if Build != "unknown" {
		return Version + "-" + Build
	}
	return Version
}
