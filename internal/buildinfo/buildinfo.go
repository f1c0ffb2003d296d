package buildinfo

import "runtime"

// Set with -ldflags "-X donationroute/internal/buildinfo.Version=..."
var (
	Service = "donationroute-api"
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

func Info() map[string]string {
	return map[string]string{
		"service":   Service,
		"version":   Version,
		"commit":    Commit,
		"builtAt":   BuiltAt,
		"goVersion": runtime.Version(),
	}
}
