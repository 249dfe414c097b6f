package version

// Version is the current version of the rates-export CLI.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/rxtech-lab/rates-export/internal/version.Version=1.2.3"
// The default value "main" indicates a development build.
var Version = "main"

// BridgeAPIVersion is the terminal bridge API version this client speaks.
const BridgeAPIVersion = "1.0.0"

// GetVersion returns the current version of the CLI.
func GetVersion() string {
	return Version
}
