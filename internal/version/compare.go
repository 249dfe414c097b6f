package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckBridgeCompatibility checks if a terminal bridge reporting bridgeVersion can serve a
// client speaking clientVersion of the bridge API.
// Returns nil if compatible, error with details if not.
//
// Compatibility Rules:
//   - An empty bridge version (bridge predates version reporting) or "main" skips the check
//   - Major versions must match exactly
//   - The bridge minor version must be at least the client's
//   - Patch versions can differ
//
// Examples:
//   - Client 1.2.0, Bridge 1.2.0 -> OK
//   - Client 1.2.0, Bridge 1.4.1 -> OK (bridge is newer within the major)
//   - Client 1.2.0, Bridge 1.1.9 -> ERROR (bridge lacks client features)
//   - Client 1.2.0, Bridge 2.0.0 -> ERROR (major differs)
func CheckBridgeCompatibility(clientVersion, bridgeVersion string) error {
	clientVersion = strings.TrimPrefix(clientVersion, "v")
	bridgeVersion = strings.TrimPrefix(bridgeVersion, "v")

	if bridgeVersion == "" || bridgeVersion == "main" {
		return nil
	}

	clientSemver, err := semver.NewVersion(clientVersion)
	if err != nil {
		return fmt.Errorf("invalid client version '%s': %w", clientVersion, err)
	}

	bridgeSemver, err := semver.NewVersion(bridgeVersion)
	if err != nil {
		return fmt.Errorf("invalid bridge version '%s': %w", bridgeVersion, err)
	}

	if clientSemver.Major() != bridgeSemver.Major() {
		return fmt.Errorf("major version mismatch: client speaks %d.x.x but bridge serves %d.x.x",
			clientSemver.Major(), bridgeSemver.Major())
	}

	constraint, err := semver.NewConstraint(fmt.Sprintf(">= %d.%d.0", clientSemver.Major(), clientSemver.Minor()))
	if err != nil {
		return fmt.Errorf("invalid version constraint: %w", err)
	}

	if !constraint.Check(bridgeSemver) {
		return fmt.Errorf("minor version mismatch: client requires %d.%d.x or newer but bridge serves %s",
			clientSemver.Major(), clientSemver.Minor(), bridgeSemver.String())
	}

	return nil
}
