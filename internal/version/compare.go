package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckConfigCompatibility checks whether a config file written for configVersion
// can be loaded by a binary at binaryVersion.
// Returns nil if compatible, error with details if not.
//
// Compatibility Rules:
//   - If either version is "main" (development build), compatibility check is skipped
//   - An empty config version is treated as compatible (legacy files carry none)
//   - Major versions must match exactly
//   - The config minor version must not be newer than the binary minor version
//   - Patch versions can differ
//
// Examples:
//   - Binary 1.2.0, Config 1.2.0 -> OK (exact match)
//   - Binary 1.3.0, Config 1.2.4 -> OK (older config)
//   - Binary 1.2.0, Config 1.3.0 -> ERROR (config needs newer binary)
//   - Binary 2.0.0, Config 1.2.0 -> ERROR (major differs)
//   - Binary main, Config 1.2.0 -> OK (dev build, skip check)
func CheckConfigCompatibility(binaryVersion, configVersion string) error {
	// Strip 'v' prefix if present for consistency
	binaryVersion = strings.TrimPrefix(binaryVersion, "v")
	configVersion = strings.TrimPrefix(configVersion, "v")

	if configVersion == "" || binaryVersion == "main" || configVersion == "main" {
		return nil
	}

	binarySemver, err := semver.NewVersion(binaryVersion)
	if err != nil {
		return fmt.Errorf("invalid binary version '%s': %w", binaryVersion, err)
	}

	configSemver, err := semver.NewVersion(configVersion)
	if err != nil {
		return fmt.Errorf("invalid config version '%s': %w", configVersion, err)
	}

	if binarySemver.Major() != configSemver.Major() {
		return fmt.Errorf("major version mismatch: binary is %d.x.x but config requires %d.x.x",
			binarySemver.Major(), configSemver.Major())
	}

	if configSemver.Minor() > binarySemver.Minor() {
		return fmt.Errorf("config requires %d.%d.x but binary is %d.%d.x",
			configSemver.Major(), configSemver.Minor(),
			binarySemver.Major(), binarySemver.Minor())
	}

	return nil
}
