// Package version holds the tool version and descriptor version constraints.
package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version is the running imagen version, overridable at build time via
// -ldflags "-X .../internal/core/version.Version=...".
var Version = "1.2.0"

// Check verifies that the running version satisfies the constraint a
// descriptor declares in its imagen.version field. Constraints use semver
// range syntax (">= 1.0", "~1.2", "1.x"); a bare version is an exact match.
func Check(constraint string) error {
	current, err := semver.NewVersion(strings.TrimPrefix(Version, "v"))
	if err != nil {
		return fmt.Errorf("running version %q is not a valid semantic version: %w", Version, err)
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("descriptor version requirement %q is not a valid constraint: %w", constraint, err)
	}

	if !c.Check(current) {
		return fmt.Errorf("descriptor requires imagen version %q, but this is version %s", constraint, Version)
	}
	return nil
}
