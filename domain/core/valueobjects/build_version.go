package valueobjects

import "fmt"

// BuildVersion is a named filtering profile controlling sensitivity-based
// exclusion of atoms from an assembled biography
type BuildVersion string

const (
	VersionMain     BuildVersion = "main"
	VersionSafe     BuildVersion = "safe"
	VersionExplicit BuildVersion = "explicit"
	VersionPrivate  BuildVersion = "private"
)

// ParseBuildVersion normalizes a version flag. An absent flag defaults to
// main rather than passing atoms through unfiltered.
func ParseBuildVersion(s string) (BuildVersion, error) {
	switch BuildVersion(s) {
	case VersionMain, VersionSafe, VersionExplicit, VersionPrivate:
		return BuildVersion(s), nil
	case "":
		return VersionMain, nil
	default:
		return "", fmt.Errorf("unknown build version %q", s)
	}
}

// OrDefault returns the version, substituting main when unset
func (v BuildVersion) OrDefault() BuildVersion {
	if v == "" {
		return VersionMain
	}
	return v
}

// Strictness orders versions by how aggressively they filter: safe > main >
// explicit = private. A higher value means fewer atoms survive.
func (v BuildVersion) Strictness() int {
	switch v.OrDefault() {
	case VersionSafe:
		return 2
	case VersionMain:
		return 1
	default:
		return 0
	}
}

// IsValid reports whether the version is one of the known profiles
func (v BuildVersion) IsValid() bool {
	switch v {
	case VersionMain, VersionSafe, VersionExplicit, VersionPrivate:
		return true
	}
	return false
}
