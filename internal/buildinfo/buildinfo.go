// Package buildinfo holds build-time metadata injected with -ldflags.
package buildinfo

import "fmt"

// UnknownValue is reported for metadata the build did not set
const UnknownValue = "unknown"

// Info describes the running binary
type Info struct {
	Version   string // Git version tag
	BuildDate string
}

// New returns Info with empty values replaced by UnknownValue.
func New(version, buildDate string) Info {
	if version == "" {
		version = UnknownValue
	}
	if buildDate == "" {
		buildDate = UnknownValue
	}
	return Info{Version: version, BuildDate: buildDate}
}

// String formats the version line printed by --version.
func (i Info) String() string {
	if i.Version == "" {
		i = New(i.Version, i.BuildDate)
	}
	if i.BuildDate == UnknownValue || i.BuildDate == "" {
		return i.Version
	}
	return fmt.Sprintf("%s (built %s)", i.Version, i.BuildDate)
}

