package opencl

import (
	"fmt"
	"regexp"
	"strconv"
)

// versionPattern matches the "OpenCL C <major>.<minor>" or "CL<major>.<minor>"
// forms a platform or entry point's LanguageVersion string may take.
var versionPattern = regexp.MustCompile(`(?i)(?:opencl\s*c?\s*|cl)\s*(\d+)\.(\d+)`)

// ParseLanguageVersion extracts the (major, minor) OpenCL C version from
// strings like "OpenCL C 1.2", "CL2.0", or the raw platform string
// "OpenCL 2.1 ROCm". Returns an error if no CL1.0 through CL3.0-shaped
// pattern is found.
func ParseLanguageVersion(s string) (major, minor int, err error) {
	m := versionPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("opencl: could not parse language version from %q", s)
	}
	major, _ = strconv.Atoi(m[1])
	minor, _ = strconv.Atoi(m[2])
	if major < 1 || major > 3 {
		return 0, 0, fmt.Errorf("opencl: unsupported language version %d.%d (expected CL1.0 through CL3.0)", major, minor)
	}
	return major, minor, nil
}

// buildOptionsFor returns the -cl-std build option matching the
// requested language version, or "" when version is empty (letting the
// driver pick its default).
func buildOptionsFor(languageVersion string) string {
	if languageVersion == "" {
		return ""
	}
	major, minor, err := ParseLanguageVersion(languageVersion)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("-cl-std=CL%d.%d", major, minor)
}
