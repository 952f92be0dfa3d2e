package main

import (
	"bufio"
	"io"
	"os"
	"runtime"
	"strings"
)

// PlatformFamily classifies the host OS for install dispatch.
type PlatformFamily string

const (
	FamilyDebian  PlatformFamily = "debian"
	FamilyRedHat  PlatformFamily = "rhel"
	FamilyDarwin  PlatformFamily = "darwin"
	FamilyUnknown PlatformFamily = "unknown"
)

// Platform is the immutable detection result. Detection never fails; an
// unknown family only becomes an error when a later stage needs OS-specific
// dispatch.
type Platform struct {
	Family  PlatformFamily
	Version string

	// PrettyName is the human-readable OS name when available, for the
	// summary and logs only.
	PrettyName string
}

// DetectPlatform identifies the host OS family and version.
//
// # Description
//
// On Linux, parses /etc/os-release (ID, ID_LIKE, VERSION_ID, PRETTY_NAME)
// and maps distribution IDs onto the debian or rhel families. On macOS the
// family is darwin. Anything else is unknown.
//
// No side effects; pure function of host state.
func DetectPlatform() Platform {
	if runtime.GOOS == "darwin" {
		return Platform{Family: FamilyDarwin, PrettyName: "macOS"}
	}
	if runtime.GOOS != "linux" {
		return Platform{Family: FamilyUnknown}
	}

	f, err := os.Open("/etc/os-release")
	if err != nil {
		return Platform{Family: FamilyUnknown}
	}
	defer f.Close()

	return platformFromOSRelease(f)
}

// platformFromOSRelease parses an os-release stream. Split out for tests.
func platformFromOSRelease(f io.Reader) Platform {
	fields := map[string]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		fields[k] = strings.Trim(v, `"`)
	}
	return platformFromFields(fields)
}

func platformFromFields(fields map[string]string) Platform {
	p := Platform{
		Family:     FamilyUnknown,
		Version:    fields["VERSION_ID"],
		PrettyName: fields["PRETTY_NAME"],
	}

	ids := []string{fields["ID"]}
	ids = append(ids, strings.Fields(fields["ID_LIKE"])...)

	for _, id := range ids {
		switch strings.ToLower(id) {
		case "debian", "ubuntu", "linuxmint", "raspbian", "pop":
			p.Family = FamilyDebian
			return p
		case "rhel", "centos", "fedora", "rocky", "almalinux", "ol":
			p.Family = FamilyRedHat
			return p
		}
	}
	return p
}
