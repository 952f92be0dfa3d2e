package main

import (
	"os"

	"golang.org/x/sys/unix"
)

// CheckPrivileges verifies the process can install system packages and write
// protected paths on the detected platform.
//
// # Description
//
// Debian and RedHat installs drive the system package manager and write under
// /etc, so they require euid 0. On macOS the container engine is assumed to
// be provided by Docker Desktop and no elevation is needed. The check runs
// before any filesystem mutation: when it fails, cleanup_required is still
// false and recovery is a no-op.
func CheckPrivileges(p Platform) error {
	switch p.Family {
	case FamilyDarwin:
		return nil
	case FamilyDebian, FamilyRedHat:
		if os.Geteuid() != 0 {
			return &PrivilegeError{Detail: "package installation requires root; re-run with sudo"}
		}
		// Root by euid but still confirm the paths we will write are
		// writable (containers and hardened hosts can say otherwise).
		for _, path := range []string{"/etc", "/usr/local/bin"} {
			if err := unix.Access(path, unix.W_OK); err != nil {
				return &PrivilegeError{Detail: path + " is not writable"}
			}
		}
		return nil
	default:
		// Unknown platforms fail later, at OS-specific dispatch.
		return nil
	}
}
