//go:build !linux && !windows

package process

import "golang.org/x/sys/unix"

// groupAlive reports whether any process still belongs to pgid.
func groupAlive(pgid int) bool {
	return unix.Kill(-pgid, 0) == nil
}
