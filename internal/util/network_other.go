//go:build !linux && !darwin
// +build !linux,!darwin

package util

import "syscall"

// detectPlatformNetwork treats every volume as local where no probe exists
func detectPlatformNetwork(path string, stat *syscall.Statfs_t) (*NetworkInfo, error) {
	return &NetworkInfo{}, nil
}
