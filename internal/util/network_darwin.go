//go:build darwin
// +build darwin

package util

import (
	"strings"
	"syscall"
)

// networkFsTypes are statfs type names of remote volumes on macOS
var networkFsTypes = []string{"nfs", "smbfs", "afpfs", "cifs", "webdav", "macfuse", "osxfuse"}

// detectPlatformNetwork reads the type and mount point straight from statfs
func detectPlatformNetwork(path string, stat *syscall.Statfs_t) (*NetworkInfo, error) {
	info := &NetworkInfo{MountPath: cString(stat.Mntonname[:])}

	fsType := strings.ToLower(cString(stat.Fstypename[:]))
	for _, netType := range networkFsTypes {
		if strings.Contains(fsType, netType) {
			info.IsNetwork = true
			info.Protocol = fsType
			break
		}
	}

	return info, nil
}

// cString converts a NUL-terminated int8 array
func cString(arr []int8) string {
	b := make([]byte, 0, len(arr))
	for _, c := range arr {
		if c == 0 {
			break
		}
		b = append(b, byte(c))
	}
	return string(b)
}
