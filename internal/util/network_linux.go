//go:build linux
// +build linux

package util

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// networkMagic are the kernel VFS magic numbers of network filesystems
var networkMagic = map[uint32]string{
	0x6969:     "nfs",   // NFS_SUPER_MAGIC
	0xff534d42: "cifs",  // CIFS_MAGIC_NUMBER
	0x517b:     "smb",   // SMB_SUPER_MAGIC
	0xfe534d42: "smb2",  // SMB2_MAGIC_NUMBER
	0x564c:     "ncp",   // NCP_SUPER_MAGIC
	0x01021994: "smbfs", // old SMBFS magic
}

// networkFsTypes are /proc/mounts type names that mean a remote volume
var networkFsTypes = []string{"nfs", "cifs", "smb", "ncpfs", "fuse.sshfs", "fuse.rclone"}

// detectPlatformNetwork detects network filesystems on Linux
func detectPlatformNetwork(path string, stat *syscall.Statfs_t) (*NetworkInfo, error) {
	info := &NetworkInfo{}

	if proto, found := networkMagic[uint32(stat.Type)]; found {
		info.IsNetwork = true
		info.Protocol = proto
	}

	mounts, err := parseProcMounts()
	if err != nil {
		// Magic number alone is good enough
		return info, nil
	}

	mountPoint := longestMount(path, mounts)
	if mountPoint == "" {
		return info, nil
	}
	info.MountPath = mountPoint

	fsType := strings.ToLower(mounts[mountPoint])
	for _, netType := range networkFsTypes {
		if strings.Contains(fsType, netType) {
			info.IsNetwork = true
			info.Protocol = fsType
			break
		}
	}

	return info, nil
}

// longestMount returns the deepest mount point containing path
func longestMount(path string, mounts map[string]string) string {
	best := ""
	for mountPoint := range mounts {
		if !underMount(path, mountPoint) {
			continue
		}
		if len(mountPoint) > len(best) {
			best = mountPoint
		}
	}
	return best
}

// underMount matches whole path elements, so /mnt does not contain /mnt2
func underMount(path, mountPoint string) bool {
	if mountPoint == "/" || path == mountPoint {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(mountPoint, "/")+string(filepath.Separator))
}

// parseProcMounts maps mount points to filesystem types
func parseProcMounts() (map[string]string, error) {
	file, err := os.Open("/proc/mounts")
	if err != nil {
		return nil, err
	}
	defer file.Close()

	mounts := make(map[string]string)
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		// device mountpoint fstype options dump pass
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		mounts[unescapeMount(fields[1])] = fields[2]
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return mounts, nil
}

// unescapeMount decodes the octal escapes /proc/mounts uses for spaces and tabs
func unescapeMount(s string) string {
	r := strings.NewReplacer(`\040`, " ", `\011`, "\t", `\012`, "\n", `\134`, `\`)
	return r.Replace(s)
}
