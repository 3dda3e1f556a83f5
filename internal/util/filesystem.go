package util

import (
	"os"
	"path/filepath"
	"syscall"
)

// IsSameFilesystem checks if two paths are on the same filesystem
// by comparing their device IDs (st_dev).
// Paths that do not exist yet are resolved to their closest existing ancestor,
// so an archive root can be checked before it is created.
// Returns (false, err) if neither the path nor any ancestor can be stat'd
func IsSameFilesystem(path1, path2 string) (bool, error) {
	stat1, err := statExistingAncestor(path1)
	if err != nil {
		return false, err
	}

	stat2, err := statExistingAncestor(path2)
	if err != nil {
		return false, err
	}

	sysStat1, ok1 := stat1.Sys().(*syscall.Stat_t)
	sysStat2, ok2 := stat2.Sys().(*syscall.Stat_t)

	if !ok1 || !ok2 {
		// Can't tell; report different so callers refuse a non-atomic move
		return false, nil
	}

	return sysStat1.Dev == sysStat2.Dev, nil
}

// statExistingAncestor stats path, walking up until an existing entry is found
func statExistingAncestor(path string) (os.FileInfo, error) {
	_, info, err := existingAncestor(path)
	return info, err
}

// existingAncestor returns the closest existing path at or above path
func existingAncestor(path string) (string, os.FileInfo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", nil, err
	}

	for {
		info, err := os.Stat(abs)
		if err == nil {
			return abs, info, nil
		}
		if !os.IsNotExist(err) {
			return "", nil, err
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", nil, err
		}
		abs = parent
	}
}
