package sync

import (
	"path/filepath"
	"strings"
)

// PathMapper maps local paths into the remote namespace.
type PathMapper struct {
	root string
}

// NewPathMapper creates a PathMapper for the tree at `root`.
func NewPathMapper(root string) PathMapper {
	root = filepath.Clean(root)
	if !strings.HasSuffix(root, string(filepath.Separator)) {
		root += string(filepath.Separator)
	}
	return PathMapper{root: root}
}

// RemotePath strips the root from `local`. The rest of the path is returned
// unchanged.
func (m PathMapper) RemotePath(local string) string {
	return strings.TrimPrefix(local, m.root)
}
