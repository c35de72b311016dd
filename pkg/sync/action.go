package sync

import "fmt"

// ActionKind is the kind of change to replay on the remote store.
type ActionKind int

const (
	// CreateAction is a file or directory appearing in the tree.
	CreateAction ActionKind = iota + 1

	// DeleteAction is a file or directory leaving the tree.
	DeleteAction

	// WriteAction is a file whose contents changed.
	WriteAction

	// RenameAction is a file or directory moving within the tree.
	RenameAction
)

func (kind ActionKind) String() string {
	switch kind {
	case CreateAction:
		return "create"
	case DeleteAction:
		return "delete"
	case WriteAction:
		return "write"
	case RenameAction:
		return "rename"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(kind))
	}
}

// An Action is a semantic change derived from one or more notifications.
type Action struct {
	Kind ActionKind

	// Path is the affected path. For renames, it's the destination.
	Path string

	// From is the source of a rename. It's empty for other kinds.
	From string

	IsDir bool
}

// Create returns a CreateAction for `path`.
func Create(path string, isDir bool) Action {
	return Action{Kind: CreateAction, Path: path, IsDir: isDir}
}

// Delete returns a DeleteAction for `path`.
func Delete(path string, isDir bool) Action {
	return Action{Kind: DeleteAction, Path: path, IsDir: isDir}
}

// Write returns a WriteAction for `path`.
func Write(path string) Action {
	return Action{Kind: WriteAction, Path: path}
}

// Rename returns a RenameAction from `from` to `to`.
func Rename(from, to string, isDir bool) Action {
	return Action{Kind: RenameAction, From: from, Path: to, IsDir: isDir}
}

func (action Action) String() string {
	if action.Kind == RenameAction {
		return fmt.Sprintf("%s(%s -> %s, dir=%t)", action.Kind, action.From, action.Path, action.IsDir)
	}
	return fmt.Sprintf("%s(%s, dir=%t)", action.Kind, action.Path, action.IsDir)
}
