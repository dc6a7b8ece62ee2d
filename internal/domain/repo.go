package domain

import "path"

// Repository is an immutable snapshot of a hosted repository's metadata,
// taken once per analysis request.
type Repository struct {
	Owner         string   `json:"owner"`
	Name          string   `json:"name"`
	FullName      string   `json:"fullName"`
	Description   *string  `json:"description"`
	Stars         int      `json:"stars"`
	Forks         int      `json:"forks"`
	Language      *string  `json:"language"`
	Topics        []string `json:"topics"`
	URL           string   `json:"url"`
	DefaultBranch string   `json:"defaultBranch"`
}

// FileType distinguishes tree entries.
type FileType string

const (
	FileTypeFile      FileType = "file"
	FileTypeDirectory FileType = "directory"
)

// FileInfo is one entry of a repository file tree.
type FileInfo struct {
	Path string   `json:"path"`
	Name string   `json:"name"`
	Type FileType `json:"type"`
	Size int64    `json:"size,omitempty"`
}

// IsDir reports whether the entry is a directory.
func (f FileInfo) IsDir() bool { return f.Type == FileTypeDirectory }

// FileNode is the nested form of the file tree used by the dashboard state.
type FileNode struct {
	Name     string     `json:"name"`
	Path     string     `json:"path"`
	Type     FileType   `json:"type"`
	Size     int64      `json:"size,omitempty"`
	Children []FileNode `json:"children,omitempty"`
}

// BuildTree nests a flat tree listing. Entries whose parent directory is not
// listed are dropped; sibling order is preserved.
func BuildTree(files []FileInfo) []FileNode {
	children := make(map[string][]FileInfo)
	for _, f := range files {
		parent := path.Dir(f.Path)
		if parent == "." {
			parent = ""
		}
		children[parent] = append(children[parent], f)
	}

	var build func(dir string) []FileNode
	build = func(dir string) []FileNode {
		entries := children[dir]
		if len(entries) == 0 {
			return nil
		}
		nodes := make([]FileNode, 0, len(entries))
		for _, e := range entries {
			n := FileNode{Name: e.Name, Path: e.Path, Type: e.Type, Size: e.Size}
			if e.IsDir() {
				n.Children = build(e.Path)
			}
			nodes = append(nodes, n)
		}
		return nodes
	}
	return build("")
}

// FolderPaths returns every directory path in nodes, parents first.
func FolderPaths(nodes []FileNode) []string {
	var out []string
	var walk func([]FileNode)
	walk = func(ns []FileNode) {
		for _, n := range ns {
			if n.Type == FileTypeDirectory {
				out = append(out, n.Path)
				walk(n.Children)
			}
		}
	}
	walk(nodes)
	return out
}
