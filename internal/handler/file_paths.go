package handler

import (
	"os"
	"path/filepath"
	"strings"

	"storyreel/internal/appdirs"
)

type downloadRoot struct {
	alias string
	dir   string
}

func (h Handler) downloadRoots() []downloadRoot {
	return []downloadRoot{
		{alias: appdirs.ContentRootName, dir: h.Service.ContentDir()},
		{alias: appdirs.RenderRootName, dir: h.Service.OutputDir()},
	}
}

// resolveDownloadPath maps "<alias>/<rel>" onto a file below that root. Only
// the content and render roots are served.
func resolveDownloadPath(requested string, roots []downloadRoot) (string, bool) {
	requested = strings.TrimSpace(requested)
	requested = strings.TrimPrefix(requested, string(filepath.Separator))
	requested = strings.TrimPrefix(requested, "/")
	if hasParentTraversal(requested) {
		return "", false
	}
	requested = filepath.ToSlash(filepath.Clean(requested))

	for _, root := range roots {
		prefix := root.alias + "/"
		if !strings.HasPrefix(requested, prefix) || strings.TrimSpace(root.dir) == "" {
			continue
		}
		rel := filepath.FromSlash(strings.TrimPrefix(requested, prefix))
		candidate := filepath.Clean(filepath.Join(root.dir, rel))
		if !isPathWithinRoot(root.dir, candidate) {
			return "", false
		}
		if info, err := os.Stat(candidate); err != nil || info.IsDir() {
			return "", false
		}
		return candidate, true
	}
	return "", false
}

func isPathWithinRoot(root, candidate string) bool {
	root = filepath.Clean(root)
	candidate = filepath.Clean(candidate)

	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func hasParentTraversal(path string) bool {
	normalized := strings.ReplaceAll(path, "\\", "/")
	parts := strings.Split(normalized, "/")
	for _, part := range parts {
		if part == ".." {
			return true
		}
	}
	return false
}
