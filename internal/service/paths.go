package service

import (
	"fmt"
	"path/filepath"
	"strings"

	"storyreel/internal/appdirs"
)

func renderOutputPath(outputDir, jobID, compositionID string) string {
	return filepath.Join(appdirs.RenderDirFor(outputDir, jobID), compositionID+".mp4")
}

// resolveDownloadPath maps a file under the output dir onto the /api/file
// namespace.
func resolveDownloadPath(outputDir, localPath string) (string, error) {
	root := appdirs.RenderDirFor(outputDir, "")
	relPath, err := filepath.Rel(filepath.Clean(root), filepath.Clean(localPath))
	if err != nil {
		return "", err
	}
	if relPath == "." || relPath == "" {
		return "", fmt.Errorf("render artifact path %q is not a file path", localPath)
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("render artifact path %q is outside render root %q", localPath, root)
	}
	return filepath.ToSlash(filepath.Join(appdirs.RenderRootName, relPath)), nil
}
