package appdirs

import (
	"path/filepath"
	"strings"
)

const (
	ContentRootName  = "content"
	RenderRootName   = "renders"
	TimelineFileName = "timeline.json"
	imagesDirName    = "images"
	audioDirName     = "audio"
	dbFileName       = "storyreel.db"
)

// StoryDirFor returns content/<storyId>.
func StoryDirFor(contentDir, storyID string) string {
	return filepath.Join(normalizeContentDir(contentDir), storyID)
}

// TimelinePathFor returns content/<storyId>/timeline.json.
func TimelinePathFor(contentDir, storyID string) string {
	return filepath.Join(StoryDirFor(contentDir, storyID), TimelineFileName)
}

// ImagePathFor returns content/<storyId>/images/<uid>.png.
func ImagePathFor(contentDir, storyID, uid string) string {
	return filepath.Join(StoryDirFor(contentDir, storyID), imagesDirName, uid+".png")
}

// AudioPathFor returns content/<storyId>/audio/<uid>.mp3.
func AudioPathFor(contentDir, storyID, uid string) string {
	return filepath.Join(StoryDirFor(contentDir, storyID), audioDirName, uid+".mp3")
}

func RenderDirFor(outputDir, jobID string) string {
	return filepath.Join(normalizeOutputDir(outputDir), jobID)
}

func DBPathFor(paths Paths) string {
	return filepath.Join(normalizeCacheDir(paths.CacheDir), dbFileName)
}

func normalizeOutputDir(outputDir string) string {
	cleaned := strings.TrimSpace(outputDir)
	if cleaned == "" {
		return RenderRootName
	}
	return filepath.Clean(cleaned)
}

func normalizeCacheDir(cacheDir string) string {
	cleaned := strings.TrimSpace(cacheDir)
	if cleaned == "" {
		return "cache"
	}
	return filepath.Clean(cleaned)
}

func normalizeContentDir(contentDir string) string {
	cleaned := strings.TrimSpace(contentDir)
	if cleaned == "" {
		return ContentRootName
	}
	return filepath.Clean(cleaned)
}
