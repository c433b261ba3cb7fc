package timeline

import (
	"errors"
	"os"
	"sort"

	"storyreel/internal/appdirs"
)

// Discover lists the story ids that have a timeline.json under contentDir.
// A missing content dir is not an error; it just has no stories.
func Discover(contentDir string) ([]string, error) {
	entries, err := os.ReadDir(appdirs.StoryDirFor(contentDir, ""))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, statErr := os.Stat(appdirs.TimelinePathFor(contentDir, entry.Name()))
		if statErr != nil || info.IsDir() {
			continue
		}
		ids = append(ids, entry.Name())
	}
	sort.Strings(ids)
	return ids, nil
}
