package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Collect expands path into the WAV files to process. A file yields itself;
// a directory yields its *.wav entries sorted by name, without recursion.
func Collect(path string) ([]string, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false, fmt.Errorf("audio %q: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, false, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, true, fmt.Errorf("read audio directory %q: %w", path, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), ".wav") {
			continue
		}
		files = append(files, filepath.Join(path, entry.Name()))
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil, true, fmt.Errorf("no .wav files in %q", path)
	}
	return files, true, nil
}
