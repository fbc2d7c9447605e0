package bench

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// skippedDirs are never searched for projects.
var skippedDirs = map[string]struct{}{
	".git":         {},
	".hg":          {},
	".svn":         {},
	"node_modules": {},
	"vendor":       {},
}

// DiscoverProjects lists the project roots under root. With an empty marker every immediate
// subdirectory is a project. Otherwise a project is a directory holding a file whose name
// matches the marker glob; the walk does not descend into a project once found.
func DiscoverProjects(root, marker string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("benchmark repo %s is not a directory", root)
	}
	if marker != "" {
		if _, err := filepath.Match(marker, ""); err != nil {
			return nil, fmt.Errorf("invalid project marker %q: %w", marker, err)
		}
	}

	if marker == "" {
		return immediateSubdirs(root)
	}

	var projects []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if _, skip := skippedDirs[d.Name()]; skip && path != root {
			return filepath.SkipDir
		}

		found, err := hasMarker(path, marker)
		if err != nil {
			return err
		}
		if found {
			projects = append(projects, path)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(projects)
	return projects, nil
}

func immediateSubdirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var projects []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, skip := skippedDirs[entry.Name()]; skip {
			continue
		}
		projects = append(projects, filepath.Join(root, entry.Name()))
	}
	slices.Sort(projects)
	return projects, nil
}

// hasMarker reports whether dir directly contains a regular file matching the marker glob.
func hasMarker(dir, marker string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return false, nil
		}
		return false, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if matched, _ := filepath.Match(marker, entry.Name()); matched {
			return true, nil
		}
	}
	return false, nil
}
