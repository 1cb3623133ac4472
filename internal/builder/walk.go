package builder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/karrick/godirwalk"
	"github.com/qobs-build/ninjascan/internal/msg"
)

// WalkOptions controls how a scan root is traversed
type WalkOptions struct {
	// Unsorted visits entries in the order the filesystem returns them
	Unsorted       bool
	FollowSymlinks bool
	// Exclude holds doublestar patterns matched against root-relative paths
	Exclude []string
}

// excluded matches rel, a path relative to the scan root
func (o WalkOptions) excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pat := range o.Exclude {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

// joinRoot appends rel to root as given on the command line, so `./src`
// and `src/` keep their spelling in the emitted paths
func joinRoot(root, rel string) string {
	if strings.HasSuffix(root, string(filepath.Separator)) {
		return root + rel
	}
	return root + string(filepath.Separator) + rel
}

// walkTree calls visit with every regular file below root, depth-first.
// A root that is itself a symlink to a directory is resolved first.
func walkTree(root string, opts WalkOptions, visit func(path string) error) error {
	stat, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !stat.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}

	walkRoot := filepath.Clean(root)
	if lstat, err := os.Lstat(walkRoot); err == nil && lstat.Mode()&os.ModeSymlink != 0 {
		if walkRoot, err = filepath.EvalSymlinks(walkRoot); err != nil {
			return err
		}
		msg.Debug("%s resolves to %s", root, walkRoot)
	}

	return godirwalk.Walk(walkRoot, &godirwalk.Options{
		Unsorted:            opts.Unsorted,
		FollowSymbolicLinks: opts.FollowSymlinks,
		ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
			// dangling links met while following symlinks; anything else halts
			if os.IsNotExist(err) {
				msg.Debug("skipping %s: %v", path, err)
				return godirwalk.SkipNode
			}
			return godirwalk.Halt
		},
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path == walkRoot {
				return nil
			}
			rel, err := filepath.Rel(walkRoot, path)
			if err != nil {
				return err
			}
			if opts.excluded(rel) {
				msg.Debug("excluded %s", path)
				if de.IsDir() {
					return godirwalk.SkipThis
				}
				return nil
			}

			switch {
			case de.IsDir():
				return nil
			case de.IsRegular():
				return visit(joinRoot(root, rel))
			case de.IsSymlink():
				target, err := os.Stat(path)
				if err != nil {
					msg.Debug("skipping dangling symlink %s", path)
					return nil
				}
				if target.Mode().IsRegular() {
					return visit(joinRoot(root, rel))
				}
				if target.IsDir() && !opts.FollowSymlinks {
					msg.Debug("not following symlinked directory %s", path)
				}
				return nil
			default:
				msg.Debug("skipping special file %s", path)
				return nil
			}
		},
	})
}
