package jsrt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dop251/goja_nodejs/require"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
)

// DefaultWorkdir is where staged files appear to user code.
const DefaultWorkdir = "/workspace"

// Relative maps a user-supplied path onto the workspace: absolute paths
// under workdir, "./x" and bare "x" all resolve to "x". Paths cannot climb
// out of the workspace.
func Relative(workdir, name string) string {
	p := name
	if workdir != "" && workdir != "/" && (p == workdir || strings.HasPrefix(p, workdir+"/")) {
		p = strings.TrimPrefix(p, workdir)
	}
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

// NewWorkspace stages files into an in-memory filesystem.
func NewWorkspace(workdir string, files map[string]string) (billy.Filesystem, error) {
	ws := memfs.New()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rel := Relative(workdir, name)
		if rel == "" {
			return nil, fmt.Errorf("stage %q: not a file path", name)
		}
		if dir := path.Dir(rel); dir != "." {
			if err := ws.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("stage %q: %w", name, err)
			}
		}
		if err := util.WriteFile(ws, rel, []byte(files[name]), 0o644); err != nil {
			return nil, fmt.Errorf("stage %q: %w", name, err)
		}
	}
	return ws, nil
}

// ReadTree loads every regular file below root of src into a map keyed by
// slash-separated path relative to root. Entries under skip directories are
// ignored.
func ReadTree(src billy.Filesystem, root string, skip ...string) (map[string]string, error) {
	files := map[string]string{}
	err := util.Walk(src, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if info.IsDir() {
			for _, s := range skip {
				if rel == s {
					return filepath.SkipDir
				}
			}
			return nil
		}
		data, readErr := util.ReadFile(src, p)
		if readErr != nil {
			return readErr
		}
		files[rel] = string(data)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read tree %s: %w", root, err)
	}
	return files, nil
}

// load is the require() source loader over the workspace.
func (r *Runtime) load(p string) ([]byte, error) {
	if r.opts.Workspace == nil {
		return nil, require.ModuleFileDoesNotExistError
	}
	rel := Relative(r.opts.Workdir, p)
	info, err := r.opts.Workspace.Stat(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, require.ModuleFileDoesNotExistError
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, require.ModuleFileDoesNotExistError
	}
	data, err := util.ReadFile(r.opts.Workspace, rel)
	if err != nil {
		return nil, err
	}
	r.boundary.Mark(p)
	return data, nil
}
