package assets

import (
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/nou/engine/core"
)

// ShaderWatcher reports writes to a fixed set of files. It only sends paths;
// reacting to them is up to whoever drains Changes.
type ShaderWatcher struct {
	fsnotify *fsnotify.Watcher
	files    map[string]struct{}

	changes chan string
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewShaderWatcher watches the directories holding files. Editors and
// compilers often replace a file instead of writing it in place, which a
// watch on the file itself would miss.
func NewShaderWatcher(files ...string) (*ShaderWatcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create file watcher")
	}

	sw := &ShaderWatcher{
		fsnotify: fsWatch,
		files:    make(map[string]struct{}, len(files)),
		changes:  make(chan string, 16),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	dirs := make(map[string]struct{})
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fsWatch.Close()
			return nil, errors.Wrapf(err, "resolve %s", f)
		}
		sw.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsWatch.Add(dir); err != nil {
			fsWatch.Close()
			return nil, errors.Wrapf(err, "watch %s", dir)
		}
	}

	go sw.start()
	return sw, nil
}

func (sw *ShaderWatcher) start() {
	defer close(sw.stopped)
	for {
		select {
		case e, ok := <-sw.fsnotify.Events:
			if !ok {
				return
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if _, watched := sw.files[filepath.Clean(e.Name)]; !watched {
				continue
			}
			select {
			case sw.changes <- e.Name:
			default:
				// A reload is already pending, it will pick this up too.
			}

		case err, ok := <-sw.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("shader watcher: %s", err)

		case <-sw.done:
			return
		}
	}
}

func (sw *ShaderWatcher) Changes() <-chan string {
	return sw.changes
}

// Drain empties the pending changes without blocking and returns the
// distinct paths that changed.
func (sw *ShaderWatcher) Drain() []string {
	var changed []string
	seen := make(map[string]struct{})
	for {
		select {
		case path := <-sw.changes:
			if _, dup := seen[path]; !dup {
				seen[path] = struct{}{}
				changed = append(changed, path)
			}
		default:
			return changed
		}
	}
}

func (sw *ShaderWatcher) Close() error {
	var err error
	sw.once.Do(func() {
		close(sw.done)
		<-sw.stopped
		err = sw.fsnotify.Close()
	})
	return err
}
