package prompts

import (
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates cached prompt records when their files change on disk.
type Watcher struct {
	svc     *Service
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Watch starts a background watcher on the service's prompt directory.
// If the watcher cannot be created the service keeps working without hot
// reload; callers only need to Close the returned watcher when non-nil.
func Watch(svc *Service) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(svc.Directory()); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		svc:     svc,
		watcher: fw,
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			name := filepath.Base(event.Name)
			if !strings.HasSuffix(name, ".yaml") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.svc.invalidate(strings.TrimSuffix(name, ".yaml"))
			}
		case <-w.watcher.Errors:
			// Ignore errors, keep watching
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
