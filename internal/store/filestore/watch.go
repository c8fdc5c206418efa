package filestore

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounce coalesces the burst of events an editor produces on save.
const debounce = 100 * time.Millisecond

type watcher struct {
	fs       *fsnotify.Watcher
	name     string
	onChange func()
	log      *zap.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// newWatcher watches the directory of path, since an atomic rename replaces
// the file inode and a file watch would go stale.
func newWatcher(path string, onChange func(), log *zap.Logger) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("filestore: create watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("filestore: watch %s: %w", dir, err)
	}
	w := &watcher{
		fs:       fw,
		name:     filepath.Base(path),
		onChange: onChange,
		log:      log,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *watcher) run() {
	defer close(w.doneCh)
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != w.name {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.onChange()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *watcher) stop() error {
	close(w.stopCh)
	<-w.doneCh
	return w.fs.Close()
}
