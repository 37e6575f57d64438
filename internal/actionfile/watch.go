package actionfile

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vk/insituflow/internal/ctxlog"
)

// DefaultDebounce is how long the watcher waits for a burst of writes to
// settle before reporting a change.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reports changes to an action file or directory. Bursts of events
// are coalesced into one notification.
type Watcher struct {
	path     string
	dir      bool
	debounce time.Duration
	fs       *fsnotify.Watcher
	changed  chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher for path. It does not watch until Start.
func NewWatcher(path string, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     abs,
		dir:      info.IsDir(),
		debounce: debounce,
		fs:       fw,
		changed:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. Editors often replace a file instead of writing it
// in place, so a single file is watched through its parent directory.
func (w *Watcher) Start(ctx context.Context) error {
	target := w.path
	if !w.dir {
		target = filepath.Dir(w.path)
	} else {
		err := filepath.WalkDir(w.path, func(p string, d os.DirEntry, err error) error {
			if err != nil || !d.IsDir() || p == w.path {
				return err
			}
			return w.fs.Add(p)
		})
		if err != nil {
			return err
		}
	}
	if err := w.fs.Add(target); err != nil {
		return err
	}
	go w.loop(ctx)
	return nil
}

// Changed delivers one value after each settled burst of relevant events.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changed
}

// Close stops watching.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fs.Close()
	})
	return err
}

func (w *Watcher) relevant(name string) bool {
	if w.dir {
		return Supported(name)
	}
	return filepath.Clean(name) == w.path
}

func (w *Watcher) loop(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(event.Name) {
				continue
			}
			logger.Debug("Action file event.", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			select {
			case w.changed <- struct{}{}:
			default:
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logger.Warn("Action file watcher error.", "error", err)
		}
	}
}
