package config

import (
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/geostore/engine/core"
)

// Watcher reloads a configuration file whenever it is written and publishes
// the result. Only the newest configuration is kept if the reader falls behind.
type Watcher struct {
	path     string
	fsnotify *fsnotify.Watcher

	updates chan Config
	errors  chan error
	done    chan struct{}
	closed  sync.Once
	wg      sync.WaitGroup
}

func NewWatcher(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", path)
	}

	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Editors replace files on save, so watch the directory.
	if err := fsWatch.Add(filepath.Dir(abs)); err != nil {
		fsWatch.Close()
		return nil, errors.Wrapf(err, "watching %s", filepath.Dir(abs))
	}

	w := &Watcher{
		path:     abs,
		fsnotify: fsWatch,
		updates:  make(chan Config, 1),
		errors:   make(chan error, 1),
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.start()
	return w, nil
}

// Updates delivers each successfully reloaded configuration.
func (w *Watcher) Updates() <-chan Config {
	return w.updates
}

// Errors delivers reload failures. The previous configuration stays in effect.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

func (w *Watcher) Close() error {
	var err error
	w.closed.Do(func() {
		close(w.done)
		w.wg.Wait()
		err = w.fsnotify.Close()
	})
	return err
}

func (w *Watcher) start() {
	defer w.wg.Done()
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != w.path || e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			c, err := Load(w.path)
			if err != nil {
				core.LogWarn("configuration reload failed: %s", err)
				publish(w.errors, err)
				continue
			}
			core.LogInfo("configuration %s reloaded", w.path)
			publish(w.updates, c)

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())
			publish(w.errors, err)

		case <-w.done:
			return
		}
	}
}

// publish replaces any unread value so the channel never blocks the watcher.
func publish[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
