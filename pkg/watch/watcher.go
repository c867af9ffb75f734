// Package watch converts landmark files as soon as they land in a directory.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/miu200521358/sign-pose-trace/pkg/config"
	"github.com/miu200521358/sign-pose-trace/pkg/mlog"
	"github.com/miu200521358/sign-pose-trace/pkg/model"
	"github.com/miu200521358/sign-pose-trace/pkg/usecase"
)

// DefaultSettle is how long a file has to stay quiet before it is converted.
const DefaultSettle = 200 * time.Millisecond

type Watcher struct {
	Dir    string
	Settle time.Duration
	// OnConvert is called after each successful conversion, if set.
	OnConvert func(motion *model.Motion)

	cfg        *config.Config
	retargeter *usecase.Retargeter
	log        zerolog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	// timers counts settle callbacks that are scheduled or running
	timers sync.WaitGroup
}

func New(dir string, cfg *config.Config) (*Watcher, error) {
	retargeter, err := usecase.NewRetargeterFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	return &Watcher{
		Dir:        dir,
		Settle:     DefaultSettle,
		cfg:        cfg,
		retargeter: retargeter,
		log:        mlog.Component("watch").With().Str("dir", dir).Logger(),
		pending:    make(map[string]*time.Timer),
	}, nil
}

// Run blocks until ctx is cancelled. Created or rewritten landmark files are
// converted once they stop changing; our own motion outputs are ignored.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.Dir, err)
	}
	w.log.Info().Msg("watching")

	ready := make(chan string)
	done := make(chan struct{})
	defer func() {
		close(done)
		w.stopPending()
		w.timers.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopped")
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !usecase.IsLandmarkFile(filepath.Base(event.Name)) {
				continue
			}
			w.schedule(done, event.Name, ready)
		case path := <-ready:
			w.convert(path)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("watcher error")
		}
	}
}

// schedule (re)starts the settle timer of path. A fired timer gives up on
// ready once done is closed.
func (w *Watcher) schedule(done <-chan struct{}, path string, ready chan<- string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if old, ok := w.pending[path]; ok && old.Stop() {
		w.timers.Done()
	}

	w.timers.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(w.Settle, func() {
		defer w.timers.Done()

		w.mu.Lock()
		if w.pending[path] == timer {
			delete(w.pending, path)
		}
		w.mu.Unlock()

		select {
		case ready <- path:
		case <-done:
		}
	})
	w.pending[path] = timer
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, timer := range w.pending {
		if timer.Stop() {
			w.timers.Done()
		}
		delete(w.pending, path)
	}
}

func (w *Watcher) convert(path string) {
	motion, err := usecase.ConvertFile(path, w.cfg, w.retargeter)
	if err != nil {
		// 書き込み途中の可能性もあるので、次の書き込みで再度変換する
		w.log.Warn().Err(err).Str("file", filepath.Base(path)).Msg("conversion failed")
		return
	}

	w.log.Info().
		Str("file", filepath.Base(path)).
		Str("motion", filepath.Base(motion.Path)).
		Int("keyframes", motion.Len()).
		Msg("converted")

	if w.OnConvert != nil {
		w.OnConvert(motion)
	}
}
