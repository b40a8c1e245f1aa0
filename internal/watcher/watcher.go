package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// DefaultInterval is the fallback polling interval used when no filesystem
// event arrives.
const DefaultInterval = 30 * time.Second

// Watcher feeds spooled session reports into an Ingester. Passes are
// serialized, so fsnotify events and ticks never process the spool twice.
type Watcher struct {
	ingester   Ingester
	spoolPath  string
	offsetPath string
	interval   time.Duration

	mu     sync.Mutex // serializes passes
	ctx    context.Context
	cancel context.CancelFunc
	stopCh chan struct{}
	wg     sync.WaitGroup

	stopOnce sync.Once
	stopErr  error

	batchTicker *time.Ticker
	fsw         *fsnotify.Watcher
}

// New creates a new Watcher instance.
func New(ing Ingester, spoolPath, offsetPath string) (*Watcher, error) {
	if ing == nil {
		return nil, fmt.Errorf("ingester cannot be nil")
	}
	if spoolPath == "" || offsetPath == "" {
		return nil, fmt.Errorf("spool and offset paths are required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		ingester:   ing,
		spoolPath:  spoolPath,
		offsetPath: offsetPath,
		interval:   DefaultInterval,
		ctx:        ctx,
		cancel:     cancel,
		stopCh:     make(chan struct{}),
	}, nil
}

// SetInterval overrides the fallback polling interval. It must be called
// before Start.
func (w *Watcher) SetInterval(d time.Duration) {
	if d > 0 {
		w.interval = d
	}
}

// Process runs one spool pass immediately.
func (w *Watcher) Process() (*PassStats, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return ProcessSpool(w.ctx, w.ingester, w.spoolPath, w.offsetPath)
}

// Start processes any reports already spooled, then keeps processing on
// spool writes and on every tick of the fallback interval.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(filepath.Dir(w.spoolPath), 0o755); err != nil {
		return fmt.Errorf("failed to create spool directory: %w", err)
	}

	w.pass("initial")

	// The spool may not exist yet, so watch its directory.
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		log.WithError(err).Warn("fsnotify unavailable, falling back to polling")
	} else if err := fsw.Add(filepath.Dir(w.spoolPath)); err != nil {
		log.WithError(err).Warn("failed to watch spool directory, falling back to polling")
		fsw.Close()
	} else {
		w.fsw = fsw
	}

	w.batchTicker = time.NewTicker(w.interval)

	w.wg.Add(1)
	go w.run()

	return nil
}

func (w *Watcher) run() {
	defer w.wg.Done()

	var events <-chan fsnotify.Event
	var errs <-chan error
	if w.fsw != nil {
		events = w.fsw.Events
		errs = w.fsw.Errors
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) == filepath.Clean(w.spoolPath) && ev.Has(fsnotify.Write|fsnotify.Create) {
				w.pass("write")
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.WithError(err).Warn("fsnotify error")
		case <-w.batchTicker.C:
			w.pass("tick")
		case <-w.stopCh:
			w.pass("final")
			return
		}
	}
}

func (w *Watcher) pass(trigger string) {
	stats, err := w.Process()
	entry := log.WithField("trigger", trigger)
	if err != nil {
		entry.WithError(err).Error("spool processing stopped")
	}
	if stats != nil && (stats.Ingested > 0 || stats.Skipped > 0) {
		entry.WithFields(log.Fields{
			"ingested": stats.Ingested,
			"skipped":  stats.Skipped,
		}).Info("spool processed")
	}
}

// Stop halts the watcher after a final pass over the spool. Later calls
// return the first call's result.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		close(w.stopCh)

		if w.batchTicker != nil {
			w.batchTicker.Stop()
		}

		w.wg.Wait()
		w.cancel()

		if w.fsw != nil {
			w.stopErr = w.fsw.Close()
		}
	})
	return w.stopErr
}
