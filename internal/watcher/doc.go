// Package watcher ingests session reports spooled by the devpulse-report hook.
//
// A tool's end-of-session hook pipes its report to devpulse-report, which
// appends it as one JSON line to ~/.devpulse/sessions.jsonl. The Watcher
// processes new lines whenever fsnotify reports a write to the spool, on a
// 30-second fallback ticker, and once more on shutdown.
//
// Key features:
//   - Crash-safe offset tracking (temp file + rename pattern)
//   - Partial trailing lines are left for the next pass
//   - Rejected reports (invalid, unknown machine, duplicate) are logged and skipped
//   - Storage errors stop the pass without losing the unprocessed lines
//   - Daemon mode support with PID file management
//   - Graceful shutdown with SIGTERM/SIGINT handling
//
// Example usage:
//
//	agg := aggregator.New(st)
//	w, err := watcher.New(agg, cfg.SpoolPath, cfg.OffsetFile())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := w.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer w.Stop()
package watcher
