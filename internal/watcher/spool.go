package watcher

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/blackwell-systems/devpulse/internal/aggregator"
	"github.com/blackwell-systems/devpulse/internal/store"
	"github.com/blackwell-systems/devpulse/internal/telemetry"
)

const maxSpoolLinesPerPass = 10_000

// Ingester accepts one decoded session report.
type Ingester interface {
	Ingest(ctx context.Context, r *telemetry.SessionReport) (*aggregator.Result, error)
}

// PassStats summarizes one spool processing pass.
type PassStats struct {
	Ingested int
	Skipped  int
	Offset   int64
}

// ProcessSpool ingests spool lines written since the last saved offset.
//
// Spool format (one JSON session report per line, written by
// cmd/devpulse-report). A trailing line without a newline is still being
// written and is left for the next pass.
//
// Reports rejected as invalid, for an unknown machine, or as duplicates are
// logged and skipped. Any other error stops the pass; the offset is saved
// just after the last handled line so nothing is lost or ingested twice.
// A missing spool file is not an error.
func ProcessSpool(ctx context.Context, ing Ingester, spoolPath, offsetPath string) (*PassStats, error) {
	stats := &PassStats{}

	f, err := os.Open(spoolPath)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, fmt.Errorf("spool: open: %w", err)
	}
	defer f.Close()

	offset, err := readOffset(offsetPath)
	if err != nil {
		return stats, fmt.Errorf("spool: read offset: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		return stats, fmt.Errorf("spool: stat: %w", err)
	}
	if offset > info.Size() {
		// Spool was truncated or replaced.
		log.WithField("offset", offset).Warn("spool shorter than saved offset, restarting from the beginning")
		offset = 0
	}

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return stats, fmt.Errorf("spool: seek: %w", err)
	}

	stats.Offset = offset
	reader := bufio.NewReader(f)
	var passErr error

	for lines := 0; lines < maxSpoolLinesPerPass; lines++ {
		line, readErr := reader.ReadBytes('\n')
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			passErr = fmt.Errorf("spool: read: %w", readErr)
			break
		}

		ingested, err := ingestLine(ctx, ing, line)
		if err != nil {
			passErr = err
			break
		}

		stats.Offset += int64(len(line))
		switch {
		case ingested:
			stats.Ingested++
		case len(bytes.TrimSpace(line)) > 0:
			stats.Skipped++
		}
	}

	if stats.Offset != offset {
		if err := writeOffsetAtomic(offsetPath, stats.Offset); err != nil {
			return stats, err
		}
	}

	return stats, passErr
}

// ingestLine reports whether the line produced a session. Rejected reports
// are consumed without error; only failures that must stop the pass are
// returned.
func ingestLine(ctx context.Context, ing Ingester, line []byte) (bool, error) {
	if len(bytes.TrimSpace(line)) == 0 {
		return false, nil
	}

	report, err := telemetry.Decode(line)
	if err == nil {
		_, err = ing.Ingest(ctx, report)
	}
	if err == nil {
		return true, nil
	}

	if IsRejected(err) {
		log.WithError(err).Warn("skipping spooled session report")
		return false, nil
	}

	log.WithError(err).Error("failed to ingest spooled session report")
	return false, err
}

// IsRejected reports whether err means the report itself was refused
// (malformed, unknown machine, already ingested) rather than that storage
// failed. Rejected reports are skipped; storage failures are not.
func IsRejected(err error) bool {
	var verr *telemetry.ValidationError
	return errors.As(err, &verr) || errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrDuplicateSession)
}

// Backlog returns how many spool bytes have not been processed yet.
func Backlog(spoolPath, offsetPath string) (int64, error) {
	info, err := os.Stat(spoolPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("spool: stat: %w", err)
	}
	offset, err := readOffset(offsetPath)
	if err != nil {
		return 0, fmt.Errorf("spool: read offset: %w", err)
	}
	if offset > info.Size() {
		offset = 0
	}
	return info.Size() - offset, nil
}

// readOffset reads the byte offset from the offset tracking file.
// Returns 0 if the file does not exist.
func readOffset(offsetPath string) (int64, error) {
	data, err := os.ReadFile(offsetPath)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(data))
	if s == "" {
		return 0, nil
	}
	offset, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse offset %q: %w", s, err)
	}
	return offset, nil
}

// writeOffsetAtomic writes newOffset to offsetPath via a temp-file rename,
// ensuring the update is atomic and crash-safe.
func writeOffsetAtomic(offsetPath string, newOffset int64) error {
	dir := filepath.Dir(offsetPath)
	tmpPath := filepath.Join(dir, ".offset.tmp")

	if err := os.WriteFile(tmpPath, []byte(strconv.FormatInt(newOffset, 10)), 0600); err != nil {
		return fmt.Errorf("write temp offset file: %w", err)
	}
	if err := os.Rename(tmpPath, offsetPath); err != nil {
		return fmt.Errorf("rename offset file: %w", err)
	}
	return nil
}
