// Command devpulse-report is the hook-side half of session ingestion.
// Developer-tool hooks pipe one JSON session report into it at session end:
//
//	my-tool --on-exit 'devpulse-report'
//	devpulse-report --file /tmp/session.json
//
// The report is compacted to a single line and appended to the spool
// (~/.devpulse/sessions.jsonl, or $DEVPULSE_SPOOL). The watch daemon ingests
// new spool lines as they arrive.
//
// The reporter must NOT import any internal devpulse packages and must never
// fail the calling hook: problems are reported on stderr and it exits 0.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// maxReportBytes bounds a single report so a runaway hook cannot fill the spool.
const maxReportBytes = 4 << 20

func main() {
	file := flag.String("file", "", "read the report from file instead of stdin")
	flag.Parse()

	if err := report(*file, os.Stdin); err != nil {
		fmt.Fprintf(os.Stderr, "devpulse-report: %v\n", err)
	}
}

func report(file string, stdin io.Reader) error {
	in := stdin
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	data, err := io.ReadAll(io.LimitReader(in, maxReportBytes+1))
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}
	if len(data) > maxReportBytes {
		return fmt.Errorf("report larger than %d bytes, dropped", maxReportBytes)
	}

	line, err := compactLine(data)
	if err != nil {
		return err
	}

	path, err := spoolPath()
	if err != nil {
		return err
	}
	return appendLine(path, line)
}

// compactLine returns data as one newline-terminated JSON object.
func compactLine(data []byte) ([]byte, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty report")
	}
	if data[0] != '{' {
		return nil, errors.New("report must be a JSON object")
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// spoolPath returns $DEVPULSE_SPOOL or ~/.devpulse/sessions.jsonl.
func spoolPath() (string, error) {
	if p := os.Getenv("DEVPULSE_SPOOL"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".devpulse", "sessions.jsonl"), nil
}

// appendLine writes line with a single O_APPEND write so concurrent hooks
// never interleave partial lines.
func appendLine(path string, line []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
