// Package dumpsource implements the gzip-or-plain newline-delimited
// dump reader of spec.md §6: the external line iterator the pipeline
// package treats as an opaque wikitext.LineSource, kept out of
// internal/pipeline itself (SPEC_FULL.md §1.2) but still needed
// somewhere for cmd/wety to actually read a dump file.
//
// Ground: bufio.Scanner-over-os.File is the teacher's house style for
// line-oriented file reads (e.g. internal/campaign/assault_tasks.go,
// internal/tactile/files.go); gzip autodetection via the magic-number
// sniff is stdlib compress/gzip, not a third-party dependency the pack
// offers an alternative for.
package dumpsource

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
)

// maxLineSize bounds a single dump record; wiktextract etymology/
// descendants sections can run long, so the default bufio limit
// (64KiB) is raised well past any observed record size.
const maxLineSize = 16 * 1024 * 1024

// Source reads newline-delimited dump records from an underlying file,
// transparently gunzipping if the file starts with the gzip magic
// number, and implements wikitext.LineSource.
type Source struct {
	file    *os.File
	gz      *gzip.Reader
	scanner *bufio.Scanner
}

// Open opens path, sniffing for gzip compression before handing back a
// Source ready for Next.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dumpsource: open %s: %w", path, err)
	}

	var r io.Reader = f
	var gz *gzip.Reader
	if isGzip(f) {
		gz, err = gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("dumpsource: gzip %s: %w", path, err)
		}
		r = gz
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Source{file: f, gz: gz, scanner: scanner}, nil
}

func isGzip(f *os.File) bool {
	magic := make([]byte, 2)
	n, _ := f.Read(magic)
	f.Seek(0, io.SeekStart)
	return n == 2 && magic[0] == 0x1f && magic[1] == 0x8b
}

// Next returns the next dump line, copied so it outlives the next
// Scan() call's internal buffer reuse.
func (s *Source) Next() ([]byte, bool, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return nil, false, fmt.Errorf("dumpsource: scan: %w", err)
		}
		return nil, false, nil
	}
	line := s.scanner.Bytes()
	out := make([]byte, len(line))
	copy(out, line)
	return out, true, nil
}

// Close releases the underlying file (and gzip reader, if any).
func (s *Source) Close() error {
	if s.gz != nil {
		s.gz.Close()
	}
	return s.file.Close()
}
