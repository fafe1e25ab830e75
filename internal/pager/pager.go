// Package pager is the file-backed, fixed-slot page cache. It owns the
// file descriptor and a bounded array of page buffers exclusively;
// callers mutate pages in place and rely on Close to persist them. There is no dirty tracking — every loaded page is flushed at
// close, which is sound only because the engine above is
// single-threaded and non-transactional.
package pager

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"leafbase/internal/fatal"
	"leafbase/internal/layout"
)

// TableMaxPages bounds the number of page slots the pager will ever
// hold.
const TableMaxPages = 100

// Pager owns the database file and its in-RAM page slots.
type Pager struct {
	file     *os.File
	log      *zap.Logger
	maxPages int

	pages    []*[layout.PageSize]byte
	numPages int
}

// Open opens path for read+write, creating it if absent, and computes
// the page count from the file length. A file length that is not a
// whole multiple of PageSize is corrupt and refused — this is a fatal,
// process-terminating condition.
func Open(path string, maxPages int, log *zap.Logger) *Pager {
	if log == nil {
		log = zap.NewNop()
	}
	if maxPages <= 0 {
		maxPages = TableMaxPages
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		fatal.Exit(log, "open database file", zap.Error(err))
	}

	length, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		fatal.Exit(log, "seek database file", zap.Error(err))
	}

	if length%layout.PageSize != 0 {
		fatal.Exit(log, "corrupt file: length is not a multiple of the page size",
			zap.Int64("length", length), zap.Int("page_size", layout.PageSize))
	}

	p := &Pager{
		file:     f,
		log:      log,
		maxPages: maxPages,
		pages:    make([]*[layout.PageSize]byte, maxPages),
		numPages: int(length / layout.PageSize),
	}
	return p
}

// NumPages reports the number of allocated pages.
func (p *Pager) NumPages() int { return p.numPages }

// GetPage returns a writable view of page n, reading it through from
// disk on first access. Pages beyond the current file length but
// within n+1 <= maxPages are zero-initialized in RAM and extend
// NumPages; node-type initialization is the caller's job.
func (p *Pager) GetPage(n uint32) *layout.Node {
	if int(n) >= p.maxPages {
		fatal.Exit(p.log, "page number out of bounds",
			zap.Uint32("page", n), zap.Int("max_pages", p.maxPages))
	}

	if p.pages[n] == nil {
		buf := new([layout.PageSize]byte)
		offset := int64(n) * layout.PageSize
		if offset < int64(p.numPages)*layout.PageSize {
			if _, err := p.file.ReadAt(buf[:], offset); err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
				fatal.Exit(p.log, "read page", zap.Uint32("page", n), zap.Error(err))
			}
		}
		p.pages[n] = buf
		if int(n) >= p.numPages {
			p.numPages = int(n) + 1
		}
	}

	return &layout.Node{Buf: p.pages[n][:], PageNum: n}
}

// AllocatePage hands out the next unused page number and zero-initializes
// its slot. There is no free list: pages are only ever appended.
func (p *Pager) AllocatePage() uint32 {
	n := uint32(p.numPages)
	p.GetPage(n) // installs the zeroed slot and bumps numPages
	return n
}

// Flush writes page n's in-RAM image to disk. Flushing an empty slot is
// a programmer error and is fatal.
func (p *Pager) Flush(n uint32) {
	if int(n) >= len(p.pages) || p.pages[n] == nil {
		fatal.Exit(p.log, "flush of unloaded page", zap.Uint32("page", n))
	}
	offset := int64(n) * layout.PageSize
	if _, err := p.file.WriteAt(p.pages[n][:], offset); err != nil {
		fatal.Exit(p.log, "write page", zap.Uint32("page", n), zap.Error(err))
	}
}

// Close flushes every loaded page in [0, NumPages), then closes the
// file. It deliberately does not also sweep [NumPages, TableMaxPages):
// those slots are never loaded, so flushing them would be a no-op.
func (p *Pager) Close() {
	for i := 0; i < p.numPages; i++ {
		if p.pages[i] != nil {
			p.Flush(uint32(i))
		}
	}
	if err := p.file.Close(); err != nil {
		fatal.Exit(p.log, "close database file", zap.Error(err))
	}
	p.log.Debug("pager closed", zap.Int("pages", p.numPages))
}

// FileSize is exposed for tests verifying that the file's byte length
// at close equals numPages*PageSize.
func (p *Pager) FileSize() (int64, error) {
	fi, err := p.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat: %w", err)
	}
	return fi.Size(), nil
}
