package diff

import (
	"bytes"
	"io"
	"log"
	"os"

	"github.com/georgib0y/ldapvi/internal/entry"
	"github.com/georgib0y/ldapvi/internal/ldaperr"
	"github.com/georgib0y/ldapvi/internal/parser"
)

var logger = log.New(os.Stderr, "diff: ", log.Lshortfile)

// Engine runs one compare_streams pass over a clean/data pair using a
// dialect-independent Parser and reports the result to a Handler.
type Engine struct {
	Parser  parser.Parser
	Handler Handler
	Clean   io.ReadSeeker
	Data    io.ReadSeeker
	Offsets []int64
}

func NewEngine(p parser.Parser, h Handler, clean, data io.ReadSeeker, offsets []int64) *Engine {
	return &Engine{Parser: p, Handler: h, Clean: clean, Data: data, Offsets: offsets}
}

// CompareStreams walks the clean/data pair once, diffing matched
// records and reporting adds, deletes, changes and renames through the
// engine's Handler. Offsets is restored to its entry contents on every
// return path, including a handler error that aborts the run.
func (e *Engine) CompareStreams() (err error) {
	original := append([]int64(nil), e.Offsets...)
	defer func() {
		copy(e.Offsets, original)
	}()

	pos := int64(0)
	for {
		rec, perr := e.Parser.PeekEntry(e.Data, pos)
		if perr == io.EOF {
			break
		}
		if perr != nil {
			return perr
		}
		pos = parser.CurrentPos

		if err := e.processNextEntry(rec.Key); err != nil {
			return err
		}
	}

	return e.processDeletions()
}

func (e *Engine) processNextEntry(key parser.Key) error {
	if key.Kind == parser.KindNumeric {
		return e.processNumericEntry(key)
	}
	return e.processImmediateEntry(key)
}

func (e *Engine) processNumericEntry(key parser.Key) error {
	n := key.Num
	if n < 0 || int(n) >= len(e.Offsets) || isMarked(e.Offsets[n]) {
		logger.Printf("duplicate or out-of-range numeric key %d", n)
		return ldaperr.New(ldaperr.BadKey, -1, "duplicate or out-of-range numeric key %d", n)
	}
	cleanOffset := e.Offsets[n]

	dataPos, err := e.Data.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	length, ok, err := e.recordLength(n)
	if err != nil {
		return err
	}
	if ok {
		equal, err := fastcmp(e.Clean, e.Data, cleanOffset, dataPos, length)
		if err != nil {
			return err
		}
		if equal {
			if _, err := e.Data.Seek(dataPos+length, io.SeekStart); err != nil {
				return err
			}
			e.Offsets[n] = mark(cleanOffset)
			return nil
		}
	}

	cRec, err := e.Parser.ReadEntry(e.Clean, cleanOffset)
	if err != nil {
		return err
	}
	dRec, err := e.Parser.ReadEntry(e.Data, dataPos)
	if err != nil {
		return err
	}

	if cRec.Entry.DN != dRec.Entry.DN {
		if _, _, verr := validateRename(cRec.Entry, dRec.Entry); verr != nil {
			return verr
		}
		if err := e.Handler.HandleRename(n, cRec.Entry.DN, dRec.Entry); err != nil {
			return ldaperr.HandlerAbortedErr(err)
		}
		e.Offsets[n] = mark(cleanOffset)
		return nil
	}

	_, rdnDesc, _ := rdnDescOf(cRec.Entry)
	mods := diffAttributes(cRec.Entry, dRec.Entry, rdnDesc, rdnDesc != "")
	if len(mods) > 0 {
		if err := e.Handler.HandleChange(n, cRec.Entry.DN, dRec.Entry.DN, mods); err != nil {
			return ldaperr.HandlerAbortedErr(err)
		}
	}
	e.Offsets[n] = mark(cleanOffset)
	return nil
}

// rdnDescOf returns the attribute description of e's own RDN, used to
// exclude it from ordinary attribute diffing since a rename already
// accounts for it.
func rdnDescOf(e *entry.Entry) (rdn string, desc entry.AttrDesc, ok bool) {
	rdn, _ = entry.SplitDN(e.DN)
	attrName, _, split := entry.SplitRDN(rdn)
	if !split {
		return rdn, "", false
	}
	return rdn, entry.AttrDesc(attrName), true
}

// recordLength returns the byte length of clean record n including its
// terminating blank line, using the next record's offset when
// available, falling back to a one-time full parse for the last record.
func (e *Engine) recordLength(n int64) (int64, bool, error) {
	start := unmarkIfNeeded(e.Offsets[n])
	if int(n)+1 < len(e.Offsets) {
		next := e.Offsets[n+1]
		if !isMarked(next) && next > start {
			return next - start, true, nil
		}
	}
	if _, err := e.Clean.Seek(start, io.SeekStart); err != nil {
		return 0, false, err
	}
	if _, err := e.Parser.SkipEntry(e.Clean, parser.CurrentPos); err != nil {
		return 0, false, err
	}
	end, err := e.Clean.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, false, err
	}
	return end - start, true, nil
}

func unmarkIfNeeded(o int64) int64 {
	if isMarked(o) {
		return unmark(o)
	}
	return o
}

func (e *Engine) processImmediateEntry(key parser.Key) error {
	switch key.Kind {
	case parser.KindAdd:
		rec, err := e.Parser.ReadEntry(e.Data, parser.CurrentPos)
		if err != nil {
			return err
		}
		if err := e.Handler.HandleAdd(-1, rec.Entry.DN, entry.EntryToMods(rec.Entry)); err != nil {
			return ldaperr.HandlerAbortedErr(err)
		}
		return nil
	case parser.KindReplace:
		rec, err := e.Parser.ReadEntry(e.Data, parser.CurrentPos)
		if err != nil {
			return err
		}
		if err := e.Handler.HandleChange(-1, rec.Entry.DN, rec.Entry.DN, entry.EntryToMods(rec.Entry)); err != nil {
			return ldaperr.HandlerAbortedErr(err)
		}
		return nil
	case parser.KindDelete:
		_, dn, err := e.Parser.ReadDelete(e.Data, parser.CurrentPos)
		if err != nil {
			return err
		}
		if err := e.Handler.HandleDelete(-1, dn); err != nil {
			return ldaperr.HandlerAbortedErr(err)
		}
		return nil
	case parser.KindModify:
		_, dn, mods, err := e.Parser.ReadModify(e.Data, parser.CurrentPos)
		if err != nil {
			return err
		}
		if err := e.Handler.HandleChange(-1, dn, dn, mods); err != nil {
			return ldaperr.HandlerAbortedErr(err)
		}
		return nil
	case parser.KindRename:
		_, rr, err := e.Parser.ReadRename(e.Data, parser.CurrentPos)
		if err != nil {
			return err
		}
		if err := e.Handler.HandleRename0(-1, rr.OldDN, rr.NewDN, rr.DeleteOldRDN); err != nil {
			return ldaperr.HandlerAbortedErr(err)
		}
		return nil
	default:
		return ldaperr.New(ldaperr.BadKey, -1, "unexpected key %q in data stream", key.String())
	}
}

// processDeletions implements the end-of-stream sweep: every clean
// entry whose numeric key is still unmarked is reported via
// HandleDelete, in ascending key order.
func (e *Engine) processDeletions() error {
	for n, off := range e.Offsets {
		if isMarked(off) {
			continue
		}
		rec, err := e.Parser.ReadEntry(e.Clean, off)
		if err != nil {
			return err
		}
		if err := e.Handler.HandleDelete(int64(n), rec.Entry.DN); err != nil {
			return ldaperr.HandlerAbortedErr(err)
		}
		e.Offsets[n] = mark(off)
	}
	return nil
}

// fastcmp compares n bytes of clean starting at p against n bytes of
// data starting at q, restoring both stream positions unconditionally
// before returning.
func fastcmp(clean, data io.ReadSeeker, p, q, n int64) (equal bool, err error) {
	cleanSave, err := clean.Seek(0, io.SeekCurrent)
	if err != nil {
		return false, err
	}
	dataSave, err := data.Seek(0, io.SeekCurrent)
	if err != nil {
		return false, err
	}
	defer func() {
		if _, serr := clean.Seek(cleanSave, io.SeekStart); serr != nil && err == nil {
			err = serr
		}
		if _, serr := data.Seek(dataSave, io.SeekStart); serr != nil && err == nil {
			err = serr
		}
	}()

	if _, err = clean.Seek(p, io.SeekStart); err != nil {
		return false, err
	}
	if _, err = data.Seek(q, io.SeekStart); err != nil {
		return false, err
	}

	cbuf := make([]byte, n)
	dbuf := make([]byte, n)
	if _, err = io.ReadFull(clean, cbuf); err != nil {
		return false, err
	}
	if _, err = io.ReadFull(data, dbuf); err != nil {
		return false, err
	}
	return bytes.Equal(cbuf, dbuf), nil
}
