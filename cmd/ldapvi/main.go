// Command ldapvi is a thin demonstration driver for the edit-diff
// pipeline: it copies a clean export to a UUID-suffixed data file,
// hands the pair to the diff engine straight away, prints the resulting
// LDAP requests and removes the data file. It launches no editor, so
// the copy is diffed as written. It never dials an LDAP connection
// itself; the wire client is out of scope.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/georgib0y/ldapvi/internal/diff"
	"github.com/georgib0y/ldapvi/internal/diffhandler"
	"github.com/georgib0y/ldapvi/internal/entry"
	"github.com/georgib0y/ldapvi/internal/ldapvi"
	"github.com/georgib0y/ldapvi/internal/parser"
	"github.com/georgib0y/ldapvi/internal/printer"
	"github.com/georgib0y/ldapvi/internal/schemaldif"
)

var logger = log.New(os.Stderr, "ldapvi: ", log.Lshortfile)

// Config is a plain struct literal rather than a flag or viper setup:
// this driver has a handful of settings and no profile/env surface to
// justify a configuration framework. SchemaAttrsPath and
// SchemaObjectClassesPath are both optional; leaving either empty
// prints without schema-aware binary detection.
type Config struct {
	CleanPath               string
	SchemaAttrsPath         string
	SchemaObjectClassesPath string
	PrintOpts               printer.Options
}

// newDataFilePath names the scratch copy of the clean file with a
// UUID suffix so concurrent edit sessions never collide.
func newDataFilePath(cleanPath string) string {
	return fmt.Sprintf("%s.%s.data", cleanPath, uuid.NewString())
}

func copyToDataFile(cleanPath, dataPath string) error {
	src, err := os.Open(cleanPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(dataPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer dst.Close()

	buf := make([]byte, 32*1024)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return nil
			}
			return rerr
		}
	}
}

// countRecords parses clean once up front to build the numeric
// Offsets array the diff engine needs: Offsets[i] is the byte offset
// of the record whose numeric key is i.
func countRecords(p parser.Parser, clean *os.File) ([]int64, error) {
	var offsets []int64
	pos := int64(0)
	for {
		if _, err := clean.Seek(pos, io.SeekStart); err != nil {
			return nil, err
		}
		key, err := p.SkipEntry(clean, parser.CurrentPos)
		if err != nil {
			break
		}
		if key.Kind != parser.KindNumeric {
			break
		}
		offsets = append(offsets, pos)
		next, err := clean.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, err
		}
		pos = next
	}
	return offsets, nil
}

// loadAnnotator builds a schema-backed annotator from a subschema
// subentry LDIF export when both paths are given, falling back to the
// printer's default (every value judged purely on its bytes) otherwise.
func loadAnnotator(cfg Config) (printer.SchemaAnnotator, error) {
	if cfg.SchemaAttrsPath == "" || cfg.SchemaObjectClassesPath == "" {
		return nil, nil
	}
	sch, err := schemaldif.LoadSchmeaFromPaths(cfg.SchemaAttrsPath, cfg.SchemaObjectClassesPath)
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}
	return printer.NewSchemaBackedAnnotator(sch), nil
}

// printingHandler pretty-prints each record to w via a printer.Printer
// before delegating to an inner diffhandler.RequestList, so the
// annotated-print path and the LDAP-request path both see every change
// the diff engine reports.
type printingHandler struct {
	inner *diffhandler.RequestList
	pr    *printer.Printer
	w     *bufio.Writer
}

func newPrintingHandler(inner *diffhandler.RequestList, pr *printer.Printer, w io.Writer) *printingHandler {
	return &printingHandler{inner: inner, pr: pr, w: bufio.NewWriter(w)}
}

// modsToEntry rebuilds the entry an add record's mods describe, since
// PrintEntry needs a full entry.Entry rather than a Mod list.
func modsToEntry(dn string, mods []*entry.Mod) *entry.Entry {
	e := entry.NewEntry(dn)
	for _, m := range mods {
		for _, v := range m.Values {
			e.AddValue(m.Desc, v)
		}
	}
	return e
}

func (h *printingHandler) HandleAdd(n int64, dn string, mods []*entry.Mod) error {
	h.pr.PrintEntry(h.w, "add", modsToEntry(dn, mods))
	return h.inner.HandleAdd(n, dn, mods)
}

func (h *printingHandler) HandleDelete(n int64, dn string) error {
	h.pr.PrintDelete(h.w, dn)
	return h.inner.HandleDelete(n, dn)
}

func (h *printingHandler) HandleChange(n int64, oldDN, newDN string, mods []*entry.Mod) error {
	h.pr.PrintModify(h.w, oldDN, mods)
	return h.inner.HandleChange(n, oldDN, newDN, mods)
}

func (h *printingHandler) HandleRename(n int64, oldDN string, newEntry *entry.Entry) error {
	h.pr.PrintRename(h.w, oldDN, newEntry.DN, diffhandler.DeleteOldRDN(oldDN, newEntry))
	return h.inner.HandleRename(n, oldDN, newEntry)
}

func (h *printingHandler) HandleRename0(n int64, oldDN, newDN string, deleteOldRDN bool) error {
	h.pr.PrintRename(h.w, oldDN, newDN, deleteOldRDN)
	return h.inner.HandleRename0(n, oldDN, newDN, deleteOldRDN)
}

func run(cfg Config) error {
	clean, err := os.Open(cfg.CleanPath)
	if err != nil {
		return err
	}
	defer clean.Close()

	dataPath := newDataFilePath(cfg.CleanPath)
	if err := copyToDataFile(cfg.CleanPath, dataPath); err != nil {
		return err
	}
	defer os.Remove(dataPath)

	logger.Printf("diffing %s against %s", dataPath, cfg.CleanPath)

	data, err := os.Open(dataPath)
	if err != nil {
		return err
	}
	defer data.Close()

	p := ldapvi.NewParser(nil)
	offsets, err := countRecords(p, clean)
	if err != nil {
		return err
	}

	annotate, err := loadAnnotator(cfg)
	if err != nil {
		return err
	}
	pr := printer.NewPrinter(cfg.PrintOpts, annotate)
	handler := newPrintingHandler(diffhandler.NewRequestList(), pr, os.Stdout)

	engine := diff.NewEngine(p, handler, clean, data, offsets)
	if err := engine.CompareStreams(); err != nil {
		return err
	}
	if err := handler.w.Flush(); err != nil {
		return err
	}

	for _, change := range handler.inner.Changes {
		fmt.Printf("%d: %#v\n", change.Key, change.Request)
	}
	return nil
}

func main() {
	if len(os.Args) != 2 && len(os.Args) != 4 {
		logger.Fatalf("usage: %s <clean-file> [schema-attrs.ldif schema-objectclasses.ldif]", os.Args[0])
	}
	cfg := Config{
		CleanPath: os.Args[1],
		PrintOpts: printer.Options{Dialect: printer.DialectExtended, Fold: true},
	}
	if len(os.Args) == 4 {
		cfg.SchemaAttrsPath = os.Args[2]
		cfg.SchemaObjectClassesPath = os.Args[3]
	}
	if err := run(cfg); err != nil {
		logger.Fatal(err)
	}
}
