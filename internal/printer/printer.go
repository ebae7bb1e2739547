// Package printer renders entries, deletes, modifies and renames back
// to text: one record per call, choosing plain/backslash-escaped/base64
// encoding per value based on safety and the caller's readability
// policy, and dialect-specific modify/rename layouts.
package printer

import (
	"bufio"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/georgib0y/ldapvi/internal/codec"
	"github.com/georgib0y/ldapvi/internal/entry"
)

// Readability controls which byte ranges are considered SAFE to print
// literally.
type Readability int

const (
	Ascii Readability = iota
	Utf8
	Any
)

// BinaryMode overrides the safety-based encoding decision: Auto defers
// to the SAFE check, Always forces base64 output regardless of
// safety, Never forces literal output even for unsafe bytes (other than
// a NUL, which is never printed literally).
type BinaryMode int

const (
	BinaryAuto BinaryMode = iota
	BinaryAlways
	BinaryNever
)

// Dialect selects the on-disk shape a record is printed in.
type Dialect int

const (
	DialectExtended Dialect = iota
	DialectLDIF
)

// Options replaces the global mutable printing state a C implementation
// would use with an explicit, per-call value.
type Options struct {
	Readability Readability
	Fold        bool
	Binary      BinaryMode
	Dialect     Dialect
	FoldWidth   int
}

func (o Options) foldWidth() int {
	if o.FoldWidth > 0 {
		return o.FoldWidth
	}
	return 76
}

// SchemaAnnotator lets a printer consult schema knowledge. IsBinary
// reports that an attribute's syntax (e.g. octet-string or JPEG) forces
// binary encoding even for a value that happens to look safe.
// AnnotateEntry reports the disallowed/missing-required/optional
// attribute names for an entry's structural objectClass, printed as
// comment lines alongside the entry. A zero value (nil) means no schema
// is available: every attribute is judged purely by the safety of its
// bytes, and no annotation comments are printed.
type SchemaAnnotator interface {
	IsBinary(desc entry.AttrDesc) bool
	AnnotateEntry(e *entry.Entry) EntryAnnotation
}

// EntryAnnotation carries the schema-derived warnings printed alongside
// an entry: attribute names present on the entry but not permitted by
// its structural class, and the class's required/optional attributes
// that go unmentioned.
type EntryAnnotation struct {
	StructuralClass string
	Disallowed      []entry.AttrDesc
	MissingRequired []string
	Optional        []string
}

// NoopAnnotator treats every attribute as non-binary and never
// annotates an entry.
type NoopAnnotator struct{}

func (NoopAnnotator) IsBinary(entry.AttrDesc) bool                { return false }
func (NoopAnnotator) AnnotateEntry(*entry.Entry) EntryAnnotation { return EntryAnnotation{} }

// Printer writes records in one of the two on-disk dialects.
type Printer struct {
	Opts     Options
	Annotate SchemaAnnotator
}

func NewPrinter(opts Options, annotate SchemaAnnotator) *Printer {
	if annotate == nil {
		annotate = NoopAnnotator{}
	}
	return &Printer{Opts: opts, Annotate: annotate}
}

// safe reports whether v can be printed literally under the readability
// policy: no NUL, no LF/CR, and (for Ascii/Utf8) no control bytes >
// 0x7f/invalid runes; it must also not begin with a space or a colon,
// which would be ambiguous with the value-separator syntax.
func safe(v []byte, r Readability) bool {
	if len(v) == 0 {
		return true
	}
	if v[0] == ' ' || v[0] == ':' {
		return false
	}
	for _, b := range v {
		if b == 0x00 || b == '\n' || b == '\r' {
			return false
		}
		switch r {
		case Ascii:
			if b >= 0x80 {
				return false
			}
		case Utf8:
			// checked below as a whole
		}
	}
	if r == Utf8 && !utf8.Valid(v) {
		return false
	}
	return true
}

func hasNul(v []byte) bool {
	for _, b := range v {
		if b == 0 {
			return true
		}
	}
	return false
}

type encoding int

const (
	encPlain encoding = iota
	encEscaped
	encBase64
)

func (p *Printer) chooseEncoding(desc entry.AttrDesc, v []byte) encoding {
	if hasNul(v) {
		return encBase64
	}
	switch p.Opts.Binary {
	case BinaryAlways:
		return encBase64
	case BinaryNever:
		return encPlain
	}
	if p.Annotate.IsBinary(desc) {
		return encBase64
	}
	if safe(v, p.Opts.Readability) {
		return encPlain
	}
	if p.Opts.Dialect == DialectExtended {
		return encEscaped
	}
	return encBase64
}

// escapeLiteral backslash-escapes a value for the extended dialect's
// literal (":") encoding: embedded newlines become escaped continuation,
// and a trailing backslash is doubled so it is not read as a
// continuation marker on the next parse.
func escapeLiteral(v []byte) string {
	var sb strings.Builder
	for i, b := range v {
		if b == '\n' {
			sb.WriteString("\\\n")
			continue
		}
		if b == '\\' && i == len(v)-1 {
			sb.WriteString(`\\`)
			continue
		}
		sb.WriteByte(b)
	}
	return sb.String()
}

func (p *Printer) formatValueLine(desc entry.AttrDesc, v []byte) string {
	switch p.chooseEncoding(desc, v) {
	case encBase64:
		line := fmt.Sprintf("%s:: %s", desc, codec.EncodeBase64(v))
		if p.Opts.Dialect == DialectLDIF && p.Opts.Fold {
			return codec.FoldForPrint(line, p.Opts.foldWidth())
		}
		return line
	case encEscaped:
		return fmt.Sprintf("%s: %s", desc, escapeLiteral(v))
	default:
		line := fmt.Sprintf("%s: %s", desc, v)
		if p.Opts.Dialect == DialectLDIF && p.Opts.Fold {
			return codec.FoldForPrint(line, p.Opts.foldWidth())
		}
		return line
	}
}

func (p *Printer) writeAttribute(w *bufio.Writer, a *entry.Attribute) {
	for _, v := range a.Values {
		fmt.Fprintln(w, p.formatValueLine(a.Desc, v))
	}
}

func (p *Printer) writeDNLine(w *bufio.Writer, dn string) {
	if p.Opts.Dialect == DialectLDIF {
		line := p.formatValueLine("dn", []byte(dn))
		fmt.Fprintln(w, line)
		return
	}
	fmt.Fprintln(w, dn)
}

// PrintEntry writes a single attrval record, preceded by a blank line,
// with key on the header line for the extended dialect (LDIF has no
// numeric key concept, so callers pass an already-classified keyword).
// Every attribute the printer's SchemaAnnotator flags as disallowed for
// the entry's structural class is preceded by a warning comment, and
// unmentioned required/optional attributes are listed after it; a
// NoopAnnotator (or an entry with no resolvable objectClass) produces no
// such comments.
func (p *Printer) PrintEntry(w *bufio.Writer, keyword string, e *entry.Entry) {
	fmt.Fprintln(w)
	if p.Opts.Dialect == DialectExtended {
		fmt.Fprintf(w, "%s %s\n", keyword, e.DN)
		p.writeAnnotatedAttributes(w, e)
		return
	}
	p.writeDNLine(w, e.DN)
	if keyword != "" && keyword != "add" {
		fmt.Fprintf(w, "changetype: %s\n", keyword)
	}
	p.writeAnnotatedAttributes(w, e)
}

func (p *Printer) writeAnnotatedAttributes(w *bufio.Writer, e *entry.Entry) {
	ann := p.Annotate.AnnotateEntry(e)
	disallowed := map[entry.AttrDesc]bool{}
	for _, d := range ann.Disallowed {
		disallowed[d] = true
	}
	for _, a := range e.Attributes {
		if disallowed[a.Desc] {
			fmt.Fprintf(w, "# WARNING: %s not allowed by schema\n", a.Desc)
		}
		p.writeAttribute(w, a)
	}
	for _, name := range ann.MissingRequired {
		fmt.Fprintf(w, "# required attribute not shown: %s\n", name)
	}
	for _, name := range ann.Optional {
		fmt.Fprintf(w, "#%s: \n", name)
	}
}

// PrintDelete writes a delete record.
func (p *Printer) PrintDelete(w *bufio.Writer, dn string) {
	fmt.Fprintln(w)
	if p.Opts.Dialect == DialectExtended {
		fmt.Fprintf(w, "delete %s\n", dn)
		return
	}
	p.writeDNLine(w, dn)
	fmt.Fprintln(w, "changetype: delete")
}

// PrintModify writes a modify record's per-op blocks, each trailed by
// "-" for LDIF or immediately followed by the next block for extended.
func (p *Printer) PrintModify(w *bufio.Writer, dn string, mods []*entry.Mod) {
	fmt.Fprintln(w)
	if p.Opts.Dialect == DialectExtended {
		fmt.Fprintf(w, "modify %s\n", dn)
		for _, m := range mods {
			fmt.Fprintf(w, "%s: %s\n", m.Op, m.Desc)
			p.writeAttribute(w, &entry.Attribute{Desc: m.Desc, Values: m.Values})
		}
		return
	}
	p.writeDNLine(w, dn)
	fmt.Fprintln(w, "changetype: modify")
	for _, m := range mods {
		fmt.Fprintf(w, "%s: %s\n", m.Op, m.Desc)
		p.writeAttribute(w, &entry.Attribute{Desc: m.Desc, Values: m.Values})
		fmt.Fprintln(w, "-")
	}
}

// PrintRename writes a rename record. The two dialects diverge sharply
// here: extended emits a single "add NEWDN"/"replace NEWDN" line,
// LDIF emits changetype/newrdn/deleteoldrdn/newsuperior.
func (p *Printer) PrintRename(w *bufio.Writer, oldDN, newDN string, deleteOldRDN bool) {
	fmt.Fprintln(w)
	if p.Opts.Dialect == DialectExtended {
		fmt.Fprintf(w, "rename %s\n", oldDN)
		if deleteOldRDN {
			fmt.Fprintf(w, "replace %s\n", newDN)
		} else {
			fmt.Fprintf(w, "add %s\n", newDN)
		}
		return
	}
	p.writeDNLine(w, oldDN)
	fmt.Fprintln(w, "changetype: modrdn")
	newRDN, newParent := entry.SplitDN(newDN)
	fmt.Fprintf(w, "newrdn: %s\n", newRDN)
	if deleteOldRDN {
		fmt.Fprintln(w, "deleteoldrdn: 1")
	} else {
		fmt.Fprintln(w, "deleteoldrdn: 0")
	}
	_, oldParent := entry.SplitDN(oldDN)
	if newParent != oldParent {
		fmt.Fprintf(w, "newsuperior: %s\n", newParent)
	}
}
