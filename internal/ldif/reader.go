// Package ldif implements the RFC 2849 LDIF dialect: version header,
// dn:/dn::, changetype classification, modify op blocks terminated by
// "-", and modrdn/moddn new-DN synthesis.
package ldif

import (
	"strings"

	"github.com/georgib0y/ldapvi/internal/codec"
	"github.com/georgib0y/ldapvi/internal/ldaperr"
)

// ldifReader adds a single line of pushback on top of a codec.LDIFFolder,
// so the parser can peek at a line (to check for changetype/control/
// ldapvi-key) and put it back if it turns out to belong to the next
// stage of the grammar.
type ldifReader struct {
	f       *codec.LDIFFolder
	pending *codec.FoldedLine
}

func newLdifReader(f *codec.LDIFFolder) *ldifReader { return &ldifReader{f: f} }

func (r *ldifReader) next() (codec.FoldedLine, error) {
	if r.pending != nil {
		l := *r.pending
		r.pending = nil
		return l, nil
	}
	return r.f.Next()
}

func (r *ldifReader) pushback(l codec.FoldedLine) { r.pending = &l }

func (r *ldifReader) pos() int64 {
	if r.pending != nil {
		return r.pending.Pos
	}
	return r.f.Pos()
}

// kv is a single "key[:[:|<]] value" logical line, decomposed but not
// yet decoded.
type kv struct {
	Key string
	Enc string // "", "b64", "url"
	Val string
	Pos int64
}

func parseKV(text string, pos int64) (kv, error) {
	i := strings.IndexByte(text, ':')
	if i < 0 {
		return kv{}, ldaperr.New(ldaperr.BadSyntax, pos, "malformed line %q", text)
	}
	key := text[:i]
	rest := text[i+1:]
	switch {
	case strings.HasPrefix(rest, ":"):
		val := strings.TrimPrefix(strings.TrimPrefix(rest, ":"), " ")
		return kv{Key: key, Enc: "b64", Val: val, Pos: pos}, nil
	case strings.HasPrefix(rest, "<"):
		val := strings.TrimPrefix(strings.TrimPrefix(rest, "<"), " ")
		return kv{Key: key, Enc: "url", Val: val, Pos: pos}, nil
	default:
		return kv{Key: key, Enc: "", Val: strings.TrimPrefix(rest, " "), Pos: pos}, nil
	}
}

func (l kv) bytes() ([]byte, error) {
	switch l.Enc {
	case "b64":
		return codec.DecodeBase64(l.Val, l.Pos)
	case "url":
		return codec.ReadFileURL(l.Val, l.Pos)
	default:
		return []byte(l.Val), nil
	}
}
