// Package parser defines the dialect-independent record model and the
// Parser facade both the extended and LDIF readers implement; the diff
// engine talks only to this interface, never to a concrete dialect.
package parser

import (
	"io"

	"github.com/georgib0y/ldapvi/internal/entry"
)

// CurrentPos, passed as an offset argument, means "read from the
// stream's current position" instead of seeking first.
const CurrentPos int64 = -1

// RecordKind classifies a record's key.
type RecordKind int

const (
	// KindNumeric is an ordinary numbered record from a clean file.
	KindNumeric RecordKind = iota
	KindAdd
	KindDelete
	KindModify
	KindReplace
	KindRename
	// KindOther is a non-numeric, non-keyword token (the extended
	// dialect allows an arbitrary key, e.g. "entry").
	KindOther
)

// Key identifies a record. Num is meaningful only when Kind ==
// KindNumeric; Text carries the raw token for KindOther.
type Key struct {
	Kind RecordKind
	Num  int64
	Text string
}

func (k Key) String() string {
	switch k.Kind {
	case KindNumeric:
		return itoa(k.Num)
	case KindAdd:
		return "add"
	case KindDelete:
		return "delete"
	case KindModify:
		return "modify"
	case KindReplace:
		return "replace"
	case KindRename:
		return "rename"
	default:
		return k.Text
	}
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// IsImmediate reports whether a key is one of the change keywords
// (add/delete/modify/replace/rename) rather than a numeric back-reference.
func (k Key) IsImmediate() bool {
	switch k.Kind {
	case KindAdd, KindDelete, KindModify, KindReplace, KindRename:
		return true
	default:
		return false
	}
}

// Record is what ReadEntry returns for an attrval record: a full entry
// paired with the key and byte position it was read from. PeekEntry
// returns one for a record of any kind, with only the DN filled in.
type Record struct {
	Key   Key
	Entry *entry.Entry
	Pos   int64
}

// RenameRecord is the result of ReadRename: the DN a rename record
// applies to, its resolved new DN (already synthesized from
// newrdn/newsuperior for the LDIF dialect), and whether the old RDN
// value should be removed from the entry.
type RenameRecord struct {
	OldDN        string
	NewDN        string
	DeleteOldRDN bool
}

// Parser is the dialect-independent facade the diff engine and CLI use;
// both the extended (internal/ldapvi) and LDIF (internal/ldif) readers
// implement it. All methods accept a seekable stream and an offset:
// CurrentPos means "don't seek, read from wherever the stream already
// is", any other value seeks there first. Every method restores its own
// position discipline; PeekEntry additionally restores the position it
// found the stream at on entry.
type Parser interface {
	// ReadEntry reads an attrval record's key, DN and attributes.
	// Returns io.EOF (and a nil *Record) at end of stream.
	ReadEntry(s io.ReadSeeker, offset int64) (*Record, error)
	// PeekEntry reads only the next record's header (key, DN and
	// position), for attrval and change records alike, and restores the
	// stream position before returning. The Record's Entry carries the
	// DN and no attributes.
	PeekEntry(s io.ReadSeeker, offset int64) (*Record, error)
	// SkipEntry consumes and discards a record's body, returning only
	// its key.
	SkipEntry(s io.ReadSeeker, offset int64) (Key, error)
	// ReadDelete reads a delete record's key and DN; its body must be
	// empty.
	ReadDelete(s io.ReadSeeker, offset int64) (key Key, dn string, err error)
	// ReadModify reads a modify record's key, DN and Mod list.
	ReadModify(s io.ReadSeeker, offset int64) (key Key, dn string, mods []*entry.Mod, err error)
	// ReadRename reads a rename record.
	ReadRename(s io.ReadSeeker, offset int64) (key Key, rr RenameRecord, err error)
	// VersionHeader reports the version header token this dialect
	// recognizes at the very start of a stream. Used by callers wishing
	// to sniff a dialect before committing to one.
	VersionHeader() string
}
