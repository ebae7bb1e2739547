package ldapvi

import (
	"bytes"
	"io"
	"testing"

	"github.com/georgib0y/ldapvi/internal/entry"
	"github.com/georgib0y/ldapvi/internal/parser"
)

func TestReadEntryPlainAttrValRecord(t *testing.T) {
	s := bytes.NewReader([]byte("0 cn=foo,dc=example\ncn foo\nsn bar\n\n"))
	p := NewParser(nil)

	rec, err := p.ReadEntry(s, 0)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if rec.Key.Kind != parser.KindNumeric || rec.Key.Num != 0 {
		t.Errorf("unexpected key %v", rec.Key)
	}
	if rec.Entry.DN != "cn=foo,dc=example" {
		t.Errorf("unexpected dn %q", rec.Entry.DN)
	}
	cn, ok := rec.Entry.FindAttribute("cn")
	if !ok || string(cn.Values[0]) != "foo" {
		t.Errorf("expected cn=foo, got %v", cn)
	}
}

func TestReadEntryBase64Value(t *testing.T) {
	s := bytes.NewReader([]byte("add cn=foo,dc=example\ncn:: Zm9v\n\n"))
	p := NewParser(nil)

	rec, err := p.ReadEntry(s, parser.CurrentPos)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	cn, ok := rec.Entry.FindAttribute("cn")
	if !ok || string(cn.Values[0]) != "foo" {
		t.Errorf("expected decoded cn=foo, got %v", cn)
	}
}

func TestReadEntryRawByteCount(t *testing.T) {
	body := "add cn=foo,dc=example\ncn:3 foo\n\n"
	s := bytes.NewReader([]byte(body))
	p := NewParser(nil)

	rec, err := p.ReadEntry(s, 0)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	cn, ok := rec.Entry.FindAttribute("cn")
	if !ok || string(cn.Values[0]) != "foo" {
		t.Errorf("expected raw-byte-count cn=foo, got %v", cn)
	}
}

func TestReadEntryLiteralContinuation(t *testing.T) {
	s := bytes.NewReader([]byte("add cn=foo,dc=example\ndescription foo\\\nbar\n\n"))
	p := NewParser(nil)

	rec, err := p.ReadEntry(s, 0)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	desc, ok := rec.Entry.FindAttribute("description")
	if !ok || string(desc.Values[0]) != "foo\nbar" {
		t.Errorf("expected joined continuation value, got %v", desc)
	}
}

func TestReadEntryVersionHeaderOnlyFirst(t *testing.T) {
	s := bytes.NewReader([]byte("version ldapvi\n\n0 cn=foo,dc=example\ncn foo\n\n"))
	p := NewParser(nil)

	rec, err := p.ReadEntry(s, 0)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if rec.Entry.DN != "cn=foo,dc=example" {
		t.Errorf("expected version header to be skipped, got dn %q", rec.Entry.DN)
	}
}

func TestReadEntryVersionHeaderElsewhereIsBadVersion(t *testing.T) {
	s := bytes.NewReader([]byte("0 cn=foo,dc=example\ncn foo\n\nversion ldapvi\n\n"))
	p := NewParser(nil)

	if _, err := p.ReadEntry(s, 0); err != nil {
		t.Fatalf("unexpected error on first record: %s", err)
	}
	pos, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		t.Fatalf("seek failed: %s", err)
	}
	if _, err := p.ReadEntry(s, pos); err == nil {
		t.Fatalf("expected an error for a version header past the first record")
	}
}

func TestReadEntryEndOfStream(t *testing.T) {
	s := bytes.NewReader([]byte(""))
	p := NewParser(nil)
	if _, err := p.ReadEntry(s, 0); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReadEntryBlankLinesThenEOF(t *testing.T) {
	s := bytes.NewReader([]byte("\n\n\n"))
	p := NewParser(nil)
	if _, err := p.ReadEntry(s, 0); err != io.EOF {
		t.Fatalf("expected io.EOF past trailing blank lines, got %v", err)
	}
}

func TestReadEntrySkipsBlankLinesBeforeHeader(t *testing.T) {
	s := bytes.NewReader([]byte("\n\n0 cn=foo,dc=example\ncn foo\n\n"))
	p := NewParser(nil)

	rec, err := p.ReadEntry(s, 0)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if rec.Entry.DN != "cn=foo,dc=example" {
		t.Errorf("expected leading blank lines to be skipped, got dn %q", rec.Entry.DN)
	}
}

func TestReadEntrySkipsBlankLinesBetweenRecords(t *testing.T) {
	s := bytes.NewReader([]byte("0 cn=foo,dc=example\ncn foo\n\n\n\n1 cn=bar,dc=example\ncn bar\n\n"))
	p := NewParser(nil)

	if _, err := p.ReadEntry(s, 0); err != nil {
		t.Fatalf("unexpected error on first record: %s", err)
	}
	pos, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		t.Fatalf("seek failed: %s", err)
	}
	rec, err := p.ReadEntry(s, pos)
	if err != nil {
		t.Fatalf("unexpected error skipping blank lines between records: %s", err)
	}
	if rec.Entry.DN != "cn=bar,dc=example" {
		t.Errorf("expected second record dn, got %q", rec.Entry.DN)
	}
}

func TestPeekEntryRestoresPosition(t *testing.T) {
	s := bytes.NewReader([]byte("0 cn=foo,dc=example\ncn foo\n\n"))
	p := NewParser(nil)

	before, _ := s.Seek(0, io.SeekCurrent)
	if _, err := p.PeekEntry(s, 0); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	after, _ := s.Seek(0, io.SeekCurrent)
	if before != after {
		t.Errorf("expected PeekEntry to restore position, went from %d to %d", before, after)
	}
}

func TestReadDelete(t *testing.T) {
	s := bytes.NewReader([]byte("delete cn=foo,dc=example\n\n"))
	p := NewParser(nil)

	key, dn, err := p.ReadDelete(s, 0)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if key.Kind != parser.KindDelete {
		t.Errorf("expected delete key, got %v", key)
	}
	if dn != "cn=foo,dc=example" {
		t.Errorf("unexpected dn %q", dn)
	}
}

func TestReadModify(t *testing.T) {
	body := "modify cn=foo,dc=example\nadd: mail\nmail: a@x\nmail: b@x\ndelete: sn\n\n"
	s := bytes.NewReader([]byte(body))
	p := NewParser(nil)

	key, dn, mods, err := p.ReadModify(s, 0)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if key.Kind != parser.KindModify || dn != "cn=foo,dc=example" {
		t.Errorf("unexpected key/dn %v %q", key, dn)
	}
	if len(mods) != 2 {
		t.Fatalf("expected 2 mod blocks, got %d", len(mods))
	}
	if mods[0].Op != entry.ModAdd || len(mods[0].Values) != 2 {
		t.Errorf("unexpected first mod block %v", mods[0])
	}
	if mods[1].Op != entry.ModDelete || mods[1].Desc != "sn" {
		t.Errorf("unexpected second mod block %v", mods[1])
	}
}

func TestReadRenameAdd(t *testing.T) {
	s := bytes.NewReader([]byte("rename cn=foo,dc=example\nadd cn=bar,dc=example\n\n"))
	p := NewParser(nil)

	key, rr, err := p.ReadRename(s, 0)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if key.Kind != parser.KindRename {
		t.Errorf("unexpected key %v", key)
	}
	if rr.OldDN != "cn=foo,dc=example" || rr.NewDN != "cn=bar,dc=example" || rr.DeleteOldRDN {
		t.Errorf("unexpected rename record %+v", rr)
	}
}

func TestReadRenameReplaceSetsDeleteOldRDN(t *testing.T) {
	s := bytes.NewReader([]byte("rename cn=foo,dc=example\nreplace cn=bar,dc=example\n\n"))
	p := NewParser(nil)

	_, rr, err := p.ReadRename(s, 0)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !rr.DeleteOldRDN {
		t.Errorf("expected replace to set deleteOldRDN")
	}
}
