package ldif

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgib0y/ldapvi/internal/entry"
	"github.com/georgib0y/ldapvi/internal/parser"
)

func TestReadEntryImplicitAdd(t *testing.T) {
	s := bytes.NewReader([]byte("dn: cn=foo,dc=example\ncn: foo\nsn: bar\n\n"))
	p := NewParser()

	rec, err := p.ReadEntry(s, 0)
	require.NoError(t, err)
	assert.Equal(t, "cn=foo,dc=example", rec.Entry.DN)
	cn, ok := rec.Entry.FindAttribute("cn")
	require.True(t, ok)
	assert.Equal(t, "foo", string(cn.Values[0]))
}

func TestReadEntryFoldedLine(t *testing.T) {
	s := bytes.NewReader([]byte("dn: cn=foo,\n dc=example\ncn: foo\n\n"))
	p := NewParser()

	rec, err := p.ReadEntry(s, 0)
	require.NoError(t, err)
	assert.Equal(t, "cn=foo,dc=example", rec.Entry.DN, "expected folded dn to join")
}

func TestReadEntryBase64DN(t *testing.T) {
	// base64("cn=foo,dc=example") == "Y249Zm9vLGRjPWV4YW1wbGU="
	s := bytes.NewReader([]byte("dn:: Y249Zm9vLGRjPWV4YW1wbGU=\ncn: foo\n\n"))
	p := NewParser()

	rec, err := p.ReadEntry(s, 0)
	require.NoError(t, err)
	assert.Equal(t, "cn=foo,dc=example", rec.Entry.DN, "expected decoded dn")
}

func TestReadEntryMissingEqualsIsBadSyntax(t *testing.T) {
	s := bytes.NewReader([]byte("dn: not a dn\ncn: foo\n\n"))
	p := NewParser()

	_, err := p.ReadEntry(s, 0)
	assert.Error(t, err, "expected an error for a dn with no '='")
}

func TestReadEntryVersionHeaderThenAdd(t *testing.T) {
	s := bytes.NewReader([]byte("version: 1\n\ndn: cn=foo,dc=example\ncn: foo\n\n"))
	p := NewParser()

	rec, err := p.ReadEntry(s, 0)
	require.NoError(t, err)
	assert.Equal(t, "cn=foo,dc=example", rec.Entry.DN, "expected version header to be consumed")
}

func TestReadDelete(t *testing.T) {
	s := bytes.NewReader([]byte("dn: cn=foo,dc=example\nchangetype: delete\n\n"))
	p := NewParser()

	key, dn, err := p.ReadDelete(s, 0)
	require.NoError(t, err)
	assert.Equal(t, parser.KindDelete, key.Kind)
	assert.Equal(t, "cn=foo,dc=example", dn)
}

func TestReadModify(t *testing.T) {
	body := "dn: cn=foo,dc=example\nchangetype: modify\nadd: mail\nmail: a@x\nmail: b@x\n-\ndelete: sn\n-\n\n"
	s := bytes.NewReader([]byte(body))
	p := NewParser()

	key, dn, mods, err := p.ReadModify(s, 0)
	require.NoError(t, err)
	assert.Equal(t, parser.KindModify, key.Kind)
	assert.Equal(t, "cn=foo,dc=example", dn)
	require.Len(t, mods, 2)
	assert.Equal(t, entry.ModAdd, mods[0].Op)
	assert.Len(t, mods[0].Values, 2)
	assert.Equal(t, entry.ModDelete, mods[1].Op)
	assert.Equal(t, entry.AttrDesc("sn"), mods[1].Desc)
}

func TestReadRenameWithoutNewSuperior(t *testing.T) {
	body := "dn: cn=foo,ou=people,dc=example\nchangetype: modrdn\nnewrdn: cn=bar\ndeleteoldrdn: 1\n\n"
	s := bytes.NewReader([]byte(body))
	p := NewParser()

	key, rr, err := p.ReadRename(s, 0)
	require.NoError(t, err)
	assert.Equal(t, parser.KindRename, key.Kind)
	assert.Equal(t, "cn=bar,ou=people,dc=example", rr.NewDN)
	assert.True(t, rr.DeleteOldRDN)
}

func TestReadRenameWithNewSuperior(t *testing.T) {
	body := "dn: cn=foo,ou=people,dc=example\nchangetype: moddn\nnewrdn: cn=bar\ndeleteoldrdn: 0\nnewsuperior: ou=other,dc=example\n\n"
	s := bytes.NewReader([]byte(body))
	p := NewParser()

	_, rr, err := p.ReadRename(s, 0)
	require.NoError(t, err)
	assert.Equal(t, "cn=bar,ou=other,dc=example", rr.NewDN)
}

func TestReadRenameMissingDeleteOldRDNIsError(t *testing.T) {
	body := "dn: cn=foo,ou=people,dc=example\nchangetype: modrdn\nnewrdn: cn=bar\n\n"
	s := bytes.NewReader([]byte(body))
	p := NewParser()

	_, _, err := p.ReadRename(s, 0)
	assert.Error(t, err, "expected an error for a missing deleteoldrdn")
}

func TestLdapviKeyExtensionOverridesKey(t *testing.T) {
	s := bytes.NewReader([]byte("dn: cn=foo,dc=example\nldapvi-key: 7\ncn: foo\n\n"))
	p := NewParser()

	rec, err := p.ReadEntry(s, 0)
	require.NoError(t, err)
	assert.Equal(t, parser.KindNumeric, rec.Key.Kind)
	assert.EqualValues(t, 7, rec.Key.Num)
}

func TestReadEntryEndOfStream(t *testing.T) {
	s := bytes.NewReader([]byte(""))
	p := NewParser()
	_, err := p.ReadEntry(s, 0)
	assert.ErrorIs(t, err, io.EOF)
}
