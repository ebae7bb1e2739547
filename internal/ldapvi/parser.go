package ldapvi

import (
	"io"
	"strconv"
	"strings"

	"github.com/georgib0y/ldapvi/internal/codec"
	"github.com/georgib0y/ldapvi/internal/entry"
	"github.com/georgib0y/ldapvi/internal/ldaperr"
	"github.com/georgib0y/ldapvi/internal/parser"
)

const versionHeader = "version ldapvi"

// Parser reads the extended dialect. It holds no per-stream state; a
// single Parser may be reused across many streams.
type Parser struct {
	Hasher codec.PasswordHasher
}

// NewParser builds a Parser. A nil hasher is replaced with
// codec.DefaultHasher{}.
func NewParser(hasher codec.PasswordHasher) *Parser {
	if hasher == nil {
		hasher = codec.DefaultHasher{}
	}
	return &Parser{Hasher: hasher}
}

func (p *Parser) VersionHeader() string { return versionHeader }

func startAt(s io.ReadSeeker, offset int64) (*extReader, error) {
	if offset == parser.CurrentPos {
		cur, err := s.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, err
		}
		return newExtReader(s, cur), nil
	}
	if _, err := s.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	return newExtReader(s, offset), nil
}

func syncPos(s io.ReadSeeker, r *extReader) error {
	_, err := s.Seek(r.pos, io.SeekStart)
	return err
}

func parseHeader(line string, pos int64) (parser.Key, string, error) {
	i := strings.IndexByte(line, ' ')
	if i < 0 {
		return parser.Key{}, "", ldaperr.New(ldaperr.BadSyntax, pos, "malformed record header %q", line)
	}
	return classifyKey(line[:i]), line[i+1:], nil
}

func classifyKey(tok string) parser.Key {
	switch tok {
	case "add":
		return parser.Key{Kind: parser.KindAdd, Text: tok}
	case "delete":
		return parser.Key{Kind: parser.KindDelete, Text: tok}
	case "modify":
		return parser.Key{Kind: parser.KindModify, Text: tok}
	case "replace":
		return parser.Key{Kind: parser.KindReplace, Text: tok}
	case "rename":
		return parser.Key{Kind: parser.KindRename, Text: tok}
	}
	if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return parser.Key{Kind: parser.KindNumeric, Num: n}
	}
	return parser.Key{Kind: parser.KindOther, Text: tok}
}

// nextHeaderLine returns the first genuine record header line, having
// transparently skipped any leading blank lines and validated a leading
// version header.
func (p *Parser) nextHeaderLine(r *extReader) (string, int64, error) {
	for {
		startPos := r.pos
		line, err := r.readLine()
		if err == io.EOF {
			return "", 0, io.EOF
		}
		if err != nil {
			return "", 0, err
		}
		if line == "" {
			continue
		}
		if line == versionHeader {
			if startPos != 0 {
				return "", 0, ldaperr.New(ldaperr.BadVersion, startPos, "%q header only recognized as the first record", versionHeader)
			}
			if term, err := r.readLine(); err != nil && err != io.EOF {
				return "", 0, err
			} else if err == nil && term != "" {
				return "", 0, ldaperr.New(ldaperr.BadSyntax, r.pos, "expected a blank line after the version header")
			}
			continue
		}
		return line, startPos, nil
	}
}

func (p *Parser) ReadEntry(s io.ReadSeeker, offset int64) (*parser.Record, error) {
	r, err := startAt(s, offset)
	if err != nil {
		return nil, err
	}
	rec, err := p.readEntryFrom(r)
	if serr := syncPos(s, r); serr != nil && err == nil {
		err = serr
	}
	return rec, err
}

func (p *Parser) readEntryFrom(r *extReader) (*parser.Record, error) {
	line, startPos, err := p.nextHeaderLine(r)
	if err != nil {
		return nil, err
	}
	key, dn, err := parseHeader(line, startPos)
	if err != nil {
		return nil, err
	}
	switch key.Kind {
	case parser.KindNumeric, parser.KindAdd, parser.KindReplace, parser.KindOther:
	default:
		return nil, ldaperr.New(ldaperr.BadKey, startPos, "unexpected key %q for an attrval record", key)
	}
	e := entry.NewEntry(dn)
	if err := p.readAttrValBody(r, e); err != nil {
		return nil, err
	}
	return &parser.Record{Key: key, Entry: e, Pos: startPos}, nil
}

func (p *Parser) readAttrValBody(r *extReader, e *entry.Entry) error {
	for {
		attr, stop, err := r.readAttrToken()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if attr == "" && stop == '\n' {
			return nil
		}
		val, err := p.readEncodedValue(r, stop, attr)
		if err != nil {
			return err
		}
		e.AddValue(entry.AttrDesc(attr), val)
	}
}

func (p *Parser) readEncodedValue(r *extReader, stop byte, attr string) ([]byte, error) {
	switch stop {
	case '\n':
		return nil, ldaperr.New(ldaperr.BadSyntax, r.pos, "attribute %q has no value", attr)
	case ' ':
		return readLiteralValue(r)
	case ':':
		return p.readColonEncodedValue(r, attr)
	}
	return nil, ldaperr.New(ldaperr.BadSyntax, r.pos, "malformed attribute line for %q", attr)
}

func (p *Parser) readColonEncodedValue(r *extReader, attr string) ([]byte, error) {
	b, err := r.peekByte()
	if err != nil {
		return nil, ldaperr.New(ldaperr.BadSyntax, r.pos, "unexpected end of stream reading value for %q", attr)
	}
	switch {
	case b == ':':
		r.readByte()
		if err := r.expectByte(' '); err != nil {
			return nil, err
		}
		line, err := r.readLine()
		if err != nil {
			return nil, err
		}
		return codec.DecodeBase64(strings.TrimSpace(line), r.pos)
	case b == '<':
		r.readByte()
		if err := r.expectByte(' '); err != nil {
			return nil, err
		}
		line, err := r.readLine()
		if err != nil {
			return nil, err
		}
		return codec.ReadFileURL(strings.TrimSpace(line), r.pos)
	case b == ';':
		r.readByte()
		if err := r.expectByte(' '); err != nil {
			return nil, err
		}
		return readRealNewlineValue(r)
	case b >= '0' && b <= '9':
		n, err := r.readDigits()
		if err != nil {
			return nil, err
		}
		if err := r.expectByte(' '); err != nil {
			return nil, err
		}
		buf, err := r.readN(n)
		if err != nil {
			return nil, err
		}
		if err := r.consumeEOL(); err != nil {
			return nil, err
		}
		return buf, nil
	case b == ' ':
		r.readByte()
		return readLiteralValue(r)
	default:
		word, err := r.readWordUntilSpace()
		if err != nil {
			return nil, err
		}
		if !isHashScheme(word) {
			return nil, ldaperr.New(ldaperr.BadEncoding, r.pos, "unknown encoding token %q", word)
		}
		if p.Hasher == nil {
			return nil, ldaperr.New(ldaperr.NotSupported, r.pos, "no password hasher configured for scheme %q", word)
		}
		plaintext, err := r.readLine()
		if err != nil {
			return nil, err
		}
		return p.Hasher.Hash(word, []byte(plaintext))
	}
}

func (p *Parser) PeekEntry(s io.ReadSeeker, offset int64) (*parser.Record, error) {
	origin, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	var rec *parser.Record
	r, err := startAt(s, offset)
	if err == nil {
		var line string
		var startPos int64
		if line, startPos, err = p.nextHeaderLine(r); err == nil {
			var key parser.Key
			var dn string
			if key, dn, err = parseHeader(line, startPos); err == nil {
				rec = &parser.Record{Key: key, Entry: entry.NewEntry(dn), Pos: startPos}
			}
		}
	}
	if _, serr := s.Seek(origin, io.SeekStart); serr != nil && err == nil {
		err = serr
	}
	return rec, err
}

func (p *Parser) SkipEntry(s io.ReadSeeker, offset int64) (parser.Key, error) {
	r, err := startAt(s, offset)
	if err != nil {
		return parser.Key{}, err
	}
	key, err := p.skipFrom(r)
	if serr := syncPos(s, r); serr != nil && err == nil {
		err = serr
	}
	return key, err
}

func (p *Parser) skipFrom(r *extReader) (parser.Key, error) {
	line, startPos, err := p.nextHeaderLine(r)
	if err != nil {
		return parser.Key{}, err
	}
	key, _, err := parseHeader(line, startPos)
	if err != nil {
		return parser.Key{}, err
	}
	switch key.Kind {
	case parser.KindDelete:
		if next, err := r.readLine(); err == nil && next != "" {
			return parser.Key{}, ldaperr.New(ldaperr.BadSyntax, r.pos, "delete record has a non-empty body")
		}
	case parser.KindModify:
		if _, err := p.readModifyBody(r); err != nil {
			return parser.Key{}, err
		}
	case parser.KindRename:
		if _, err := r.readLine(); err != nil {
			return parser.Key{}, err
		}
		if term, err := r.readLine(); err == nil && term != "" {
			return parser.Key{}, ldaperr.New(ldaperr.BadSyntax, r.pos, "rename record has more than one body line")
		}
	default:
		e := entry.NewEntry("")
		if err := p.readAttrValBody(r, e); err != nil {
			return parser.Key{}, err
		}
	}
	return key, nil
}

func (p *Parser) ReadDelete(s io.ReadSeeker, offset int64) (parser.Key, string, error) {
	r, err := startAt(s, offset)
	if err != nil {
		return parser.Key{}, "", err
	}
	key, dn, err := p.readDeleteFrom(r)
	if serr := syncPos(s, r); serr != nil && err == nil {
		err = serr
	}
	return key, dn, err
}

func (p *Parser) readDeleteFrom(r *extReader) (parser.Key, string, error) {
	line, startPos, err := p.nextHeaderLine(r)
	if err != nil {
		return parser.Key{}, "", err
	}
	key, dn, err := parseHeader(line, startPos)
	if err != nil {
		return parser.Key{}, "", err
	}
	if key.Kind != parser.KindDelete {
		return parser.Key{}, "", ldaperr.New(ldaperr.BadKey, startPos, "expected a delete record, got key %q", key)
	}
	if next, err := r.readLine(); err != nil && err != io.EOF {
		return parser.Key{}, "", err
	} else if err == nil && next != "" {
		return parser.Key{}, "", ldaperr.New(ldaperr.BadSyntax, r.pos, "delete record has a non-empty body")
	}
	return key, dn, nil
}

func (p *Parser) ReadModify(s io.ReadSeeker, offset int64) (parser.Key, string, []*entry.Mod, error) {
	r, err := startAt(s, offset)
	if err != nil {
		return parser.Key{}, "", nil, err
	}
	key, dn, mods, err := p.readModifyFrom(r)
	if serr := syncPos(s, r); serr != nil && err == nil {
		err = serr
	}
	return key, dn, mods, err
}

func (p *Parser) readModifyFrom(r *extReader) (parser.Key, string, []*entry.Mod, error) {
	line, startPos, err := p.nextHeaderLine(r)
	if err != nil {
		return parser.Key{}, "", nil, err
	}
	key, dn, err := parseHeader(line, startPos)
	if err != nil {
		return parser.Key{}, "", nil, err
	}
	if key.Kind != parser.KindModify {
		return parser.Key{}, "", nil, ldaperr.New(ldaperr.BadKey, startPos, "expected a modify record, got key %q", key)
	}
	mods, err := p.readModifyBody(r)
	return key, dn, mods, err
}

// readModifyBody reads the op-header/attrval blocks of a modify record's
// body: "add: attr" / "delete: attr" / "replace: attr" lines each start
// a new block, whose following "attr: value" lines (base64, file-url,
// hash or plain) accumulate onto it, until the next op header or a
// blank line/EOF ends the record. Raw N-byte values and multi-physical
// -line continuation are not supported inside modify blocks.
func (p *Parser) readModifyBody(r *extReader) ([]*entry.Mod, error) {
	var mods []*entry.Mod
	var cur *entry.Mod
	for {
		line, err := r.readLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if line == "" {
			break
		}
		if op, attr, ok := parseModOpHeader(line); ok {
			cur = &entry.Mod{Op: op, Desc: entry.AttrDesc(attr)}
			mods = append(mods, cur)
			continue
		}
		if cur == nil {
			return nil, ldaperr.New(ldaperr.BadSyntax, r.pos, "attribute value with no preceding op header in modify record")
		}
		attr, val, err := parseAttrValLine(line, r.pos, p.Hasher)
		if err != nil {
			return nil, err
		}
		if !entry.AttrDesc(attr).Equal(cur.Desc) {
			return nil, ldaperr.New(ldaperr.BadSyntax, r.pos, "attribute %q does not match modify block for %q", attr, cur.Desc)
		}
		cur.Values = append(cur.Values, val)
	}
	return mods, nil
}

func parseModOpHeader(line string) (entry.ModOp, string, bool) {
	type prefixOp struct {
		prefix string
		op     entry.ModOp
	}
	for _, po := range []prefixOp{{"add: ", entry.ModAdd}, {"delete: ", entry.ModDelete}, {"replace: ", entry.ModReplace}} {
		if strings.HasPrefix(line, po.prefix) {
			return po.op, strings.TrimSpace(line[len(po.prefix):]), true
		}
	}
	return 0, "", false
}

func parseAttrValLine(line string, pos int64, hasher codec.PasswordHasher) (attr string, val []byte, err error) {
	i := strings.IndexAny(line, ": ")
	if i < 0 {
		return "", nil, ldaperr.New(ldaperr.BadSyntax, pos, "malformed attribute line %q", line)
	}
	attr, rest := line[:i], line[i:]
	switch {
	case strings.HasPrefix(rest, ":: "):
		v, err := codec.DecodeBase64(strings.TrimPrefix(rest, ":: "), pos)
		return attr, v, err
	case strings.HasPrefix(rest, ":< "):
		v, err := codec.ReadFileURL(strings.TrimPrefix(rest, ":< "), pos)
		return attr, v, err
	case strings.HasPrefix(rest, ": "):
		return attr, []byte(strings.TrimPrefix(rest, ": ")), nil
	case strings.HasPrefix(rest, " "):
		return attr, []byte(strings.TrimPrefix(rest, " ")), nil
	default:
		for _, scheme := range hashSchemes {
			prefix := ":" + scheme + " "
			if strings.HasPrefix(rest, prefix) {
				if hasher == nil {
					return "", nil, ldaperr.New(ldaperr.NotSupported, pos, "no password hasher configured")
				}
				v, err := hasher.Hash(scheme, []byte(strings.TrimPrefix(rest, prefix)))
				return attr, v, err
			}
		}
		return "", nil, ldaperr.New(ldaperr.BadEncoding, pos, "unrecognised encoding in %q", line)
	}
}

func (p *Parser) ReadRename(s io.ReadSeeker, offset int64) (parser.Key, parser.RenameRecord, error) {
	r, err := startAt(s, offset)
	if err != nil {
		return parser.Key{}, parser.RenameRecord{}, err
	}
	key, rr, err := p.readRenameFrom(r)
	if serr := syncPos(s, r); serr != nil && err == nil {
		err = serr
	}
	return key, rr, err
}

func (p *Parser) readRenameFrom(r *extReader) (parser.Key, parser.RenameRecord, error) {
	line, startPos, err := p.nextHeaderLine(r)
	if err != nil {
		return parser.Key{}, parser.RenameRecord{}, err
	}
	key, oldDN, err := parseHeader(line, startPos)
	if err != nil {
		return parser.Key{}, parser.RenameRecord{}, err
	}
	if key.Kind != parser.KindRename {
		return parser.Key{}, parser.RenameRecord{}, ldaperr.New(ldaperr.BadKey, startPos, "expected a rename record, got key %q", key)
	}
	bodyLine, err := r.readLine()
	if err != nil {
		return parser.Key{}, parser.RenameRecord{}, err
	}
	var deleteOld bool
	var newDN string
	switch {
	case strings.HasPrefix(bodyLine, "add "):
		deleteOld = false
		newDN = strings.TrimPrefix(bodyLine, "add ")
	case strings.HasPrefix(bodyLine, "replace "):
		deleteOld = true
		newDN = strings.TrimPrefix(bodyLine, "replace ")
	default:
		return parser.Key{}, parser.RenameRecord{}, ldaperr.New(ldaperr.BadSyntax, r.pos, "malformed rename body %q", bodyLine)
	}
	if term, err := r.readLine(); err == nil && term != "" {
		return parser.Key{}, parser.RenameRecord{}, ldaperr.New(ldaperr.BadSyntax, r.pos, "rename record has more than one body line")
	}
	return key, parser.RenameRecord{OldDN: oldDN, NewDN: newDN, DeleteOldRDN: deleteOld}, nil
}
