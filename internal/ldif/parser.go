package ldif

import (
	"io"
	"strconv"
	"strings"

	"github.com/georgib0y/ldapvi/internal/codec"
	"github.com/georgib0y/ldapvi/internal/entry"
	"github.com/georgib0y/ldapvi/internal/ldaperr"
	"github.com/georgib0y/ldapvi/internal/parser"
)

const versionHeader = "version: 1"

// Parser reads RFC 2849 LDIF, including the changetype: modify/modrdn/
// moddn extensions and the proprietary ldapvi-key: annotation.
type Parser struct{}

func NewParser() *Parser { return &Parser{} }

func (p *Parser) VersionHeader() string { return versionHeader }

func startAt(s io.ReadSeeker, offset int64) (*ldifReader, error) {
	var start int64
	if offset == parser.CurrentPos {
		cur, err := s.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, err
		}
		start = cur
	} else {
		if _, err := s.Seek(offset, io.SeekStart); err != nil {
			return nil, err
		}
		start = offset
	}
	return newLdifReader(codec.NewLDIFFolder(s, start)), nil
}

func syncPos(s io.ReadSeeker, rd *ldifReader) error {
	_, err := s.Seek(rd.pos(), io.SeekStart)
	return err
}

// nextDNLine skips blank and comment lines and the (position-0-only)
// version header, returning the next structurally meaningful line.
func (p *Parser) nextDNLine(rd *ldifReader) (codec.FoldedLine, error) {
	for {
		startPos := rd.pos()
		line, err := rd.next()
		if err != nil {
			return codec.FoldedLine{}, err
		}
		text := line.Text
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if text == versionHeader {
			if startPos != 0 {
				return codec.FoldedLine{}, ldaperr.New(ldaperr.BadVersion, startPos, "%q only recognized as the first record", versionHeader)
			}
			continue
		}
		return line, nil
	}
}

func (p *Parser) readRecordHeader(rd *ldifReader) (dn string, pos int64, err error) {
	line, err := p.nextDNLine(rd)
	if err != nil {
		return "", 0, err
	}
	kv, err := parseKV(line.Text, line.Pos)
	if err != nil {
		return "", 0, err
	}
	if kv.Key != "dn" {
		return "", 0, ldaperr.New(ldaperr.BadSyntax, line.Pos, "expected a dn: line, got %q", line.Text)
	}
	dnBytes, err := kv.bytes()
	if err != nil {
		return "", 0, err
	}
	dn = string(dnBytes)
	if !strings.Contains(dn, "=") {
		return "", 0, ldaperr.New(ldaperr.BadSyntax, line.Pos, "dn %q has no '='", dn)
	}
	return dn, line.Pos, nil
}

// checkNoControls consumes and rejects a "control:" line as
// NotSupported; any other line is pushed back for the caller.
func (p *Parser) checkNoControls(rd *ldifReader) error {
	line, err := rd.next()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}
	if line.Text == "" {
		rd.pushback(line)
		return nil
	}
	if kv, kerr := parseKV(line.Text, line.Pos); kerr == nil && kv.Key == "control" {
		return ldaperr.New(ldaperr.NotSupported, line.Pos, "LDIF controls are not supported")
	}
	rd.pushback(line)
	return nil
}

func (p *Parser) readRecordPrelude(rd *ldifReader) (dn string, startPos int64, err error) {
	dn, startPos, err = p.readRecordHeader(rd)
	if err != nil {
		return "", 0, err
	}
	if err := p.checkNoControls(rd); err != nil {
		return "", 0, err
	}
	return dn, startPos, nil
}

func classifyChangetype(ct string) parser.Key {
	switch ct {
	case "add", "":
		return parser.Key{Kind: parser.KindAdd, Text: "add"}
	case "delete":
		return parser.Key{Kind: parser.KindDelete, Text: "delete"}
	case "modify":
		return parser.Key{Kind: parser.KindModify, Text: "modify"}
	case "modrdn", "moddn":
		return parser.Key{Kind: parser.KindRename, Text: ct}
	default:
		return parser.Key{Kind: parser.KindOther, Text: ct}
	}
}

func classifyLdapviKey(tok string) parser.Key {
	if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return parser.Key{Kind: parser.KindNumeric, Num: n}
	}
	return parser.Key{Kind: parser.KindOther, Text: tok}
}

// readChangetype reads the optional changetype: line (and, for an add
// record, an optional following ldapvi-key: line), returning the
// changetype text ("" if absent, meaning add) and the resulting Key.
func (p *Parser) readChangetype(rd *ldifReader, startPos int64) (string, parser.Key, error) {
	line, err := rd.next()
	if err == io.EOF {
		return "", parser.Key{Kind: parser.KindAdd, Text: "add"}, nil
	}
	if err != nil {
		return "", parser.Key{}, err
	}
	if line.Text == "" {
		return "", parser.Key{Kind: parser.KindAdd, Text: "add"}, nil
	}
	kv, err := parseKV(line.Text, line.Pos)
	if err != nil {
		return "", parser.Key{}, err
	}
	if kv.Key == "ldapvi-key" {
		kb, err := kv.bytes()
		if err != nil {
			return "", parser.Key{}, err
		}
		return "", classifyLdapviKey(string(kb)), nil
	}
	if kv.Key == "changetype" {
		ctBytes, err := kv.bytes()
		if err != nil {
			return "", parser.Key{}, err
		}
		ct := string(ctBytes)
		key := classifyChangetype(ct)
		if key.Kind == parser.KindAdd {
			if nl, nerr := rd.next(); nerr == nil {
				if nkv, kerr := parseKV(nl.Text, nl.Pos); kerr == nil && nkv.Key == "ldapvi-key" {
					kb, err := nkv.bytes()
					if err != nil {
						return "", parser.Key{}, err
					}
					key = classifyLdapviKey(string(kb))
				} else {
					rd.pushback(nl)
				}
			} else if nerr != io.EOF {
				return "", parser.Key{}, nerr
			}
		}
		return ct, key, nil
	}
	rd.pushback(line)
	return "", parser.Key{Kind: parser.KindAdd, Text: "add"}, nil
}

func (p *Parser) readAttrValBody(rd *ldifReader, e *entry.Entry) error {
	for {
		line, err := rd.next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if line.Text == "" {
			return nil
		}
		kv, err := parseKV(line.Text, line.Pos)
		if err != nil {
			return err
		}
		val, err := kv.bytes()
		if err != nil {
			return err
		}
		e.AddValue(entry.AttrDesc(kv.Key), val)
	}
}

func (p *Parser) ReadEntry(s io.ReadSeeker, offset int64) (*parser.Record, error) {
	rd, err := startAt(s, offset)
	if err != nil {
		return nil, err
	}
	rec, err := p.readEntryFrom(rd)
	if serr := syncPos(s, rd); serr != nil && err == nil {
		err = serr
	}
	return rec, err
}

func (p *Parser) readEntryFrom(rd *ldifReader) (*parser.Record, error) {
	dn, startPos, err := p.readRecordPrelude(rd)
	if err != nil {
		return nil, err
	}
	ct, key, err := p.readChangetype(rd, startPos)
	if err != nil {
		return nil, err
	}
	if ct != "" && ct != "add" {
		return nil, ldaperr.New(ldaperr.BadKey, startPos, "unexpected changetype %q for an attrval record", ct)
	}
	e := entry.NewEntry(dn)
	if err := p.readAttrValBody(rd, e); err != nil {
		return nil, err
	}
	return &parser.Record{Key: key, Entry: e, Pos: startPos}, nil
}

func (p *Parser) PeekEntry(s io.ReadSeeker, offset int64) (*parser.Record, error) {
	origin, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	var rec *parser.Record
	rd, err := startAt(s, offset)
	if err == nil {
		var dn string
		var startPos int64
		if dn, startPos, err = p.readRecordPrelude(rd); err == nil {
			var key parser.Key
			if _, key, err = p.readChangetype(rd, startPos); err == nil {
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
	rd, err := startAt(s, offset)
	if err != nil {
		return parser.Key{}, err
	}
	key, err := p.skipFrom(rd)
	if serr := syncPos(s, rd); serr != nil && err == nil {
		err = serr
	}
	return key, err
}

func (p *Parser) skipFrom(rd *ldifReader) (parser.Key, error) {
	_, startPos, err := p.readRecordPrelude(rd)
	if err != nil {
		return parser.Key{}, err
	}
	_, key, err := p.readChangetype(rd, startPos)
	if err != nil {
		return parser.Key{}, err
	}
	switch key.Kind {
	case parser.KindDelete:
		if next, err := rd.next(); err == nil && next.Text != "" {
			return parser.Key{}, ldaperr.New(ldaperr.BadSyntax, next.Pos, "delete record has a non-empty body")
		} else if err != nil && err != io.EOF {
			return parser.Key{}, err
		}
	case parser.KindModify:
		if _, err := p.readModifyBody(rd); err != nil {
			return parser.Key{}, err
		}
	case parser.KindRename:
		for {
			line, err := rd.next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return parser.Key{}, err
			}
			if line.Text == "" {
				break
			}
		}
	default:
		e := entry.NewEntry("")
		if err := p.readAttrValBody(rd, e); err != nil {
			return parser.Key{}, err
		}
	}
	return key, nil
}

func (p *Parser) ReadDelete(s io.ReadSeeker, offset int64) (parser.Key, string, error) {
	rd, err := startAt(s, offset)
	if err != nil {
		return parser.Key{}, "", err
	}
	key, dn, err := p.readDeleteFrom(rd)
	if serr := syncPos(s, rd); serr != nil && err == nil {
		err = serr
	}
	return key, dn, err
}

func (p *Parser) readDeleteFrom(rd *ldifReader) (parser.Key, string, error) {
	dn, startPos, err := p.readRecordPrelude(rd)
	if err != nil {
		return parser.Key{}, "", err
	}
	ct, key, err := p.readChangetype(rd, startPos)
	if err != nil {
		return parser.Key{}, "", err
	}
	if ct != "delete" {
		return parser.Key{}, "", ldaperr.New(ldaperr.BadKey, startPos, "expected changetype: delete, got %q", ct)
	}
	if next, err := rd.next(); err == nil && next.Text != "" {
		return parser.Key{}, "", ldaperr.New(ldaperr.BadSyntax, next.Pos, "delete record has a non-empty body")
	} else if err != nil && err != io.EOF {
		return parser.Key{}, "", err
	}
	return key, dn, nil
}

func parseModOp(key string) (entry.ModOp, bool) {
	switch key {
	case "add":
		return entry.ModAdd, true
	case "delete":
		return entry.ModDelete, true
	case "replace":
		return entry.ModReplace, true
	default:
		return 0, false
	}
}

func (p *Parser) readModifyBody(rd *ldifReader) ([]*entry.Mod, error) {
	var mods []*entry.Mod
	for {
		line, err := rd.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if line.Text == "" {
			break
		}
		kv, err := parseKV(line.Text, line.Pos)
		if err != nil {
			return nil, err
		}
		op, ok := parseModOp(kv.Key)
		if !ok {
			return nil, ldaperr.New(ldaperr.BadSyntax, line.Pos, "expected add:/delete:/replace:, got %q", kv.Key)
		}
		attrBytes, err := kv.bytes()
		if err != nil {
			return nil, err
		}
		mod := &entry.Mod{Op: op, Desc: entry.AttrDesc(attrBytes)}
		for {
			vl, err := rd.next()
			if err == io.EOF {
				return nil, ldaperr.New(ldaperr.BadSyntax, line.Pos, "modify block for %q missing '-' terminator", mod.Desc)
			}
			if err != nil {
				return nil, err
			}
			if vl.Text == "-" {
				break
			}
			vkv, err := parseKV(vl.Text, vl.Pos)
			if err != nil {
				return nil, err
			}
			if !entry.AttrDesc(vkv.Key).Equal(mod.Desc) {
				return nil, ldaperr.New(ldaperr.BadSyntax, vl.Pos, "attribute %q does not match modify block for %q", vkv.Key, mod.Desc)
			}
			val, err := vkv.bytes()
			if err != nil {
				return nil, err
			}
			mod.Values = append(mod.Values, val)
		}
		mods = append(mods, mod)
	}
	return mods, nil
}

func (p *Parser) ReadModify(s io.ReadSeeker, offset int64) (parser.Key, string, []*entry.Mod, error) {
	rd, err := startAt(s, offset)
	if err != nil {
		return parser.Key{}, "", nil, err
	}
	key, dn, mods, err := p.readModifyFrom(rd)
	if serr := syncPos(s, rd); serr != nil && err == nil {
		err = serr
	}
	return key, dn, mods, err
}

func (p *Parser) readModifyFrom(rd *ldifReader) (parser.Key, string, []*entry.Mod, error) {
	dn, startPos, err := p.readRecordPrelude(rd)
	if err != nil {
		return parser.Key{}, "", nil, err
	}
	ct, key, err := p.readChangetype(rd, startPos)
	if err != nil {
		return parser.Key{}, "", nil, err
	}
	if ct != "modify" {
		return parser.Key{}, "", nil, ldaperr.New(ldaperr.BadKey, startPos, "expected changetype: modify, got %q", ct)
	}
	mods, err := p.readModifyBody(rd)
	return key, dn, mods, err
}

func (p *Parser) ReadRename(s io.ReadSeeker, offset int64) (parser.Key, parser.RenameRecord, error) {
	rd, err := startAt(s, offset)
	if err != nil {
		return parser.Key{}, parser.RenameRecord{}, err
	}
	key, rr, err := p.readRenameFrom(rd)
	if serr := syncPos(s, rd); serr != nil && err == nil {
		err = serr
	}
	return key, rr, err
}

func (p *Parser) readRenameFrom(rd *ldifReader) (parser.Key, parser.RenameRecord, error) {
	dn, startPos, err := p.readRecordPrelude(rd)
	if err != nil {
		return parser.Key{}, parser.RenameRecord{}, err
	}
	ct, key, err := p.readChangetype(rd, startPos)
	if err != nil {
		return parser.Key{}, parser.RenameRecord{}, err
	}
	if ct != "modrdn" && ct != "moddn" {
		return parser.Key{}, parser.RenameRecord{}, ldaperr.New(ldaperr.BadKey, startPos, "expected changetype: modrdn/moddn, got %q", ct)
	}

	var newrdn string
	var haveNewRDN, haveDeleteOld, deleteOld bool
	var newSuperior *string

	for {
		line, err := rd.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return parser.Key{}, parser.RenameRecord{}, err
		}
		if line.Text == "" {
			break
		}
		kv, err := parseKV(line.Text, line.Pos)
		if err != nil {
			return parser.Key{}, parser.RenameRecord{}, err
		}
		valBytes, err := kv.bytes()
		if err != nil {
			return parser.Key{}, parser.RenameRecord{}, err
		}
		val := string(valBytes)
		switch kv.Key {
		case "newrdn":
			newrdn = val
			haveNewRDN = true
		case "deleteoldrdn":
			switch val {
			case "0":
				deleteOld = false
			case "1":
				deleteOld = true
			default:
				return parser.Key{}, parser.RenameRecord{}, ldaperr.New(ldaperr.BadSyntax, line.Pos, "deleteoldrdn must be 0 or 1, got %q", val)
			}
			haveDeleteOld = true
		case "newsuperior":
			v := val
			newSuperior = &v
		default:
			return parser.Key{}, parser.RenameRecord{}, ldaperr.New(ldaperr.BadSyntax, line.Pos, "unexpected line %q in rename record", kv.Key)
		}
	}
	if !haveNewRDN {
		return parser.Key{}, parser.RenameRecord{}, ldaperr.New(ldaperr.BadSyntax, startPos, "rename record missing newrdn")
	}
	if !haveDeleteOld {
		return parser.Key{}, parser.RenameRecord{}, ldaperr.New(ldaperr.BadSyntax, startPos, "rename record missing deleteoldrdn")
	}
	newDN := entry.SynthesizeRenameDN(dn, newrdn, newSuperior)
	return key, parser.RenameRecord{OldDN: dn, NewDN: newDN, DeleteOldRDN: deleteOld}, nil
}
