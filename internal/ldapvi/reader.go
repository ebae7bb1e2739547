// Package ldapvi implements the extended ("native") record dialect:
// KEY-prefixed records, backslash-escaped and colon-tagged value
// encodings, and op-block modify/rename bodies.
package ldapvi

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/georgib0y/ldapvi/internal/codec"
	"github.com/georgib0y/ldapvi/internal/ldaperr"
)

// extReader is a low-level cursor over the underlying stream that tracks
// the absolute byte offset of the next unread byte, so that raw N-byte
// values (which may contain embedded newlines) can be read without
// disturbing line-oriented reads elsewhere in the record.
type extReader struct {
	br  *bufio.Reader
	pos int64
}

func newExtReader(r io.Reader, start int64) *extReader {
	return &extReader{br: bufio.NewReader(r), pos: start}
}

func (r *extReader) readByte() (byte, error) {
	b, err := r.br.ReadByte()
	if err != nil {
		return 0, err
	}
	r.pos++
	return b, nil
}

func (r *extReader) peekByte() (byte, error) {
	b, err := r.br.Peek(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *extReader) expectByte(want byte) error {
	b, err := r.readByte()
	if err != nil {
		return err
	}
	if b != want {
		return ldaperr.New(ldaperr.BadSyntax, r.pos, "expected %q, got %q", want, b)
	}
	return nil
}

// readLine reads one physical line, trailing "\r\n"/"\n" stripped. err is
// io.EOF only once no more bytes at all remain.
func (r *extReader) readLine() (string, error) {
	line, err := r.br.ReadString('\n')
	r.pos += int64(len(line))
	if err != nil && err != io.EOF {
		return "", err
	}
	if err == io.EOF && line == "" {
		return "", io.EOF
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

func (r *extReader) readN(n int) ([]byte, error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(r.br, buf)
	r.pos += int64(read)
	if err != nil {
		return nil, ldaperr.Wrap(ldaperr.BadSyntax, r.pos, err, "expected %d raw bytes", n)
	}
	return buf, nil
}

// consumeEOL swallows an optional "\r\n"/"\n" immediately following a
// raw N-byte value.
func (r *extReader) consumeEOL() error {
	b, err := r.peekByte()
	if err != nil {
		return nil
	}
	if b == '\r' {
		r.readByte()
		b, err = r.peekByte()
		if err != nil {
			return nil
		}
	}
	if b == '\n' {
		r.readByte()
	}
	return nil
}

func (r *extReader) readDigits() (int, error) {
	var sb strings.Builder
	for {
		b, err := r.peekByte()
		if err != nil || b < '0' || b > '9' {
			break
		}
		r.readByte()
		sb.WriteByte(b)
	}
	if sb.Len() == 0 {
		return 0, ldaperr.New(ldaperr.BadEncoding, r.pos, "expected a byte count")
	}
	n, err := strconv.Atoi(sb.String())
	if err != nil {
		return 0, ldaperr.Wrap(ldaperr.BadEncoding, r.pos, err, "bad byte count")
	}
	return n, nil
}

func (r *extReader) readWordUntilSpace() (string, error) {
	var sb strings.Builder
	for {
		b, err := r.readByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if b == ' ' || b == '\n' {
			break
		}
		sb.WriteByte(b)
	}
	return sb.String(), nil
}

// readAttrToken reads bytes up to (not including) the first ':', ' ' or
// '\n', which is returned as stop. CR bytes are swallowed. A NUL byte in
// the name is a syntax error.
func (r *extReader) readAttrToken() (tok string, stop byte, err error) {
	var sb strings.Builder
	for {
		b, err := r.readByte()
		if err == io.EOF {
			if sb.Len() == 0 {
				return "", 0, io.EOF
			}
			return "", 0, ldaperr.New(ldaperr.BadSyntax, r.pos, "unexpected end of stream in attribute name")
		}
		if err != nil {
			return "", 0, err
		}
		switch b {
		case '\r':
			continue
		case 0:
			return "", 0, ldaperr.New(ldaperr.BadSyntax, r.pos, "NUL byte in attribute name")
		case ':', ' ', '\n':
			return sb.String(), b, nil
		default:
			sb.WriteByte(b)
		}
	}
}

var hashSchemes = []string{"sha", "ssha", "md5", "smd5", "crypt", "cryptmd5"}

func isHashScheme(s string) bool {
	for _, h := range hashSchemes {
		if h == s {
			return true
		}
	}
	return false
}

// readLiteralValue joins physical lines under the backslash-newline
// continuation rule until an un-escaped end of line.
func readLiteralValue(r *extReader) ([]byte, error) {
	var sb strings.Builder
	for {
		raw, err := r.readLine()
		if err != nil {
			return nil, err
		}
		text, cont := codec.SplitContinuation(raw)
		sb.WriteString(text)
		if !cont {
			break
		}
		sb.WriteByte('\n')
	}
	return []byte(sb.String()), nil
}

// readRealNewlineValue implements the ":;" encoding: continuation lines
// are marked by a single leading space, as in LDIF folding, and are
// joined with a literal newline rather than glued together.
func readRealNewlineValue(r *extReader) ([]byte, error) {
	var sb strings.Builder
	first, err := r.readLine()
	if err != nil {
		return nil, err
	}
	sb.WriteString(first)
	for {
		b, err := r.peekByte()
		if err != nil || b != ' ' {
			break
		}
		cont, err := r.readLine()
		if err != nil {
			return nil, err
		}
		sb.WriteByte('\n')
		sb.WriteString(cont[1:])
	}
	return []byte(sb.String()), nil
}
