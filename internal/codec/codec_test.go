package codec

import (
	"strings"
	"testing"
)

func TestDecodeBase64RoundTrip(t *testing.T) {
	enc := EncodeBase64([]byte("hello world"))
	dec, err := DecodeBase64(enc, 0)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if string(dec) != "hello world" {
		t.Errorf("expected round trip, got %q", dec)
	}
}

func TestDecodeBase64BadEncoding(t *testing.T) {
	_, err := DecodeBase64("not base64!!", 5)
	if err == nil {
		t.Fatalf("expected an error")
	}
}

func TestLDIFFolderJoinsContinuationLines(t *testing.T) {
	in := "dn: cn=foo,\n dc=example\ncn: foo\n"
	folder := NewLDIFFolder(strings.NewReader(in), 0)

	l1, err := folder.Next()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if l1.Text != "dn: cn=foo,dc=example" {
		t.Errorf("expected folded line, got %q", l1.Text)
	}
	if l1.Pos != 0 {
		t.Errorf("expected first line offset 0, got %d", l1.Pos)
	}

	l2, err := folder.Next()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if l2.Text != "cn: foo" {
		t.Errorf("expected second logical line, got %q", l2.Text)
	}
}

func TestSplitContinuationOddBackslashesContinues(t *testing.T) {
	text, continues := SplitContinuation(`some value\`)
	if !continues {
		t.Fatalf("expected continuation")
	}
	if text != "some value" {
		t.Errorf("expected trailing backslash stripped, got %q", text)
	}
}

func TestSplitContinuationDoubledBackslashIsLiteral(t *testing.T) {
	text, continues := SplitContinuation(`some value\\`)
	if continues {
		t.Fatalf("expected no continuation for a doubled backslash")
	}
	if text != `some value\` {
		t.Errorf("expected doubled backslash to collapse to one, got %q", text)
	}
}

func TestFoldForPrintShortLineUnchanged(t *testing.T) {
	if FoldForPrint("cn: foo", 76) != "cn: foo" {
		t.Errorf("expected short line to be unchanged")
	}
}

func TestFoldForPrintWrapsLongLines(t *testing.T) {
	long := "cn: " + strings.Repeat("x", 100)
	folded := FoldForPrint(long, 10)
	lines := strings.Split(folded, "\n")
	if len(lines) < 2 {
		t.Fatalf("expected the line to be folded across multiple lines")
	}
	for _, l := range lines[1:] {
		if !strings.HasPrefix(l, " ") {
			t.Errorf("expected continuation line to start with a space, got %q", l)
		}
	}
}

type fakeHasher struct{}

func (fakeHasher) Hash(scheme string, plaintext []byte) ([]byte, error) {
	return []byte("{" + scheme + "}stub"), nil
}

func TestDefaultHasherShaProducesExpectedPrefix(t *testing.T) {
	h := DefaultHasher{}
	out, err := h.Hash("sha", []byte("secret"))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !strings.HasPrefix(string(out), ExpectedPrefix("sha")) {
		t.Errorf("expected prefix %q, got %q", ExpectedPrefix("sha"), out)
	}
}

func TestDefaultHasherCryptNotSupported(t *testing.T) {
	h := DefaultHasher{}
	_, err := h.Hash("crypt", []byte("secret"))
	if err == nil {
		t.Fatalf("expected an error for the crypt scheme")
	}
}
