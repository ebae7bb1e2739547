// Package codec implements the value-level encodings shared by both
// on-disk dialects: base64, physical line folding, file URLs and the
// password-hash gateway.
package codec

import (
	"encoding/base64"

	"github.com/georgib0y/ldapvi/internal/ldaperr"
)

// EncodeBase64 encodes v using the standard padded alphabet, as used by
// both LDIF's "attr:: BASE64" and the extended dialect's "attr:: BASE64"
// forms.
func EncodeBase64(v []byte) string {
	return base64.StdEncoding.EncodeToString(v)
}

// DecodeBase64 decodes s, returning a BadEncoding error at pos on
// failure.
func DecodeBase64(s string, pos int64) ([]byte, error) {
	v, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ldaperr.Wrap(ldaperr.BadEncoding, pos, err, "invalid base64 value")
	}
	return v, nil
}
