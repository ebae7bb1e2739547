package codec

import (
	"net/url"
	"os"

	"github.com/georgib0y/ldapvi/internal/ldaperr"
)

// ReadFileURL inlines the contents of a "file://PATH" value. Any other
// URL scheme is a BadEncoding error: only local file URLs are resolved.
func ReadFileURL(raw string, pos int64) ([]byte, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, ldaperr.Wrap(ldaperr.BadEncoding, pos, err, "invalid file url %q", raw)
	}
	if u.Scheme != "file" {
		return nil, ldaperr.New(ldaperr.BadEncoding, pos, "unsupported url scheme %q", u.Scheme)
	}
	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ldaperr.Wrap(ldaperr.BadEncoding, pos, err, "reading file url %q", raw)
	}
	return data, nil
}
