package codec

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"fmt"

	"github.com/georgib0y/ldapvi/internal/ldaperr"
)

// PasswordHasher is the injected collaborator behind the ":sha", ":ssha",
// ":md5", ":smd5", ":crypt" and ":cryptmd5" encoding tokens: it turns a
// plaintext password into the prefixed hash bytes an LDAP server expects
// in userPassword. The parsers store the result as returned: they do
// not check it for the "{SCHEME}" prefix that ExpectedPrefix reports,
// and they never inspect the hash itself.
type PasswordHasher interface {
	Hash(scheme string, plaintext []byte) ([]byte, error)
}

// DefaultHasher implements sha, ssha, md5 and smd5 with the standard
// library. crypt and cryptmd5 have no portable standard-library
// implementation and are reported as NotSupported.
type DefaultHasher struct {
	// SaltLen is the number of random salt bytes used by the salted
	// schemes. Zero uses the package default of 8.
	SaltLen int
}

func (h DefaultHasher) saltLen() int {
	if h.SaltLen > 0 {
		return h.SaltLen
	}
	return 8
}

func (h DefaultHasher) Hash(scheme string, plaintext []byte) ([]byte, error) {
	switch scheme {
	case "sha":
		sum := sha1.Sum(plaintext)
		return prefixed("SHA", sum[:]), nil
	case "ssha":
		salt := make([]byte, h.saltLen())
		if _, err := rand.Read(salt); err != nil {
			return nil, err
		}
		digest := sha1.New()
		digest.Write(plaintext)
		digest.Write(salt)
		return prefixed("SSHA", append(digest.Sum(nil), salt...)), nil
	case "md5":
		sum := md5.Sum(plaintext)
		return prefixed("MD5", sum[:]), nil
	case "smd5":
		salt := make([]byte, h.saltLen())
		if _, err := rand.Read(salt); err != nil {
			return nil, err
		}
		digest := md5.New()
		digest.Write(plaintext)
		digest.Write(salt)
		return prefixed("SMD5", append(digest.Sum(nil), salt...)), nil
	case "crypt", "cryptmd5":
		return nil, ldaperr.New(ldaperr.NotSupported, -1, "password scheme %q is not supported", scheme)
	default:
		return nil, ldaperr.New(ldaperr.BadEncoding, -1, "unknown password hash scheme %q", scheme)
	}
}

func prefixed(scheme string, digest []byte) []byte {
	return []byte(fmt.Sprintf("{%s}%s", scheme, base64.StdEncoding.EncodeToString(digest)))
}

// ExpectedPrefix returns the "{SCHEME}" prefix a caller checks a hashed
// value against without inspecting the hash itself.
func ExpectedPrefix(scheme string) string {
	switch scheme {
	case "sha":
		return "{SHA}"
	case "ssha":
		return "{SSHA}"
	case "md5":
		return "{MD5}"
	case "smd5":
		return "{SMD5}"
	case "crypt", "cryptmd5":
		return "{CRYPT}"
	default:
		return ""
	}
}
