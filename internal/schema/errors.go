package schema

import (
	"fmt"
	"log"
	"os"
)

var logger = log.New(os.Stderr, "schema: ", log.Lshortfile)

// ResultCode mirrors the LDAP result codes a schema violation would be
// reported under if this schema were wired into a directory server. The
// diff engine and printers only need the message text, but keeping the
// code around lets callers that do talk to a real server classify the
// failure the same way the wire protocol would.
type ResultCode int

const (
	Success                ResultCode = 0
	UnwillingToPerform     ResultCode = 53
	InvalidAttributeSyntax ResultCode = 21
	NoSuchAttributeType    ResultCode = 17
)

func (rc ResultCode) String() string {
	switch rc {
	case Success:
		return "Success"
	case UnwillingToPerform:
		return "UnwillingToPerform"
	case InvalidAttributeSyntax:
		return "InvalidAttributeSyntax"
	case NoSuchAttributeType:
		return "NoSuchAttributeType"
	default:
		return "unknown result code"
	}
}

type LdapError struct {
	ResultCode        ResultCode
	MatchedName       string
	DiagnosticMessage string
}

func NewLdapError(c ResultCode, matched any, format string, a ...any) LdapError {
	matchedName := ""
	if s, ok := matched.(string); ok {
		matchedName = s
	}
	return LdapError{
		ResultCode:        c,
		MatchedName:       matchedName,
		DiagnosticMessage: fmt.Sprintf(format, a...),
	}
}

func (e LdapError) Error() string {
	return fmt.Sprintf("%s: %s", e.ResultCode, e.DiagnosticMessage)
}

func (e LdapError) Is(target error) bool {
	lerr, ok := target.(LdapError)
	if !ok {
		return false
	}
	return e.ResultCode == lerr.ResultCode
}
