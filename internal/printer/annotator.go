package printer

import (
	"strings"

	"github.com/georgib0y/ldapvi/internal/entry"
	"github.com/georgib0y/ldapvi/internal/schema"
)

// binaryOIDs lists the attribute-syntax OIDs whose values should never
// be printed literally, regardless of how they happen to look: JPEG,
// octet string, certificate, certificate list, certificate pair and
// supported algorithm.
var binaryOIDs = []schema.OID{
	"1.3.6.1.4.1.1466.115.121.1.28", // JPEG
	"1.3.6.1.4.1.1466.115.121.1.40", // Octet String
	"1.3.6.1.4.1.1466.115.121.1.8",  // Certificate
	"1.3.6.1.4.1.1466.115.121.1.9",  // Certificate List
	"1.3.6.1.4.1.1466.115.121.1.10", // Certificate Pair
	"1.3.6.1.4.1.1466.115.121.1.49", // Supported Algorithm
}

// SchemaBackedAnnotator answers IsBinary by resolving an attribute's
// declared syntax against a small allowlist of binary syntax OIDs, and
// answers AnnotateEntry by resolving an entry's structural objectClass
// (the last value of its objectClass attribute) against the MUST/MAY
// attributes that class permits.
type SchemaBackedAnnotator struct {
	sch    *schema.Schema
	attrs  []*schema.Attribute
	binary []schema.Syntax
}

// NewSchemaBackedAnnotator resolves the binary syntax allowlist once up
// front through schema.GetSyntax, the schema package's built-in syntax
// table, not through sch. OIDs missing from that table are silently
// skipped rather than erroring, since a printer has no better fallback
// than "treat it as safe"; the table holds only JPEG and Octet String of
// the six, so the certificate, certificate list, certificate pair and
// supported algorithm syntaxes are never reported as binary.
func NewSchemaBackedAnnotator(sch *schema.Schema) *SchemaBackedAnnotator {
	a := &SchemaBackedAnnotator{sch: sch}
	for _, attr := range sch.Attributes() {
		a.attrs = append(a.attrs, attr)
	}
	for _, oid := range binaryOIDs {
		if syn, err := schema.GetSyntax(oid); err == nil {
			a.binary = append(a.binary, syn)
		}
	}
	return a
}

func (a *SchemaBackedAnnotator) findAttribute(name string) *schema.Attribute {
	for _, candidate := range a.attrs {
		if candidate.HasName(name) || strings.EqualFold(candidate.Name(), name) {
			return candidate
		}
	}
	return nil
}

func (a *SchemaBackedAnnotator) IsBinary(desc entry.AttrDesc) bool {
	attr := a.findAttribute(baseAttrName(string(desc)))
	if attr == nil {
		return false
	}
	syn, _, ok := attr.Syntax()
	if !ok {
		return false
	}
	for _, b := range a.binary {
		if syn.Eq(b) {
			return true
		}
	}
	return false
}

// AnnotateEntry resolves e's structural class (the last-listed
// objectClass value, matching how directory servers report the most
// specific class) and reports which of e's attributes that class
// disallows, and which of its MUST/MAY attributes go unmentioned. An
// entry with no resolvable objectClass yields a zero EntryAnnotation.
func (a *SchemaBackedAnnotator) AnnotateEntry(e *entry.Entry) EntryAnnotation {
	oc, ok := e.FindAttribute("objectClass")
	if !ok || len(oc.Values) == 0 {
		return EntryAnnotation{}
	}
	structural := string(oc.Values[len(oc.Values)-1])
	class, ok := a.sch.FindObjectClass(structural)
	if !ok {
		return EntryAnnotation{}
	}

	must := class.AllMust()
	may := class.AllMay()
	present := map[schema.OID]bool{}

	var disallowed []entry.AttrDesc
	for _, attr := range e.Attributes {
		name := baseAttrName(string(attr.Desc))
		if name == "objectClass" {
			continue
		}
		schAttr := a.findAttribute(name)
		if schAttr == nil {
			disallowed = append(disallowed, attr.Desc)
			continue
		}
		if _, ok := must[schAttr.Oid()]; ok {
			present[schAttr.Oid()] = true
			continue
		}
		if _, ok := may[schAttr.Oid()]; ok {
			present[schAttr.Oid()] = true
			continue
		}
		disallowed = append(disallowed, attr.Desc)
	}

	var missingRequired []string
	for oid, attr := range must {
		if !present[oid] {
			missingRequired = append(missingRequired, attr.Name())
		}
	}
	var optional []string
	for oid, attr := range may {
		if !present[oid] {
			optional = append(optional, attr.Name())
		}
	}

	return EntryAnnotation{
		StructuralClass: structural,
		Disallowed:      disallowed,
		MissingRequired: missingRequired,
		Optional:        optional,
	}
}

// baseAttrName strips any ";options" suffix from an attribute
// description before schema lookup.
func baseAttrName(desc string) string {
	if i := strings.IndexByte(desc, ';'); i >= 0 {
		return desc[:i]
	}
	return desc
}
