package entry

// ModOp is the kind of change a Mod applies to an attribute.
type ModOp int

const (
	ModAdd ModOp = iota
	ModDelete
	ModReplace
)

func (op ModOp) String() string {
	switch op {
	case ModAdd:
		return "add"
	case ModDelete:
		return "delete"
	case ModReplace:
		return "replace"
	default:
		return "unknown mod op"
	}
}

// Mod is a single LDAP modification: an operation, the attribute it
// targets, and the values it carries. A DELETE with no values means
// delete the whole attribute. The parsers accept ADD and REPLACE blocks
// with no values and pass them on unchanged; the diff engine itself
// never emits an empty REPLACE.
type Mod struct {
	Op     ModOp
	Desc   AttrDesc
	Values [][]byte
}

// NewMod builds a Mod from an op, description and values.
func NewMod(op ModOp, desc AttrDesc, values ...[][]byte) *Mod {
	m := &Mod{Op: op, Desc: desc}
	for _, vs := range values {
		m.Values = append(m.Values, vs...)
	}
	return m
}

// EntryToMods converts an entry into one ADD Mod per attribute, in the
// entry's document order, each carrying all of that attribute's values.
// This is how add and replace-style attrval records become LDAP
// operations.
func EntryToMods(e *Entry) []*Mod {
	mods := make([]*Mod, 0, len(e.Attributes))
	for _, a := range e.Attributes {
		mods = append(mods, &Mod{Op: ModAdd, Desc: a.Desc, Values: a.Values})
	}
	return mods
}

// AttributeToMod wraps a single attribute's values into a Mod carrying
// the given op.
func AttributeToMod(op ModOp, a *Attribute) *Mod {
	return &Mod{Op: op, Desc: a.Desc, Values: a.Values}
}
