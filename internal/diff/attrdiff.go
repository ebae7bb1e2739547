package diff

import (
	"bytes"
	"strings"

	"github.com/georgib0y/ldapvi/internal/entry"
	"github.com/georgib0y/ldapvi/internal/ldaperr"
)

// diffAttributes performs the slow-path attribute comparison: every
// description present in C or D is considered exactly once,
// case-insensitively; skipRDN names the description (if any) matching
// C's RDN, which rename validation handles separately.
func diffAttributes(c, d *entry.Entry, skipRDN entry.AttrDesc, hasSkip bool) []*entry.Mod {
	seen := make(map[string]bool)
	var mods []*entry.Mod

	consider := func(desc entry.AttrDesc) {
		key := strings.ToLower(string(desc))
		if seen[key] {
			return
		}
		seen[key] = true
		if hasSkip && desc.Equal(skipRDN) {
			return
		}
		ca, cok := c.FindAttribute(desc)
		da, dok := d.FindAttribute(desc)
		switch {
		case dok && !cok:
			mods = append(mods, entry.NewMod(entry.ModAdd, da.Desc, da.Values))
		case cok && !dok:
			mods = append(mods, entry.NewMod(entry.ModDelete, ca.Desc, nil))
		case cok && dok:
			mods = append(mods, diffAttributePair(ca, da)...)
		}
	}

	for _, a := range c.Attributes {
		consider(a.Desc)
	}
	for _, a := range d.Attributes {
		consider(a.Desc)
	}
	return mods
}

// diffAttributePair computes the added/removed multisets for one
// attribute present on both sides and decides between an ADD/DELETE
// pair and a single REPLACE per the fixed cutoff rule: REPLACE iff
// len(added)+len(removed) >= len(values(D))+1.
func diffAttributePair(c, d *entry.Attribute) []*entry.Mod {
	added := multisetDiff(d.Values, c.Values)
	removed := multisetDiff(c.Values, d.Values)
	if len(added) == 0 && len(removed) == 0 {
		return nil
	}
	if len(added)+len(removed) >= len(d.Values)+1 {
		return []*entry.Mod{entry.NewMod(entry.ModReplace, d.Desc, d.Values)}
	}
	var mods []*entry.Mod
	if len(added) > 0 {
		mods = append(mods, entry.NewMod(entry.ModAdd, d.Desc, added))
	}
	if len(removed) > 0 {
		mods = append(mods, entry.NewMod(entry.ModDelete, c.Desc, removed))
	}
	return mods
}

// multisetDiff returns the elements of a not matched, by exact byte
// equality, against an element of b (each element of b consumed at
// most once), i.e. the multiset difference a \ b.
func multisetDiff(a, b [][]byte) [][]byte {
	used := make([]bool, len(b))
	var diff [][]byte
	for _, av := range a {
		found := false
		for i, bv := range b {
			if used[i] {
				continue
			}
			if bytes.Equal(av, bv) {
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			diff = append(diff, av)
		}
	}
	return diff
}

// validateRename checks that a rename is well-formed: C and D must
// both carry a non-empty DN, C's own RDN value must appear among the
// values of the RDN's attribute on C, and deleteoldrdn is 0 iff D still
// carries that same value under the same attribute.
func validateRename(c, d *entry.Entry) (deleteOldRDN bool, rdnDesc entry.AttrDesc, err error) {
	if c.DN == "" || d.DN == "" {
		return false, "", ldaperr.New(ldaperr.BadRename, -1, "rename requires a non-empty dn on both sides")
	}
	rdn, _ := entry.SplitDN(c.DN)
	attrName, value, ok := entry.SplitRDN(rdn)
	if !ok {
		return false, "", ldaperr.New(ldaperr.BadRename, -1, "malformed rdn %q", rdn)
	}
	desc := entry.AttrDesc(attrName)
	ca, ok := c.FindAttribute(desc)
	if !ok || !ca.HasValue([]byte(value)) {
		return false, "", ldaperr.New(ldaperr.BadRename, -1, "entry does not contain its own rdn value %q", rdn)
	}
	da, ok := d.FindAttribute(desc)
	if ok && da.HasValue([]byte(value)) {
		return false, desc, nil
	}
	return true, desc, nil
}
