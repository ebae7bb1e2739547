// Package diffhandler implements the default diff.Handler: instead of
// dialing an LDAP connection itself, it translates each callback into
// the corresponding github.com/go-ldap/ldap/v3 request value and
// appends it to an ordered change list, ready for a caller to hand to
// a real *ldap.Conn.
package diffhandler

import (
	"github.com/go-ldap/ldap/v3"

	"github.com/georgib0y/ldapvi/internal/entry"
)

// Change pairs the numeric key (or -1 for an immediate record) that
// produced a request with the request itself, preserving the order the
// diff engine discovered them in.
type Change struct {
	Key     int64
	Request any
}

// RequestList accumulates the minimal sequence of LDAP operations the
// diff engine computes, implementing diff.Handler.
type RequestList struct {
	Changes []Change
}

func NewRequestList() *RequestList {
	return &RequestList{}
}

func modValuesToStrings(values [][]byte) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func (r *RequestList) HandleAdd(n int64, dn string, mods []*entry.Mod) error {
	req := ldap.NewAddRequest(dn, nil)
	for _, m := range mods {
		req.Attribute(string(m.Desc), modValuesToStrings(m.Values))
	}
	r.Changes = append(r.Changes, Change{Key: n, Request: req})
	return nil
}

func (r *RequestList) HandleDelete(n int64, dn string) error {
	req := ldap.NewDelRequest(dn, nil)
	r.Changes = append(r.Changes, Change{Key: n, Request: req})
	return nil
}

func (r *RequestList) HandleChange(n int64, oldDN, newDN string, mods []*entry.Mod) error {
	req := ldap.NewModifyRequest(oldDN, nil)
	for _, m := range mods {
		values := modValuesToStrings(m.Values)
		switch m.Op {
		case entry.ModAdd:
			req.Add(string(m.Desc), values)
		case entry.ModDelete:
			req.Delete(string(m.Desc), values)
		case entry.ModReplace:
			req.Replace(string(m.Desc), values)
		}
	}
	if len(req.Changes) == 0 {
		return nil
	}
	r.Changes = append(r.Changes, Change{Key: n, Request: req})
	return nil
}

func (r *RequestList) HandleRename(n int64, oldDN string, newEntry *entry.Entry) error {
	newRDN, newParent := entry.SplitDN(newEntry.DN)
	_, oldParent := entry.SplitDN(oldDN)
	req := renameRequest(oldDN, newRDN, oldParent, newParent, DeleteOldRDN(oldDN, newEntry))
	r.Changes = append(r.Changes, Change{Key: n, Request: req})
	return nil
}

// DeleteOldRDN reports whether the old RDN value should be removed from
// the entry: false if newEntry still carries it under the same
// attribute, true otherwise. HandleRename is the numeric-key slow path,
// where the callback signature carries no deleteoldrdn flag of its own
// and this must be re-derived from the edited entry.
func DeleteOldRDN(oldDN string, newEntry *entry.Entry) bool {
	rdn, _ := entry.SplitDN(oldDN)
	attrName, value, ok := entry.SplitRDN(rdn)
	if !ok {
		return true
	}
	a, ok := newEntry.FindAttribute(entry.AttrDesc(attrName))
	if !ok {
		return true
	}
	return !a.HasValue([]byte(value))
}

func (r *RequestList) HandleRename0(n int64, oldDN, newDN string, deleteOldRDN bool) error {
	newRDN, newParent := entry.SplitDN(newDN)
	_, oldParent := entry.SplitDN(oldDN)
	req := renameRequest(oldDN, newRDN, oldParent, newParent, deleteOldRDN)
	r.Changes = append(r.Changes, Change{Key: n, Request: req})
	return nil
}

func renameRequest(oldDN, newRDN, oldParent, newParent string, deleteOldRDN bool) *ldap.ModifyDNRequest {
	newSuperior := ""
	if newParent != oldParent {
		newSuperior = newParent
	}
	return ldap.NewModifyDNRequest(oldDN, newRDN, deleteOldRDN, newSuperior)
}
