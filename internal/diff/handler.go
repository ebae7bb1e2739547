package diff

import "github.com/georgib0y/ldapvi/internal/entry"

// Handler receives one callback per change the engine discovers. n is
// the numeric key that produced the callback, or -1 for immediate
// records whose key was a change keyword rather than a number. A
// non-nil return aborts compare_streams with HandlerAborted.
type Handler interface {
	HandleAdd(n int64, dn string, mods []*entry.Mod) error
	HandleDelete(n int64, dn string) error
	HandleChange(n int64, oldDN, newDN string, mods []*entry.Mod) error
	HandleRename(n int64, oldDN string, newEntry *entry.Entry) error
	HandleRename0(n int64, oldDN, newDN string, deleteOldRDN bool) error
}
