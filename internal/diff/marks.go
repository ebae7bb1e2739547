// Package diff implements the stream-compare pipeline: a clean/data
// pair of seekable record streams is walked once, entries present in
// both are diffed into a minimal Mod sequence, and a Handler is invoked
// for every add/delete/change/rename.
package diff

// mark and unmark implement the offset-marking scheme: marked = -(o+2).
// The +2 keeps the mark strictly negative even for offset 0, and the
// transform is its own inverse.
func mark(offset int64) int64   { return -(offset + 2) }
func unmark(marked int64) int64 { return -(marked + 2) }

func isMarked(offset int64) bool { return offset < 0 }
