package doctree

import "strings"

// Entry is one line of the navigation index.
type Entry struct {
	Title    string
	Depth    int
	Kind     Kind
	Declared bool
}

// Index is a flat, ordered view of the tree used for report phrasing. It is
// built once per pass and never mutated.
type Index struct {
	entries []Entry
	byTitle map[string]int
}

// NewIndex flattens tree in pre-order.
func NewIndex(tree *Tree) *Index {
	idx := &Index{byTitle: make(map[string]int)}
	tree.Walk(func(n *Node) {
		if _, dup := idx.byTitle[n.Title]; !dup {
			idx.byTitle[n.Title] = len(idx.entries)
		}
		idx.entries = append(idx.entries, Entry{
			Title:    n.Title,
			Depth:    n.Depth(),
			Kind:     n.Kind,
			Declared: n.Declared,
		})
	})
	return idx
}

// Entries returns a copy of the index entries.
func (idx *Index) Entries() []Entry {
	out := make([]Entry, len(idx.entries))
	copy(out, idx.entries)
	return out
}

// Lookup returns the first entry with the given title.
func (idx *Index) Lookup(title string) (Entry, bool) {
	i, ok := idx.byTitle[title]
	if !ok {
		return Entry{}, false
	}
	return idx.entries[i], true
}

// Label renders title indented by its nav depth. Titles outside the local
// tree (the main parent, for instance) are returned unindented.
func (idx *Index) Label(title string) string {
	e, ok := idx.Lookup(title)
	if !ok {
		return title
	}
	return strings.Repeat("  ", e.Depth) + e.Title
}

// Len is the number of entries.
func (idx *Index) Len() int {
	return len(idx.entries)
}
