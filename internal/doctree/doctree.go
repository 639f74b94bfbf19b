package doctree

// Kind distinguishes sections (containers) from pages (documents).
type Kind int

const (
	KindSection Kind = iota
	KindPage
)

func (k Kind) String() string {
	switch k {
	case KindSection:
		return "section"
	case KindPage:
		return "page"
	default:
		return "unknown"
	}
}

// Tree is the local navigation structure of a documentation site. The root
// is an untitled section that owns every other node.
type Tree struct {
	Root    *Node
	DocsDir string // Absolute directory page paths are relative to
}

// Node is a section or page in the local tree.
type Node struct {
	Kind     Kind
	Title    string  // Resolved display title
	Path     string  // Relative to the docs dir; empty for declared sections
	Declared bool    // Title came from the nav declaration
	Parent   *Node   // Nil only for the root
	Children []*Node // Sections and pages, in declaration order
}

// NewTree returns an empty tree rooted at docsDir.
func NewTree(docsDir string) *Tree {
	return &Tree{Root: &Node{Kind: KindSection}, DocsDir: docsDir}
}

// Add appends child to n and links it back.
func (n *Node) Add(child *Node) *Node {
	child.Parent = n
	n.Children = append(n.Children, child)
	return child
}

// IsRoot reports whether n is the tree root.
func (n *Node) IsRoot() bool {
	return n.Parent == nil
}

// Depth is 0 for top-level nodes, 1 for their children, and so on.
func (n *Node) Depth() int {
	d := -1
	for p := n.Parent; p != nil; p = p.Parent {
		d++
	}
	if d < 0 {
		return 0
	}
	return d
}

// Ancestors returns the titles of the enclosing sections, nearest first.
// The root is never included.
func (n *Node) Ancestors() []string {
	var titles []string
	for p := n.Parent; p != nil && !p.IsRoot(); p = p.Parent {
		titles = append(titles, p.Title)
	}
	return titles
}

// Walk visits every node below the root in pre-order.
func (t *Tree) Walk(fn func(*Node)) {
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			fn(n)
			walk(n.Children)
		}
	}
	walk(t.Root.Children)
}

// Pages returns every page in declaration order.
func (t *Tree) Pages() []*Node {
	var pages []*Node
	t.Walk(func(n *Node) {
		if n.Kind == KindPage {
			pages = append(pages, n)
		}
	})
	return pages
}
