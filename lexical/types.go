// Package lexical converts between the editor's persisted Lexical JSON tree
// and the canonical markdown string deskflow uses as its local buffer form.
// The conversion is intentionally forgiving: content that is not a Lexical
// document passes through untouched, so plain markdown persisted by older
// desks keeps working.
package lexical

// Root is the top-level wrapper of a persisted Lexical document.
type Root struct {
	Root Node `json:"root"`
}

// Node is one node of the Lexical tree, covering the subset the desk editor
// produces. Format can be an int bitmask (text nodes) or a string alignment
// (block nodes), hence the interface type.
type Node struct {
	Type     string `json:"type"`
	Version  int    `json:"version,omitempty"`
	Children []Node `json:"children,omitempty"`

	// Text node fields.
	Text   string      `json:"text,omitempty"`
	Format interface{} `json:"format,omitempty"`

	// Heading tag (h1..h6).
	Tag string `json:"tag,omitempty"`

	// Link target.
	URL string `json:"url,omitempty"`

	// List fields.
	ListType string `json:"listType,omitempty"`
	Start    int    `json:"start,omitempty"`
	Checked  bool   `json:"checked,omitempty"`

	// Code block language.
	Language string `json:"language,omitempty"`
}

// Text format bitmask values used by Lexical text nodes.
const (
	FormatBold          = 1
	FormatItalic        = 2
	FormatStrikethrough = 4
	FormatUnderline     = 8
	FormatCode          = 16
)

func (n Node) formatBits() int {
	switch f := n.Format.(type) {
	case float64:
		return int(f)
	case int:
		return f
	}
	return 0
}
