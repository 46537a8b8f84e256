package lexical

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ToMarkdown converts a Lexical JSON document into markdown.
func ToMarkdown(jsonContent string) (string, error) {
	var root Root
	if err := json.Unmarshal([]byte(jsonContent), &root); err != nil {
		return "", fmt.Errorf("failed to parse lexical json: %w", err)
	}

	var sb strings.Builder
	walkNode(root.Root, &sb, 0)
	return strings.TrimRight(sb.String(), "\n"), nil
}

// Normalize returns the canonical buffer form of persisted content: Lexical
// JSON becomes markdown, anything else passes through unchanged. This is the
// decode path for loads and reconciliations, and the comparison form for the
// save-loop suppression.
func Normalize(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, `{"root":`) {
		return content
	}

	md, err := ToMarkdown(trimmed)
	if err != nil {
		// Not a valid Lexical document after all; keep the original bytes.
		return content
	}
	return md
}

// FromMarkdown builds a minimal Lexical document for locally authored
// markdown so the backend's editor can open it. Only block structure is
// reconstructed (headings, quotes, paragraphs); inline formatting stays as
// literal markdown text.
func FromMarkdown(md string) string {
	root := Node{Type: "root", Version: 1}

	// Blank lines separate blocks; they carry no content of their own.
	for _, line := range strings.Split(md, "\n") {
		if line == "" {
			continue
		}
		root.Children = append(root.Children, blockNode(line))
	}

	out, err := json.Marshal(Root{Root: root})
	if err != nil {
		// Marshal of a plain tree cannot fail; fall back to raw markdown.
		return md
	}
	return string(out)
}

func blockNode(line string) Node {
	level := 0
	for level < len(line) && line[level] == '#' && level < 6 {
		level++
	}

	switch {
	// A heading needs a space after the hash run; "#hashtag" is a paragraph.
	case level > 0 && level < len(line) && line[level] == ' ':
		return Node{
			Type:     "heading",
			Version:  1,
			Tag:      fmt.Sprintf("h%d", level),
			Children: []Node{{Type: "text", Version: 1, Text: strings.TrimSpace(line[level:])}},
		}
	case strings.HasPrefix(line, "> "):
		return Node{
			Type:     "quote",
			Version:  1,
			Children: []Node{{Type: "text", Version: 1, Text: strings.TrimPrefix(line, "> ")}},
		}
	default:
		return Node{
			Type:     "paragraph",
			Version:  1,
			Children: []Node{{Type: "text", Version: 1, Text: line}},
		}
	}
}

func walkNode(node Node, sb *strings.Builder, depth int) {
	switch node.Type {
	case "root":
		for _, child := range node.Children {
			walkNode(child, sb, depth)
		}

	case "paragraph":
		for _, child := range node.Children {
			walkNode(child, sb, depth)
		}
		sb.WriteString("\n\n")

	case "heading":
		level := 1
		if len(node.Tag) == 2 && node.Tag[0] == 'h' {
			level = int(node.Tag[1] - '0')
			if level < 1 || level > 6 {
				level = 1
			}
		}
		sb.WriteString(strings.Repeat("#", level))
		sb.WriteString(" ")
		for _, child := range node.Children {
			walkNode(child, sb, depth)
		}
		sb.WriteString("\n\n")

	case "quote":
		sb.WriteString("> ")
		for _, child := range node.Children {
			walkNode(child, sb, depth)
		}
		sb.WriteString("\n\n")

	case "code":
		sb.WriteString("```")
		sb.WriteString(node.Language)
		sb.WriteString("\n")
		for _, child := range node.Children {
			walkNode(child, sb, depth)
		}
		sb.WriteString("\n```\n\n")

	case "text":
		writeText(node, sb)

	case "linebreak":
		sb.WriteString("\n")

	case "link":
		sb.WriteString("[")
		for _, child := range node.Children {
			walkNode(child, sb, depth)
		}
		sb.WriteString(fmt.Sprintf("](%s)", node.URL))

	case "list":
		writeList(node, sb, depth)

	case "listitem":
		// Loose list item outside a list wrapper; recurse.
		for _, child := range node.Children {
			walkNode(child, sb, depth)
		}

	default:
		for _, child := range node.Children {
			walkNode(child, sb, depth)
		}
	}
}

func writeText(node Node, sb *strings.Builder) {
	bits := node.formatBits()
	isCode := bits&FormatCode != 0
	isBold := bits&FormatBold != 0
	isItalic := bits&FormatItalic != 0
	isStrike := bits&FormatStrikethrough != 0

	if isCode {
		sb.WriteString("`")
	}
	if isBold {
		sb.WriteString("**")
	}
	if isItalic {
		sb.WriteString("_")
	}
	if isStrike {
		sb.WriteString("~~")
	}

	sb.WriteString(node.Text)

	if isStrike {
		sb.WriteString("~~")
	}
	if isItalic {
		sb.WriteString("_")
	}
	if isBold {
		sb.WriteString("**")
	}
	if isCode {
		sb.WriteString("`")
	}
}

func writeList(node Node, sb *strings.Builder, depth int) {
	index := 1
	if node.Start > 0 {
		index = node.Start
	}

	for _, child := range node.Children {
		if child.Type != "listitem" {
			continue
		}

		sb.WriteString(strings.Repeat("  ", depth))

		switch node.ListType {
		case "number":
			sb.WriteString(fmt.Sprintf("%d. ", index))
			index++
		case "check":
			if child.Checked {
				sb.WriteString("- [x] ")
			} else {
				sb.WriteString("- [ ] ")
			}
		default:
			sb.WriteString("- ")
		}

		for _, grandChild := range child.Children {
			if grandChild.Type == "list" {
				sb.WriteString("\n")
				writeList(grandChild, sb, depth+1)
			} else {
				walkNode(grandChild, sb, depth)
			}
		}
		sb.WriteString("\n")
	}

	if depth == 0 {
		sb.WriteString("\n")
	}
}
