package editor

import (
	"html"
	"strconv"
	"strings"
	"unicode"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// parseMarkup builds a body tree from markup. Unknown wrappers are unwrapped,
// script-like elements are dropped and loose inline content is wrapped in
// paragraphs. It never fails; the worst case is an empty document.
func parseMarkup(markup string) *Node {
	ctx := &xhtml.Node{Type: xhtml.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := xhtml.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return emptyDoc()
	}
	blocks := parseBlocks(nodes)
	if len(blocks) == 0 {
		return emptyDoc()
	}
	return &Node{Type: NodeDoc, Children: blocks}
}

var droppedAtoms = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Head: true, atom.Title: true,
	atom.Noscript: true, atom.Template: true, atom.Iframe: true, atom.Object: true,
	atom.Embed: true, atom.Svg: true, atom.Math: true, atom.Textarea: true,
	atom.Select: true, atom.Button: true,
}

var inlineAtoms = map[atom.Atom]bool{
	atom.A: true, atom.B: true, atom.Strong: true, atom.I: true, atom.Em: true,
	atom.U: true, atom.Br: true, atom.Span: true, atom.Code: true, atom.S: true,
	atom.Strike: true, atom.Del: true, atom.Ins: true, atom.Sub: true, atom.Sup: true,
	atom.Small: true, atom.Mark: true, atom.Font: true, atom.Abbr: true, atom.Cite: true,
	atom.Q: true, atom.Label: true, atom.Time: true, atom.Kbd: true, atom.Var: true,
	atom.Samp: true, atom.Big: true, atom.Tt: true,
}

type blockParser struct {
	out     []*Node
	pending []unit
	tmpl    Node
}

func parseBlocks(nodes []*xhtml.Node) []*Node {
	bp := &blockParser{tmpl: Node{Type: NodeParagraph}}
	for _, n := range nodes {
		bp.block(n)
	}
	bp.flush()
	return bp.out
}

func childNodes(n *xhtml.Node) []*xhtml.Node {
	var out []*xhtml.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// ensureBlocks guarantees a container holds at least one paragraph.
func ensureBlocks(blocks []*Node) []*Node {
	if len(blocks) == 0 {
		return []*Node{{Type: NodeParagraph}}
	}
	return blocks
}

// flush emits the pending inline content as a text block.
func (bp *blockParser) flush() {
	for len(bp.pending) > 0 && isSpaceUnit(bp.pending[len(bp.pending)-1]) {
		bp.pending = bp.pending[:len(bp.pending)-1]
	}
	if len(bp.pending) == 0 {
		return
	}
	tb := bp.tmpl
	tb.Children = nil
	setUnits(&tb, bp.pending)
	bp.out = append(bp.out, &tb)
	bp.pending = nil
}

func isSpaceUnit(u unit) bool {
	return !u.brk && u.r == ' '
}

func (bp *blockParser) block(n *xhtml.Node) {
	switch n.Type {
	case xhtml.TextNode:
		bp.text(n.Data, 0, "")
		return
	case xhtml.ElementNode:
	default:
		return
	}
	if droppedAtoms[n.DataAtom] {
		return
	}
	if inlineAtoms[n.DataAtom] {
		bp.inline(n, 0, "")
		return
	}
	switch n.DataAtom {
	case atom.P, atom.H1, atom.H2, atom.H3:
		bp.flush()
		saved := bp.tmpl
		bp.tmpl = Node{Type: NodeParagraph, Align: alignOf(n)}
		if lvl := headingLevel(n.DataAtom); lvl > 0 {
			bp.tmpl.Type, bp.tmpl.Level = NodeHeading, lvl
		}
		before := len(bp.out)
		for _, c := range childNodes(n) {
			bp.block(c)
		}
		if len(bp.pending) == 0 && len(bp.out) == before {
			tb := bp.tmpl
			bp.out = append(bp.out, &tb)
		}
		bp.flush()
		bp.tmpl = saved
	case atom.Ul, atom.Ol:
		bp.flush()
		bp.out = append(bp.out, parseList(n))
	case atom.Blockquote:
		bp.flush()
		bp.out = append(bp.out, &Node{Type: NodeBlockquote, Children: ensureBlocks(parseBlocks(childNodes(n)))})
	case atom.Table:
		bp.flush()
		if t := parseTable(n); t != nil {
			bp.out = append(bp.out, t)
		}
	case atom.Img:
		bp.flush()
		src := attr(n, "src")
		if src == "" {
			return
		}
		bp.out = append(bp.out, &Node{Type: NodeImage, Src: src, Alt: attr(n, "alt"), Title: attr(n, "title")})
	default:
		// Unknown containers are transparent.
		for _, c := range childNodes(n) {
			bp.block(c)
		}
	}
}

func (bp *blockParser) inline(n *xhtml.Node, marks Mark, href string) {
	switch n.Type {
	case xhtml.TextNode:
		bp.text(n.Data, marks, href)
		return
	case xhtml.ElementNode:
	default:
		return
	}
	if droppedAtoms[n.DataAtom] {
		return
	}
	if !inlineAtoms[n.DataAtom] {
		bp.block(n)
		return
	}
	switch n.DataAtom {
	case atom.Br:
		bp.pending = append(bp.pending, unit{brk: true})
		return
	case atom.B, atom.Strong:
		marks |= MarkBold
	case atom.I, atom.Em:
		marks |= MarkItalic
	case atom.U:
		marks |= MarkUnderline
	case atom.A:
		if h := strings.TrimSpace(attr(n, "href")); h != "" {
			href = h
		}
	}
	for _, c := range childNodes(n) {
		bp.inline(c, marks, href)
	}
}

// text appends s with HTML whitespace collapsing.
func (bp *blockParser) text(s string, marks Mark, href string) {
	for _, r := range s {
		if unicode.IsSpace(r) {
			if len(bp.pending) == 0 {
				continue
			}
			last := bp.pending[len(bp.pending)-1]
			if last.brk || isSpaceUnit(last) {
				continue
			}
			r = ' '
		}
		bp.pending = append(bp.pending, unit{r: r, marks: marks, href: href})
	}
}

func parseList(n *xhtml.Node) *Node {
	list := &Node{Type: NodeBulletList}
	if n.DataAtom == atom.Ol {
		list.Type = NodeOrderedList
	}
	for _, c := range childNodes(n) {
		switch {
		case c.Type == xhtml.ElementNode && c.DataAtom == atom.Li:
			list.Children = append(list.Children, &Node{Type: NodeListItem, Children: ensureBlocks(parseBlocks(childNodes(c)))})
		case c.Type == xhtml.TextNode && strings.TrimSpace(c.Data) == "":
		default:
			if blocks := parseBlocks([]*xhtml.Node{c}); len(blocks) > 0 {
				list.Children = append(list.Children, &Node{Type: NodeListItem, Children: blocks})
			}
		}
	}
	if len(list.Children) == 0 {
		list.Children = []*Node{{Type: NodeListItem, Children: ensureBlocks(nil)}}
	}
	return list
}

func parseTable(n *xhtml.Node) *Node {
	t := &Node{Type: NodeTable}
	var rows func(*xhtml.Node)
	rows = func(p *xhtml.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != xhtml.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Thead, atom.Tbody, atom.Tfoot:
				rows(c)
			case atom.Tr:
				row := &Node{Type: NodeTableRow}
				for cell := c.FirstChild; cell != nil; cell = cell.NextSibling {
					if cell.Type != xhtml.ElementNode {
						continue
					}
					kind := NodeTableCell
					switch cell.DataAtom {
					case atom.Th:
						kind = NodeTableHeader
					case atom.Td:
					default:
						continue
					}
					row.Children = append(row.Children, &Node{Type: kind, Children: ensureBlocks(parseBlocks(childNodes(cell)))})
				}
				if len(row.Children) > 0 {
					t.Children = append(t.Children, row)
				}
			}
		}
	}
	rows(n)
	if len(t.Children) == 0 {
		return nil
	}
	return t
}

func attr(n *xhtml.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func headingLevel(a atom.Atom) int {
	switch a {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	}
	return 0
}

func alignOf(n *xhtml.Node) string {
	for _, decl := range strings.Split(attr(n, "style"), ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok || strings.TrimSpace(strings.ToLower(k)) != "text-align" {
			continue
		}
		switch v = strings.TrimSpace(strings.ToLower(v)); v {
		case "center", "right":
			return v
		}
	}
	return ""
}

// serialize renders the tree as markup.
func serialize(doc *Node) string {
	var sb strings.Builder
	for _, c := range doc.Children {
		writeNode(&sb, c)
	}
	return sb.String()
}

func writeNode(sb *strings.Builder, n *Node) {
	switch n.Type {
	case NodeParagraph:
		writeTextblock(sb, "p", n)
	case NodeHeading:
		writeTextblock(sb, "h"+strconv.Itoa(n.Level), n)
	case NodeBulletList:
		writeContainer(sb, "ul", n)
	case NodeOrderedList:
		writeContainer(sb, "ol", n)
	case NodeListItem:
		writeContainer(sb, "li", n)
	case NodeBlockquote:
		writeContainer(sb, "blockquote", n)
	case NodeTable:
		sb.WriteString("<table><tbody>")
		for _, c := range n.Children {
			writeNode(sb, c)
		}
		sb.WriteString("</tbody></table>")
	case NodeTableRow:
		writeContainer(sb, "tr", n)
	case NodeTableHeader:
		writeContainer(sb, "th", n)
	case NodeTableCell:
		writeContainer(sb, "td", n)
	case NodeImage:
		sb.WriteString(`<img src="`)
		sb.WriteString(html.EscapeString(n.Src))
		sb.WriteByte('"')
		if n.Alt != "" {
			sb.WriteString(` alt="`)
			sb.WriteString(html.EscapeString(n.Alt))
			sb.WriteByte('"')
		}
		if n.Title != "" {
			sb.WriteString(` title="`)
			sb.WriteString(html.EscapeString(n.Title))
			sb.WriteByte('"')
		}
		sb.WriteByte('>')
	}
}

func writeContainer(sb *strings.Builder, tag string, n *Node) {
	sb.WriteString("<" + tag + ">")
	for _, c := range n.Children {
		writeNode(sb, c)
	}
	sb.WriteString("</" + tag + ">")
}

func writeTextblock(sb *strings.Builder, tag string, n *Node) {
	sb.WriteString("<" + tag)
	if n.Align != "" {
		sb.WriteString(` style="text-align: ` + n.Align + `"`)
	}
	sb.WriteByte('>')
	for _, c := range n.Children {
		switch c.Type {
		case NodeHardBreak:
			sb.WriteString("<br>")
		case NodeText:
			writeText(sb, c)
		}
	}
	sb.WriteString("</" + tag + ">")
}

func writeText(sb *strings.Builder, t *Node) {
	if t.Href != "" {
		sb.WriteString(`<a target="_blank" rel="noopener noreferrer" href="`)
		sb.WriteString(html.EscapeString(t.Href))
		sb.WriteString(`">`)
	}
	if t.Marks&MarkBold != 0 {
		sb.WriteString("<strong>")
	}
	if t.Marks&MarkItalic != 0 {
		sb.WriteString("<em>")
	}
	if t.Marks&MarkUnderline != 0 {
		sb.WriteString("<u>")
	}
	sb.WriteString(html.EscapeString(t.Text))
	if t.Marks&MarkUnderline != 0 {
		sb.WriteString("</u>")
	}
	if t.Marks&MarkItalic != 0 {
		sb.WriteString("</em>")
	}
	if t.Marks&MarkBold != 0 {
		sb.WriteString("</strong>")
	}
	if t.Href != "" {
		sb.WriteString("</a>")
	}
}
