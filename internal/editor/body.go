package editor

import (
	"errors"
	"strings"
	"sync"
)

// NodeType identifies the kind of a body node.
type NodeType int

const (
	NodeDoc NodeType = iota
	NodeParagraph
	NodeHeading
	NodeBulletList
	NodeOrderedList
	NodeListItem
	NodeBlockquote
	NodeImage
	NodeTable
	NodeTableRow
	NodeTableHeader
	NodeTableCell
	NodeText
	NodeHardBreak
)

// Mark is an inline formatting flag.
type Mark uint8

const (
	MarkBold Mark = 1 << iota
	MarkItalic
	MarkUnderline
)

// Node is one element of the body tree. Paragraphs and headings hold inline
// children (text and hard breaks); every other container holds blocks.
type Node struct {
	Type     NodeType
	Level    int    // headings
	Align    string // paragraphs and headings; "" means left
	Src      string // images
	Alt      string
	Title    string
	Text     string // text
	Marks    Mark   // text
	Href     string // text carrying a link
	Children []*Node
}

func (n *Node) isTextblock() bool {
	return n.Type == NodeParagraph || n.Type == NodeHeading
}

func (n *Node) isList() bool {
	return n.Type == NodeBulletList || n.Type == NodeOrderedList
}

// Selection addresses a rune range inside one text block. Text blocks are
// the paragraphs and headings of the body, numbered in document order.
type Selection struct {
	Block int `json:"block"`
	From  int `json:"from"`
	To    int `json:"to"`
}

var (
	// ErrEmptyURL is returned when a link or image is inserted without a URL.
	ErrEmptyURL = errors.New("editor: url must not be empty")
	// ErrNoBlock is returned when a selection names a block that does not exist.
	ErrNoBlock = errors.New("editor: no such text block")
	// ErrHeadingLevel is returned for heading levels outside 1..3.
	ErrHeadingLevel = errors.New("editor: heading level must be 1, 2 or 3")
	// ErrAlignment is returned for unsupported alignments.
	ErrAlignment = errors.New("editor: alignment must be left, center or right")
)

// Body is the rich-text editor for an article body. It is safe for
// concurrent use. Every mutation except SetContent notifies subscribers.
type Body struct {
	mu  sync.Mutex
	doc *Node

	subMu  sync.Mutex
	subs   map[int]func()
	nextID int
}

// NewBody returns an editor holding an empty document.
func NewBody() *Body {
	return &Body{doc: emptyDoc(), subs: make(map[int]func())}
}

func emptyDoc() *Node {
	return &Node{Type: NodeDoc, Children: []*Node{{Type: NodeParagraph}}}
}

// Subscribe registers fn to be called after each content mutation. The
// returned function removes the subscription.
func (b *Body) Subscribe(fn func()) (unsubscribe func()) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	return func() {
		b.subMu.Lock()
		delete(b.subs, id)
		b.subMu.Unlock()
	}
}

func (b *Body) notify() {
	b.subMu.Lock()
	fns := make([]func(), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.subMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// SetContent replaces the document from markup. It is meant for hydration
// and does not notify subscribers.
func (b *Body) SetContent(markup string) {
	doc := parseMarkup(markup)
	b.mu.Lock()
	b.doc = doc
	b.mu.Unlock()
}

// Replace replaces the document from markup as a user edit.
func (b *Body) Replace(markup string) {
	b.SetContent(markup)
	b.notify()
}

// Content serializes the document to markup.
func (b *Body) Content() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return serialize(b.doc)
}

// TextBlocks returns the number of addressable text blocks.
func (b *Body) TextBlocks() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	walkTextblocks(b.doc, nil, func(*Node, []*Node) bool { n++; return true })
	return n
}

// BlockText returns the plain text of a text block.
func (b *Body) BlockText(block int) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tb, _, ok := locate(b.doc, block)
	if !ok {
		return "", ErrNoBlock
	}
	var sb strings.Builder
	for _, u := range unitsOf(tb) {
		if u.brk {
			sb.WriteByte('\n')
			continue
		}
		sb.WriteRune(u.r)
	}
	return sb.String(), nil
}

// mutate runs fn on the text block named by block under the lock and
// notifies subscribers when fn succeeds.
func (b *Body) mutate(block int, fn func(tb *Node, path []*Node) error) error {
	err := func() error {
		b.mu.Lock()
		defer b.mu.Unlock()
		tb, path, ok := locate(b.doc, block)
		if !ok {
			return ErrNoBlock
		}
		return fn(tb, path)
	}()
	if err != nil {
		return err
	}
	b.notify()
	return nil
}

// ToggleMark flips mark over the selection: if every character already
// carries it the mark is removed, otherwise it is applied to all of them.
func (b *Body) ToggleMark(sel Selection, mark Mark) error {
	return b.mutate(sel.Block, func(tb *Node, _ []*Node) error {
		us := unitsOf(tb)
		from, to := clampRange(sel, len(us))
		all := true
		for _, u := range us[from:to] {
			if !u.brk && u.marks&mark == 0 {
				all = false
				break
			}
		}
		for i := from; i < to; i++ {
			if all {
				us[i].marks &^= mark
			} else {
				us[i].marks |= mark
			}
		}
		setUnits(tb, us)
		return nil
	})
}

// SetLink applies a link to the selection. The URL is not checked for
// reachability.
func (b *Body) SetLink(sel Selection, href string) error {
	href = strings.TrimSpace(href)
	if href == "" {
		return ErrEmptyURL
	}
	return b.setHref(sel, href)
}

// UnsetLink removes any link from the selection.
func (b *Body) UnsetLink(sel Selection) error {
	return b.setHref(sel, "")
}

func (b *Body) setHref(sel Selection, href string) error {
	return b.mutate(sel.Block, func(tb *Node, _ []*Node) error {
		us := unitsOf(tb)
		from, to := clampRange(sel, len(us))
		for i := from; i < to; i++ {
			us[i].href = href
		}
		setUnits(tb, us)
		return nil
	})
}

// InsertText replaces the selection with text. Newlines become hard breaks.
// Inserted characters take the formatting of the character before them.
func (b *Body) InsertText(sel Selection, text string) error {
	return b.mutate(sel.Block, func(tb *Node, _ []*Node) error {
		us := unitsOf(tb)
		from, to := clampRange(sel, len(us))
		var tmpl unit
		switch {
		case from > 0 && !us[from-1].brk:
			tmpl = us[from-1]
		case from < len(us) && !us[from].brk:
			tmpl = us[from]
		}
		ins := make([]unit, 0, len(text))
		for _, r := range text {
			if r == '\n' {
				ins = append(ins, unit{brk: true})
				continue
			}
			ins = append(ins, unit{r: r, marks: tmpl.marks, href: tmpl.href})
		}
		out := make([]unit, 0, len(us)-(to-from)+len(ins))
		out = append(out, us[:from]...)
		out = append(out, ins...)
		out = append(out, us[to:]...)
		setUnits(tb, out)
		return nil
	})
}

// AppendParagraph adds a paragraph holding text at the end of the document.
func (b *Body) AppendParagraph(text string) {
	b.mu.Lock()
	p := &Node{Type: NodeParagraph}
	us := make([]unit, 0, len(text))
	for _, r := range text {
		if r == '\n' {
			us = append(us, unit{brk: true})
			continue
		}
		us = append(us, unit{r: r})
	}
	setUnits(p, us)
	b.doc.Children = append(b.doc.Children, p)
	b.mu.Unlock()
	b.notify()
}

// ToggleHeading turns the block into a heading of level, or back into a
// paragraph when it already is one.
func (b *Body) ToggleHeading(block, level int) error {
	if level < 1 || level > 3 {
		return ErrHeadingLevel
	}
	return b.mutate(block, func(tb *Node, _ []*Node) error {
		if tb.Type == NodeHeading && tb.Level == level {
			tb.Type, tb.Level = NodeParagraph, 0
			return nil
		}
		tb.Type, tb.Level = NodeHeading, level
		return nil
	})
}

// SetParagraph turns the block into a plain paragraph.
func (b *Body) SetParagraph(block int) error {
	return b.mutate(block, func(tb *Node, _ []*Node) error {
		tb.Type, tb.Level = NodeParagraph, 0
		return nil
	})
}

// SetTextAlign aligns the block left, center or right.
func (b *Body) SetTextAlign(block int, align string) error {
	switch align {
	case "left":
		align = ""
	case "center", "right":
	default:
		return ErrAlignment
	}
	return b.mutate(block, func(tb *Node, _ []*Node) error {
		tb.Align = align
		return nil
	})
}

// ToggleBulletList wraps the block in a bullet list, or lifts it out of one.
func (b *Body) ToggleBulletList(block int) error {
	return b.toggleList(block, NodeBulletList)
}

// ToggleOrderedList wraps the block in a numbered list, or lifts it out of one.
func (b *Body) ToggleOrderedList(block int) error {
	return b.toggleList(block, NodeOrderedList)
}

func (b *Body) toggleList(block int, kind NodeType) error {
	return b.mutate(block, func(tb *Node, path []*Node) error {
		parent := path[len(path)-1]
		if parent.Type == NodeListItem && len(path) >= 3 {
			list := path[len(path)-2]
			if list.Type != kind {
				list.Type = kind
				return nil
			}
			liftListItem(path[len(path)-3], list, parent)
			return nil
		}
		wrapped := &Node{Type: kind, Children: []*Node{{Type: NodeListItem, Children: []*Node{tb}}}}
		replaceChild(parent, tb, wrapped)
		return nil
	})
}

// ToggleBlockquote wraps the block in a blockquote, or lifts it out of one.
func (b *Body) ToggleBlockquote(block int) error {
	return b.mutate(block, func(tb *Node, path []*Node) error {
		parent := path[len(path)-1]
		if parent.Type == NodeBlockquote && len(path) >= 2 {
			splitAround(path[len(path)-2], parent, tb)
			return nil
		}
		replaceChild(parent, tb, &Node{Type: NodeBlockquote, Children: []*Node{tb}})
		return nil
	})
}

// InsertImage inserts an image after the block. The URL is not checked for
// reachability.
func (b *Body) InsertImage(block int, src, alt string) error {
	src = strings.TrimSpace(src)
	if src == "" {
		return ErrEmptyURL
	}
	return b.mutate(block, func(tb *Node, path []*Node) error {
		insertAfter(path[len(path)-1], tb, &Node{Type: NodeImage, Src: src, Alt: alt})
		return nil
	})
}

// InsertTable inserts a 3x3 table with a header row after the block.
func (b *Body) InsertTable(block int) error {
	return b.mutate(block, func(tb *Node, path []*Node) error {
		insertAfter(path[len(path)-1], tb, newTable(3, 3))
		return nil
	})
}

func newTable(rows, cols int) *Node {
	t := &Node{Type: NodeTable}
	for r := 0; r < rows; r++ {
		row := &Node{Type: NodeTableRow}
		cell := NodeTableCell
		if r == 0 {
			cell = NodeTableHeader
		}
		for c := 0; c < cols; c++ {
			row.Children = append(row.Children, &Node{Type: cell, Children: []*Node{{Type: NodeParagraph}}})
		}
		t.Children = append(t.Children, row)
	}
	return t
}

// walkTextblocks visits text blocks in document order with the chain of
// their ancestors, stopping when fn returns false.
func walkTextblocks(n *Node, path []*Node, fn func(tb *Node, path []*Node) bool) bool {
	if n.isTextblock() {
		return fn(n, path)
	}
	path = append(path, n)
	for _, c := range n.Children {
		if !walkTextblocks(c, path, fn) {
			return false
		}
	}
	return true
}

func locate(doc *Node, block int) (*Node, []*Node, bool) {
	if block < 0 {
		return nil, nil, false
	}
	var (
		found *Node
		where []*Node
		i     int
	)
	walkTextblocks(doc, nil, func(tb *Node, path []*Node) bool {
		if i == block {
			found = tb
			where = append([]*Node(nil), path...)
			return false
		}
		i++
		return true
	})
	return found, where, found != nil
}

func indexOf(parent, child *Node) int {
	for i, c := range parent.Children {
		if c == child {
			return i
		}
	}
	return -1
}

func replaceChild(parent, old *Node, repl ...*Node) {
	i := indexOf(parent, old)
	if i < 0 {
		return
	}
	out := make([]*Node, 0, len(parent.Children)-1+len(repl))
	out = append(out, parent.Children[:i]...)
	out = append(out, repl...)
	out = append(out, parent.Children[i+1:]...)
	parent.Children = out
}

func insertAfter(parent, at, n *Node) {
	i := indexOf(parent, at)
	if i < 0 {
		parent.Children = append(parent.Children, n)
		return
	}
	out := make([]*Node, 0, len(parent.Children)+1)
	out = append(out, parent.Children[:i+1]...)
	out = append(out, n)
	out = append(out, parent.Children[i+1:]...)
	parent.Children = out
}

// splitAround lifts child out of wrapper: the wrapper is split into the part
// before child and the part after it, and child takes its place in between.
func splitAround(container, wrapper, child *Node) {
	i := indexOf(wrapper, child)
	if i < 0 {
		return
	}
	var repl []*Node
	if i > 0 {
		repl = append(repl, &Node{Type: wrapper.Type, Children: wrapper.Children[:i:i]})
	}
	repl = append(repl, child)
	if i < len(wrapper.Children)-1 {
		repl = append(repl, &Node{Type: wrapper.Type, Children: wrapper.Children[i+1:]})
	}
	replaceChild(container, wrapper, repl...)
}

// liftListItem replaces item with its blocks, splitting list around it.
func liftListItem(container, list, item *Node) {
	i := indexOf(list, item)
	if i < 0 {
		return
	}
	var repl []*Node
	if i > 0 {
		repl = append(repl, &Node{Type: list.Type, Children: list.Children[:i:i]})
	}
	repl = append(repl, item.Children...)
	if i < len(list.Children)-1 {
		repl = append(repl, &Node{Type: list.Type, Children: list.Children[i+1:]})
	}
	replaceChild(container, list, repl...)
}

// unit is one character (or hard break) of a text block with its formatting.
type unit struct {
	r     rune
	brk   bool
	marks Mark
	href  string
}

func unitsOf(tb *Node) []unit {
	var us []unit
	for _, c := range tb.Children {
		switch c.Type {
		case NodeHardBreak:
			us = append(us, unit{brk: true})
		case NodeText:
			for _, r := range c.Text {
				us = append(us, unit{r: r, marks: c.Marks, href: c.Href})
			}
		}
	}
	return us
}

// setUnits rebuilds the inline children of tb, merging neighbouring
// characters with identical formatting into one text node.
func setUnits(tb *Node, us []unit) {
	var (
		out []*Node
		cur *Node
		sb  strings.Builder
	)
	flush := func() {
		if cur != nil {
			cur.Text = sb.String()
			out = append(out, cur)
			cur = nil
			sb.Reset()
		}
	}
	for _, u := range us {
		if u.brk {
			flush()
			out = append(out, &Node{Type: NodeHardBreak})
			continue
		}
		if cur == nil || cur.Marks != u.marks || cur.Href != u.href {
			flush()
			cur = &Node{Type: NodeText, Marks: u.marks, Href: u.href}
		}
		sb.WriteRune(u.r)
	}
	flush()
	tb.Children = out
}

func clampRange(sel Selection, n int) (int, int) {
	from, to := sel.From, sel.To
	if from > to {
		from, to = to, from
	}
	from = clampIndex(from, n)
	to = clampIndex(to, n)
	return from, to
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}
