package andromeda

import (
	"strings"
)

// Renderer walks a decoded Document in document order and produces
// indented XML text, resolving string-pool and value-type indices as it
// goes. The zero value renders with the enrichment described in the
// design notes: attribute values dispatch on ValueType rather than on
// whether the raw data happens to also be a valid string index.
type Renderer struct {
	// Faithful, when true, reproduces the historical behavior: an
	// attribute's printed value is pool[data] if data is a valid string
	// index, and otherwise the attribute is printed with an empty value —
	// the ValueType byte is never consulted. This exists for callers that
	// need byte-for-byte parity with that older behavior.
	Faithful bool

	// Indent is the string written once per depth level. Defaults to two
	// spaces if left empty.
	Indent string
}

// Render produces the XML text for doc. IndexOutOfRange is returned if
// any node's name_idx is out of range; out-of-range attribute values are
// simply omitted, matching §7's distinction between name and value
// indices.
func (rn Renderer) Render(doc *Document) (string, error) {
	indent := rn.Indent
	if indent == "" {
		indent = "  "
	}
	var b strings.Builder
	if err := rn.renderChildren(&b, doc.Strings, doc.Root.Children, 0, indent); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (rn Renderer) renderChildren(b *strings.Builder, pool *StringPool, children []Node, depth int, indent string) error {
	for _, c := range children {
		if err := rn.renderNode(b, pool, c, depth, indent); err != nil {
			return err
		}
	}
	return nil
}

func (rn Renderer) renderNode(b *strings.Builder, pool *StringPool, n Node, depth int, indent string) error {
	switch v := n.(type) {
	case *Namespace:
		// Namespace nodes contribute their children inline without
		// emitting a pseudo-tag, per §4.3.
		return rn.renderChildren(b, pool, v.Children, depth, indent)

	case *Element:
		name, ok := pool.Get(v.NameIdx)
		if !ok {
			return newErr(IndexOutOfRange, 0, "element name_idx %d out of range", v.NameIdx)
		}
		b.WriteString(strings.Repeat(indent, depth))
		b.WriteByte('<')
		b.WriteString(name)
		for _, a := range v.Attributes {
			b.WriteByte(' ')
			if err := rn.renderAttribute(b, pool, a); err != nil {
				return err
			}
		}
		b.WriteString(" >\n")

		if err := rn.renderChildren(b, pool, v.Children, depth+1, indent); err != nil {
			return err
		}

		b.WriteString(strings.Repeat(indent, depth))
		b.WriteString("</")
		b.WriteString(name)
		b.WriteString(">\n")
		return nil

	case *Text:
		b.WriteString(strings.Repeat(indent, depth+1))
		if s, ok := pool.Get(v.DataIdx); ok {
			b.WriteString(s)
		}
		b.WriteByte('\n')
		return nil

	default:
		return newErr(StructuralMismatch, 0, "unrecognized node kind %T", n)
	}
}

func (rn Renderer) renderAttribute(b *strings.Builder, pool *StringPool, a Attribute) error {
	// An attribute's ns field indexes the namespace's URI string; the
	// prefix to print is the pool entry one slot before it, per §4.3
	// ("ns_prefix = pool[ns_idx - 1] iff ns_idx is a valid in-range
	// index"). ns_idx itself, not ns_idx-1, is what must be in range.
	if a.NSIdx != SentinelIndex && a.NSIdx >= 1 && a.NSIdx < uint32(pool.Len()) {
		if prefix, ok := pool.Get(a.NSIdx - 1); ok {
			b.WriteString(prefix)
			b.WriteByte(':')
		}
	}
	name, ok := pool.Get(a.NameIdx)
	if !ok {
		return newErr(IndexOutOfRange, 0, "attribute name_idx %d out of range", a.NameIdx)
	}
	b.WriteString(name)
	b.WriteString(`="`)
	b.WriteString(rn.attributeValueText(pool, a))
	b.WriteByte('"')
	return nil
}

// attributeValueText implements the §9/§4.3 design-note choice: the
// faithful mode asks only "is data a valid string index?"; the
// default mode dispatches on the attribute's ValueType and falls back to
// the string pool for TypeString values whose raw index actually resolves.
func (rn Renderer) attributeValueText(pool *StringPool, a Attribute) string {
	if rn.Faithful {
		if s, ok := pool.Get(a.Value.Raw); ok {
			return s
		}
		return ""
	}

	if a.Value.Type == TypeString {
		if s, ok := pool.Get(a.Value.Raw); ok {
			return s
		}
		if s, ok := pool.Get(a.RawValueIdx); ok {
			return s
		}
		return ""
	}
	return a.Value.Render()
}
