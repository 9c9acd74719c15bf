package docsis

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// findAll returns every element below root matching a, in document order.
func findAll(root *html.Node, a atom.Atom) (nodes []*html.Node) {
	if root == nil || root.FirstChild == nil {
		return nil
	}

	n := root.FirstChild
	for n != nil {
		if n.Type == html.ElementNode && n.DataAtom == a {
			nodes = append(nodes, n)
		}

		if n.FirstChild != nil {
			n = n.FirstChild
			continue
		}
		for n != root && n.NextSibling == nil {
			n = n.Parent
		}
		if n == root {
			break
		}
		n = n.NextSibling
	}
	return nodes
}

func findFirst(root *html.Node, a atom.Atom) *html.Node {
	nodes := findAll(root, a)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// textContent concatenates all text below n.
func textContent(n *html.Node) string {
	var contentBuffer bytes.Buffer
	if n.Type == html.TextNode {
		return n.Data
	}

	contentNode := n.FirstChild
	for contentNode != nil {
		if contentNode.Type == html.TextNode {
			contentBuffer.WriteString(contentNode.Data)
		} else if contentNode.FirstChild != nil {
			contentNode = contentNode.FirstChild
			continue
		}

		for contentNode != n && contentNode.NextSibling == nil {
			contentNode = contentNode.Parent
		}
		if contentNode == n {
			break
		}
		contentNode = contentNode.NextSibling
	}
	return contentBuffer.String()
}

// nextSiblingElement returns the first element after n on the same level
// carrying the same tag.
func nextSiblingElement(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode && s.Data == n.Data {
			return s
		}
	}
	return nil
}

// findLabelValue locates an element whose text is exactly label, possibly
// wrapped in inline markup, and returns the text of the value element
// following it. Matches without such a sibling are skipped.
func findLabelValue(doc *html.Node, label string) (string, bool) {
	n := doc
	for n != nil {
		if n.Type == html.ElementNode && strings.TrimSpace(textContent(n)) == label {
			if value := nextSiblingElement(n); value != nil {
				return strings.TrimSpace(textContent(value)), true
			}
		}

		if n.FirstChild != nil {
			n = n.FirstChild
			continue
		}
		for n != doc && n.NextSibling == nil {
			n = n.Parent
		}
		if n == doc {
			break
		}
		n = n.NextSibling
	}
	return "", false
}

// tableRow is one metric row of a channel table: the header cell text and
// the per-channel values found in its data cells.
type tableRow struct {
	header  string
	rawText string
	values  []string
}

// parseRowGroup reads all rows carrying a header cell from a tbody.
func parseRowGroup(bodyNode *html.Node) (rows []tableRow) {
	for _, rowNode := range findAll(bodyNode, atom.Tr) {
		headerNode := findFirst(rowNode, atom.Th)
		if headerNode == nil {
			continue
		}

		rawText := strings.TrimSpace(textContent(headerNode))
		header := strings.TrimSpace(strings.SplitN(rawText, "\n", 2)[0])

		values := []string{}
		for _, cellNode := range findAll(rowNode, atom.Td) {
			for _, valueNode := range findAll(cellNode, atom.Div) {
				values = append(values, strings.TrimSpace(textContent(valueNode)))
			}
		}

		rows = append(rows, tableRow{header: header, rawText: rawText, values: values})
	}
	return rows
}

// valueBlob returns the text following the header line inside the header
// cell, which is where some firmwares flatten the per-channel values.
func (r tableRow) valueBlob() (string, bool) {
	parts := strings.SplitN(r.rawText, "\n", 2)
	if len(parts) < 2 {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
