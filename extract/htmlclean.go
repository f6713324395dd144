package extract

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	interTagWhitespace = regexp.MustCompile(`>\s+<`)
	whitespaceRuns     = regexp.MustCompile(`\s+`)
)

// cleanMarkup applies the HTML strategy's cleanup options to a markup
// fragment: script removal, comment removal, and text-node whitespace
// normalisation happen in one tree pass; inter-tag collapse happens on the
// rendered output.
func cleanMarkup(fragment string, opts HTMLOptions) (string, error) {
	needTreePass := opts.RemoveScripts || opts.RemoveComments || opts.NormalizeWhitespace
	out := fragment

	if needTreePass {
		bodyCtx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
		nodes, err := html.ParseFragment(strings.NewReader(fragment), bodyCtx)
		if err != nil {
			return "", err
		}

		// Hang the parsed nodes under a detached body so top-level scripts,
		// comments and text nodes are cleaned like nested ones.
		root := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
		for _, node := range nodes {
			root.AppendChild(node)
		}
		cleanNode(root, opts)

		var buf bytes.Buffer
		for node := root.FirstChild; node != nil; node = node.NextSibling {
			if err := html.Render(&buf, node); err != nil {
				return "", err
			}
		}
		out = buf.String()
	}

	if opts.CleanHTML {
		out = strings.TrimSpace(interTagWhitespace.ReplaceAllString(out, "><"))
	}
	return out, nil
}

// cleanNode prunes and rewrites children in place.
func cleanNode(n *html.Node, opts HTMLOptions) {
	var next *html.Node
	for child := n.FirstChild; child != nil; child = next {
		next = child.NextSibling

		switch {
		case opts.RemoveScripts && child.Type == html.ElementNode && child.DataAtom == atom.Script:
			n.RemoveChild(child)
		case opts.RemoveComments && child.Type == html.CommentNode:
			n.RemoveChild(child)
		case child.Type == html.TextNode && opts.NormalizeWhitespace:
			child.Data = whitespaceRuns.ReplaceAllString(child.Data, " ")
		default:
			if child.Type == html.ElementNode {
				cleanNode(child, opts)
			}
		}
	}
}
