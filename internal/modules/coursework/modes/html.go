package modes

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const unsafeTags = "script, style, iframe, object, embed, link, meta"

// sanitizeHTML parses a generated fragment and drops active content and
// inline event handlers.
func sanitizeHTML(fragment string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, err
	}
	doc.Find(unsafeTags).Remove()
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		var handlers []string
		for _, a := range s.Nodes[0].Attr {
			if strings.HasPrefix(strings.ToLower(a.Key), "on") {
				handlers = append(handlers, a.Key)
			}
		}
		for _, k := range handlers {
			s.RemoveAttr(k)
		}
	})
	return doc, nil
}

func bodyHTML(doc *goquery.Document) (string, error) {
	out, err := doc.Find("body").Html()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func cleanExplain(fragment string) (string, error) {
	doc, err := sanitizeHTML(fragment)
	if err != nil {
		return "", err
	}
	return bodyHTML(doc)
}

// normalizeDraft makes the document open with <h1>title</h1>, replacing the
// text of a leading h1 or inserting one.
func normalizeDraft(title, fragment string) (string, error) {
	doc, err := sanitizeHTML(fragment)
	if err != nil {
		return "", err
	}
	body := doc.Find("body")
	if lead := leadingElement(body.Nodes[0]); lead != nil && lead.Data == "h1" {
		goquery.NewDocumentFromNode(lead).Selection.SetText(title)
	} else {
		body.PrependHtml("<h1>" + html.EscapeString(title) + "</h1>")
	}
	return bodyHTML(doc)
}

// leadingElement returns the first child element when nothing visible precedes it.
func leadingElement(parent *html.Node) *html.Node {
	for n := parent.FirstChild; n != nil; n = n.NextSibling {
		switch n.Type {
		case html.ElementNode:
			return n
		case html.TextNode:
			if strings.TrimSpace(n.Data) != "" {
				return nil
			}
		}
	}
	return nil
}
