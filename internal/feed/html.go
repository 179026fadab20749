package feed

import (
	"strings"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"
)

// plainText flattens an HTML entry body to whitespace-collapsed text.
func plainText(raw string) string {
	if !strings.ContainsAny(raw, "<&") {
		return strings.Join(strings.Fields(raw), " ")
	}
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return strings.Join(strings.Fields(raw), " ")
	}

	var sb strings.Builder
	var walk func(n *html.Node, depth int)
	walk = func(n *html.Node, depth int) {
		if depth > 50 {
			return
		}
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "iframe", "svg":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, depth+1)
		}
	}
	walk(doc, 0)

	return strings.Join(strings.Fields(sb.String()), " ")
}

// imageOf finds the best image for an entry: the item image, then an image
// enclosure, then media RSS thumbnails, then the first <img> in the body.
func imageOf(item *gofeed.Item, raw string) string {
	if item.Image != nil && isRemote(item.Image.URL) {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") && isRemote(enc.URL) {
			return enc.URL
		}
	}
	if media, ok := item.Extensions["media"]; ok {
		for _, name := range []string{"thumbnail", "content"} {
			for _, ext := range media[name] {
				if u := ext.Attrs["url"]; isRemote(u) {
					if name == "content" && ext.Attrs["medium"] != "" && ext.Attrs["medium"] != "image" {
						continue
					}
					return u
				}
			}
		}
	}
	return firstImg(raw)
}

func firstImg(raw string) string {
	if !strings.Contains(raw, "<img") {
		return ""
	}
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return ""
	}

	var found string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "img" {
			if src := getAttr(n, "src"); isRemote(src) {
				found = src
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return found
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func isRemote(u string) bool {
	return strings.HasPrefix(u, "https://") || strings.HasPrefix(u, "http://")
}
