package export

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// BrokenLink describes one href that did not resolve inside the exported
// tree.
type BrokenLink struct {
	// Page is the referring page, relative to the output directory
	Page string `json:"page"`
	// Href is the attribute value as written
	Href string `json:"href"`
	// Reason says why the link failed
	Reason string `json:"reason"`
}

// auditPage holds what the audit needs from one parsed page.
type auditPage struct {
	rel   string
	ids   map[string]struct{}
	hrefs []string
}

// auditLinks parses every exported file and checks each anchor href against
// the exported tree. External links (any scheme, mailto, tel) are out of
// scope. Fragment-only links resolve against the page's own element ids and
// the registered guide anchors, since section pages cross-reference each
// other with bare fragments. Path links resolve as the path itself, the
// path with /index.html appended, or the path with .html appended.
func (e *Exporter) auditLinks(files []string, outputDir string) ([]BrokenLink, error) {
	pageList := make([]*auditPage, 0, len(files))
	pages := make(map[string]*auditPage, len(files))

	for _, file := range files {
		rel, err := filepath.Rel(outputDir, file)
		if err != nil {
			return nil, fmt.Errorf("relativizing %s: %w", file, err)
		}
		rel = filepath.ToSlash(rel)

		page, err := parsePage(file, rel)
		if err != nil {
			return nil, err
		}
		pageList = append(pageList, page)
		pages[rel] = page
	}

	anchors := e.knownAnchors()

	var broken []BrokenLink
	for _, page := range pageList {
		for _, href := range page.hrefs {
			if reason := resolveHref(href, page, pages, anchors); reason != "" {
				broken = append(broken, BrokenLink{Page: page.rel, Href: href, Reason: reason})
			}
		}
	}
	return broken, nil
}

func parsePage(file, rel string) (*auditPage, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", rel, err)
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", rel, err)
	}

	page := &auditPage{rel: rel, ids: make(map[string]struct{})}

	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				switch {
				case attr.Key == "id":
					page.ids[attr.Val] = struct{}{}
				case attr.Key == "href" && n.Data == "a":
					page.hrefs = append(page.hrefs, attr.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)

	return page, nil
}

// knownAnchors collects every anchor the guide itself defines: section slugs
// plus document title slugs.
func (e *Exporter) knownAnchors() map[string]struct{} {
	anchors := make(map[string]struct{})
	for _, section := range e.registry.GetOrdered() {
		anchors[section.Anchor] = struct{}{}
	}
	for _, doc := range e.registry.Documents() {
		if doc.TitleAnchor != "" {
			anchors[doc.TitleAnchor] = struct{}{}
		}
	}
	return anchors
}

// resolveHref returns "" when the href resolves, or a short reason when it
// does not.
func resolveHref(href string, page *auditPage, pages map[string]*auditPage, anchors map[string]struct{}) string {
	if href == "" {
		return "empty href"
	}
	if strings.Contains(href, "://") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") {
		return ""
	}

	target, fragment, _ := strings.Cut(href, "#")
	if target == "" {
		if _, ok := page.ids[fragment]; ok {
			return ""
		}
		if _, ok := anchors[fragment]; ok {
			return ""
		}
		return "unknown anchor"
	}

	var rel string
	if strings.HasPrefix(target, "/") {
		rel = path.Clean(strings.TrimPrefix(target, "/"))
	} else {
		rel = path.Join(path.Dir(page.rel), target)
	}
	if rel == "." || rel == "" {
		rel = "index.html"
	}

	for _, candidate := range []string{rel, path.Join(rel, "index.html"), rel + ".html"} {
		if _, ok := pages[candidate]; ok {
			return ""
		}
	}
	return "no exported page"
}
