package render

import (
	"context"
	"fmt"
	"io"
	"strings"

	"featmark/internal/types"

	"github.com/a-h/templ"
)

// pageStyle is the stylesheet shared by every preview page. Goldmark emits
// plain HTML tags, so element selectors carry the styling.
const pageStyle = `
        body { margin: 0; font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; color: #1f2328; }
        main { max-width: 52rem; margin: 0 auto; padding: 2rem 1.5rem 4rem; line-height: 1.6; }
        h1, h2, h3 { line-height: 1.25; }
        h1 { border-bottom: 1px solid #d1d9e0; padding-bottom: 0.3em; }
        a { color: #0969da; text-decoration: none; }
        a:hover { text-decoration: underline; }
        pre { background: #f6f8fa; border-radius: 6px; padding: 1rem; overflow-x: auto; }
        code { background: #f6f8fa; border-radius: 4px; padding: 0.15em 0.35em; font-size: 0.9em; }
        pre code { background: none; padding: 0; }
        table { border-collapse: collapse; }
        th, td { border: 1px solid #d1d9e0; padding: 0.35rem 0.75rem; }
        nav.pager { display: flex; justify-content: space-between; margin-top: 3rem; border-top: 1px solid #d1d9e0; padding-top: 1rem; }
        ol.sections { padding-left: 1.5rem; }
        ol.sections li { margin: 0.4rem 0; }
        span.lang { background: #ddf4ff; color: #0969da; border-radius: 4px; padding: 0.1em 0.45em; font-size: 0.8em; margin-left: 0.5em; }
        #featmark-overlay { position: fixed; bottom: 0; left: 0; right: 0; max-height: 40vh; overflow-y: auto; background: #fff8f6; border-top: 2px solid #cf222e; padding: 0.75rem 1.5rem; font-size: 0.9em; }
        #featmark-overlay li.warning { color: #9a6700; }
        #featmark-overlay li.error { color: #cf222e; }`

// reloadScript keeps open pages in sync with the files on disk. The preview
// server broadcasts full_reload when a document changes, lint_report when a
// check finds problems, and check_error with a rendered problems page when
// a document cannot be checked at all; the initial fetch restores the
// overlay after a reload. The server drops idle connections, so the socket
// reconnects. After the problems page replaces the document, the socket and
// its handlers stay alive, so the next broadcast brings the real page back.
const reloadScript = `
        const overlay = document.getElementById('featmark-overlay');
        let problemsPageShown = false;
        function connect() {
            const ws = new WebSocket('ws://' + window.location.host + '/ws');
            ws.onmessage = function (event) {
                const message = JSON.parse(event.data);
                if (message.type === 'full_reload' || (problemsPageShown && message.type === 'lint_report')) {
                    window.location.reload();
                    return;
                }
                if (message.type === 'lint_report') {
                    renderOverlay(message.report);
                }
                if (message.type === 'check_error' && message.content) {
                    problemsPageShown = true;
                    document.open();
                    document.write(message.content);
                    document.close();
                }
            };
            ws.onclose = function () {
                setTimeout(connect, 2000);
            };
        }
        connect();
        fetch('/api/report')
            .then(function (res) { return res.ok ? res.json() : null; })
            .then(renderOverlay)
            .catch(function () {});
        function renderOverlay(report) {
            if (!report || !report.issues || report.issues.length === 0) {
                overlay.hidden = true;
                overlay.innerHTML = '';
                return;
            }
            const items = report.issues.map(function (issue) {
                const line = issue.line ? ':' + issue.line : '';
                return '<li class="' + issue.severity + '">' + issue.file + line +
                    ' ' + issue.message + ' <code>' + issue.rule + '</code></li>';
            });
            overlay.innerHTML = '<strong>Lint findings</strong><ul>' + items.join('') + '</ul>';
            overlay.hidden = false;
        }`

// shell wraps page content in the shared chrome. An empty script leaves out
// the overlay mount and the script tag, which exported pages must not carry.
func shell(title string, body templ.Component, script string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>%s - Featmark</title>
    <style>%s
    </style>
</head>
<body>
    <main>
`, templ.EscapeString(title), pageStyle)
		if err != nil {
			return err
		}

		if err := body.Render(ctx, w); err != nil {
			return err
		}

		if script == "" {
			_, err = io.WriteString(w, "\n    </main>\n</body>\n</html>\n")
			return err
		}

		_, err = fmt.Fprintf(w, `
    </main>
    <div id="featmark-overlay" hidden></div>
    <script>%s
    </script>
</body>
</html>
`, script)
		return err
	})
}

// Layout is the preview chrome: stylesheet, lint overlay mount, and the
// live-reload script.
func Layout(title string, body templ.Component) templ.Component {
	return shell(title, body, reloadScript)
}

// StaticLayout is the export chrome. Exported pages are served without the
// preview server, so they carry no reload script and no overlay.
func StaticLayout(title string, body templ.Component) templ.Component {
	return shell(title, body, "")
}

// IndexPage lists every registered section with links to its page.
func IndexPage(title string, sections []*types.SectionInfo) templ.Component {
	return Layout(title, indexBody(title, sections))
}

// StaticIndexPage is the exported form of IndexPage.
func StaticIndexPage(title string, sections []*types.SectionInfo) templ.Component {
	return StaticLayout(title, indexBody(title, sections))
}

func indexBody(title string, sections []*types.SectionInfo) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, "        <h1>%s</h1>\n", templ.EscapeString(title)); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "        <p>%d sections</p>\n        <ol class=\"sections\">\n", len(sections)); err != nil {
			return err
		}

		for _, section := range sections {
			badge := ""
			if section.HasSnippet() {
				lang := section.Snippet.Language
				if lang == "" {
					lang = "plain"
				}
				badge = fmt.Sprintf(` <span class="lang">%s</span>`, templ.EscapeString(lang))
			}
			_, err := fmt.Fprintf(w, "            <li value=\"%d\"><a href=\"/section/%s\">%s</a>%s</li>\n",
				section.Number, section.Anchor, templ.EscapeString(section.Title), badge)
			if err != nil {
				return err
			}
		}

		_, err := io.WriteString(w, "        </ol>")
		return err
	})
}

// SectionPage renders one section's body with pager navigation. prev and
// next may be nil at the ends of the guide.
func SectionPage(section *types.SectionInfo, body string, prev, next *types.SectionInfo) templ.Component {
	title := fmt.Sprintf("%d. %s", section.Number, section.Title)
	return Layout(title, sectionBody(body, prev, next))
}

// StaticSectionPage is the exported form of SectionPage.
func StaticSectionPage(section *types.SectionInfo, body string, prev, next *types.SectionInfo) templ.Component {
	title := fmt.Sprintf("%d. %s", section.Number, section.Title)
	return StaticLayout(title, sectionBody(body, prev, next))
}

func sectionBody(body string, prev, next *types.SectionInfo) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "        <p><a href=\"/\">&larr; All sections</a></p>\n"); err != nil {
			return err
		}

		if err := templ.Raw(body).Render(ctx, w); err != nil {
			return err
		}

		var pager strings.Builder
		pager.WriteString("        <nav class=\"pager\">\n")
		if prev != nil {
			fmt.Fprintf(&pager, "            <a href=\"/section/%s\">&larr; %d. %s</a>\n",
				prev.Anchor, prev.Number, templ.EscapeString(prev.Title))
		} else {
			pager.WriteString("            <span></span>\n")
		}
		if next != nil {
			fmt.Fprintf(&pager, "            <a href=\"/section/%s\">%d. %s &rarr;</a>\n",
				next.Anchor, next.Number, templ.EscapeString(next.Title))
		} else {
			pager.WriteString("            <span></span>\n")
		}
		pager.WriteString("        </nav>")

		_, err := io.WriteString(w, pager.String())
		return err
	})
}

// RenderPage renders a page component to a string.
func RenderPage(ctx context.Context, page templ.Component) (string, error) {
	var buf strings.Builder
	if err := page.Render(ctx, &buf); err != nil {
		return "", fmt.Errorf("rendering page: %w", err)
	}
	return buf.String(), nil
}
