// Package preview renders code blocks into standalone documents and serves
// them from an isolated origin.
package preview

import (
	"bytes"
	"html"
	"regexp"
	"strings"
	"text/template"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Kind is how a language is previewed
type Kind string

const (
	KindHTML   Kind = "html"
	KindScript Kind = "script"
	KindStyle  Kind = "style"
	KindText   Kind = "text"
)

// KindOf classifies a fenced code block language
func KindOf(language string) Kind {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "html", "htm", "xhtml", "svg":
		return KindHTML
	case "javascript", "js", "mjs", "jsx":
		return KindScript
	case "css":
		return KindStyle
	default:
		return KindText
	}
}

// consoleShim mirrors console output and uncaught errors into #console
const consoleShim = `(function () {
  var out = document.getElementById("console");
  function fmt(v) {
    if (typeof v === "string") return v;
    try { return JSON.stringify(v); } catch (e) { return String(v); }
  }
  ["log", "info", "warn", "error"].forEach(function (level) {
    var orig = console[level];
    console[level] = function () {
      var line = document.createElement("div");
      line.className = level;
      line.textContent = Array.prototype.map.call(arguments, fmt).join(" ");
      out.appendChild(line);
      if (orig) orig.apply(console, arguments);
    };
  });
  window.addEventListener("error", function (e) { console.error(e.message); });
  window.addEventListener("unhandledrejection", function (e) { console.error("Unhandled rejection: " + fmt(e.reason)); });
})();`

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; margin: 1rem; }
#console { margin-top: 1rem; padding: .5rem; background: #111; color: #eee; font: 12px/1.4 ui-monospace, monospace; white-space: pre-wrap; min-height: 1.4em; }
#console .warn { color: #f5c542; }
#console .error { color: #ff6b6b; }
</style>
{{- if .Style}}
<style>
{{.Style}}
</style>
{{- end}}
</head>
<body>
{{- if .Sample}}
<main>
<h1>Heading</h1>
<p>Paragraph with <a href="#">a link</a> and <strong>strong text</strong>.</p>
<button type="button">Button</button>
<ul><li>First</li><li>Second</li></ul>
</main>
{{- else}}
<div id="root"></div>
{{- end}}
<pre id="console"></pre>
<script>
{{.Shim}}
</script>
{{- if .Script}}
<script>
{{.Script}}
</script>
{{- end}}
</body>
</html>
`))

type pageData struct {
	Title  string
	Shim   string
	Style  string
	Script string
	Sample bool
}

var (
	closeScript = regexp.MustCompile(`(?i)</script`)
	closeStyle  = regexp.MustCompile(`(?i)</style`)
)

// BuildDocument returns a standalone HTML document previewing code. HTML is
// used verbatim, scripts and styles are inlined into a page that captures
// console output, and anything else is shown as escaped preformatted text.
func BuildDocument(code, language string) string {
	switch KindOf(language) {
	case KindHTML:
		return code
	case KindScript:
		return renderPage(pageData{
			Title:  "JavaScript preview",
			Shim:   consoleShim,
			Script: closeScript.ReplaceAllString(code, `<\/script`),
		})
	case KindStyle:
		return renderPage(pageData{
			Title:  "CSS preview",
			Shim:   consoleShim,
			Style:  closeStyle.ReplaceAllString(code, `<\/style`),
			Sample: true,
		})
	default:
		return textDocument(code, language)
	}
}

func renderPage(data pageData) string {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return textDocument(err.Error(), "")
	}
	return buf.String()
}

// textDocument renders code as highlighted, escaped preformatted text
func textDocument(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get("github")
	if style == nil {
		style = styles.Fallback
	}
	formatter := chromahtml.New(chromahtml.Standalone(true), chromahtml.WithClasses(false))

	iterator, err := lexer.Tokenise(nil, code)
	if err == nil {
		var buf bytes.Buffer
		if err := formatter.Format(&buf, style, iterator); err == nil {
			return buf.String()
		}
	}
	return "<!DOCTYPE html><html><head><meta charset=\"utf-8\"></head><body><pre>" + html.EscapeString(code) + "</pre></body></html>"
}
