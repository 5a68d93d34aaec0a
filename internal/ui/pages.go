package ui

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

const appName = "UNICEF Data Explorer"

const pageStyle = `
body{font-family:system-ui,-apple-system,"Segoe UI",sans-serif;margin:0;color:#1f2328;background:#f6f8fa}
.layout{max-width:1180px;margin:0 auto;padding:16px 24px}
.topbar{display:flex;align-items:center;justify-content:space-between;border-bottom:1px solid #d0d7de;margin-bottom:16px}
.topbar nav a{margin-left:16px}
.card{background:#fff;border:1px solid #d0d7de;border-radius:6px}
.Box{box-sizing:border-box}.p-3{padding:16px}.mb-3{margin-bottom:16px}
.color-fg-muted{color:#59636e}.text-small{font-size:12px}
.flash-error{background:#ffebe9;border:1px solid #ff8182;border-radius:6px;padding:8px 16px;margin-bottom:16px}
.flash-warn{background:#fff8c5;border:1px solid #d4a72c;border-radius:6px;padding:8px 16px;margin-bottom:16px}
.fields{display:grid;grid-template-columns:repeat(auto-fit,minmax(220px,1fr));gap:12px}
.fields label{display:block;font-weight:600;margin-bottom:4px}
select[multiple]{min-height:140px;width:100%}
.controls{display:flex;flex-wrap:wrap;gap:8px;align-items:flex-end}
.scroll{max-height:360px;overflow:auto}
table{border-collapse:collapse;font-size:12px}
th,td{border:1px solid #d0d7de;padding:2px 6px;text-align:left;white-space:nowrap}
img.chart{max-width:100%;border:1px solid #d0d7de;background:#fff}
`

func cardClass(extra ...string) string {
	classes := append([]string{"Box", "p-3", "mb-3", "card"}, extra...)
	return strings.Join(classes, " ")
}

func mutedClass() string { return "color-fg-muted text-small" }

func appPage(title string, body ...Node) Node {
	return HTML(
		Lang("en"),
		Head(
			Meta(Charset("utf-8")),
			Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
			TitleEl(Text(title+" | "+appName)),
			Link(Rel("icon"), Href("data:,")),
			StyleEl(Raw(pageStyle)),
		),
		Body(
			Main(
				Class("layout"),
				Header(
					Class("topbar"),
					H1(Text(appName)),
					Nav(
						A(Href("/"), Text("Selection")),
						A(Href("/results"), Text("Results")),
					),
				),
				H2(Text(title)),
				Group(body),
			),
		),
	)
}

func errorPage(title, message string) Node {
	return appPage(title,
		Div(Class("flash-error"), P(Text(message))),
		P(A(Href("/"), Text("Back to selection"))),
	)
}

func flashError(message string) Node {
	if message == "" {
		return nil
	}
	return Div(Class("flash-error"), Text(message))
}

func multiSelect(name, label string, options, selected []string) Node {
	picked := make(map[string]bool, len(selected))
	for _, s := range selected {
		picked[s] = true
	}
	opts := make([]Node, 0, len(options))
	for _, o := range options {
		opts = append(opts, Option(Value(o), If(picked[o], Selected()), Text(o)))
	}
	return Div(
		Label(For(name), Text(label)),
		Select(ID(name), Name(name), Multiple(), Group(opts)),
	)
}

func optionSelected(value, selected string) Node {
	if value == selected {
		return Option(Value(value), Selected(), Text(value))
	}
	return Option(Value(value), Text(value))
}

func singleSelect(name, label string, options []string, selected string) Node {
	opts := make([]Node, 0, len(options))
	for _, o := range options {
		opts = append(opts, optionSelected(o, selected))
	}
	return Div(
		Label(For(name), Text(label)),
		Select(ID(name), Name(name), Group(opts)),
	)
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Format(time.RFC3339)
}

func statusText(status int) string {
	if status == 0 {
		return "no response"
	}
	return fmt.Sprintf("%d %s", status, http.StatusText(status))
}
