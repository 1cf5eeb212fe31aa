package view

import (
	"fmt"
	"html/template"
	"io"
	"time"
)

var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"seconds": func(d time.Duration) int { return int(d.Seconds()) },
	"percent": func(f float64) string { return fmt.Sprintf("%g%%", f) },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
{{- if .Refresh}}
<meta http-equiv="refresh" content="{{seconds .Refresh}}">
{{- end}}
<title>Live Temperature Monitor</title>
</head>
<body>
<div class="dashboard">
<header class="dashboard-header">
<h1 class="dashboard-title">Live Temperature Monitor</h1>
<div class="connection-indicator">
<span id="connection-status" class="connection-status {{.Page.Status.Class}}">{{.Page.Status.Text}}</span>
</div>
</header>
<main class="dashboard-main">
<h2 class="section-title">{{.Page.Title}}</h2>
<div id="updates-container" class="updates-container">
{{- with .Page.Placeholder}}
<div class="no-data">
<h3>{{.Title}}</h3>
<p class="no-data-subtitle">{{.Subtitle}}</p>
</div>
{{- end}}
{{- range .Page.Cards}}
<div class="temperature-card" style="--group-color: {{.Color}}">
<div class="card-header">
<span class="group-badge">{{.Group}}</span>
<span class="timestamp">{{.Timestamp}}</span>
</div>
<div class="temperature-display">
<div class="temperature-value">{{.Temperature}}</div>
<div class="temp-bar"><div class="temp-fill" style="width: {{percent .Bar}}"></div></div>
</div>
</div>
{{- end}}
</div>
</main>
</div>
</body>
</html>
`))

// WriteHTML writes the page as a standalone HTML document. A non-zero
// refresh makes the browser reload it periodically.
func WriteHTML(w io.Writer, page Page, refresh time.Duration) error {
	data := struct {
		Page    Page
		Refresh time.Duration
	}{page, refresh}
	if err := pageTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}
