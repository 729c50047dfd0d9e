package report

import (
	"fmt"
	"html/template"
	"strings"
)

var funcs = template.FuncMap{
	"levelClass": func(level string) string {
		switch level {
		case "HIGH":
			return "sev-high"
		case "MEDIUM":
			return "sev-medium"
		}
		return "sev-low"
	},
	"scoreClass": func(score int) string {
		switch {
		case score >= 80:
			return "good"
		case score >= 60:
			return "fair"
		case score >= 40:
			return "weak"
		}
		return "poor"
	},
	"cvss": func(v *float64) string {
		if v == nil {
			return "N/A"
		}
		return fmt.Sprintf("%.1f", *v)
	},
	"paragraphs": func(s string) []string {
		var out []string
		for _, p := range strings.Split(s, "\n") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	},
	"amount": func(v float64) string {
		return fmt.Sprintf("%.2f", v)
	},
}

var pageTemplate = template.Must(template.New("report").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8"/>
  <meta content="width=device-width, initial-scale=1.0" name="viewport"/>
  <title>Security Health Check Report - {{.ReportID}}</title>
  <style>
    body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; background: #f6f7f8; color: #111418; margin: 0; }
    main { max-width: 960px; margin: 0 auto; padding: 32px 16px; }
    section { background: #fff; border: 1px solid #dbe0e6; border-radius: 12px; padding: 24px; margin-bottom: 24px; }
    h1 { margin: 0 0 4px; } h2 { margin-top: 0; }
    .meta { color: #617589; font-size: 14px; }
    .score { font-size: 48px; font-weight: 800; }
    .counts span { display: inline-block; margin-right: 16px; font-weight: 700; }
    .bar { height: 8px; background: #eef0f3; border-radius: 4px; overflow: hidden; }
    .bar div { height: 100%; }
    .good { color: #16a34a; } .bar .good { background: #16a34a; }
    .fair { color: #137fec; } .bar .fair { background: #137fec; }
    .weak { color: #f97316; } .bar .weak { background: #f97316; }
    .poor { color: #dc2626; } .bar .poor { background: #dc2626; }
    table { width: 100%; border-collapse: collapse; }
    th, td { text-align: left; padding: 10px 8px; border-bottom: 1px solid #eef0f3; font-size: 14px; vertical-align: top; }
    .sev { display: inline-block; padding: 2px 8px; border-radius: 4px; font-size: 11px; font-weight: 800; }
    .sev-high { background: #fee2e2; color: #b91c1c; }
    .sev-medium { background: #ffedd5; color: #c2410c; }
    .sev-low { background: #fef9c3; color: #a16207; }
    .critical { border-left: 4px solid #dc2626; }
    .phase { border-left: 3px solid #dbe0e6; padding-left: 16px; margin-bottom: 16px; }
    footer { color: #617589; font-size: 12px; text-align: center; }
  </style>
</head>
<body>
<main>
  <section>
    <h1>Security Health Check Report</h1>
    <div class="meta">Report {{.ReportID}} &middot; Assessed {{.AssessedOn}}</div>
    <p class="score {{scoreClass .Detail.OverallScore}}">{{.Detail.OverallScore}}/100</p>
    <div class="counts">
      <span class="poor">{{.High}} high</span>
      <span class="weak">{{.Medium}} medium</span>
      <span class="fair">{{.Low}} low</span>
      <span>{{.Total}} total</span>
    </div>
  </section>

  <section>
    <h2>Executive Summary</h2>
    {{range paragraphs .Detail.ExecutiveSummary}}<p>{{.}}</p>
    {{end}}
  </section>

  {{if .Detail.CategoryHealth}}
  <section>
    <h2>Category Health</h2>
    {{range .Detail.CategoryHealth}}
    <div>
      <strong>{{.Name}}</strong> <span class="{{scoreClass .Score}}">{{.Score}}%</span>
      <div class="bar"><div class="{{scoreClass .Score}}" style="width: {{.Score}}%"></div></div>
    </div>
    {{end}}
  </section>
  {{end}}

  {{with .Critical}}
  <section class="critical">
    <h2>Finding: {{.Description}}</h2>
    <div class="meta">Category: {{.Category}} &middot; CVSS: {{cvss .CVSS}}</div>
    <h4>Remediation Suggestion</h4>
    <p>{{if .Remediation}}{{.Remediation}}{{else}}Contact security team for detailed remediation steps.{{end}}</p>
  </section>
  {{end}}

  <section>
    <h2>Findings</h2>
    {{if .Risks}}
    <table>
      <thead><tr><th>Severity</th><th>Finding</th><th>Category</th><th>CVSS</th><th>Remediation</th></tr></thead>
      <tbody>
      {{range .Risks}}
        <tr>
          <td><span class="sev {{levelClass .Level}}">{{.Level}}</span></td>
          <td>{{.Description}}</td>
          <td>{{.Category}}</td>
          <td>{{cvss .CVSS}}</td>
          <td>{{.Remediation}}</td>
        </tr>
      {{end}}
      </tbody>
    </table>
    {{else}}
    <p>No individual findings were reported.</p>
    {{end}}
  </section>

  {{if .Detail.RemediationRoadmap}}
  <section>
    <h2>Remediation Roadmap</h2>
    {{range .Detail.RemediationRoadmap}}
    <div class="phase">
      <strong>Phase {{.Phase}}: {{.Title}}</strong> <span class="meta">{{.Urgency}}</span>
      <p>{{.Description}}{{if .ExpectedBoost}} Expected Score Boost: <strong>{{.ExpectedBoost}}</strong>{{end}}</p>
    </div>
    {{end}}
  </section>
  {{end}}

  <footer>
    {{if .PaymentRef}}Payment {{.PaymentRef}} ({{amount .PaymentAmount}}) &middot; {{end}}Generated {{.GeneratedOn}}
  </footer>
</main>
</body>
</html>
`))
