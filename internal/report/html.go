package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
)

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"fixed2": func(v float64) string { return fmt.Sprintf("%.2f", v) },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Arial, sans-serif; padding: 40px; line-height: 1.6; }
h1, h2 { color: #2c3e50; }
.section { margin-bottom: 30px; }
table { border-collapse: collapse; width: 100%; margin-top: 10px; }
th, td { border: 1px solid #ddd; padding: 8px; text-align: center; }
th { background-color: #f7f7f7; }
.summary-box { background-color: #f0f8ff; padding: 10px; border: 1px solid #ccc; margin-top: 10px; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="section">
<h2>요약 통계</h2>
<div class="summary-box">
<p><strong>시점 통과 대수:</strong> {{.Summary.StartCount}} 대</p>
<p><strong>종점 통과 대수:</strong> {{.Summary.EndCount}} 대</p>
<p><strong>공통 차량 수:</strong> {{.Summary.MatchedCount}} 대</p>
<p><strong>통과율:</strong> {{fixed2 .Summary.PassRate}}%</p>
<p><strong>평균 통과 시간:</strong> {{fixed2 .Summary.MeanTransit}} 초</p>
<p><strong>평균 구간 속도:</strong> {{fixed2 .Summary.MeanSpeed}} km/h</p>
<p><strong>과속 차량 수:</strong> {{.Summary.OverSpeedCount}} 대 (기준 {{fixed2 .Summary.OverSpeedKmh}} km/h, 제한 {{fixed2 .Summary.SpeedLimitKmh}} km/h)</p>
</div>
</div>
<div class="section">
<h2>월별 통과량 통계</h2>
<table>
<tr><th>월</th><th>통과 차량 수</th></tr>
{{- range .Monthly}}
<tr><td>{{.Month}}</td><td>{{.Count}}</td></tr>
{{- end}}
</table>
</div>
<div class="section">
<h2>요일 + 시간대 상위 3</h2>
<table>
<tr><th>요일+시간</th><th>통과 차량 수</th></tr>
{{- range .TopWeekdayHours}}
<tr><td>{{.Label}}</td><td>{{.Count}}</td></tr>
{{- end}}
</table>
</div>
</body>
</html>
`))

// WriteHTML renders the payload as a standalone HTML document.
func (p Payload) WriteHTML(w io.Writer) error {
	if err := reportTemplate.Execute(w, p); err != nil {
		return fmt.Errorf("rendering html report: %w", err)
	}
	return nil
}

// HTML returns the rendered HTML document.
func (p Payload) HTML() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.WriteHTML(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
