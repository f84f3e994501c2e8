package status

import "html/template"

var overviewPageTemplate = template.Must(template.New("overview").Parse(`<!DOCTYPE html>
<html>
<head><title>SAGE task status</title></head>
<body>
<h1>Task status</h1>
{{if not .snapshots}}<p>No snapshots recorded yet.</p>{{end}}
{{range .snapshots}}
<h2>{{.Credential}}</h2>
<p>{{.Total}} tasks as of {{.TakenAt}}</p>
<table>
{{range .States}}<tr><td>{{.State}}</td><td>{{.Count}}</td></tr>
{{end}}
</table>
{{end}}
<p><a href="{{.statusEndpoint}}">json</a> | <a href="{{.metricsEndpoint}}">metrics</a></p>
</body>
</html>
`))

var msgPageTemplate = template.Must(template.New("msg").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.messageTitle}}</title></head>
<body>
<h1>{{.messageTitle}}</h1>
<p>{{.messageContent}}</p>
<p><a href="{{.overviewEndpoint}}">back</a></p>
</body>
</html>
`))
