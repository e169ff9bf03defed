package mailer

import (
	"fmt"
	"strings"
	"text/template"
)

// Template names. They match the notification kinds they accompany, plus the
// admin-facing moderation request.
const (
	TemplateProjectCreation      = "project_creation"
	TemplateProjectUpdating      = "project_updating"
	TemplateInvestorSubscription = "investor_subscription"
	TemplateModerationRequest    = "moderation_request"
	TemplateModerationApproved   = "moderation_approved"
	TemplateModerationDeclined   = "moderation_declined"
)

// Data feeds the templates. Each template reads only the fields it needs.
type Data struct {
	FirstName    string
	ProjectID    int64
	ProjectName  string
	ProjectURL   string
	InvestorName string
	EntityTitle  string
	EntityID     int64
	Snapshot     string
	ApproveURL   string
	DeclineURL   string
}

// Every template has a ".subject" and a ".body" definition.
const templateText = `
{{define "project_creation.subject"}}Project Created{{end}}
{{define "project_creation.body"}}Hello {{.FirstName}}!
A new project {{.ProjectName}} matching your interests has been created.
Link to the project: {{.ProjectURL}}{{end}}

{{define "project_updating.subject"}}Project Updated{{end}}
{{define "project_updating.body"}}Hello {{.FirstName}}!
The project {{.ProjectName}} has been updated.
Link to the project: {{.ProjectURL}}{{end}}

{{define "investor_subscription.subject"}}New project subscription{{end}}
{{define "investor_subscription.body"}}Hello {{.FirstName}}!
Investor {{.InvestorName}} subscribed to Project with id {{.ProjectID}}.
Link to the project: {{.ProjectURL}}{{end}}

{{define "moderation_request.subject"}}Moderation request: {{.EntityTitle}} #{{.EntityID}}{{end}}
{{define "moderation_request.body"}}{{.EntityTitle}} #{{.EntityID}} is waiting for moderation.

{{.Snapshot}}

Approve: {{.ApproveURL}}
Decline: {{.DeclineURL}}{{end}}

{{define "moderation_approved.subject"}}Moderation approved{{end}}
{{define "moderation_approved.body"}}Hello {{.FirstName}}!
{{.EntityTitle}} profile #{{.EntityID}} passed moderation approval.{{end}}

{{define "moderation_declined.subject"}}Moderation declined{{end}}
{{define "moderation_declined.body"}}Hello {{.FirstName}}!
{{.EntityTitle}} profile #{{.EntityID}} did not pass moderation approval.{{end}}
`

var templates = template.Must(template.New("mail").Option("missingkey=error").Parse(templateText))

// Compose renders the named template into a message addressed to to.
func Compose(name, to string, data Data) (Message, error) {
	subject, err := render(name+".subject", data)
	if err != nil {
		return Message{}, err
	}
	body, err := render(name+".body", data)
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: subject, Body: body, Template: name}, nil
}

func render(name string, data Data) (string, error) {
	if templates.Lookup(name) == nil {
		return "", fmt.Errorf("unknown email template %q", name)
	}
	var sb strings.Builder
	if err := templates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return sb.String(), nil
}
