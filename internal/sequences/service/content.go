package service

import (
	"bytes"
	"fmt"
	"text/template"

	leaddomain "leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/sequences/domain"
)

// stepContent is the rendered subject and body for one step.
type stepContent struct {
	Subject string
	Body    string
}

type templateData struct {
	FirstName string
	Company   string
	Step      int
	Total     int
}

var bodyTemplates = map[string]*template.Template{
	"opening": template.Must(template.New("opening").Parse(
		`Hi {{.FirstName}},

Thanks for your interest. Over the next few emails we'll share how teams
like {{.Company}} shorten their sales cycle with better lead timing.

If you'd rather talk now, just reply to this email.
`)),
	"nurture": template.Must(template.New("nurture").Parse(
		`Hi {{.FirstName}},

Quick follow-up ({{.Step}} of {{.Total}}): we put together a short case
study showing what changed for a company similar to {{.Company}} in the
first 30 days.

Worth a look?
`)),
	"closing": template.Must(template.New("closing").Parse(
		`Hi {{.FirstName}},

This is the last note in this series. If the timing isn't right, no
problem, we'll stay out of your inbox.

If it is, grab fifteen minutes with us and we'll map out next steps for
{{.Company}}.
`)),
}

// renderStep builds the email for one sequence step.
func renderStep(lead *leaddomain.Lead, seqType domain.Type, step, total int) (stepContent, error) {
	data := templateData{
		FirstName: firstNameOr(lead, "there"),
		Company:   companyOr(lead, "your team"),
		Step:      step,
		Total:     total,
	}

	var key, subject string
	switch {
	case step == 1:
		key = "opening"
		subject = "Welcome aboard"
	case step == total:
		key = "closing"
		subject = "One last thing before we wrap up"
	default:
		key = "nurture"
		subject = fmt.Sprintf("Following up (%d of %d)", step, total)
	}

	var buf bytes.Buffer
	if err := bodyTemplates[key].Execute(&buf, data); err != nil {
		return stepContent{}, fmt.Errorf("render step %d: %w", step, err)
	}
	return stepContent{Subject: subject, Body: buf.String()}, nil
}

func firstNameOr(lead *leaddomain.Lead, fallback string) string {
	if lead.FirstName != nil && *lead.FirstName != "" {
		return *lead.FirstName
	}
	return fallback
}

func companyOr(lead *leaddomain.Lead, fallback string) string {
	if lead.Company != nil && *lead.Company != "" {
		return *lead.Company
	}
	return fallback
}
