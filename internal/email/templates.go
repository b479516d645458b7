package email

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/jwalitptl/visitor-api/internal/model"
)

const (
	ConfirmationSubject = "SFS Appointment Confirmation"
	NotificationSubject = "SFS Appointment Notification"

	// appointmentTimeLayout renders e.g. "Saturday, 26 April 2025 14:00 UTC".
	appointmentTimeLayout = "Monday, 02 January 2006 15:04 MST"
)

var confirmationTmpl = template.Must(template.New("confirmation").Parse(
	`<h2>Thank you for using SFS Scheduler!  Here are your appointment details:</h2>
<p>{{.Name}}</p>
<p><strong>{{.When}}</strong></p>
<p>Pass type: {{.PassType}}</p>
<p>Confirmation number: {{.ID}}</p>
`))

var statusTmpl = template.Must(template.New("status").Parse(
	`<h2>{{.Headline}}</h2>
<p>{{.Name}}, your appointment on <strong>{{.When}}</strong> {{.Detail}}</p>
<p>Confirmation number: {{.ID}}</p>
`))

type templateData struct {
	Name     string
	When     string
	PassType string
	ID       string
	Headline string
	Detail   string
}

// RenderConfirmation builds the booking confirmation body.
func RenderConfirmation(user *model.User, appt *model.Appointment) (string, error) {
	return render(confirmationTmpl, templateData{
		Name:     user.FullName(),
		When:     appt.Date.UTC().Format(appointmentTimeLayout),
		PassType: appt.PassType.String(),
		ID:       appt.ID.String(),
	})
}

// RenderStatusNotice builds the body sent when an appointment moves to
// Serving or Cancelled. ok is false for other statuses.
func RenderStatusNotice(user *model.User, appt *model.Appointment) (body string, ok bool, err error) {
	data := templateData{
		Name: user.FirstName,
		When: appt.Date.UTC().Format(appointmentTimeLayout),
		ID:   appt.ID.String(),
	}

	switch appt.Status {
	case model.StatusServing:
		data.Headline = "It is your turn"
		data.Detail = "is now being served. Please proceed to the front counter."
	case model.StatusCancelled:
		data.Headline = "Your appointment was cancelled"
		data.Detail = "has been cancelled. You may book a new appointment at the kiosk."
	default:
		return "", false, nil
	}

	body, err = render(statusTmpl, data)
	return body, err == nil, err
}

func render(t *template.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s email: %w", t.Name(), err)
	}
	return buf.String(), nil
}
