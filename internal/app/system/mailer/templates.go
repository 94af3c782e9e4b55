// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// LeaveDecisionData holds data for leave-decision email templates.
type LeaveDecisionData struct {
	SiteName      string
	RequesterName string
	LeaveType     string
	StartDate     time.Time
	EndDate       time.Time
	Approved      bool
	Comment       string
}

// BuildLeaveDecisionEmail creates a leave-decision notification with both
// HTML and text bodies.
func BuildLeaveDecisionEmail(data LeaveDecisionData) Email {
	verdict := "refusée"
	if data.Approved {
		verdict = "approuvée"
	}
	return Email{
		To:       "", // Set by caller
		Subject:  fmt.Sprintf("%s — votre demande de congé a été %s", data.SiteName, verdict),
		TextBody: buildLeaveDecisionText(data, verdict),
		HTMLBody: buildLeaveDecisionHTML(data, verdict),
	}
}

func buildLeaveDecisionText(data LeaveDecisionData, verdict string) string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("Bonjour %s,\n\n", data.RequesterName))
	buf.WriteString(fmt.Sprintf("Votre demande de congé (%s) du %s au %s a été %s.\n\n",
		data.LeaveType,
		data.StartDate.Format("02/01/2006"),
		data.EndDate.Format("02/01/2006"),
		verdict))
	if data.Comment != "" {
		buf.WriteString("Commentaire : " + data.Comment + "\n\n")
	}
	buf.WriteString(fmt.Sprintf("— L'équipe %s\n", data.SiteName))
	return buf.String()
}

func buildLeaveDecisionHTML(data LeaveDecisionData, verdict string) string {
	tmpl := template.Must(template.New("leavedecision").Parse(leaveDecisionHTMLTemplate))
	var buf bytes.Buffer
	_ = tmpl.Execute(&buf, struct {
		LeaveDecisionData
		Verdict string
		Start   string
		End     string
		Color   string
	}{
		LeaveDecisionData: data,
		Verdict:           verdict,
		Start:             data.StartDate.Format("02/01/2006"),
		End:               data.EndDate.Format("02/01/2006"),
		Color:             decisionColor(data.Approved),
	})
	return buf.String()
}

func decisionColor(approved bool) string {
	if approved {
		return "#16a34a"
	}
	return "#dc2626"
}

const leaveDecisionHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Demande de congé</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px; box-shadow: 0 2px 4px rgba(0, 0, 0, 0.1);">
          <!-- Header -->
          <tr>
            <td style="padding: 32px 32px 24px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #4f46e5;">{{.SiteName}}</h1>
            </td>
          </tr>

          <!-- Content -->
          <tr>
            <td style="padding: 32px;">
              <p style="margin: 0 0 24px; font-size: 16px; color: #374151; line-height: 1.5;">
                Bonjour {{.RequesterName}},
              </p>

              <p style="margin: 0 0 24px; font-size: 16px; color: #374151; line-height: 1.5;">
                Votre demande de congé ({{.LeaveType}}) du {{.Start}} au {{.End}} a été
                <strong style="color: {{.Color}};">{{.Verdict}}</strong>.
              </p>

              {{if .Comment}}
              <div style="background-color: #f3f4f6; border-radius: 8px; padding: 16px; margin-bottom: 24px;">
                <p style="margin: 0; font-size: 14px; color: #374151;">{{.Comment}}</p>
              </div>
              {{end}}
            </td>
          </tr>

          <!-- Footer -->
          <tr>
            <td style="padding: 24px 32px; background-color: #f9fafb; border-top: 1px solid #e5e7eb; border-radius: 0 0 8px 8px;">
              <p style="margin: 0; font-size: 12px; color: #9ca3af; text-align: center;">
                — L'équipe {{.SiteName}}
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
