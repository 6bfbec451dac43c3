package alerts

import (
	"bytes"
	"fmt"
	"html/template"

	"smartstock/m/domain"
)

var emailTmpl = template.Must(template.New("reorder").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h1 style="color: #dc2626; text-align: center;">Inventory Reorder Alert</h1>
  <p style="font-size: 16px; color: #374151;">
    The following items require your attention for reordering:
  </p>

  <div style="background: #fef2f2; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h2 style="color: #dc2626; margin-top: 0;">Summary</h2>
    <ul style="list-style: none; padding: 0;">
      <li><strong>Total Alerts:</strong> {{.Total}}</li>
      <li><strong>High Priority:</strong> {{len .High}}</li>
      <li><strong>Medium Priority:</strong> {{len .Medium}}</li>
      <li><strong>Low Priority:</strong> {{len .Low}}</li>
    </ul>
  </div>

  {{if .High}}
  <div style="background: #fee2e2; border-left: 4px solid #dc2626; padding: 15px; margin: 20px 0;">
    <h3 style="color: #dc2626; margin-top: 0;">HIGH PRIORITY - Immediate Action Required</h3>
    {{range .High}}
    <div style="background: white; padding: 10px; margin: 10px 0; border-radius: 4px;">
      <strong>{{.ProductName}}</strong><br>
      Current Stock: {{.CurrentStock}} | Threshold: {{.Threshold}}<br>
      Days until reorder: {{.DaysUntilReorder}}<br>
      Recommended order: {{.RecommendedOrderQuantity}} units<br>
      <em>{{.AlertMessage}}</em>
    </div>
    {{end}}
  </div>
  {{end}}

  {{if .Medium}}
  <div style="background: #fef3c7; border-left: 4px solid #d97706; padding: 15px; margin: 20px 0;">
    <h3 style="color: #d97706; margin-top: 0;">MEDIUM PRIORITY - Monitor Closely</h3>
    {{range .Medium}}
    <div style="background: white; padding: 10px; margin: 10px 0; border-radius: 4px;">
      <strong>{{.ProductName}}</strong><br>
      Current Stock: {{.CurrentStock}} | Threshold: {{.Threshold}}<br>
      Days until reorder: {{.DaysUntilReorder}}<br>
      Recommended order: {{.RecommendedOrderQuantity}} units
    </div>
    {{end}}
  </div>
  {{end}}

  <div style="background: #f0f9ff; padding: 20px; border-radius: 8px; margin: 20px 0; text-align: center;">
    <p style="margin: 0; color: #0369a1;">
      <strong>Generated by the Smart Inventory System</strong><br>
      This alert was generated from current stock levels.
    </p>
  </div>

  <div style="text-align: center; margin-top: 30px; color: #6b7280; font-size: 12px;">
    <p>This is an automated message from your Smart Inventory System.</p>
    <p>Please take appropriate action to maintain optimal stock levels.</p>
  </div>
</div>
`))

type emailData struct {
	Total  int
	High   []domain.ReorderAlert
	Medium []domain.ReorderAlert
	Low    []domain.ReorderAlert
}

// EmailSubject builds the subject line for a reorder alert email.
func EmailSubject(alerts []domain.ReorderAlert) string {
	return fmt.Sprintf("Inventory Reorder Alert - %d items need attention", len(alerts))
}

// EmailBody renders the HTML body of a reorder alert email, bucketed by
// priority.
func EmailBody(alerts []domain.ReorderAlert) (string, error) {
	data := emailData{Total: len(alerts)}
	for _, a := range alerts {
		switch a.RiskLevel {
		case "high":
			data.High = append(data.High, a)
		case "medium":
			data.Medium = append(data.Medium, a)
		default:
			data.Low = append(data.Low, a)
		}
	}
	var buf bytes.Buffer
	if err := emailTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render reorder email: %w", err)
	}
	return buf.String(), nil
}
