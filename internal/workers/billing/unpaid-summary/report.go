package unpaidsummary

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"parking-jobs/internal/models"
)

const missing = "--"

var reportTemplate = template.Must(template.New("unpaid").Parse(`現在有{{.Count}}個月租客還沒付{{.Month}}月的租金：<br/>
{{- range .Sections}}
<h3>{{.CarparkName}}車場沒付款的客：</h3>
<table width="100%">
<tr><th width="10%" style="border: 1px solid;">用戶ID</th><th width="10%" style="border: 1px solid;">月租ID</th><th width="10%" style="border: 1px solid;">姓名</th><th width="10%" style="border: 1px solid;">車牌</th><th width="20%" style="border: 1px solid;">手機</th><th width="20%" style="border: 1px solid;">郵箱</th><th width="10%" style="border: 1px solid;">租金</th><th width="10%" style="border: 1px solid;">付款方式</th></tr>
{{- range .Rows}}
<tr><td style="border: 1px solid;">{{.UserID}}</td><td style="border: 1px solid;">{{.RentalID}}</td><td style="border: 1px solid;">{{.Name}}</td><td style="border: 1px solid;">{{.License}}</td><td style="border: 1px solid;">{{.Mobile}}</td><td style="border: 1px solid;">{{.Email}}</td><td style="border: 1px solid;">{{.Rate}}</td><td style="border: 1px solid;">{{.PaymentMethod}}</td></tr>
{{- end}}
</table>
{{- end}}
<br/><br/><br/><br/><br/>`))

type report struct {
	Count    int
	Month    int
	Sections []Section
}

func orDash(v string) string {
	if v == "" {
		return missing
	}
	return v
}

func toRow(c models.SummaryContact) Row {
	return Row{
		UserID:        c.UserID,
		RentalID:      c.RentalID,
		Name:          orDash(c.Name.String),
		License:       orDash(c.License.String),
		Mobile:        c.Mobile,
		Email:         orDash(c.Email.String),
		Rate:          "$" + c.Rate().StringFixed(2),
		PaymentMethod: orDash(c.PaymentMethodName.String),
	}
}

// group keeps the input order and starts a new section whenever the carpark
// name changes.
func group(contacts []models.SummaryContact) []Section {
	var sections []Section
	for _, c := range contacts {
		if n := len(sections); n == 0 || sections[n-1].CarparkName != c.CarparkName {
			sections = append(sections, Section{CarparkName: c.CarparkName})
		}
		last := &sections[len(sections)-1]
		last.Rows = append(last.Rows, toRow(c))
	}
	return sections
}

func renderReport(contacts []models.SummaryContact, month time.Time) (string, error) {
	var buf bytes.Buffer
	err := reportTemplate.Execute(&buf, report{
		Count:    len(contacts),
		Month:    int(month.Month()),
		Sections: group(contacts),
	})
	if err != nil {
		return "", fmt.Errorf("render unpaid summary: %w", err)
	}
	return buf.String(), nil
}

func subject(month time.Time) string {
	return fmt.Sprintf("沒有支付%s租金的月租客", month.Format("2006年01月"))
}
