package export

import (
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/use-agent/buzzexport/models"
)

// mdConverter is goroutine-safe and shared by all Markdown calls.
var mdConverter = newMarkdownConverter()

// newMarkdownConverter creates a Converter with table support. Minimal cell
// padding keeps rows short when course names are long.
func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
}

var tableHeader = []string{
	"Course", "Start", "End", "Score %", "Progress %", "Completed", "Total", "Left",
}

// Markdown renders a Ready outcome as a heading, a provenance line and one
// table row per course. Absent fields are left blank.
func Markdown(o models.Outcome) (string, error) {
	if !o.IsReady() {
		return "", models.NewExportError(models.ErrCodeNotReady, "Not ready: "+string(o.Reason()), nil)
	}
	out, err := mdConverter.ConvertString(tableHTML(o))
	if err != nil {
		return "", models.NewExportError(models.ErrCodeExport, "failed to convert to markdown", err)
	}
	return strings.TrimSpace(out) + "\n", nil
}

func tableHTML(o models.Outcome) string {
	var b strings.Builder
	b.WriteString("<h1>Gradebook progress</h1>")
	b.WriteString("<p>Scraped ")
	b.WriteString(html.EscapeString(o.ScrapedAt().Format(time.RFC3339)))
	b.WriteString(" from ")
	b.WriteString(html.EscapeString(o.SourceURL()))
	b.WriteString("</p><table><thead><tr>")
	for _, h := range tableHeader {
		b.WriteString("<th>" + h + "</th>")
	}
	b.WriteString("</tr></thead><tbody>")
	for _, c := range o.Courses() {
		b.WriteString("<tr>")
		for _, cell := range row(c) {
			b.WriteString("<td>" + html.EscapeString(cell) + "</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>")
	return b.String()
}

func row(c models.CourseRecord) []string {
	cells := []string{c.Course, str(c.StartDate), str(c.EndDate), num(c.ScorePercent), num(c.ProgressPercent), "", "", ""}
	if a := c.Assignments; a != nil {
		cells[5] = strconv.Itoa(a.Completed)
		cells[6] = strconv.Itoa(a.Total)
		cells[7] = strconv.Itoa(a.Left)
	}
	return cells
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func num(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
