package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/martiniano/crm-console/internal/domain"
)

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

var (
	colorMuted  lipgloss.TerminalColor = ac("240", "243")
	colorBorder lipgloss.TerminalColor = ac("250", "240")
	colorAlert  lipgloss.TerminalColor = ac("160", "203")
	colorOK     lipgloss.TerminalColor = ac("28", "78")

	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Bold(true).Width(14)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	alertStyle  = lipgloss.NewStyle().Foreground(colorAlert).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(colorOK).Bold(true)
	titleStyle  = lipgloss.NewStyle().Bold(true).MarginBottom(1)
)

var stageColors = map[domain.Stage]lipgloss.TerminalColor{
	domain.StageNew:         ac("27", "75"),
	domain.StageContacted:   ac("30", "80"),
	domain.StageQualified:   ac("91", "141"),
	domain.StageProposal:    ac("130", "214"),
	domain.StageNegotiation: ac("166", "209"),
	domain.StageWon:         ac("28", "78"),
	domain.StageLost:        ac("160", "203"),
}

func stageStyle(s domain.Stage) lipgloss.Style {
	st := lipgloss.NewStyle()
	if c, ok := stageColors[s]; ok {
		st = st.Foreground(c)
	}
	return st
}

// renderTable draws rows under headers. colour, when set, styles a body cell.
func renderTable(headers []string, rows [][]string, colour func(row, col int) (lipgloss.Style, bool)) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if colour != nil {
				if st, ok := colour(row, col); ok {
					return st.Padding(0, 1)
				}
			}
			return cellStyle
		}).
		String()
}

func renderLeads(leads []domain.Lead) string {
	rows := make([][]string, 0, len(leads))
	for _, l := range leads {
		rows = append(rows, []string{
			strconv.FormatInt(l.ID, 10),
			l.Name,
			l.Email,
			l.Company,
			l.Stage.Label(),
			formatDate(l.CreatedAt),
		})
	}
	return renderTable(
		[]string{"ID", "Name", "Email", "Company", "Stage", "Created"},
		rows,
		func(row, col int) (lipgloss.Style, bool) {
			if col != 4 || row >= len(leads) {
				return lipgloss.Style{}, false
			}
			return stageStyle(leads[row].Stage), true
		},
	)
}

func renderLead(l domain.Lead) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Lead #%d", l.ID)))
	b.WriteString("\n")
	field := func(label, value string) {
		if value == "" {
			value = mutedStyle.Render("-")
		}
		b.WriteString(labelStyle.Render(label) + value + "\n")
	}
	field("Name", l.Name)
	field("Email", l.Email)
	field("Phone", l.Phone)
	field("Company", l.Company)
	field("Budget", l.BudgetRange)
	field("Project type", l.ProjectType)
	field("Stage", stageStyle(l.Stage).Render(l.Stage.Label()))
	field("Source", l.Source)
	field("Created", formatDate(l.CreatedAt))
	field("Updated", formatDate(l.UpdatedAt))
	b.WriteString("\n" + l.Message + "\n")
	return b.String()
}

func renderClients(clients []domain.Client) string {
	rows := make([][]string, 0, len(clients))
	for _, c := range clients {
		rows = append(rows, []string{strconv.FormatInt(c.ID, 10), c.Name, c.Email, c.Phone, c.Company})
	}
	return renderTable([]string{"ID", "Name", "Email", "Phone", "Company"}, rows, nil)
}

func renderProjects(projects []domain.Project) string {
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		progress := "-"
		if p.Progress != nil {
			progress = fmt.Sprintf("%d%%", *p.Progress)
		}
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			p.Client,
			p.Status.Label(),
			formatDate(p.StartDate),
			progress,
		})
	}
	return renderTable([]string{"ID", "Name", "Client", "Status", "Start", "Progress"}, rows, nil)
}

const barWidth = 30

func renderDashboard(snap domain.DashboardSnapshot, percent func(domain.Stage) float64) string {
	var b strings.Builder
	k := snap.KPIs
	b.WriteString(renderTable(
		[]string{"Total leads", "Active clients", "Active projects", "Conversion"},
		[][]string{{
			strconv.Itoa(k.TotalLeads),
			strconv.Itoa(k.ActiveClients),
			strconv.Itoa(k.ActiveProjects),
			fmt.Sprintf("%.1f%%", k.ConversionRate),
		}},
		nil,
	))
	b.WriteString("\n\n")
	b.WriteString(titleStyle.Render("Leads by stage"))
	b.WriteString("\n")
	for _, row := range snap.LeadsByStage {
		pct := percent(row.Stage)
		filled := min(int(pct/100*barWidth), barWidth)
		bar := stageStyle(row.Stage).Render(strings.Repeat("█", filled)) +
			mutedStyle.Render(strings.Repeat("░", barWidth-filled))
		b.WriteString(fmt.Sprintf("%s%s %d\n", labelStyle.Render(row.Stage.Label()), bar, row.Count))
	}
	return b.String()
}

func formatDate(t domain.Timestamp) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}
