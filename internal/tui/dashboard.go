// Package tui renders the live engine dashboard.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/swarm/internal/orchestrator"
	"github.com/ShayCichocki/swarm/pkg/models"
)

// Engine is the slice of the orchestrator the dashboard needs.
type Engine interface {
	Dashboard() (orchestrator.DashboardStats, error)
	List(filter models.JobFilter) ([]models.JobSummary, error)
	Kill(jobID string) error
}

// tickMsg drives the poll loop.
type tickMsg time.Time

// refreshMsg carries a freshly polled snapshot.
type refreshMsg struct {
	stats orchestrator.DashboardStats
	jobs  []models.JobSummary
	err   error
}

// Dashboard is the bubbletea model for the live engine view. It polls the
// engine on a fixed interval; it never holds references to running jobs.
type Dashboard struct {
	engine   Engine
	interval time.Duration

	table    table.Model
	stats    orchestrator.DashboardStats
	jobs     []models.JobSummary
	lastErr  error
	width    int
	height   int
	quitting bool

	titleStyle  lipgloss.Style
	labelStyle  lipgloss.Style
	valueStyle  lipgloss.Style
	errStyle    lipgloss.Style
	footerStyle lipgloss.Style
	gaugeFull   lipgloss.Style
	gaugeEmpty  lipgloss.Style
}

// NewDashboard creates a dashboard polling the engine at the given interval.
func NewDashboard(engine Engine, interval time.Duration) *Dashboard {
	if interval <= 0 {
		interval = time.Second
	}

	columns := []table.Column{
		{Title: "ID", Width: 10},
		{Title: "DEPTH", Width: 5},
		{Title: "MODE", Width: 13},
		{Title: "STATUS", Width: 13},
		{Title: "ELAPSED", Width: 9},
		{Title: "TASK", Width: 44},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(styles)

	return &Dashboard{
		engine:   engine,
		interval: interval,
		table:    t,

		titleStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4")).
			Bold(true),
		labelStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
		valueStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true),
		errStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
		footerStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")),
		gaugeFull: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96E6A1")),
		gaugeEmpty: lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")),
	}
}

// Init implements tea.Model.
func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(d.poll(), d.tick())
}

func (d *Dashboard) tick() tea.Cmd {
	return tea.Tick(d.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (d *Dashboard) poll() tea.Cmd {
	engine := d.engine
	return func() tea.Msg {
		stats, err := engine.Dashboard()
		if err != nil {
			return refreshMsg{err: err}
		}
		jobs, err := engine.List(models.MatchAll())
		return refreshMsg{stats: stats, jobs: jobs, err: err}
	}
}

// Update implements tea.Model.
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			d.quitting = true
			return d, tea.Quit
		case "r":
			return d, d.poll()
		case "k":
			if row := d.table.SelectedRow(); row != nil {
				if err := d.engine.Kill(row[0]); err != nil {
					d.lastErr = err
				}
				return d, d.poll()
			}
		}

	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		d.table.SetHeight(max(4, msg.Height-14))

	case tickMsg:
		return d, tea.Batch(d.poll(), d.tick())

	case refreshMsg:
		d.lastErr = msg.err
		if msg.err == nil {
			d.stats = msg.stats
			d.jobs = msg.jobs
			d.table.SetRows(jobRows(msg.jobs))
		}
		return d, nil
	}

	var cmd tea.Cmd
	d.table, cmd = d.table.Update(msg)
	return d, cmd
}

// View implements tea.Model.
func (d *Dashboard) View() string {
	if d.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(d.titleStyle.Render("swarm dashboard"))
	b.WriteString("\n\n")
	b.WriteString(d.renderStats())
	b.WriteString("\n")
	b.WriteString(d.table.View())
	b.WriteString("\n")
	if d.lastErr != nil {
		b.WriteString(d.errStyle.Render("error: " + d.lastErr.Error()))
		b.WriteString("\n")
	}
	b.WriteString(d.footerStyle.Render("q quit · k kill selected · r refresh"))
	return b.String()
}

func (d *Dashboard) renderStats() string {
	var b strings.Builder

	counts := d.stats.StatusCounts
	b.WriteString(fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  %s %s\n",
		d.labelStyle.Render("running"),
		d.valueStyle.Render(fmt.Sprintf("%d", counts[models.JobStatusRunning])),
		d.labelStyle.Render("pending"),
		d.valueStyle.Render(fmt.Sprintf("%d", counts[models.JobStatusPending])),
		d.labelStyle.Render("checkpointed"),
		d.valueStyle.Render(fmt.Sprintf("%d", counts[models.JobStatusCheckpointed])),
		d.labelStyle.Render("workers"),
		d.valueStyle.Render(fmt.Sprintf("%d", d.stats.ActiveWorkers)),
		d.labelStyle.Render("error rate"),
		d.valueStyle.Render(fmt.Sprintf("%.0f%%", d.stats.ErrorRate*100)),
	))

	for _, tier := range d.stats.PerDepth {
		line := fmt.Sprintf("%s %s %s",
			d.labelStyle.Render(fmt.Sprintf("depth %d", tier.Depth)),
			d.renderGauge(tier.InUse, tier.Budget),
			d.valueStyle.Render(fmt.Sprintf("%d/%d", tier.InUse, tier.Budget)),
		)
		if tier.Queued > 0 {
			line += " " + d.labelStyle.Render(fmt.Sprintf("(%d queued)", tier.Queued))
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// renderGauge draws a fixed-width slot utilization bar.
func (d *Dashboard) renderGauge(inUse, budget int) string {
	const width = 20
	filled := 0
	if budget > 0 {
		filled = inUse * width / budget
		if filled > width {
			filled = width
		}
	}
	return d.gaugeFull.Render(strings.Repeat("█", filled)) +
		d.gaugeEmpty.Render(strings.Repeat("░", width-filled))
}

func jobRows(jobs []models.JobSummary) []table.Row {
	rows := make([]table.Row, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, table.Row{
			j.ID,
			fmt.Sprintf("%d", j.Depth),
			string(j.Mode),
			string(j.Status),
			j.Elapsed.Truncate(time.Second).String(),
			truncate(j.Task, 44),
		})
	}
	return rows
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}

// Run starts the dashboard in the alternate screen until the user quits.
func Run(engine Engine, interval time.Duration) error {
	program := tea.NewProgram(NewDashboard(engine, interval), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

// Snapshot renders one dashboard frame as plain text, for non-interactive
// use. It polls the engine once and does not start a program.
func Snapshot(engine Engine) (string, error) {
	d := NewDashboard(engine, time.Second)
	stats, err := engine.Dashboard()
	if err != nil {
		return "", err
	}
	jobs, err := engine.List(models.MatchAll())
	if err != nil {
		return "", err
	}
	d.stats = stats
	d.jobs = jobs
	d.table.SetRows(jobRows(jobs))
	return d.View(), nil
}
