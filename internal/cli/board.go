package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/repokit/pkg/models"
)

type boardModel struct {
	activeCol int
	width     int
	height    int

	columns map[models.TaskStatus][]models.Task

	loading bool
	err     error
}

// boardLoadedMsg carries loaded plan data back to the model.
type boardLoadedMsg struct {
	columns map[models.TaskStatus][]models.Task
	err     error
}

var (
	boardTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	boardColStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	boardActiveColStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	boardHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("62")).
				MarginBottom(1)

	statusPendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusQueuedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	statusWorkingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	statusTestingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
	statusAcceptingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	statusFinishedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))

	boardHelpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newBoardModel() boardModel {
	return boardModel{
		loading: true,
		columns: make(map[models.TaskStatus][]models.Task),
	}
}

func (m boardModel) Init() tea.Cmd {
	return loadBoard
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab", "right", "l":
			m.activeCol = (m.activeCol + 1) % len(models.AllStatuses)
			return m, nil
		case "shift+tab", "left", "h":
			m.activeCol = (m.activeCol - 1 + len(models.AllStatuses)) % len(models.AllStatuses)
			return m, nil
		case "r":
			m.loading = true
			return m, loadBoard
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case boardLoadedMsg:
		m.loading = false
		m.columns = msg.columns
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m boardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := boardTitleStyle.Render(" Plan Board ")
	help := boardHelpStyle.Render("tab: switch column | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading plan...\n\n%s", title, help)
	}
	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	availableWidth := m.width - 2
	cols := make([]string, 0, len(models.AllStatuses))
	if availableWidth > 150 {
		colWidth := availableWidth/len(models.AllStatuses) - 4
		if colWidth < 18 {
			colWidth = 18
		}
		for i, status := range models.AllStatuses {
			cols = append(cols, m.applyColStyle(i, m.renderColumn(status), colWidth))
		}
		return fmt.Sprintf("%s\n\n%s\n\n%s", title,
			lipgloss.JoinHorizontal(lipgloss.Top, cols...), help)
	}

	colWidth := availableWidth - 4
	if colWidth < 20 {
		colWidth = 20
	}
	for i, status := range models.AllStatuses {
		cols = append(cols, m.applyColStyle(i, m.renderColumn(status), colWidth))
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", title,
		lipgloss.JoinVertical(lipgloss.Left, cols...), help)
}

func (m boardModel) applyColStyle(col int, content string, width int) string {
	style := boardColStyle
	if m.activeCol == col {
		style = boardActiveColStyle
	}
	return style.Width(width).Render(content)
}

func (m boardModel) renderColumn(status models.TaskStatus) string {
	var b strings.Builder
	tasks := m.columns[status]
	header := fmt.Sprintf("%s (%d)", status, len(tasks))
	b.WriteString(boardHeaderStyle.Render(header))
	b.WriteString("\n")

	if len(tasks) == 0 {
		b.WriteString("  -")
		return b.String()
	}
	style := styleForStatus(status)
	for _, t := range tasks {
		title := t.Title
		if title == "" {
			title = "(untitled)"
		}
		b.WriteString(style.Render(fmt.Sprintf("  %s %s", t.ID, title)))
		b.WriteString("\n")
	}
	return b.String()
}

func styleForStatus(status models.TaskStatus) lipgloss.Style {
	switch status {
	case models.StatusPendingReview:
		return statusPendingStyle
	case models.StatusQueued:
		return statusQueuedStyle
	case models.StatusWorking:
		return statusWorkingStyle
	case models.StatusTesting:
		return statusTestingStyle
	case models.StatusUnderAcceptance:
		return statusAcceptingStyle
	case models.StatusFinished:
		return statusFinishedStyle
	default:
		return lipgloss.NewStyle()
	}
}

func loadBoard() tea.Msg {
	result := boardLoadedMsg{columns: make(map[models.TaskStatus][]models.Task)}
	if Plan == nil {
		result.err = fmt.Errorf("plan manager not initialized")
		return result
	}
	tasks, err := Plan.ListTasks("")
	if err != nil {
		result.err = fmt.Errorf("loading plan: %w", err)
		return result
	}
	for _, t := range tasks {
		result.columns[t.Status] = append(result.columns[t.Status], t)
	}
	return result
}

var planBoardCmd = &cobra.Command{
	Use:   "board",
	Short: "Interactive TUI board of tasks by status",
	Long: `Launch a read-only terminal board showing plan tasks grouped into
lifecycle columns.

Navigate between columns with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Plan == nil {
			return fmt.Errorf("plan manager not initialized")
		}
		p := tea.NewProgram(newBoardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	planCmd.AddCommand(planBoardCmd)
}
