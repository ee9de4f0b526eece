package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"jordanella.com/botty-go/internal/database"
)

// HistoryTab shows per-run success rates, node statistics and recent errors
// from the database
type HistoryTab struct {
	db *database.DB

	runs   *widget.Label
	nodes  *widget.Label
	errors *widget.Label
}

// NewHistoryTab creates the history view. db may be nil.
func NewHistoryTab(db *database.DB) *HistoryTab {
	return &HistoryTab{db: db}
}

// Build constructs the history view
func (t *HistoryTab) Build() fyne.CanvasObject {
	header := widget.NewLabelWithStyle("History", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	t.runs = widget.NewLabel("")
	t.nodes = widget.NewLabel("")
	t.errors = widget.NewLabel("")
	t.errors.Wrapping = fyne.TextWrapWord

	refreshBtn := widget.NewButton("Refresh", t.refresh)
	t.refresh()

	body := container.NewVBox(
		widget.NewCard("Runs", "", t.runs),
		widget.NewCard("Nodes", "", t.nodes),
		widget.NewCard("Recent errors", "", t.errors),
	)
	return container.NewBorder(container.NewHBox(header, refreshBtn), nil, nil, nil, container.NewVScroll(body))
}

func (t *HistoryTab) refresh() {
	if t.runs == nil {
		return
	}
	if t.db == nil {
		t.runs.SetText("No database configured")
		t.nodes.SetText("")
		t.errors.SetText("")
		return
	}
	t.runs.SetText(t.runSummary())
	t.nodes.SetText(t.nodeSummary())
	t.errors.SetText(t.errorSummary())
}

func (t *HistoryTab) runSummary() string {
	stats, err := t.db.RunStats("")
	if err != nil {
		return fmt.Sprintf("Failed to load runs: %v", err)
	}
	return formatRunStats(stats)
}

func formatRunStats(stats []database.RunStats) string {
	if len(stats) == 0 {
		return "No runs yet"
	}
	var out string
	for _, s := range stats {
		out += fmt.Sprintf("%-16s %4d runs  %5.1f%% ok  avg %.1fs\n",
			s.Name, s.Total, s.SuccessRate(), s.AvgDurationMs/1000)
	}
	return out
}

func (t *HistoryTab) nodeSummary() string {
	stats, err := t.db.NodeStats()
	if err != nil {
		return fmt.Sprintf("Failed to load nodes: %v", err)
	}
	if len(stats) == 0 {
		return "No traversals yet"
	}
	var out string
	for _, s := range stats {
		out += fmt.Sprintf("node %-6d %4d/%-4d reached  %.1f attempts\n", s.NodeID, s.Reached, s.Traversals, s.AvgAttempts)
	}
	return out
}

func (t *HistoryTab) errorSummary() string {
	logs, err := t.db.GetRecentErrors(20)
	if err != nil {
		return fmt.Sprintf("Failed to load errors: %v", err)
	}
	if len(logs) == 0 {
		return "No errors"
	}
	var out string
	for _, e := range logs {
		out += fmt.Sprintf("%s  %s/%s  %s\n", e.OccurredAt.Format("01-02 15:04:05"), e.ErrorType, e.ErrorAction, e.ErrorMessage)
	}
	return out
}
