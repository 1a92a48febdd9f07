package runner

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"congressd/internal/metrics"
	"congressd/internal/models"
	"congressd/internal/traversal"
)

// State is the run's terminal state.
type State string

// Run terminal states.
const (
	StateOK        State = "ok"
	StatePartial   State = "partial"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// FamilyReport summarizes one family's outcome across its sub-windows.
type FamilyReport struct {
	Family     models.Family
	Terminal   traversal.Terminal
	Reason     string
	Err        error
	Windows    int
	LastWindow string
	LastOffset int
}

// terminalSeverity orders terminals from best to worst.
var terminalSeverity = map[traversal.Terminal]int{
	traversal.TerminalCompleted: 0,
	traversal.TerminalPartial:   1,
	traversal.TerminalFailed:    2,
	traversal.TerminalCancelled: 3,
}

// absorb folds one sub-window result into the family summary, keeping
// the worst terminal and the detail that explains it.
func (fr *FamilyReport) absorb(window models.Window, result traversal.Result) {
	fr.Windows++

	if terminalSeverity[result.Terminal] < terminalSeverity[fr.Terminal] {
		return
	}

	fr.Terminal = result.Terminal

	if result.Terminal != traversal.TerminalCompleted {
		fr.Reason = result.Reason
		fr.Err = result.Err
		fr.LastWindow = window.String()
		fr.LastOffset = result.LastOffset
	}
}

// Report is the full account of one run.
type Report struct {
	RunID      string
	Mode       models.RunMode
	State      State
	StartedAt  time.Time
	FinishedAt time.Time
	Families   map[models.Family]*FamilyReport
	Snapshots  map[models.Family]metrics.Snapshot
}

// family returns the family's report, creating it on first use.
// Callers serialize access.
func (r *Report) family(f models.Family) *FamilyReport {
	fr := r.Families[f]
	if fr == nil {
		fr = &FamilyReport{Family: f, Terminal: traversal.TerminalCompleted}
		r.Families[f] = fr
	}

	return fr
}

// Duration returns the run's wall-clock time.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Render formats the report as an aligned text table followed by a
// totals line.
func (r *Report) Render() string {
	headers := []string{"FAMILY", "STATE", "RECEIVED", "VALIDATED", "STORED", "DUPES", "REJECTED", "STORE FAIL", "RETRIES"}

	families := make([]models.Family, 0, len(r.Families))
	for f := range r.Families {
		families = append(families, f)
	}

	models.SortFamilies(families)

	rows := make([][]string, 0, len(families))

	for _, family := range families {
		fr := r.Families[family]
		snap := r.Snapshots[family]

		rows = append(rows, []string{
			string(family),
			string(fr.Terminal),
			fmt.Sprintf("%d", snap.Received),
			fmt.Sprintf("%d", snap.Validated),
			fmt.Sprintf("%d", snap.Stored),
			fmt.Sprintf("%d", snap.DuplicatesSkip),
			fmt.Sprintf("%d", snap.FailedValidation),
			fmt.Sprintf("%d", snap.FailedStore),
			fmt.Sprintf("%d", snap.Retries),
		})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder

	fmt.Fprintf(&b, "run %s  mode=%s  state=%s  duration=%s\n",
		r.RunID, r.Mode, r.State, r.Duration().Round(time.Millisecond))

	writeRow(&b, headers, widths)

	for _, row := range rows {
		writeRow(&b, row, widths)
	}

	totals := totalSnapshot(r.Snapshots)
	fmt.Fprintf(&b, "total: received=%d validated=%d stored=%d duplicates=%d rejected=%d store_failures=%d retries=%d rate_limit_waits=%d\n",
		totals.Received, totals.Validated, totals.Stored, totals.DuplicatesSkip,
		totals.FailedValidation, totals.FailedStore, totals.Retries, totals.RateLimitWaits)

	for _, family := range families {
		fr := r.Families[family]
		if fr.Terminal == traversal.TerminalCompleted {
			continue
		}

		fmt.Fprintf(&b, "%s: %s", family, fr.Terminal)

		if fr.Reason != "" {
			fmt.Fprintf(&b, " (%s)", fr.Reason)
		}

		if fr.LastWindow != "" {
			fmt.Fprintf(&b, " window=%s offset=%d", fr.LastWindow, fr.LastOffset)
		}

		if fr.Err != nil {
			fmt.Fprintf(&b, ": %v", fr.Err)
		}

		b.WriteString("\n")
	}

	return b.String()
}

func writeRow(b *strings.Builder, cells []string, widths []int) {
	for i, cell := range cells {
		if i > 0 {
			b.WriteString("  ")
		}

		b.WriteString(runewidth.FillRight(cell, widths[i]))
	}

	b.WriteString("\n")
}

func totalSnapshot(snaps map[models.Family]metrics.Snapshot) metrics.Snapshot {
	var total metrics.Snapshot

	for _, s := range snaps {
		total.Requested += s.Requested
		total.Received += s.Received
		total.Validated += s.Validated
		total.Stored += s.Stored
		total.DuplicatesSkip += s.DuplicatesSkip
		total.FailedValidation += s.FailedValidation
		total.FailedStore += s.FailedStore
		total.Retries += s.Retries
		total.RateLimitWaits += s.RateLimitWaits
	}

	return total
}
