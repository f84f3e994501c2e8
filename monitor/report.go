package monitor

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tnc-ca-geo/SAGE/backend"
)

const reportTimeFormat = "2006-01-02 15:04:05"

// WriteReport renders snap in the operator-facing text format: per-state
// counts, the elapsed time of every RUNNING task, the remote message of
// every FAILED task and, if listCompleted is set, the names of COMPLETED
// tasks.
func WriteReport(w io.Writer, snap *Snapshot, listCompleted bool) error {
	bw := bufio.NewWriter(w)
	now := snap.TakenAt.Format(reportTimeFormat)

	if snap.Credential != "" {
		fmt.Fprintf(bw, "credential %s\n", snap.Credential)
	}
	for _, state := range backend.States {
		fmt.Fprintf(bw, "%d tasks %s %s\n", snap.Count(state), strings.ToLower(string(state)), now)
	}

	if running := snap.ByState[backend.StateRunning]; len(running) != 0 {
		fmt.Fprintln(bw, "Running names:")
		for _, task := range running {
			fmt.Fprintf(bw, "  %s %s\n", task.Description, FormatElapsed(snap.TakenAt.Sub(task.StartedAt)))
		}
	}
	if failed := snap.ByState[backend.StateFailed]; len(failed) != 0 {
		fmt.Fprintln(bw, "Failed names:")
		for _, task := range failed {
			fmt.Fprintf(bw, "  %s: %s\n", task.Description, task.ErrorMessage)
		}
	}
	if completed := snap.ByState[backend.StateCompleted]; listCompleted && len(completed) != 0 {
		fmt.Fprintln(bw, "Completed names:")
		for _, task := range completed {
			fmt.Fprintf(bw, "  %s\n", task.Description)
		}
	}
	fmt.Fprintln(bw)

	return bw.Flush()
}

// FormatElapsed renders d as H:MM:SS. Hours are not wrapped into days and
// negative durations render as 0:00:00.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}
