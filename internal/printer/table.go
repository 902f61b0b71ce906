package printer

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/slok/packlaunch/internal/model"
)

// TablePrinter prints launcher information in a human readable format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintInstanceList prints instances in a table format.
func (t *TablePrinter) PrintInstanceList(instances []model.Instance) error {
	if len(instances) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header.
	fmt.Fprintln(tw, "NAME\tMODPACK\tVERSION\tINSTALLED\tCREATED")

	// Print rows.
	for _, i := range instances {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			i.Name,
			i.ModpackID,
			i.ModpackVersionID,
			orDash(i.LastKnownVersion),
			TimeAgo(i.CreatedAt),
		)
	}

	return nil
}

// PrintInstance prints detailed instance information.
func (t *TablePrinter) PrintInstance(inst model.Instance) error {
	fmt.Fprintf(t.writer, "Name:       %s\n", inst.Name)
	fmt.Fprintf(t.writer, "ID:         %s\n", inst.ID)
	fmt.Fprintf(t.writer, "Modpack:    %s\n", inst.ModpackID)
	fmt.Fprintf(t.writer, "Version:    %s\n", inst.ModpackVersionID)
	fmt.Fprintf(t.writer, "Installed:  %s\n", orDash(inst.LastKnownVersion))
	fmt.Fprintf(t.writer, "Directory:  %s\n", inst.Dir)
	fmt.Fprintf(t.writer, "Created:    %s\n", FormatTimestamp(inst.CreatedAt))

	if !inst.UpdatedAt.IsZero() {
		fmt.Fprintf(t.writer, "Updated:    %s\n", FormatTimestamp(inst.UpdatedAt))
	}

	return nil
}

// PrintDecision prints the launch pipeline selected for an instance.
func (t *TablePrinter) PrintDecision(inst model.Instance, dec model.LaunchDecision) error {
	fmt.Fprintf(t.writer, "Instance:   %s\n", inst.Name)
	fmt.Fprintf(t.writer, "Flow:       %s\n", dec.Flow)

	latest := orDash(dec.LatestVersion)
	if dec.Offline {
		latest = "unknown (offline)"
	}
	fmt.Fprintf(t.writer, "Latest:     %s\n", latest)
	fmt.Fprintf(t.writer, "Installed:  %s\n", orDash(inst.LastKnownVersion))

	stages := make([]string, 0, len(dec.Stages))
	for _, s := range dec.Stages {
		stages = append(stages, string(s))
	}
	fmt.Fprintf(t.writer, "Stages:     %s\n", strings.Join(stages, ", "))

	return nil
}

// PrintTask prints a single progress line of a task.
func (t *TablePrinter) PrintTask(rec model.TaskRecord, description string) error {
	fmt.Fprintf(t.writer, "%s %-9s %s\n", FormatProgress(rec.Progress), rec.Status, description)
	return nil
}

// PrintProcessing prints a single line of a modpack processing state.
func (t *TablePrinter) PrintProcessing(state model.ProcessingState) error {
	switch {
	case state.HasError():
		fmt.Fprintf(t.writer, "%s failed    %s\n", FormatProgress(state.Percent), state.Error)
	case state.IsCompleted:
		fmt.Fprintf(t.writer, "%s completed %s\n", FormatProgress(state.Percent), state.StatusMessage)
	case state.Category != "":
		fmt.Fprintf(t.writer, "%s running   [%s] %s\n", FormatProgress(state.Percent), state.Category, state.StatusMessage)
	default:
		fmt.Fprintf(t.writer, "%s running   %s\n", FormatProgress(state.Percent), state.StatusMessage)
	}

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
