package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/Gii4667/twig/internal/engine"
	"github.com/Gii4667/twig/internal/style"
)

// stdoutIsTTY reports whether styled output is appropriate.
func stdoutIsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// render applies a style only when writing to a terminal.
func render(s interface{ Render(...string) string }, text string) string {
	if !stdoutIsTTY() {
		return text
	}
	return s.Render(text)
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printReport writes a human-readable pass report.
func printReport(w io.Writer, report *engine.Report) {
	if report.DryRun {
		if report.Plan.Empty() {
			fmt.Fprintln(w, "Nothing to do; sessions are in sync.")
		} else {
			fmt.Fprintln(w, render(style.Bold, "Planned actions:"))
			for _, a := range report.Plan.Actions() {
				fmt.Fprintf(w, "  %s\n", a)
			}
		}
	} else if len(report.Results) == 0 {
		fmt.Fprintln(w, "Nothing to do; sessions are in sync.")
	} else {
		for _, res := range report.Results {
			switch {
			case res.Skipped:
				fmt.Fprintf(w, "  %s %s\n", render(style.Dim, "skip"), res.Action)
			case res.Error != "":
				fmt.Fprintf(w, "  %s %s: %s\n", render(style.Error, "fail"), res.Action, res.Error)
			case res.Adopted:
				fmt.Fprintf(w, "  %s %s\n", render(style.Success, "ok"), res.Action.String()+" (adopted existing session)")
			default:
				fmt.Fprintf(w, "  %s %s\n", render(style.Success, "ok"), res.Action)
			}
		}
	}

	for _, warn := range report.Warnings {
		fmt.Fprintf(w, "%s %s\n", render(style.Warning, "warning:"), warn.Message)
	}
	if report.SaveErr != "" {
		fmt.Fprintf(w, "%s state not saved: %s\n", render(style.Warning, "warning:"), report.SaveErr)
	}
}
