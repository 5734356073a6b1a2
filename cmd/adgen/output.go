package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "✓ "+format+"\n", args...)
}

func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "• "+format+"\n", args...)
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "! "+format+"\n", args...)
}

func printError(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "✗ "+format+"\n", args...)
}

// writeTable prints rows under header as aligned columns.
func writeTable(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
