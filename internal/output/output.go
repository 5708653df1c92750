// Package output prints user-facing messages for the CLI.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

type OutputFormat struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func Success(w io.Writer, message string, args ...any) {
	fmt.Fprintf(w, "uccookie: "+message+"\n", args...)
}

func Error(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %s\n", err)
}

func Warning(w io.Writer, message string, args ...any) {
	fmt.Fprintf(w, "warning: "+message+"\n", args...)
}

func JSON(w io.Writer, data any) error {
	return json.NewEncoder(w).Encode(OutputFormat{
		Status: "success",
		Data:   data,
	})
}

func JSONError(w io.Writer, err error) error {
	return json.NewEncoder(w).Encode(OutputFormat{
		Status:  "error",
		Message: err.Error(),
	})
}

// Table prints rows as left-aligned columns separated by two spaces. The
// last column is not padded.
func Table(w io.Writer, data [][]string) {
	if len(data) == 0 {
		return
	}

	var widths []int
	for _, row := range data {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], len(cell))
		}
	}

	var sb strings.Builder
	for _, row := range data {
		sb.Reset()
		for i, cell := range row {
			if i == len(row)-1 {
				sb.WriteString(cell)
				break
			}
			fmt.Fprintf(&sb, "%-*s  ", widths[i], cell)
		}
		fmt.Fprintln(w, sb.String())
	}
}
