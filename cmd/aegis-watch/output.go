package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	labelColor   = color.New(color.FgCyan)
)

func success(w io.Writer, format string, a ...any) {
	successColor.Fprintf(w, "✓ "+format+"\n", a...)
}

func failure(w io.Writer, format string, a ...any) {
	errorColor.Fprintf(w, "✗ "+format+"\n", a...)
}

func label(s string) string {
	return labelColor.Sprint(s)
}

func kv(w io.Writer, key string, v float64) {
	fmt.Fprintf(w, " %s=%.0f", label(key), v)
}
