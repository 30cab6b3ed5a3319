package main

import (
	"io"

	"github.com/fatih/color"
	"github.com/k0kubun/pp/v3"
)

func newPrinter(w io.Writer) *pp.PrettyPrinter {
	printer := pp.New()
	printer.SetOutput(w)
	printer.SetColoringEnabled(!color.NoColor)
	return printer
}
