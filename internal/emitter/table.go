package emitter

import (
	"io"

	"orderscan/internal/orders"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Table renders a human readable table once closed. Unlike CSV, it holds every
// row in memory until then. Without any rows nothing is rendered.
type Table struct {
	table     table.Writer
	formatter *formatter
	rows      int
	closed    bool
}

func NewTable(w io.Writer, opts Options) *Table {
	f := newFormatter(opts)

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)

	header := table.Row{}
	for _, cell := range f.header() {
		header = append(header, cell)
	}
	t.AppendHeader(header)

	return &Table{table: t, formatter: f}
}

func (t *Table) Write(item orders.Item) error {
	row := table.Row{}
	for _, cell := range t.formatter.row(item) {
		row = append(row, cell)
	}
	t.table.AppendRow(row)
	t.rows++
	return nil
}

func (t *Table) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	if t.rows == 0 {
		return nil
	}
	t.table.Render()
	return nil
}
