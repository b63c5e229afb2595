package emitter

import (
	"encoding/csv"
	"io"

	"orderscan/internal/orders"
)

// CSV streams rows as they arrive, every row is flushed before Write returns.
type CSV struct {
	writer    *csv.Writer
	formatter *formatter
	started   bool
}

func NewCSV(w io.Writer, opts Options) *CSV {
	return &CSV{
		writer:    csv.NewWriter(w),
		formatter: newFormatter(opts),
	}
}

func (c *CSV) Write(item orders.Item) error {
	if !c.started {
		err := c.writer.Write(c.formatter.header())
		if err != nil {
			return err
		}
		c.started = true
	}

	err := c.writer.Write(c.formatter.row(item))
	if err != nil {
		return err
	}
	c.writer.Flush()
	return c.writer.Error()
}

func (c *CSV) Close() error {
	c.writer.Flush()
	return c.writer.Error()
}
