package commands

import (
	"fmt"
	"io"
	"strings"

	"orderscan/internal/components/chrono"
	"orderscan/internal/emitter"
)

// openSink picks the output format, a database given with --db receives a copy
// of every item on top of it.
func openSink(cfg Config, out io.Writer) (emitter.Sink, error) {
	opts, err := cfg.emitterOptions()
	if err != nil {
		return nil, err
	}

	var sink emitter.Sink
	switch strings.ToLower(cfg.Format) {
	case "", "csv":
		sink = emitter.NewCSV(out, opts)
	case "table":
		sink = emitter.NewTable(out, opts)
	default:
		return nil, fmt.Errorf("unknown format \"%s\"", cfg.Format)
	}

	if cfg.Db == "" {
		return sink, nil
	}
	db, err := emitter.OpenSQLite(cfg.Db, chrono.StandardImpl{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return emitter.Multi(sink, db), nil
}
