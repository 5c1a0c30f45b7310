// Command lbctl inspects and loads the compliance property store from the
// terminal: due-now queue, exceptions, milestones, penalties, imports and
// demo seeding. Every listing prints a table, or JSON with --json.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/landbank/compliance-engine/config"
	"github.com/landbank/compliance-engine/generic"
	"github.com/landbank/compliance-engine/logging"
	"github.com/landbank/compliance-engine/store"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// cli carries the resolved settings and output writer for every command.
type cli struct {
	v          *viper.Viper
	out        io.Writer
	configFile string
	logger     *slog.Logger
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{v: config.New(), out: out}

	root := &cobra.Command{
		Use:   "lbctl",
		Short: "Land-bank compliance CLI",
		Long: `lbctl reads the same property store as the compliance server.

- due-now: prioritized queue of properties staff should act on
- exceptions: properties with data-quality defects
- milestones, penalty, rules: preview the rule table without a store
- import, export, seed: move properties in and out of the store
- runs, snapshot: recorded due-now snapshots`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configFile, "config", "", "YAML config file")
	pf.String("store", config.StoreSQLite, "store backend (sqlite|postgres|memory)")
	pf.String("sqlite-path", "./data/landbank.db", "SQLite database path")
	pf.String("database-url", "", "Postgres DSN")
	pf.Bool("json", false, "output JSON")
	pf.Bool("verbose", false, "log to stderr")
	for _, name := range []string{"store", "sqlite-path", "database-url", "json", "verbose"} {
		_ = c.v.BindPFlag(strings.ReplaceAll(name, "-", "_"), pf.Lookup(name))
	}

	root.AddCommand(
		c.dueNowCmd(),
		c.exceptionsCmd(),
		c.milestonesCmd(),
		c.penaltyCmd(),
		c.rulesCmd(),
		c.importCmd(),
		c.exportCmd(),
		c.seedCmd(),
		c.runsCmd(),
		c.snapshotCmd(),
	)
	return root
}

// openStore resolves config and opens the configured backend.
func (c *cli) openStore(ctx context.Context) (store.Backend, error) {
	cfg, err := config.Load(c.v, c.configFile)
	if err != nil {
		return nil, err
	}
	c.logger = logging.Discard()
	if c.v.GetBool("verbose") {
		c.logger = logging.New(os.Stderr, true)
	}
	return store.Open(ctx, cfg)
}

func (c *cli) jsonOutput() bool {
	return c.v.GetBool("json")
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) newTable(header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(c.out)
	tw.AppendHeader(header)
	return tw
}

// parseAsOf reads --as-of, defaulting to today.
func parseAsOf(raw string) (generic.TimePoint, error) {
	if raw == "" {
		return generic.Today(), nil
	}
	return generic.ParseDate(raw)
}

func dateCell(tp *generic.TimePoint) string {
	if tp == nil {
		return "-"
	}
	return tp.String()
}
