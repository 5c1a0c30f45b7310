package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/landbank/compliance-engine/api"
	"github.com/landbank/compliance-engine/compliance"
	"github.com/landbank/compliance-engine/factory"
	"github.com/landbank/compliance-engine/generic"
)

// =============================================================================
// QUEUES
// =============================================================================

func (c *cli) dueNowCmd() *cobra.Command {
	var program, asOf string
	var dueOnly bool
	cmd := &cobra.Command{
		Use:   "due-now",
		Short: "Show the due-now queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			today, err := parseAsOf(asOf)
			if err != nil {
				return err
			}
			b, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			if program != "" {
				program = string(factory.ParseProgram(program))
			}
			res, err := compliance.NewService(b, c.logger).DueNow(cmd.Context(), compliance.DueNowOptions{
				Program: program, DueOnly: dueOnly, Today: today,
			})
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				return c.printJSON(res)
			}

			tw := c.newTable(table.Row{"ID", "Parcel", "Program", "Action", "Due", "Days Overdue", "Due Now", "Level", "Penalty"})
			for _, item := range res.Queue {
				tw.AppendRow(table.Row{
					item.ID, item.ParcelID, item.ProgramType, item.RecommendedAction,
					dateCell(item.DueDate), item.DaysOverdue, item.IsDueNow,
					item.RecommendedLevel, item.Penalty.String(),
				})
			}
			tw.AppendFooter(table.Row{"", "", "", "", "", "", "", "Count", len(res.Queue)})
			tw.Render()
			for _, sk := range res.Skipped {
				fmt.Fprintf(c.out, "skipped %s: %s\n", sk.ID, sk.Reason)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&program, "program", "", "program label (FeaturedHomes, R4R, ...)")
	cmd.Flags().BoolVar(&dueOnly, "due-only", false, "only properties past grace")
	cmd.Flags().StringVar(&asOf, "as-of", "", "evaluate as of YYYY-MM-DD")
	return cmd
}

func (c *cli) exceptionsCmd() *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "exceptions",
		Short: "List open properties with data-quality issues",
		RunE: func(cmd *cobra.Command, args []string) error {
			today, err := parseAsOf(asOf)
			if err != nil {
				return err
			}
			b, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			out, err := compliance.NewService(b, c.logger).Exceptions(cmd.Context(), today)
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				return c.printJSON(out)
			}

			tw := c.newTable(table.Row{"ID", "Parcel", "Buyer", "Program", "Level", "Issues"})
			for _, e := range out {
				tw.AppendRow(table.Row{e.ID, e.ParcelID, e.BuyerName, e.ProgramType, e.EnforcementLevel, compliance.IssueTypes(e.Issues)})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "evaluate as of YYYY-MM-DD")
	return cmd
}

// =============================================================================
// RULE TABLE PREVIEWS
// =============================================================================

func (c *cli) milestonesCmd() *cobra.Command {
	var program, saleDate string
	cmd := &cobra.Command{
		Use:   "milestones",
		Short: "Preview a program's milestones for a sale date",
		RunE: func(cmd *cobra.Command, args []string) error {
			sold, err := factory.ParseRecordDate(saleDate)
			if err != nil {
				return err
			}
			p := factory.ParseProgram(program)
			ms := compliance.GenerateMilestones(string(p), generic.FromTimePtr(&sold))
			if c.jsonOutput() {
				return c.printJSON(ms)
			}

			tw := c.newTable(table.Row{"Key", "Label", "Due", "Category"})
			for _, m := range ms {
				tw.AppendRow(table.Row{m.Key, m.Label, m.DueDate.String(), m.Category})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&program, "program", "", "program label")
	cmd.Flags().StringVar(&saleDate, "sale-date", "", "sale date (YYYY-MM-DD or MM/DD/YYYY)")
	_ = cmd.MarkFlagRequired("program")
	_ = cmd.MarkFlagRequired("sale-date")
	return cmd
}

// penaltyRow is the JSON shape of one penalty line.
type penaltyRow struct {
	DaysOverdue int            `json:"daysOverdue"`
	Level       int            `json:"level"`
	LevelName   string         `json:"levelName"`
	Penalty     generic.Amount `json:"penalty"`
}

func (c *cli) penaltyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "penalty <days-overdue>...",
		Short: "Show enforcement level and penalty for days overdue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([]penaltyRow, 0, len(args))
			for _, a := range args {
				days, err := strconv.Atoi(a)
				if err != nil {
					return fmt.Errorf("days overdue %q: %w", a, err)
				}
				level := compliance.CalculateEnforcementLevel(days)
				rows = append(rows, penaltyRow{
					DaysOverdue: days,
					Level:       level,
					LevelName:   compliance.EnforcementLevelName(level),
					Penalty:     compliance.CalculatePenalty(days),
				})
			}
			if c.jsonOutput() {
				return c.printJSON(rows)
			}

			tw := c.newTable(table.Row{"Days Overdue", "Level", "Name", "Penalty"})
			for _, r := range rows {
				tw.AppendRow(table.Row{r.DaysOverdue, r.Level, r.LevelName, r.Penalty.String()})
			}
			tw.Render()
			return nil
		},
	}
}

func (c *cli) rulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Show the enforcement schedule of every program",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules := compliance.AllRules()
			if c.jsonOutput() {
				return c.printJSON(rules)
			}

			tw := c.newTable(table.Row{"Program", "Grace", "Schedule", "Policy"})
			for _, r := range rules {
				steps := make([]string, len(r.Schedule))
				for i, s := range r.Schedule {
					steps[i] = fmt.Sprintf("d%d %s L%d", s.DayOffset, s.Action, s.Level)
				}
				tw.AppendRow(table.Row{r.Program, r.GraceDays, strings.Join(steps, ", "), r.PolicyRef})
			}
			tw.Render()
			return nil
		},
	}
}

// =============================================================================
// DATA MOVEMENT
// =============================================================================

func (c *cli) importCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import property records from a JSON or YAML export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			f := factory.NewPropertyFactory()
			var props []compliance.Property
			switch recordFormat(format, args[0]) {
			case "yaml":
				props, err = f.ParseYAML(data)
			default:
				props, err = f.ParseJSON(data)
			}
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			b, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()
			for _, p := range props {
				if err := b.SaveProperty(cmd.Context(), p); err != nil {
					return fmt.Errorf("save property %s: %w", p.ID, err)
				}
			}
			fmt.Fprintf(c.out, "imported %d properties\n", len(props))
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "json or yaml (default: from file extension)")
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every property as records",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			props, err := b.FindProperties(cmd.Context(), compliance.PropertyQuery{})
			if err != nil {
				return err
			}
			f := factory.NewPropertyFactory()
			records := make([]factory.PropertyRecord, len(props))
			for i, p := range props {
				records[i] = f.ToRecord(p)
			}

			if format == "yaml" {
				enc := yaml.NewEncoder(c.out)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(map[string]any{"properties": records})
			}
			return c.printJSON(records)
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "json or yaml")
	return cmd
}

func (c *cli) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed [scenario]",
		Short: "Reset the store and load a demo scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				tw := c.newTable(table.Row{"ID", "Name", "Description"})
				for _, s := range api.Scenarios() {
					tw.AppendRow(table.Row{s.ID, s.Name, s.Description})
				}
				tw.Render()
				return nil
			}

			b, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()
			n, err := api.LoadScenario(cmd.Context(), b, factory.NewPropertyFactory(), args[0], time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "loaded scenario %s: %d properties\n", args[0], n)
			return nil
		},
	}
}

// =============================================================================
// RUNS
// =============================================================================

func (c *cli) runsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded due-now snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			runs, err := b.ListQueueRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				return c.printJSON(runs)
			}
			c.renderRuns(runs)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs (0 for all)")
	return cmd
}

func (c *cli) snapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Compute the due-now queue once and record a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			s := api.NewQueueScheduler(compliance.NewService(b, c.logger), b, c.logger)
			run, err := s.RunNow(cmd.Context())
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				return c.printJSON(run)
			}
			c.renderRuns([]compliance.QueueRun{run})
			return nil
		},
	}
}

func (c *cli) renderRuns(runs []compliance.QueueRun) {
	tw := c.newTable(table.Row{"ID", "As Of", "Status", "Queue", "Due Now", "Skipped", "Max Overdue", "Total Penalty"})
	for _, r := range runs {
		tw.AppendRow(table.Row{r.ID, r.AsOf.String(), r.Status, r.QueueCount, r.DueNowCount, r.SkippedCount, r.MaxDaysOverdue, r.TotalPenalty.String()})
	}
	tw.Render()
}

// recordFormat picks the import format from the flag or the file extension.
func recordFormat(flag, path string) string {
	if flag != "" {
		return strings.ToLower(flag)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	}
	return "json"
}
