package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/sosflow/sosflow/pkg/config"
	"github.com/sosflow/sosflow/pkg/engine"
	"github.com/sosflow/sosflow/pkg/executor"
	"github.com/sosflow/sosflow/pkg/logger"
	"github.com/sosflow/sosflow/pkg/parser"
	"github.com/sosflow/sosflow/pkg/signature"
)

var (
	jobsFlag      int
	forceFlag     bool
	ignoreFlag    bool
	dryRunFlag    bool
	configFlag    string
	workspaceFlag string
)

// runCmd implements spec.md §6's "run <script> [workflow] [-j N] [-W|-w]
// [--dryrun]" surface. -W forces every substep to re-run (ForceRun); -w
// skips the signature store entirely (ForceIgnore); they're mutually
// exclusive, matching the single per-run ForceMode spec.md §4.2 describes.
var runCmd = &cobra.Command{
	Use:   "run <script> [workflow]",
	Short: "Run a workflow script",
	Long: `run parses a workflow script, schedules its steps as a DAG, and
executes every substep whose inputs changed since the last run. An
optional workflow name restricts execution to that step and whatever it
transitively depends on.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkflow(cmd, args)
	},
}

func init() {
	runCmd.Flags().IntVarP(&jobsFlag, "jobs", "j", 0, "max concurrent substeps (default: number of CPUs)")
	runCmd.Flags().BoolVarP(&forceFlag, "force", "W", false, "force every substep to re-run, ignoring cache hits")
	runCmd.Flags().BoolVarP(&ignoreFlag, "ignore-cache", "w", false, "never consult or update the signature store")
	runCmd.Flags().BoolVar(&dryRunFlag, "dryrun", false, "touch declared outputs instead of running actions")
	runCmd.Flags().StringVarP(&configFlag, "config", "c", "", "path to a YAML config file (worker count, workspace dir, force mode)")
	runCmd.Flags().StringVar(&workspaceFlag, "workspace", "", "override the run's workspace directory")
	runCmd.MarkFlagsMutuallyExclusive("force", "ignore-cache")
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	script := args[0]
	var target string
	if len(args) == 2 {
		target = args[1]
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("sosflow: %w", err)
	}
	if jobsFlag > 0 {
		cfg.WorkerCount = jobsFlag
	}
	if workspaceFlag != "" {
		cfg.WorkspaceDir = workspaceFlag
	}
	if forceFlag {
		cfg.ForceMode = signature.ForceRun
	}
	if ignoreFlag {
		cfg.ForceMode = signature.ForceIgnore
	}
	dryRun := dryRunFlag || cfg.DryRun

	ast, err := parser.ParseFromFile(script)
	if err != nil {
		return fmt.Errorf("sosflow: parse %s: %w", script, err)
	}

	runID := uuid.New().String()
	if err := os.MkdirAll(cfg.RunDir(runID), 0o755); err != nil {
		return fmt.Errorf("sosflow: create run directory: %w", err)
	}

	log := logger.Get().Desugar()

	store, err := signature.Open(cfg.JournalPath(runID), log)
	if err != nil {
		return fmt.Errorf("sosflow: open signature store: %w", err)
	}
	defer store.Close()

	eng := engine.New(ast, cfg, store, log)
	eng.Target = target

	result, err := eng.Run(context.Background(), dryRun)
	if err != nil {
		return fmt.Errorf("sosflow: %w", err)
	}

	printReport(cmd, result)
	if result.Status != executor.StatusSuccess {
		os.Exit(1)
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	if configFlag == "" {
		cfg := &config.Config{}
		config.SetDefaults(cfg)
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return config.Load(configFlag)
}

func printReport(cmd *cobra.Command, result *executor.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run: %s (%d substeps)\n", result.Status, len(result.TaskResults))

	ids := make([]string, 0, len(result.TaskResults))
	for id := range result.TaskResults {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Status", "Step", "Task", "Message"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	for _, id := range ids {
		tr := result.TaskResults[id]
		table.Append([]string{tr.Status.String(), tr.StepName, id, tr.Message})
	}
	table.Render()
}
