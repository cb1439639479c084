package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmrzaf/rowgen/internal/app"
	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/infra/repos/runs"
	"github.com/mmrzaf/rowgen/internal/infra/repos/scenarios"
	"github.com/mmrzaf/rowgen/internal/infra/repos/targets"
	"github.com/mmrzaf/rowgen/internal/registry"
)

func openRuns() (*runs.SQLiteRepository, error) {
	repo := runs.NewSQLiteRepository(runsDBPath)
	if err := repo.Init(); err != nil {
		return nil, err
	}
	return repo, nil
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start and inspect recorded runs",
	}

	var (
		scenarioArg string
		targetID    string
		targetDSN   string
		targetKind  string
		targetDB    string
		seed        int64
		mode        string
		scale       float64
		counts      []string
		scales      []string
		include     []string
		exclude     []string
		planOnly    bool
	)

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start a run and wait for it to finish",
		RunE: func(cmd *cobra.Command, args []string) error {
			runRepo, err := openRuns()
			if err != nil {
				return err
			}
			defer runRepo.Close()

			scenarioRepo := scenarios.NewFileRepository(scenariosDir)
			svc := app.NewRunService(scenarioRepo, targets.NewSQLiteRepository(runRepo.DB()), runRepo,
				registry.DefaultProviderRegistry(), newLogger(),
				app.WithTargetFiles(targets.NewFileRepository(targetsDir)),
				app.WithDefaultMode(cfg.DefaultMode),
				app.WithBatchSize(cfg.BatchSize),
				app.WithExcludedStore(cfg.ExcludedStore, cfg.SpillDir),
			)
			defer svc.Close()

			req := &domain.RunRequest{
				Mode:            mode,
				TargetDatabase:  targetDB,
				IncludeEntities: include,
				ExcludeEntities: exclude,
			}
			switch {
			case scenarioArg == "":
				return fmt.Errorf("--scenario is required")
			case looksLikePath(scenarioArg):
				if req.Scenario, err = scenarios.Load(scenarioArg); err != nil {
					return err
				}
			default:
				req.ScenarioID = scenarioArg
			}
			switch {
			case targetDSN != "":
				if targetKind == "" {
					return fmt.Errorf("--target-kind is required with --target-dsn")
				}
				req.Target = &domain.TargetConfig{Name: "inline-target", Kind: targetKind, DSN: targetDSN}
			case targetID != "":
				req.TargetID = targetID
			default:
				return fmt.Errorf("either --target or --target-dsn is required")
			}
			if cmd.Flags().Changed("seed") {
				req.Seed = &seed
			}
			if cmd.Flags().Changed("scale") {
				req.Scale = &scale
			}
			if req.EntityCounts, err = parseCounts(counts); err != nil {
				return err
			}
			if req.EntityScales, err = parseScales(scales); err != nil {
				return err
			}

			if planOnly {
				plan, err := svc.PlanRun(req)
				if err != nil {
					return err
				}
				return emit(os.Stdout, "yaml", plan, nil)
			}

			run, err := svc.StartRun(req)
			if err != nil {
				return err
			}
			fmt.Printf("Run started: %s\n", run.ID)

			var last int64 = -1
			for {
				time.Sleep(500 * time.Millisecond)
				updated, err := svc.GetRun(run.ID)
				if err != nil {
					return err
				}
				if updated.ProgressRowsGenerated != last {
					last = updated.ProgressRowsGenerated
					fmt.Printf("  %s: %d/%d rows, %d/%d entities\n", updated.ProgressCurrentEntity,
						updated.ProgressRowsGenerated, updated.ProgressRowsTotal,
						updated.ProgressEntitiesDone, updated.ProgressEntitiesTotal)
				}
				switch updated.Status {
				case domain.RunStatusSuccess:
					var stats domain.RunStats
					if err := json.Unmarshal(updated.Stats, &stats); err == nil {
						fmt.Printf("Run completed: %d rows in %.2fs\n", stats.TotalRows, stats.DurationSeconds)
					}
					return nil
				case domain.RunStatusFailed:
					return fmt.Errorf("run failed: %s", updated.Error)
				}
			}
		},
	}

	startCmd.Flags().StringVar(&scenarioArg, "scenario", "", "Scenario id, name or file path")
	startCmd.Flags().StringVar(&targetID, "target", "", "Target id or name")
	startCmd.Flags().StringVar(&targetDSN, "target-dsn", "", "Inline target DSN")
	startCmd.Flags().StringVar(&targetKind, "target-kind", "", "Inline target kind (sqlite|postgres|elasticsearch|file)")
	startCmd.Flags().StringVar(&targetDB, "target-database", "", "Postgres database override")
	startCmd.Flags().Int64VarP(&seed, "seed", "s", 0, "Run seed")
	startCmd.Flags().StringVar(&mode, "mode", "", "Table mode (create|truncate|append)")
	startCmd.Flags().Float64Var(&scale, "scale", 1, "Scale every entity's row count")
	startCmd.Flags().StringSliceVar(&scales, "entity-scale", nil, "Per-entity scale (entity=factor), repeatable")
	startCmd.Flags().StringSliceVar(&counts, "count", nil, "Per-entity row count (entity=n), repeatable")
	startCmd.Flags().StringSliceVar(&include, "include", nil, "Only run these entities")
	startCmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Skip these entities")
	startCmd.Flags().BoolVar(&planOnly, "plan", false, "Print the resolved plan without running")

	var (
		limit  int
		status string
		format string
	)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			runRepo, err := openRuns()
			if err != nil {
				return err
			}
			defer runRepo.Close()

			list, err := runRepo.List(limit, status)
			if err != nil {
				return err
			}

			return emit(os.Stdout, format, list, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "ID\tSCENARIO\tTARGET\tMODE\tSTATUS\tROWS\tSTARTED")
				for _, r := range list {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d/%d\t%s\n",
						r.ID, r.ScenarioName, r.TargetName, r.Mode, r.Status,
						r.ProgressRowsGenerated, r.ProgressRowsTotal, r.StartedAt.Format("2006-01-02 15:04"))
				}
			})
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "Limit results")
	listCmd.Flags().StringVar(&status, "status", "", "Filter by status")
	listCmd.Flags().StringVar(&format, "format", "table", "Output format (table|json|yaml)")

	var showLogs bool
	showCmd := &cobra.Command{
		Use:   "show <run_id>",
		Short: "Show run details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runRepo, err := openRuns()
			if err != nil {
				return err
			}
			defer runRepo.Close()

			run, err := runRepo.Get(args[0])
			if err != nil {
				return err
			}
			// json keeps the stats document readable
			if err := emit(os.Stdout, "json", run, nil); err != nil {
				return err
			}
			if showLogs {
				logs, err := runRepo.ListRunLogs(run.ID, 200)
				if err != nil {
					return err
				}
				for i := len(logs) - 1; i >= 0; i-- {
					l := logs[i]
					fmt.Printf("%s %-5s %s\n", l.CreatedAt.Format(time.RFC3339), l.Level, l.Message)
				}
			}
			return nil
		},
	}
	showCmd.Flags().BoolVar(&showLogs, "logs", false, "Print the run log")

	cmd.AddCommand(startCmd, listCmd, showCmd)
	return cmd
}
