package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mmrzaf/rowgen/internal/domain"
	"github.com/mmrzaf/rowgen/internal/engine"
	"github.com/mmrzaf/rowgen/internal/infra/repos/scenarios"
	"github.com/mmrzaf/rowgen/internal/infra/repos/targets"
	"github.com/mmrzaf/rowgen/internal/registry"
	"github.com/mmrzaf/rowgen/internal/validation"
)

// emit writes v as json or yaml, or calls table for the default format.
func emit(w io.Writer, format string, v interface{}, table func(*tabwriter.Writer)) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "", "table":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q (table|json|yaml)", format)
	}
}

func scenarioCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "scenario", Short: "Inspect and validate scenarios"}
	var format string

	list := &cobra.Command{
		Use:   "list",
		Short: "List scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := scenarios.NewFileRepository(scenariosDir).List()
			if err != nil {
				return err
			}
			return emit(os.Stdout, format, all, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "ID\tVERSION\tENTITIES\tROWS\tUNIQUE")
				for _, sc := range all {
					var rows int64
					var unique int
					for _, e := range sc.Entities {
						rows += e.Rows
						for _, p := range e.Properties {
							if p.Unique {
								unique++
							}
						}
					}
					fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n", sc.ID, sc.Version, len(sc.Entities), rows, unique)
				}
			})
		},
	}

	show := &cobra.Command{
		Use:   "show <id|path>",
		Short: "Show a scenario's entities and properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := loadScenario(args[0])
			if err != nil {
				return err
			}
			return emit(os.Stdout, format, sc, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "ENTITY\tPROPERTY\tTYPE\tPROVIDER\tFLAGS")
				for _, e := range sc.Entities {
					for _, p := range e.Properties {
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Name, p.Name, p.Type, p.Provider.Type, propertyFlags(&p))
					}
				}
			})
		},
	}

	validate := &cobra.Command{
		Use:   "validate <id|path>",
		Short: "Validate a scenario and print its generation order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := loadScenario(args[0])
			if err != nil {
				return err
			}
			if err := validation.NewValidator(registry.DefaultProviderRegistry()).ValidateScenario(sc); err != nil {
				return fmt.Errorf("scenario %s: %w", sc.ID, err)
			}
			order, err := validation.TopologicalSort(sc)
			if err != nil {
				return err
			}
			fmt.Printf("scenario %s ok\n", sc.ID)
			for _, name := range order {
				e := entityByName(sc, name)
				props, err := engine.OrderProperties(e)
				if err != nil {
					return err
				}
				names := make([]string, len(props))
				for i, p := range props {
					names[i] = p.Name
				}
				fmt.Printf("  %s: %s\n", name, strings.Join(names, " -> "))
			}
			return nil
		},
	}

	list.Flags().StringVar(&format, "format", "table", "Output format (table|json|yaml)")
	show.Flags().StringVar(&format, "format", "table", "Output format (table|json|yaml)")
	cmd.AddCommand(list, show, validate)
	return cmd
}

func propertyFlags(p *domain.Property) string {
	var flags []string
	if p.Unique {
		flags = append(flags, "unique")
	}
	if p.NullRatio > 0 {
		flags = append(flags, fmt.Sprintf("null=%.2f", p.NullRatio))
	}
	if len(p.Ranges) > 0 {
		flags = append(flags, fmt.Sprintf("ranges=%d", len(p.Ranges)))
	}
	if len(p.ExcludedRanges) > 0 {
		flags = append(flags, fmt.Sprintf("excluded=%d", len(p.ExcludedRanges)))
	}
	if up := p.Upstream(); len(up) > 0 {
		flags = append(flags, "args<-"+strings.Join(up, ","))
	}
	return strings.Join(flags, " ")
}

func entityByName(sc *domain.Scenario, name string) *domain.Entity {
	for i := range sc.Entities {
		if sc.Entities[i].Name == name {
			return &sc.Entities[i]
		}
	}
	return nil
}

func targetCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "target", Short: "Inspect and validate file-defined targets"}
	var format string

	list := &cobra.Command{
		Use:   "list",
		Short: "List targets with credentials masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := targets.NewFileRepository(targetsDir).List()
			if err != nil {
				return err
			}
			all = targets.RedactTargets(all)
			return emit(os.Stdout, format, all, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "ID\tKIND\tDSN")
				for _, t := range all {
					fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Kind, t.DSN)
				}
			})
		},
	}

	show := &cobra.Command{
		Use:   "show <id|path>",
		Short: "Show a target with credentials masked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := loadTarget(args[0])
			if err != nil {
				return err
			}
			return emit(os.Stdout, "yaml", targets.RedactTarget(t), nil)
		},
	}

	validate := &cobra.Command{
		Use:   "validate <id|path>",
		Short: "Validate a target definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := loadTarget(args[0])
			if err != nil {
				return err
			}
			if err := validation.NewValidator(nil).ValidateTarget(t); err != nil {
				return fmt.Errorf("target %s: %w", t.ID, err)
			}
			fmt.Printf("target %s ok (%s)\n", t.ID, t.Kind)
			return nil
		},
	}

	list.Flags().StringVar(&format, "format", "table", "Output format (table|json|yaml)")
	cmd.AddCommand(list, show, validate)
	return cmd
}

func providerCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "provider", Short: "Inspect value providers"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List provider kinds",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(strings.Join(registry.DefaultProviderRegistry().List(), "\n"))
			return nil
		},
	})
	return cmd
}
