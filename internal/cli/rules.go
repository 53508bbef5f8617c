package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Ruben-VandeVelde/aesop/internal/rules"
	"github.com/Ruben-VandeVelde/aesop/internal/search"
)

// RuleInfo describes one rule in the rules listing.
type RuleInfo struct {
	Name        string  `json:"name"`
	Phase       string  `json:"phase"`
	Priority    int     `json:"priority"`
	Probability float64 `json:"probability,omitempty"`
}

// NewRulesCommand creates the rules command, which lists the bundled
// default rule set.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the bundled default rules",
		Long: `List the bundled default rules with their phase, priority and,
for unsafe rules, success probability. These are the rules used when
prove runs without --ruleset.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(rootOpts, cmd)
		},
	}
}

func runRules(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	var infos []RuleInfo
	for _, spec := range rules.DefaultSpecs() {
		info := RuleInfo{
			Name:     spec.Name,
			Phase:    spec.Phase.String(),
			Priority: spec.Priority,
		}
		if spec.Phase == search.PhaseUnsafe {
			info.Probability = spec.Probability
		}
		infos = append(infos, info)
	}

	if formatter.Format == "json" {
		return formatter.Success(infos)
	}

	w := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPHASE\tPRIORITY\tPROBABILITY")
	for _, info := range infos {
		prob := "-"
		if info.Phase == "unsafe" {
			prob = fmt.Sprintf("%.2f", info.Probability)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", info.Name, info.Phase, info.Priority, prob)
	}
	return w.Flush()
}
