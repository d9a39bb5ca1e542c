package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/plaenen/bidibip/pkg/access"
	"github.com/plaenen/bidibip/pkg/command"
	"github.com/plaenen/bidibip/pkg/draft"
	"github.com/plaenen/bidibip/pkg/gitrepo"
	"github.com/plaenen/bidibip/pkg/module"
	"github.com/plaenen/bidibip/pkg/modules"
	"github.com/plaenen/bidibip/pkg/modules/quote"
	"github.com/plaenen/bidibip/pkg/platform/memory"
	"github.com/spf13/cobra"
)

func newCommandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "Print the registered command table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := offlineRegistry()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "COMMAND\tACCESS\tOPTIONS\tDESCRIPTION")
			for spec := range registry.Specs(nil, nil) {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", spec.Name(), spec.Access(), optionList(spec), spec.Description())
			}
			return w.Flush()
		},
	}
}

// offlineRegistry registers the built-in modules without touching any
// external resource.
func offlineRegistry() (*module.Registry, error) {
	p := memory.New()
	registry := module.NewRegistry()
	err := modules.Register(modules.Deps{
		Platform: p,
		Registry: registry,
		Gate:     access.NewRoleGate(""),
		Workflow: draft.NewWorkflow(p, draft.NewStore()),
		Quotes:   emptyQuotes{},
		History:  gitrepo.Open("."),
	})
	return registry, err
}

func optionList(spec command.Spec) string {
	opts := spec.Options()
	if len(opts) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(opts))
	for _, opt := range opts {
		key := opt.Key
		if !opt.Required {
			key = "[" + key + "]"
		}
		keys = append(keys, key)
	}
	return strings.Join(keys, " ")
}

type emptyQuotes struct{ quote.Store }
