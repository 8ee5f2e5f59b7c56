package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mossforge/moss/pkg/types"
)

var listCmd = &cobra.Command{
	Use:       "list {available|installed}",
	Short:     "list available or installed packages",
	Args:      cobra.ExactValidArgs(1),
	ValidArgs: []string{"available", "installed"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _, metricsAddr := rootFlags(cmd)

		e, err := openEnv(path, 0, metricsAddr)
		if err != nil {
			return err
		}
		defer e.Close()

		all, err := e.meta.ListPackages()
		if err != nil {
			return fmt.Errorf("list packages: %w", err)
		}

		if args[0] == "available" {
			printPackages(all)
			return nil
		}

		activeID, err := e.root.ActiveStateID()
		if err != nil {
			return fmt.Errorf("read active state: %w", err)
		}
		current, err := e.state.Get(activeID)
		if err != nil {
			return fmt.Errorf("load active state: %w", err)
		}
		if current == nil {
			fmt.Println("no packages installed")
			return nil
		}
		installed := map[types.Hash]bool{}
		for _, h := range current.PackageHashes() {
			installed[h] = true
		}

		var subset []*types.Package
		for _, p := range all {
			if installed[p.Hash] {
				subset = append(subset, p)
			}
		}
		printPackages(subset)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "search packages by name or summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _, metricsAddr := rootFlags(cmd)

		e, err := openEnv(path, 0, metricsAddr)
		if err != nil {
			return err
		}
		defer e.Close()

		results, err := e.meta.Search(args[0])
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		printPackages(results)
		return nil
	},
}

func printPackages(pkgs []*types.Package) {
	if len(pkgs) == 0 {
		fmt.Println("no packages found")
		return
	}
	for _, p := range pkgs {
		fmt.Printf("%-30s %-12s %s\n", p.Name, p.Version, p.Summary)
	}
}
