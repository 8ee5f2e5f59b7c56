package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install <pkg...>",
	Short: "install one or more packages",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, retention, metricsAddr := rootFlags(cmd)

		e, err := openEnv(path, retention, metricsAddr)
		if err != nil {
			return err
		}
		defer e.Close()

		eng, err := e.engine()
		if err != nil {
			return err
		}

		st, err := eng.Install(cmd.Context(), args)
		if err != nil {
			return err
		}
		fmt.Printf("state %d active: installed %d package(s)\n", st.ID, len(args))
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <pkg...>",
	Short: "remove one or more packages",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, retention, metricsAddr := rootFlags(cmd)

		e, err := openEnv(path, retention, metricsAddr)
		if err != nil {
			return err
		}
		defer e.Close()

		eng, err := e.engine()
		if err != nil {
			return err
		}

		st, err := eng.Remove(cmd.Context(), args)
		if err != nil {
			return err
		}
		fmt.Printf("state %d active: removed %d package(s)\n", st.ID, len(args))
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "refresh repository indexes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _, metricsAddr := rootFlags(cmd)

		e, err := openEnv(path, 0, metricsAddr)
		if err != nil {
			return err
		}
		defer e.Close()

		repos, err := e.cache.ListRepos()
		if err != nil {
			return fmt.Errorf("list repos: %w", err)
		}
		if len(repos) == 0 {
			fmt.Println("no repositories configured")
			return nil
		}

		for _, r := range repos {
			if err := e.client.Sync(cmd.Context(), r.Name); err != nil {
				return fmt.Errorf("sync %s: %w", r.Name, err)
			}
			fmt.Printf("synced %s\n", r.Name)
		}
		return nil
	},
}
