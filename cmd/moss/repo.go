package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mossforge/moss/pkg/repo"
)

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "manage package repositories",
}

var repoAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "add a repository",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _, metricsAddr := rootFlags(cmd)
		priority, _ := cmd.Flags().GetInt("priority")

		e, err := openEnv(path, 0, metricsAddr)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.cache.AddRepo(repo.Config{Name: args[0], URL: args[1], Priority: priority}); err != nil {
			return fmt.Errorf("add repo: %w", err)
		}
		fmt.Printf("added repository %s (%s)\n", args[0], args[1])
		return nil
	},
}

var repoRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "remove a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _, metricsAddr := rootFlags(cmd)

		e, err := openEnv(path, 0, metricsAddr)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.cache.RemoveRepo(args[0]); err != nil {
			return fmt.Errorf("remove repo: %w", err)
		}
		fmt.Printf("removed repository %s\n", args[0])
		return nil
	},
}

var repoListCmd = &cobra.Command{
	Use:   "list",
	Short: "list configured repositories",
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
			fmt.Printf("%-20s priority=%-4d %s\n", r.Name, r.Priority, r.URL)
		}
		return nil
	},
}

func init() {
	repoAddCmd.Flags().Int("priority", 0, "repository priority, higher wins ties")
	repoCmd.AddCommand(repoAddCmd, repoRemoveCmd, repoListCmd)
}
