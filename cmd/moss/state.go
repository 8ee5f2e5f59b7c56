package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "inspect and roll back installed states",
}

var stateListCmd = &cobra.Command{
	Use:   "list",
	Short: "list retained states",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _, metricsAddr := rootFlags(cmd)

		e, err := openEnv(path, 0, metricsAddr)
		if err != nil {
			return err
		}
		defer e.Close()

		states, err := e.state.List()
		if err != nil {
			return fmt.Errorf("list states: %w", err)
		}
		activeID, err := e.root.ActiveStateID()
		if err != nil {
			return fmt.Errorf("read active state: %w", err)
		}

		for _, st := range states {
			marker := "  "
			if st.ID == activeID {
				marker = "* "
			}
			fmt.Printf("%s%-5d %-12s %s  %s\n", marker, st.ID, st.Kind, st.Created.Format("2006-01-02 15:04:05"), st.Summary)
		}
		return nil
	},
}

var stateActivateCmd = &cobra.Command{
	Use:   "activate <id>",
	Short: "roll back or forward to a retained state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _, metricsAddr := rootFlags(cmd)

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid state id %q: %w", args[0], err)
		}

		e, err := openEnv(path, 0, metricsAddr)
		if err != nil {
			return err
		}
		defer e.Close()

		eng, err := e.engine()
		if err != nil {
			return err
		}

		st, err := eng.Activate(id)
		if err != nil {
			return err
		}
		fmt.Printf("state %d active\n", st.ID)
		return nil
	},
}

func init() {
	stateCmd.AddCommand(stateListCmd, stateActivateCmd)
}
