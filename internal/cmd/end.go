package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newEndCmd() *cobra.Command {
	var endpoint string

	cmd := &cobra.Command{
		Use:   "end",
		Short: "Ask the compositor to end the session",
		Long:  "Broadcasts a session end to every client of the running compositor. Clients are expected to exit on receipt.",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := dial(endpoint)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := conn.SessionEnd(); err != nil {
				return fmt.Errorf("session end: %w", err)
			}
			fmt.Println("Session end requested.")
			return nil
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", "", "endpoint name (default: the published display)")
	return cmd
}
