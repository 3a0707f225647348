package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"aster/internal/client"
	s "aster/internal/termstyle"
)

func newWindowsCmd() *cobra.Command {
	var endpoint string

	cmd := &cobra.Command{
		Use:   "windows",
		Short: "List advertised windows of a running compositor",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := dial(endpoint)
			if err != nil {
				return err
			}
			defer conn.Close()

			ads, err := conn.QueryWindows()
			if err != nil {
				return fmt.Errorf("query windows: %w", err)
			}
			if len(ads) == 0 {
				fmt.Println("No advertised windows.")
				return nil
			}

			fmt.Printf("%s  %s %s\n", s.Bold("WID"), s.Bold("NAME"), s.Dim("(stacking order, bottom first)"))
			for _, ad := range ads {
				dot := s.DimDot()
				if ad.Flags&1 != 0 {
					dot = s.GreenDot()
				}
				name := ad.Name()
				if name == "" {
					name = s.Dim("(unnamed)")
				}
				fmt.Printf("%s %4d %s\n", dot, ad.Wid, name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", "", "endpoint name (default: the published display)")
	return cmd
}

// dial connects to the named endpoint, or the published one.
func dial(endpoint string) (*client.Conn, error) {
	if endpoint != "" {
		return client.ConnectTo(endpoint)
	}
	return client.Connect()
}
