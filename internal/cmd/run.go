package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"aster/internal/config"
	"aster/internal/display"
	"aster/internal/server"
	"aster/internal/socketdir"
)

func newRunCmd() *cobra.Command {
	var (
		nested     bool
		geometry   string
		headless   bool
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the compositor server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(configPath)
			if err != nil {
				return err
			}

			width, height := 640, 480
			if geometry != "" {
				width, height, err = parseGeometry(geometry)
				if err != nil {
					return err
				}
			}

			var (
				backend display.Backend
				nest    *display.Nested
				ident   = socketdir.DefaultEndpoint
			)
			switch {
			case nested:
				nest, err = display.OpenNested(width, height)
				if err != nil {
					return err
				}
				backend = nest
				ident = socketdir.NestedEndpoint(os.Getpid())
			case headless:
				backend = display.NewMemory(width, height)
			default:
				backend, err = display.OpenFBDev(cfg.Framebuffer)
				if err != nil {
					return err
				}
			}

			srv := server.New(cfg, backend, ident)
			if nest != nil {
				// The host compositor draws the cursor.
				srv.SetDrawCursor(false)
			}
			if err := srv.Bind(); err != nil {
				return err
			}
			if nest != nil {
				srv.BridgeNestedInput(nest)
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				log.Info().Msg("shutting down")
				srv.SessionEnd()
				srv.Shutdown()
			}()

			return srv.Run()
		},
	}

	cmd.Flags().BoolVarP(&nested, "nested", "n", false, "run as a window of another compositor")
	cmd.Flags().StringVarP(&geometry, "geometry", "g", "", "display size as WxH (nested and headless)")
	cmd.Flags().BoolVar(&headless, "headless", false, "render to memory only (development)")
	cmd.Flags().StringVar(&configPath, "config", "", "path to the configuration file")
	return cmd
}

// parseGeometry splits a WxH flag value.
func parseGeometry(s string) (int, int, error) {
	w, h, ok := strings.Cut(s, "x")
	if !ok {
		return 0, 0, fmt.Errorf("bad geometry %q (want WxH)", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return 0, 0, fmt.Errorf("bad geometry width %q", w)
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return 0, 0, fmt.Errorf("bad geometry height %q", h)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("geometry %q out of range", s)
	}
	return width, height, nil
}
