package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gpsbridge/internal/bridge"
	"gpsbridge/internal/devicewatch"
)

func newDevicesCommand(ctx *commandContext) *cobra.Command {
	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "Inspect and watch GPS device sources",
	}

	devicesCmd.AddCommand(newDevicesClassifyCommand())
	devicesCmd.AddCommand(newDevicesWatchCommand(ctx))

	return devicesCmd
}

func newDevicesClassifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "classify <source>",
		Short:       "Report whether a source is read as a device or a regular file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := "regular file (piped with direct-mode fallback)"
			if bridge.IsSpecialSource(args[0]) {
				kind = "device (passed directly to gpsbabel)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], kind)
			return nil
		},
	}
}

func newDevicesWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch for serial GPS receivers attaching and detaching",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			watchCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			watcher := devicewatch.New(logger, func(_ context.Context, event devicewatch.Event) {
				fmt.Fprintf(out, "%-6s %s\n", event.Action, event.Device)
			})
			if err := watcher.Start(watchCtx); err != nil {
				return err
			}
			defer watcher.Stop()

			fmt.Fprintln(out, "Watching for serial devices; press Ctrl-C to stop.")
			<-watchCtx.Done()
			return nil
		},
	}
}
