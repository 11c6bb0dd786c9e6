package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"gpsbridge/internal/bridge"
	"gpsbridge/internal/history"
)

type openResult struct {
	Source   string      `json:"source"`
	Driver   string      `json:"driver"`
	Mode     string      `json:"mode"`
	Artifact string      `json:"artifact,omitempty"`
	Layers   []openLayer `json:"layers"`
}

type openLayer struct {
	Name     string `json:"name"`
	Features int    `json:"features"`
}

func newOpenCommand(ctx *commandContext) *cobra.Command {
	var driverFlag string
	var featuresFlag string
	var jsonFlag bool
	var keepFlag bool

	cmd := &cobra.Command{
		Use:   "open <source>",
		Short: "Convert a source and list the resulting feature layers",
		Long: `Convert a vendor file or GPS device through gpsbabel and list the
feature layers the conversion produced.

The source is either a plain path combined with --driver, or the embedded
form GPSBABEL:driver[,options]*:[features=waypoints,tracks,routes:]path.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildOpenRequest(args[0], driverFlag, featuresFlag)
			if err != nil {
				return err
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			opts := []bridge.Option{bridge.WithLogger(logger)}
			if cfg.Conversion.UseTempfile || keepFlag {
				opts = append(opts, bridge.WithDurableTemp(cfg.Paths.TempDir))
			}

			br := bridge.New(cfg.GPSBabelBinary(), opts...)
			openErr := br.Open(cmd.Context(), req)

			recordHistory(cmd, ctx, req, br, openErr)

			if openErr != nil {
				_ = br.Close()
				return openErr
			}

			result := openResult{
				Source: req.Source,
				Driver: req.Driver,
				Mode:   string(br.Mode()),
			}
			for _, layer := range br.Layers() {
				result.Layers = append(result.Layers, openLayer{
					Name:     layer.Name(),
					Features: layer.FeatureCount(),
				})
			}

			if keepFlag {
				path, err := br.Detach()
				if err != nil {
					return err
				}
				result.Artifact = path
			} else {
				defer br.Close()
			}

			if jsonFlag {
				return writeJSON(cmd, result)
			}
			return renderOpenResult(cmd, result)
		},
	}

	cmd.Flags().StringVarP(&driverFlag, "driver", "d", "", "gpsbabel input format (with optional ,key=value options)")
	cmd.Flags().StringVar(&featuresFlag, "features", "", "Comma-separated categories to read (waypoints, routes, tracks)")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit JSON instead of a table")
	cmd.Flags().BoolVar(&keepFlag, "keep", false, "Keep the converted GPX artifact and print its path")
	return cmd
}

// buildOpenRequest accepts either the embedded request form or a plain
// source path with out-of-band flags. Mixing the two is rejected so a flag
// cannot silently contradict the embedded segments.
func buildOpenRequest(source, driver, features string) (*bridge.Request, error) {
	if strings.HasPrefix(strings.ToUpper(source), bridge.SchemePrefix) {
		if driver != "" || features != "" {
			return nil, fmt.Errorf("--driver and --features cannot be combined with the %s form", bridge.SchemePrefix)
		}
		return bridge.ParseRequest(source)
	}

	if driver == "" {
		return nil, fmt.Errorf("--driver is required unless the source uses the %s form", bridge.SchemePrefix)
	}
	req, err := bridge.NewRequest(source, driver)
	if err != nil {
		return nil, err
	}
	if features != "" {
		if err := req.FilterFeatures(features); err != nil {
			return nil, err
		}
	}
	return req, nil
}

func renderOpenResult(cmd *cobra.Command, result openResult) error {
	out := cmd.OutOrStdout()

	rows := make([][]string, 0, len(result.Layers))
	for _, layer := range result.Layers {
		rows = append(rows, []string{layer.Name, strconv.Itoa(layer.Features)})
	}
	table := renderTable([]string{"Layer", "Features"}, rows, []columnAlignment{alignLeft, alignRight})
	fmt.Fprintln(out, table)

	mode := fmt.Sprintf("Converted %s via %s (%s mode)", result.Source, result.Driver, result.Mode)
	if shouldColorize(out) {
		mode = ansiGreen + mode + ansiReset
	}
	fmt.Fprintln(out, mode)

	if result.Artifact != "" {
		fmt.Fprintf(out, "Artifact kept at %s\n", result.Artifact)
	}
	return nil
}

// recordHistory journals the conversion outcome. Journal failures are logged
// and never fail the command.
func recordHistory(cmd *cobra.Command, ctx *commandContext, req *bridge.Request, br *bridge.Bridge, openErr error) {
	cfg, err := ctx.ensureConfig()
	if err != nil || !cfg.History.Enabled || cfg.History.Path == "" {
		return
	}

	store, err := history.Open(cmd.Context(), cfg.History.Path)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: open history journal: %v\n", err)
		return
	}
	defer store.Close()

	entry := history.Entry{
		Source:     req.Source,
		Driver:     req.Driver,
		Categories: strings.Join(req.Categories(), ","),
		Mode:       string(br.Mode()),
		Status:     history.StatusOK,
	}
	if openErr != nil {
		entry.Status = history.StatusFailed
		entry.Diagnostic = openErr.Error()
	} else {
		var layers []string
		for _, layer := range br.Layers() {
			layers = append(layers, fmt.Sprintf("%s=%d", layer.Name(), layer.FeatureCount()))
		}
		entry.Layers = strings.Join(layers, ",")
	}

	if _, err := store.Record(cmd.Context(), entry); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: record history: %v\n", err)
	}
}
