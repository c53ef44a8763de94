package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jobrunner/georef/internal/adapters/catalog"
	"github.com/jobrunner/georef/internal/app"
	"github.com/jobrunner/georef/internal/config"
	"github.com/jobrunner/georef/internal/domain"
	"github.com/jobrunner/georef/internal/domain/srs"
	"github.com/jobrunner/georef/internal/ports/input"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <code|definition>",
	Short: "Print the definition of an EPSG code, urn, engine parameter string or WKT",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

var projCmd = &cobra.Command{
	Use:   "proj <code|definition>",
	Short: "Print the engine parameter string of a definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printDefinition(cmd, args[0], "proj")
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <file|->",
	Short: "Check a WKT definition for structural problems",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Transform \"x y [z]\" lines read from stdin",
	Long: `Transform reads one point per line from stdin, separated by blanks
or commas, and prints the transformed point. Points that cannot be
transformed are printed as "* *".`,
	Args: cobra.NoArgs,
	RunE: runTransform,
}

var seedCmd = &cobra.Command{
	Use:   "seed <db>",
	Short: "Create a catalog database holding the core EPSG dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err == nil {
			return fmt.Errorf("%s already exists", args[0])
		}
		if err := catalog.Create(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s with %d coordinate systems\n", args[0], len(catalog.SeededCodes()))
		return nil
	},
}

func init() {
	resolveCmd.Flags().String("format", "pretty", "output format (wkt, pretty, proj)")

	transformCmd.Flags().String("from", "EPSG:4326", "source definition")
	transformCmd.Flags().String("to", "", "target definition")
	transformCmd.Flags().Bool("check-with-invert", false, "reject points that do not survive the inverse transformation")
	_ = transformCmd.MarkFlagRequired("to")
}

// newCore loads the configuration and the catalog for a CLI command.
// Logs go to stderr so stdout carries only results.
func newCore(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.Logging.Level == "info" {
		cfg.Logging.Level = "warn"
	}
	logger := setupLogger(cfg.Logging, os.Stderr)

	a, err := app.NewCore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := a.LoadCatalog(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	return printDefinition(cmd, args[0], format)
}

func printDefinition(cmd *cobra.Command, text, format string) error {
	ctx := cmd.Context()
	a, err := newCore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	def, err := a.Resolver.FromUserInput(ctx, text)
	if err != nil {
		return err
	}

	var out string
	switch format {
	case "wkt":
		out, err = def.ExportToWKT()
	case "pretty":
		out, err = def.ExportToPrettyWKT()
	case "proj":
		out, err = def.ExportToProjString()
	default:
		return fmt.Errorf("unknown format %q: %w", format, domain.ErrInvalidInput)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return err
	}

	def, err := srs.NewFromWKT(string(data))
	if err == nil {
		err = def.Validate()
	}
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("invalid definition at %s: %w", verr.Field, err)
		}
		return fmt.Errorf("invalid definition: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "valid")
	return nil
}

func runTransform(cmd *cobra.Command, _ []string) error {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")

	points, err := readPoints(cmd.InOrStdin())
	if err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}
	batch, err := domain.NewBatch(points)
	if err != nil {
		return err
	}

	req := input.TransformRequest{Source: from, Target: to, Batch: batch}
	if cmd.Flags().Changed("check-with-invert") {
		check, _ := cmd.Flags().GetBool("check-with-invert")
		req.CheckWithInvert = &check
	}

	ctx := cmd.Context()
	a, err := newCore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	result, err := a.TransformService.TransformPoints(ctx, req)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(cmd.OutOrStdout())
	for i, p := range result.Batch.Points() {
		fmt.Fprintln(w, formatPoint(p, result.OK[i]))
	}
	return w.Flush()
}

// readPoints parses one point per line. Blank lines and lines starting
// with '#' are skipped.
func readPoints(r io.Reader) ([][]float64, error) {
	var points [][]float64
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		if len(fields) < 2 || len(fields) > 3 {
			return nil, fmt.Errorf("line %d: want 2 or 3 values, got %d: %w", line, len(fields), domain.ErrNotEnoughData)
		}
		p := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %q: %w", line, f, domain.ErrInvalidInput)
			}
			p[i] = v
		}
		points = append(points, p)
	}
	return points, scanner.Err()
}

func formatPoint(p []float64, ok bool) string {
	if !ok {
		return "* *"
	}
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, " ")
}
