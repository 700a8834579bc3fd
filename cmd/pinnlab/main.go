package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/pinnlab/internal/ai"
	"github.com/san-kum/pinnlab/internal/config"
	"github.com/san-kum/pinnlab/internal/datauri"
	"github.com/san-kum/pinnlab/internal/export"
	"github.com/san-kum/pinnlab/internal/geometry"
	"github.com/san-kum/pinnlab/internal/logging"
	"github.com/san-kum/pinnlab/internal/metrics"
	"github.com/san-kum/pinnlab/internal/params"
	"github.com/san-kum/pinnlab/internal/predict"
	"github.com/san-kum/pinnlab/internal/server"
	"github.com/san-kum/pinnlab/internal/session"
	"github.com/san-kum/pinnlab/internal/sweep"
	"github.com/san-kum/pinnlab/internal/tui"
	"github.com/san-kum/pinnlab/internal/viz"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
	backendURL string
	provider   string
	exportDir  string
	addr       string
	themeName  string
	width      int
	height     int
	digest     bool
	minimap    bool
	reynolds   float64
	viscosity  float64
	density    float64
	presetName string
	shapeName  string
	predictOut string
	initialOut string
	sweepOut   string
	plot       bool
	sweepField string
	sweepFrom  float64
	sweepTo    float64
	sweepStep  float64
	workers    int
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Registering the flags resets the
// package-level flag variables to their defaults.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "pinnlab",
		Short:        "control panel for a physics-informed flow predictor",
		SilenceUsage: true,
		RunE:         runTUI,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml or ini)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "prediction backend url")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "", "ai provider (genkit, gemini)")
	rootCmd.PersistentFlags().StringVar(&exportDir, "data", "", "export directory")

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "interactive terminal panel",
		RunE:  runTUI,
	}
	tuiCmd.Flags().StringVar(&themeName, "theme", "", "colour theme (ocean, cyberpunk, minimal)")
	rootCmd.Flags().AddFlagSet(tuiCmd.Flags())

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the panel over http and websocket",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address")

	geometryCmd := &cobra.Command{
		Use:   "geometry [shape]",
		Short: "print a rasterized shape",
		Args:  cobra.MaximumNArgs(1),
		RunE:  printGeometry,
	}
	geometryCmd.Flags().IntVar(&width, "width", geometry.GridWidth, "grid width")
	geometryCmd.Flags().IntVar(&height, "height", geometry.GridHeight, "grid height")
	geometryCmd.Flags().BoolVar(&digest, "digest", false, "print the digest sent to the explainer")
	geometryCmd.Flags().BoolVar(&minimap, "minimap", false, "print a braille minimap")

	predictCmd := &cobra.Command{
		Use:   "predict",
		Short: "request flow images from the backend",
		RunE:  runPredict,
	}
	addParamFlags(predictCmd)
	predictCmd.Flags().StringVar(&predictOut, "out", ".", "directory for the images")

	explainCmd := &cobra.Command{
		Use:   "explain",
		Short: "explain loss discrepancies",
		RunE:  runExplain,
	}
	addParamFlags(explainCmd)
	explainCmd.Flags().StringVar(&shapeName, "shape", "", "geometry shape")

	initialCmd := &cobra.Command{
		Use:   "initial [prompt]",
		Short: "generate an initial condition image from a description",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runInitial,
	}
	initialCmd.Flags().StringVar(&initialOut, "out", ".", "directory for the image")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "predict across a parameter range",
		RunE:  runSweep,
	}
	addParamFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepField, "field", "reynolds", "parameter to vary")
	sweepCmd.Flags().Float64Var(&sweepFrom, "from", 20, "first value")
	sweepCmd.Flags().Float64Var(&sweepTo, "to", 500, "last value")
	sweepCmd.Flags().Float64Var(&sweepStep, "step", 60, "increment")
	sweepCmd.Flags().IntVar(&workers, "workers", 4, "concurrent requests")
	sweepCmd.Flags().StringVar(&sweepOut, "out", "", "directory for the images, none when empty")

	lossesCmd := &cobra.Command{
		Use:   "losses",
		Short: "show the loss metrics",
		RunE:  showLosses,
	}
	lossesCmd.Flags().BoolVar(&plot, "plot", false, "plot the terms as a graph")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list fluid presets and scenarios",
		RunE:  listPresets,
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "inspect exported sessions",
	}
	exportListCmd := &cobra.Command{
		Use:   "list",
		Short: "list exports",
		RunE:  listExports,
	}
	exportShowCmd := &cobra.Command{
		Use:   "show [id]",
		Short: "print an exported geometry",
		Args:  cobra.ExactArgs(1),
		RunE:  showExport,
	}
	exportCmd.AddCommand(exportListCmd, exportShowCmd)

	rootCmd.AddCommand(tuiCmd, serveCmd, geometryCmd, predictCmd, sweepCmd,
		explainCmd, initialCmd, lossesCmd, presetsCmd, exportCmd)

	return rootCmd
}

func addParamFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&reynolds, "re", params.DefaultReynolds, "reynolds number")
	cmd.Flags().Float64Var(&viscosity, "nu", params.DefaultViscosity, "kinematic viscosity")
	cmd.Flags().Float64Var(&density, "rho", params.DefaultDensity, "fluid density")
	cmd.Flags().StringVar(&presetName, "preset", "", "fluid preset (water, air, oil)")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv(os.Getenv)

	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if cmd.Flags().Changed("backend") {
		cfg.Backend.URL = backendURL
	}
	if cmd.Flags().Changed("provider") {
		cfg.AI.Provider = provider
	}
	if cmd.Flags().Changed("data") {
		cfg.ExportDir = exportDir
	}
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = addr
	}
	return cfg, cfg.Validate()
}

// paramsFromFlags starts from the configured defaults and applies the
// preset, then any explicit parameter flags.
func paramsFromFlags(cmd *cobra.Command, cfg *config.Config) (params.SimulationParameters, error) {
	p := cfg.Defaults
	if presetName != "" {
		pr, err := params.GetPreset(presetName)
		if err != nil {
			return p, err
		}
		p = p.Apply(pr)
	}
	if cmd.Flags().Changed("re") {
		p.ReynoldsNumber = reynolds
	}
	if cmd.Flags().Changed("nu") {
		p.KinematicViscosity = viscosity
	}
	if cmd.Flags().Changed("rho") {
		p.FluidDensity = density
	}
	return p, p.Validate()
}

func newPredictor(cfg *config.Config, log logrus.FieldLogger) *predict.Client {
	return predict.NewClient(cfg.Backend.URL,
		predict.WithTimeout(cfg.Backend.Timeout),
		predict.WithLogger(log),
	)
}

func newProvider(cfg *config.Config) (ai.Provider, error) {
	return ai.NewRegistry().Get(cfg.AI, &http.Client{Timeout: cfg.AI.Timeout})
}

func newDeps(cfg *config.Config, log logrus.FieldLogger) (session.Deps, error) {
	prov, err := newProvider(cfg)
	if err != nil {
		return session.Deps{}, err
	}
	return session.Deps{
		Predictor: newPredictor(cfg, log),
		Explainer: prov,
		Images:    prov,
		Log:       log,
		Width:     cfg.Grid.Width,
		Height:    cfg.Grid.Height,
		Shape:     cfg.Shape(),
		Defaults:  cfg.Defaults,
		Losses:    metrics.Mock(),
	}, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// the terminal is ours while the panel runs
	deps, err := newDeps(cfg, logging.Discard())
	if err != nil {
		return err
	}

	sess := session.NewManager(deps).Create()
	defer sess.Close()

	st := export.New(cfg.ExportDir)
	opts := []tui.Option{
		tui.WithTimeout(cfg.Backend.Timeout),
		tui.WithExport(st.Save),
	}
	if themeName != "" {
		opts = append(opts, tui.WithTheme(viz.GetTheme(themeName)))
	}
	return tui.Run(sess, opts...)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	deps, err := newDeps(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(logrus.Fields{
		"backend":  cfg.Backend.URL,
		"provider": cfg.AI.Provider,
	}).Info("starting pinnlab server")
	return server.New(cfg.Server, session.NewManager(deps), log).ListenAndServe(ctx)
}

func printGeometry(cmd *cobra.Command, args []string) error {
	shape := geometry.Cylinder
	if len(args) == 1 {
		s, err := geometry.ParseShape(args[0])
		if err != nil {
			return err
		}
		shape = s
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("grid size must be positive, got %dx%d", width, height)
	}

	g := geometry.Rasterize(shape, width, height)
	switch {
	case digest:
		fmt.Println(g.DigestJSON())
	case minimap:
		fmt.Println(viz.Minimap(g))
	default:
		fmt.Printf("%s (%dx%d)\n", shape.Label(), width, height)
		fmt.Println(viz.RenderDigest(g))
	}
	fmt.Printf("\nsolid cells: %d\n", g.Count(geometry.Solid))
	return nil
}

func runPredict(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	p, err := paramsFromFlags(cmd, cfg)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	fmt.Printf("predicting Re=%g ν=%g ρ=%g (%s)\n",
		p.ReynoldsNumber, p.KinematicViscosity, p.FluidDensity, params.Regime(p.ReynoldsNumber))

	images, err := newPredictor(cfg, log).Predict(cmd.Context(), p)
	if err != nil {
		return fmt.Errorf("%s: %w", predict.UserMessage(err), err)
	}

	for _, img := range []struct{ name, uri string }{
		{"streamline", images.Streamline},
		{"pressure", images.Pressure},
	} {
		path, err := writeDataURI(predictOut, img.name, img.uri)
		if err != nil {
			return err
		}
		fmt.Printf("%s image: %s\n", img.name, path)
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	p, err := paramsFromFlags(cmd, cfg)
	if err != nil {
		return err
	}
	field, err := params.ParseField(sweepField)
	if err != nil {
		return err
	}
	values, err := sweep.Values(sweepFrom, sweepTo, sweepStep)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	points, err := sweep.New(newPredictor(cfg, log), workers).Run(cmd.Context(), p, field, values)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tREGIME\tRESULT\n", strings.ToUpper(string(field)))
	for _, pt := range points {
		result := "ok"
		if pt.Err != nil {
			result = predict.UserMessage(pt.Err)
		} else if sweepOut != "" {
			name := fmt.Sprintf("%s_%g", field, pt.Parameters.Get(field))
			for kind, uri := range map[string]string{"streamline": pt.Images.Streamline, "pressure": pt.Images.Pressure} {
				if _, err := writeDataURI(sweepOut, name+"_"+kind, uri); err != nil {
					return err
				}
			}
		}
		fmt.Fprintf(w, "%g\t%s\t%s\n", pt.Parameters.Get(field), pt.Regime, result)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if n := sweep.Failed(points); n > 0 {
		return fmt.Errorf("%d of %d predictions failed", n, len(points))
	}
	return nil
}

func runExplain(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	p, err := paramsFromFlags(cmd, cfg)
	if err != nil {
		return err
	}
	shape := cfg.Shape()
	if shapeName != "" {
		if shape, err = geometry.ParseShape(shapeName); err != nil {
			return err
		}
	}

	prov, err := newProvider(cfg)
	if err != nil {
		return err
	}
	g := geometry.Rasterize(shape, cfg.Grid.Width, cfg.Grid.Height)
	text, err := prov.Explain(cmd.Context(), ai.ExplainRequest{
		LossData: metrics.Mock(),
		SimulationParameters: ai.FlowSetup{
			ReynoldsNumber:     p.ReynoldsNumber,
			KinematicViscosity: p.KinematicViscosity,
			FluidDensity:       p.FluidDensity,
			Geometry:           shape.Label(),
			BoundaryConditions: "Defined by geometry map",
		},
		HistoricalFlowStates: g.DigestJSON(),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", ai.ExplainFailedMessage, err)
	}
	fmt.Println(text)
	return nil
}

func runInitial(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" {
		return ai.ErrEmptyPrompt
	}

	prov, err := newProvider(cfg)
	if err != nil {
		return err
	}
	uri, err := prov.Generate(cmd.Context(), prompt)
	if err != nil {
		return fmt.Errorf("%s: %w", ai.ImageFailedMessage, err)
	}
	if !strings.HasPrefix(uri, "data:") {
		fmt.Println(uri)
		return nil
	}
	path, err := writeDataURI(initialOut, "initial_condition", uri)
	if err != nil {
		return err
	}
	fmt.Printf("initial condition: %s\n", path)
	return nil
}

func writeDataURI(dir, name, uri string) (string, error) {
	mime, data, err := datauri.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("%s image: %w", name, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+datauri.Extension(mime))
	return path, os.WriteFile(path, data, 0644)
}

func showLosses(cmd *cobra.Command, args []string) error {
	losses := metrics.Mock()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TERM\tVALUE")
	for _, label := range losses.Labels() {
		fmt.Fprintf(w, "%s\t%s\n", label, metrics.FormatValue(losses[label]))
	}
	fmt.Fprintf(w, "Total\t%s\n", metrics.FormatValue(losses.Total()))
	if err := w.Flush(); err != nil {
		return err
	}

	if plot {
		fmt.Println()
		fmt.Println(asciigraph.Plot(losses.Values(),
			asciigraph.Height(10),
			asciigraph.Width(60),
			asciigraph.Caption(strings.Join(losses.Labels(), " | ")),
		))
	}
	name, v := losses.Dominant()
	fmt.Printf("\ndominant term: %s (%s)\n", name, metrics.FormatValue(v))
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	fmt.Println("fluids:")
	for _, name := range params.ListPresets() {
		p := params.Presets[name]
		fmt.Printf("  %-12s ν=%g ρ=%g\n", name, p.KinematicViscosity, p.FluidDensity)
	}
	fmt.Println("\nscenarios:")
	for _, name := range config.ListPresets() {
		s := config.Presets[name]
		fmt.Printf("  %-12s %-9s Re=%-5g %s\n", name, s.Shape, s.Parameters.ReynoldsNumber, s.Description)
	}
	return nil
}

func listExports(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	runs, err := export.New(cfg.ExportDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no exports found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tSHAPE\tRE\tREGIME\tFILES")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%s\t%d\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Shape,
			run.Parameters.ReynoldsNumber,
			run.Regime,
			len(run.Files),
		)
	}
	return w.Flush()
}

func showExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st := export.New(cfg.ExportDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	g, err := st.LoadGeometry(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("export: %s\n", meta.ID)
	fmt.Printf("session: %s\n", meta.SessionID)
	fmt.Printf("shape: %s, Re=%g (%s)\n\n", meta.Shape, meta.Parameters.ReynoldsNumber, meta.Regime)
	fmt.Println(viz.RenderDigest(g))
	if meta.Analysis != "" {
		fmt.Printf("\n%s\n", meta.Analysis)
	}
	return nil
}
