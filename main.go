// Package main provides the entry point for the piperspeak CLI application.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/piperspeak/piperspeak/internal/wavio"
	"github.com/piperspeak/piperspeak/tts"
	"github.com/piperspeak/piperspeak/tts/audio"
	"github.com/piperspeak/piperspeak/tts/piper"
	"github.com/piperspeak/piperspeak/tts/task"
	"github.com/piperspeak/piperspeak/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	text       string
	output     string
	modelFlag  string
	useCUDA    bool
	modelsDir  string
	speed      float64
	volume     float64
	normalize  bool

	rootCmd = &cobra.Command{
		Use:   "piperspeak",
		Short: "Speak text aloud with Piper voices",
		Long: "\nType text and hear it spoken with a local Piper voice, or render it " +
			"straight to a WAV file. Run without flags for the interactive UI.",
		SilenceErrors: false,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          execute,
	}
)

// buildSession assembles the session over the real backends.
func buildSession() (*tts.Session, tts.Config, error) {
	cfg, err := tts.LoadConfigFromViper()
	if err != nil {
		return nil, cfg, err
	}

	// Flag overrides beat config file and environment.
	if modelsDir != "" {
		cfg.ModelsDir = modelsDir
	}
	if cfg.ModelsDir == "" {
		dir, err := defaultModelsDir()
		if err != nil {
			return nil, cfg, err
		}
		cfg.ModelsDir = dir
	}
	if modelFlag != "" {
		cfg.DefaultModel = modelFlag
	}
	if rootCmd.Flags().Changed("cuda") {
		cfg.UseCUDA = useCUDA
	}
	if rootCmd.Flags().Changed("speed") {
		cfg.Params.Speed = speed
	}
	if rootCmd.Flags().Changed("volume") {
		cfg.Params.Volume = volume
	}
	if rootCmd.Flags().Changed("normalize") {
		cfg.Params.Normalize = normalize
	}

	if err := cfg.Validate(); err != nil {
		return nil, cfg, err
	}

	engine := piper.New(cfg.ModelsDir, cfg.PiperBinary)
	session := tts.NewSession(cfg, tts.Deps{
		Loader:      engine,
		Synthesizer: engine,
		Downloader:  piper.NewDownloader(cfg.DownloadBaseURL),
		Models:      engine,
		Playback:    audio.NewController(audio.NewOtoDevice()),
		WriteWAV:    wavio.Write,
	})
	return session, cfg, nil
}

// defaultModelsDir resolves the per-user data directory for voice models.
func defaultModelsDir() (string, error) {
	scope := gap.NewScope(gap.User, "piperspeak")
	dir, err := scope.DataPath("models")
	if err != nil {
		return "", fmt.Errorf("resolve data dir: %w", err)
	}
	return dir, nil
}

func execute(cmd *cobra.Command, _ []string) error {
	// Piped stdin implies headless mode with the piped text.
	if text == "" {
		if piped, err := stdinIsPipe(); err != nil {
			return err
		} else if piped {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			text = string(b)
		}
	}

	if text != "" {
		return runHeadless(text)
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("no text given and stdout is not a terminal; pass --text or pipe input")
	}
	return runTUI()
}

// runHeadless synthesizes once and exits: to a WAV file with --output, to
// the speakers otherwise.
func runHeadless(text string) error {
	session, cfg, err := buildSession()
	if err != nil {
		return err
	}
	defer session.Close()

	// Status lines go to stderr so a shell pipeline stays clean.
	go func() {
		for e := range session.Events() {
			if s, ok := e.(tts.StatusEvent); ok {
				fmt.Fprintln(os.Stderr, s.Text)
			}
		}
	}()

	model := cfg.DefaultModel
	if model == "" {
		models := session.Models()
		if len(models) == 0 {
			return fmt.Errorf("no voice models in %s; run 'piperspeak download'", cfg.ModelsDir)
		}
		model = models[0]
	}

	if res := session.LoadModel(model, cfg.UseCUDA).Wait(); res.Status != task.StatusOK {
		return fmt.Errorf("load %s: %w", model, res.Err)
	}

	if output != "" {
		h, err := session.SynthesizeToFile(text, cfg.Params, output)
		if err != nil {
			return err
		}
		if res := h.Wait(); res.Status != task.StatusOK {
			return fmt.Errorf("export: %w", res.Err)
		}
		return nil
	}

	h, err := session.SynthesizeAndPlay(text, cfg.Params)
	if err != nil {
		return err
	}
	if res := h.Wait(); res.Status == task.StatusFailed {
		return res.Err
	}
	return nil
}

func runTUI() error {
	session, cfg, err := buildSession()
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.WatchModels(); err != nil {
		log.Warn("models watcher unavailable", "err", err)
	}

	model := cfg.DefaultModel
	if model == "" {
		if models := session.Models(); len(models) > 0 {
			model = models[0]
		}
	}

	p := ui.NewProgram(ui.Config{
		ModelsDir:    cfg.ModelsDir,
		DefaultModel: model,
		Params:       cfg.Params,
	}, session)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to stat stdin: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

var downloadCmd = &cobra.Command{
	Use:     "download <voice-id>",
	Short:   "Download a Piper voice by id",
	Example: "piperspeak download en_GB-cori-high",
	Args:    cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		session, _, err := buildSession()
		if err != nil {
			return err
		}
		defer session.Close()

		go func() {
			for e := range session.Events() {
				if s, ok := e.(tts.StatusEvent); ok {
					fmt.Println(s.Text)
				}
			}
		}()

		h, err := session.DownloadVoice(args[0])
		if err != nil {
			return err
		}
		if res := h.Wait(); res.Status != task.StatusOK {
			return fmt.Errorf("download %s: %w", args[0], res.Err)
		}
		return nil
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List downloaded voice models",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		session, cfg, err := buildSession()
		if err != nil {
			return err
		}
		defer session.Close()

		models := session.Models()
		if len(models) == 0 {
			fmt.Printf("No voice models in %s\n", cfg.ModelsDir)
			return nil
		}

		for _, name := range models {
			line := name
			if info, err := os.Stat(filepath.Join(cfg.ModelsDir, name)); err == nil {
				line = fmt.Sprintf("%s\t%s", name, humanize.Bytes(uint64(info.Size()))) //nolint:gosec
			}
			fmt.Println(line)
		}
		return nil
	},
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

// setupLog sends logging to a file when PIPERSPEAK_LOG is set, and
// silences it otherwise so it cannot corrupt the TUI.
func setupLog() (func() error, error) {
	if path := os.Getenv("PIPERSPEAK_LOG"); path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		log.SetOutput(f)
		log.SetLevel(log.DebugLevel)
		return f.Close, nil
	}

	log.SetOutput(io.Discard)
	return func() error { return nil }, nil
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&text, "text", "t", "", "speak this text and exit (headless mode)")
	rootCmd.Flags().StringVarP(&output, "output", "o", "", "write a WAV file instead of playing (headless mode)")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "voice model file to load")
	rootCmd.Flags().StringVar(&modelsDir, "models-dir", "", "directory holding .onnx voice models")
	rootCmd.Flags().BoolVar(&useCUDA, "cuda", false, "load models with GPU acceleration")
	rootCmd.Flags().Float64Var(&speed, "speed", 1.0, "speech speed (0.5 to 2.0)")
	rootCmd.Flags().Float64Var(&volume, "volume", 1.0, "output volume (0.0 to 1.0)")
	rootCmd.Flags().BoolVar(&normalize, "normalize", false, "peak-normalize the output")

	// Config bindings
	_ = viper.BindPFlag("models_dir", rootCmd.Flags().Lookup("models-dir"))
	_ = viper.BindPFlag("default_model", rootCmd.Flags().Lookup("model"))
	_ = viper.BindPFlag("use_cuda", rootCmd.Flags().Lookup("cuda"))

	rootCmd.AddCommand(configCmd, downloadCmd, modelsCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "piperspeak")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "piperspeak")}, dirs...)
	}

	if c := os.Getenv("PIPERSPEAK_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("piperspeak")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("piperspeak")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}

	configFile = filepath.Join(dirs[0], "piperspeak.yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
