// Package main provides the entry point for the newsreader CLI application.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/aminemaliki7/NEWS/internal/config"
	"github.com/aminemaliki7/NEWS/internal/voice"
	"github.com/aminemaliki7/NEWS/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	debug      bool
	category   string
	voiceFlag  string
	style      string
	width      uint
	mouse      bool
	stats      bool

	// cfg is the configuration resolved before any command runs.
	cfg config.Config
	// logCloser flushes the log file, if any.
	logCloser = func() error { return nil }

	rootCmd = &cobra.Command{
		Use:   "newsreader",
		Short: "Read and listen to the news on the CLI",
		Long: paragraph(
			fmt.Sprintf("\nRead the news on the CLI and %s.", keyword("listen to it")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return runTUI()
		},
	}
)

// prepare resolves configuration and logging for every command that talks
// to the backend.
func prepare(cmd *cobra.Command, _ []string) error {
	if configFile != "" {
		viper.SetConfigFile(config.ExpandPath(configFile))
		if err := viper.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	c, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, &c); err != nil {
		return err
	}
	cfg = c

	interactive := cmd == rootCmd && term.IsTerminal(int(os.Stdout.Fd()))
	closer, err := setupLog(cfg, interactive)
	if err != nil {
		return err
	}
	logCloser = closer

	log.Debug("Configuration loaded",
		"file", viper.ConfigFileUsed(),
		"api", cfg.API.URL,
		"voice", cfg.Voice,
		"category", cfg.Category,
		"translation", cfg.Translation.Provider,
	)
	return nil
}

// applyFlags lets command line flags win over the file and environment.
func applyFlags(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("debug") {
		c.Debug = debug
	}
	if flags.Changed("category") {
		c.Category = category
	}
	if flags.Changed("voice") {
		id, err := voice.Parse(voiceFlag)
		if err != nil {
			return err
		}
		c.Voice = id.String()
	}
	return c.Validate()
}

// validateStyle checks if the style is a default style, if not, checks that
// the custom style exists.
func validateStyle(style string) error {
	if style != "auto" && styles.DefaultStyles[style] == nil {
		style = config.ExpandPath(style)
		if _, err := os.Stat(style); errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("specified style does not exist: %s", style)
		} else if err != nil {
			return fmt.Errorf("unable to stat file: %w", err)
		}
	}
	return nil
}

func runTUI() error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("the reader needs a terminal; use the listen command in scripts")
	}

	// Read environment to get debugging stuff
	uiCfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	// use style set in env, or the flag if the env style is unusable
	if uiCfg.GlamourStyle == "" || validateStyle(uiCfg.GlamourStyle) != nil {
		if err := validateStyle(style); err != nil {
			return err
		}
		uiCfg.GlamourStyle = style
	}

	maxWidth := width
	if maxWidth == 0 {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			maxWidth = uint(min(w, 120)) //nolint:gosec
		}
	}

	uiCfg.Category = cfg.Category
	uiCfg.Language = cfg.Language
	uiCfg.AutoPlay = cfg.AutoPlay
	uiCfg.GlamourMaxWidth = maxWidth
	uiCfg.EnableMouse = mouse
	uiCfg.ShowStats = uiCfg.ShowStats || stats

	a, err := newApp(cfg, config.NewPreferences(viper.GetViper(), configFile))
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	p := ui.NewProgram(uiCfg, ui.Deps{
		Articles:    a.articles,
		Narrator:    a.narrator,
		Preferences: a.prefs,
	})

	if viper.ConfigFileUsed() != "" {
		config.Watch(viper.GetViper(), func(c config.Config) {
			p.Send(ui.PreferencesChangedMsg{Category: c.Category, Voice: c.VoiceID()})
		})
	}

	// Run Bubble Tea program
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func main() {
	err := rootCmd.Execute()
	_ = logCloser()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	loadDotEnv()
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.PersistentPreRunE = prepare
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", configFile))
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log debug output to the log file")
	rootCmd.PersistentFlags().StringVarP(&category, "category", "c", "", "news category to open")
	rootCmd.PersistentFlags().StringVar(&voiceFlag, "voice", "", "default narration voice, e.g. en-GB-SoniaNeural")
	rootCmd.Flags().StringVarP(&style, "style", "s", styles.AutoStyle, "style name or JSON path for articles")
	rootCmd.Flags().UintVarP(&width, "width", "w", 0, "word-wrap articles at width (0 fits the terminal)")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse wheel")
	rootCmd.Flags().BoolVar(&stats, "stats", false, "show cache and generation counters in the footer")
	_ = rootCmd.Flags().MarkHidden("mouse")

	rootCmd.AddCommand(listenCmd, cacheCmd, configCmd, manCmd)
}

// loadDotEnv reads NEWSREADER_* variables from a .env file in the working
// directory. Variables already set in the environment win.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("Could not parse .env file", "err", err)
	}
}

func tryLoadConfigFromDefaultPlaces() {
	dirs, err := config.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName(config.AppName)
	viper.SetConfigType("yaml")
	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		configFile = used
		return
	}

	configFile = filepath.Join(dirs[0], config.FileName)
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
		return
	}
	viper.SetConfigFile(configFile)
	if err := viper.ReadInConfig(); err != nil {
		log.Warn("Could not parse configuration file", "err", err)
	}
}
