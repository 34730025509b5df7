// Package main provides the entry point for the dashakam player.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/narayaneeyam/dashakam/internal/audio"
	"github.com/narayaneeyam/dashakam/internal/cache"
	"github.com/narayaneeyam/dashakam/internal/chapter"
	"github.com/narayaneeyam/dashakam/internal/content"
	"github.com/narayaneeyam/dashakam/internal/loader"
	"github.com/narayaneeyam/dashakam/internal/player"
	"github.com/narayaneeyam/dashakam/internal/timecode"
	"github.com/narayaneeyam/dashakam/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	// diskCacheMaxAge is how long fetched documents are reused before they
	// are fetched again.
	diskCacheMaxAge = 24 * time.Hour

	configFile string
	plain      bool
	closeLog   = func() error { return nil }

	rootCmd = &cobra.Command{
		Use:   "dashakam [CHAPTER]",
		Short: "Listen to the Narayaneeyam with the verses following along",
		Long: paragraph(
			fmt.Sprintf("\nPlay a %s of the Narayaneeyam and follow the verse being chanted, in Sanskrit or in English transliteration.", keyword("dashakam")),
		),
		Example:          paragraph("dashakam\ndashakam 12 --docs https://example.org/narayaneeyam\ndashakam 1 --plain"),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			out := make([]string, 0, chapter.Last)
			for _, n := range chapter.All() {
				out = append(out, strconv.Itoa(int(n))+"\t"+n.Label())
			}
			return out, cobra.ShellCompDirectiveNoFileComp
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("config") {
				viper.SetConfigFile(expandPath(configFile))
				if err := viper.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("unable to read config file: %w", err)
				}
			}

			closer, err := setupLog(viper.GetBool("debug"))
			if err != nil {
				return err
			}
			closeLog = closer
			return nil
		},
		RunE: execute,
	}
)

// validateStyle checks if the style is a default style, if not, checks that
// the custom style exists.
func validateStyle(style string) error {
	if style != "auto" && styles.DefaultStyles[style] == nil {
		style = expandPath(style)
		if _, err := os.Stat(style); errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("specified style does not exist: %s", style)
		} else if err != nil {
			return fmt.Errorf("unable to stat file: %w", err)
		}
	}
	return nil
}

// loadOptions merges the positional chapter into the configuration, then
// validates it and adapts it to the terminal.
func loadOptions(cmd *cobra.Command, args []string) (Config, bool, error) {
	if len(args) == 1 {
		n, err := chapter.Parse(args[0])
		if err != nil {
			return Config{}, false, fmt.Errorf("invalid dashakam %q: %w", args[0], err)
		}
		viper.Set("chapter", int(n))
	}

	cfg := configFromViper()
	if err := cfg.Validate(); err != nil {
		return cfg, false, err
	}

	// validate the glamour style
	if err := validateStyle(cfg.Style); err != nil {
		return cfg, false, err
	}

	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	// We want to use a special no-TTY style, when stdout is not a terminal
	// and there was no specific style passed by arg
	if !isTerminal && !cmd.Flags().Changed("style") {
		cfg.Style = "notty"
	}

	// Detect terminal width
	if !cmd.Flags().Changed("width") { //nolint:nestif
		if isTerminal && cfg.Width == 0 {
			w, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err == nil {
				cfg.Width = uint(w) //nolint:gosec
			}

			if cfg.Width > 120 {
				cfg.Width = 120
			}
		}
		if cfg.Width == 0 {
			cfg.Width = 80
		}
	}
	return cfg, isTerminal, nil
}

func execute(cmd *cobra.Command, args []string) error {
	cfg, isTerminal, err := loadOptions(cmd, args)
	if err != nil {
		return err
	}

	ld, closeLoader := newLoader(cfg)
	defer closeLoader()
	n := chapter.Number(cfg.Chapter)

	if plain || !isTerminal {
		return printChapter(cmd.Context(), ld, n, cfg, os.Stdout)
	}
	return runTUI(ld, n, cfg)
}

// newLoader builds the document loader. Documents fetched over HTTP are also
// kept in the user cache dir unless the disk cache is disabled.
func newLoader(cfg Config) (*loader.Loader, func()) {
	var opts []loader.Option
	if cfg.CacheSize > 0 {
		opts = append(opts, loader.WithCacheSize(cfg.CacheSize))
	}
	if cfg.AudioDir != "" {
		opts = append(opts, loader.WithAudioBase(cfg.AudioDir))
	}

	var disk *cache.DiskCache
	if isURL(cfg.Docs) && cfg.DiskCache > 0 {
		dc, err := openDiskCache(cfg.DiskCache)
		if err != nil {
			log.Warn("disk cache unavailable", "error", err)
		} else {
			disk = dc
			opts = append(opts, loader.WithDiskCache(dc))
		}
	}

	ld := loader.New(loader.NewSource(cfg.Docs), opts...)
	return ld, func() {
		st := ld.CacheStats()
		log.Debug("document cache", "items", st.ItemCount, "hits", st.Hits, "misses", st.Misses, "size", humanize.Bytes(uint64(st.Size))) //nolint:gosec
		if disk == nil {
			return
		}
		st = disk.Stats()
		log.Debug("disk cache", "items", st.ItemCount, "hits", st.Hits, "misses", st.Misses, "size", humanize.Bytes(uint64(st.Size))) //nolint:gosec
		if err := disk.Close(); err != nil {
			log.Error("unable to save disk cache", "error", err)
		}
	}
}

func openDiskCache(capacity int64) (*cache.DiskCache, error) {
	dir, err := gap.NewScope(gap.User, "dashakam").CacheDir()
	if err != nil {
		return nil, fmt.Errorf("unable to get cache dir: %w", err)
	}
	return cache.NewDiskCache(filepath.Join(dir, "documents"), capacity, diskCacheMaxAge)
}

// newAudio opens the sound card, falling back to a silent player that keeps
// time when there is none.
func newAudio(cfg Config) (player.Audio, func()) {
	if !cfg.NoAudio {
		p, err := audio.NewPlayer(audio.DefaultPlayerConfig())
		if err == nil {
			return p, func() { _ = p.Close() }
		}
		log.Warn("audio output unavailable, playing silently", "error", err)
	}
	mp := audio.NewMockPlayer(audio.WithDurations(audio.ProbedDurations()))
	return mp, func() { _ = mp.Close() }
}

// printChapter renders a chapter as markdown, each verse prefixed with its
// start time.
func printChapter(ctx context.Context, ld *loader.Loader, n chapter.Number, cfg Config, w io.Writer) error {
	ch, err := ld.Load(ctx, n)
	if err != nil {
		return fmt.Errorf("unable to load %s: %w", n.Label(), err)
	}

	frags := ch.Canonical
	if cfg.Transliterated {
		frags = ch.Transliterated
	}
	if len(frags) == 0 {
		return fmt.Errorf("%s: %w", n.Title(), loader.ErrNotFound)
	}

	cues := content.Cues(frags)

	var b strings.Builder
	for _, f := range frags {
		verses := f.Verses()
		if len(verses) == 0 {
			md := content.Markdown(f)
			if f.IsHeading() {
				md = "## " + strings.TrimSpace(f.Text)
			}
			b.WriteString(md)
			b.WriteString("\n\n")
			continue
		}
		for _, v := range verses {
			fmt.Fprintf(&b, "`%s` %s\n\n", timecode.Format(cues[0].Start), content.Markdown(v))
			cues = cues[1:]
		}
	}

	styleOpt := glamour.WithStylePath(cfg.Style)
	if cfg.Style == "auto" {
		styleOpt = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithColorProfile(lipgloss.ColorProfile()),
		styleOpt,
		glamour.WithWordWrap(int(cfg.Width)), //nolint:gosec
		glamour.WithPreservedNewLines(),
	)
	if err != nil {
		return fmt.Errorf("unable to create renderer: %w", err)
	}

	out, err := r.Render(b.String())
	if err != nil {
		return fmt.Errorf("unable to render markdown: %w", err)
	}
	if _, err = fmt.Fprint(w, out); err != nil {
		return fmt.Errorf("unable to write to writer: %w", err)
	}
	return nil
}

func runTUI(ld *loader.Loader, n chapter.Number, cfg Config) error {
	// Read environment to get UI settings
	uiCfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	// use style set in env, or the configured one if unset
	if err := validateStyle(uiCfg.GlamourStyle); err != nil {
		uiCfg.GlamourStyle = cfg.Style
	}

	uiCfg.Chapter = n
	uiCfg.GlamourMaxWidth = cfg.Width
	uiCfg.EnableMouse = cfg.Mouse
	uiCfg.Tick = cfg.Tick
	uiCfg.Autoplay = uiCfg.Autoplay || cfg.Autoplay

	out, closeAudio := newAudio(cfg)
	defer closeAudio()

	opts := player.DefaultOptions()
	opts.AutoAdvance = cfg.AutoAdvance
	opts.RepeatChapter = cfg.RepeatChapter
	opts.RepeatSegment = cfg.RepeatVerse
	opts.Transliterated = cfg.Transliterated
	opts.Speed = cfg.Speed
	opts.Volume = cfg.Volume
	opts.Muted = cfg.Muted
	opts.Logger = log.Default()

	p, err := ui.NewProgram(uiCfg, out, ld, opts)
	if err != nil {
		return fmt.Errorf("unable to start player: %w", err)
	}

	// Run Bubble Tea program
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = closeLog()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// A .env in the working directory may set DASHAKAM_* variables
	_ = godotenv.Load()

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
	rootCmd.PersistentFlags().Bool("debug", false, "write a debug log to the cache dir")

	rootCmd.Flags().StringP("docs", "d", ".", "directory or URL holding the chapter documents")
	rootCmd.Flags().String("audio-dir", "", "directory or URL holding the recordings (default: the documents base)")
	rootCmd.Flags().Bool("no-audio", false, "play silently, keeping time without a sound card")
	rootCmd.Flags().Int64("cache-size", loader.DefaultCacheSize, "bytes of parsed documents to keep in memory")
	rootCmd.Flags().Int64("disk-cache", defaultDiskCache, "bytes of fetched documents to keep on disk (0 to disable)")
	rootCmd.Flags().Float64("speed", 1.0, "playback speed (0.5 to 2)")
	rootCmd.Flags().Float64("volume", 1.0, "volume (0 to 1)")
	rootCmd.Flags().Bool("mute", false, "start muted")
	rootCmd.Flags().BoolP("repeat", "r", false, "repeat the dashakam")
	rootCmd.Flags().Bool("repeat-verse", false, "repeat the current verse")
	rootCmd.Flags().BoolP("transliterate", "t", false, "show the English transliteration")
	rootCmd.Flags().Bool("advance", true, "continue with the next dashakam when one ends")
	rootCmd.Flags().Bool("autoplay", false, "start playing right away")
	rootCmd.Flags().Duration("tick", ui.DefaultTick, "how often the verse highlight follows the audio")
	rootCmd.Flags().StringP("style", "s", styles.AutoStyle, "style name or JSON path")
	rootCmd.Flags().UintP("width", "w", 0, "word-wrap at width (set to 0 to detect)")
	rootCmd.Flags().BoolVarP(&plain, "plain", "p", false, "print the dashakam instead of playing it")
	rootCmd.Flags().BoolP("mouse", "m", false, "enable mouse wheel")
	_ = rootCmd.Flags().MarkHidden("mouse")

	// Config bindings
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("docs", rootCmd.Flags().Lookup("docs"))
	_ = viper.BindPFlag("audio.dir", rootCmd.Flags().Lookup("audio-dir"))
	_ = viper.BindPFlag("audio.disabled", rootCmd.Flags().Lookup("no-audio"))
	_ = viper.BindPFlag("cache_size", rootCmd.Flags().Lookup("cache-size"))
	_ = viper.BindPFlag("disk_cache", rootCmd.Flags().Lookup("disk-cache"))
	_ = viper.BindPFlag("speed", rootCmd.Flags().Lookup("speed"))
	_ = viper.BindPFlag("volume", rootCmd.Flags().Lookup("volume"))
	_ = viper.BindPFlag("mute", rootCmd.Flags().Lookup("mute"))
	_ = viper.BindPFlag("repeat", rootCmd.Flags().Lookup("repeat"))
	_ = viper.BindPFlag("repeat_verse", rootCmd.Flags().Lookup("repeat-verse"))
	_ = viper.BindPFlag("transliterate", rootCmd.Flags().Lookup("transliterate"))
	_ = viper.BindPFlag("advance", rootCmd.Flags().Lookup("advance"))
	_ = viper.BindPFlag("autoplay", rootCmd.Flags().Lookup("autoplay"))
	_ = viper.BindPFlag("tick", rootCmd.Flags().Lookup("tick"))
	_ = viper.BindPFlag("style", rootCmd.Flags().Lookup("style"))
	_ = viper.BindPFlag("width", rootCmd.Flags().Lookup("width"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))

	viper.SetDefault("chapter", int(chapter.First))
	viper.SetDefault("docs", ".")
	viper.SetDefault("speed", 1.0)
	viper.SetDefault("volume", 1.0)
	viper.SetDefault("advance", true)
	viper.SetDefault("tick", ui.DefaultTick)
	viper.SetDefault("cache_size", loader.DefaultCacheSize)
	viper.SetDefault("disk_cache", defaultDiskCache)
	viper.SetDefault("style", styles.AutoStyle)
	viper.SetDefault("width", 0)

	rootCmd.AddCommand(configCmd, manCmd, generateCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "dashakam")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "dashakam")}, dirs...)
	}

	if c := os.Getenv("DASHAKAM_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("dashakam")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("dashakam")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "dashakam.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
