// Package main provides the focusnoise entry point.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"focusnoise/internal/app/session"
	"focusnoise/internal/app/weather"
	"focusnoise/internal/domain/rank"
	"focusnoise/internal/domain/receipt"
	"focusnoise/internal/infra/audio"
	"focusnoise/internal/infra/config"
	"focusnoise/internal/infra/logger"
	"focusnoise/internal/infra/statsfile"
	"focusnoise/internal/ui/dashboard"
)

const gongRing = 3 * time.Second

var (
	app        = kingpin.New("focusnoise", "Layered ambient audio for timed focus sessions")
	configPath = app.Flag("config", "Path to config file").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: discard during a session)").String()
	assetsDir  = app.Flag("assets", "Path to the sound assets directory").String()

	// play command (default)
	playCmd     = app.Command("play", "Start a focus session (default)").Default()
	playMinutes = playCmd.Flag("duration", "Session length in minutes (0 = open-ended)").Default("-1").Float64()
	playVolume  = playCmd.Flag("volume", "Initial volume (0-100)").Default("-1").Int()
	playWeather = playCmd.Flag("weather", "Weather event frequency: off, low, medium, high").String()
	playTasks   = playCmd.Flag("task", "What you plan to work on (repeatable, up to 3)").Strings()
	playSounds  = playCmd.Arg("sounds", "Base ambience sounds to layer").Strings()

	// stats command
	statsCmd = app.Command("stats", "Show cumulative focus stats")

	// sounds command
	soundsCmd = app.Command("sounds", "List available ambience sounds")

	// reset-stats command
	resetCmd = app.Command("reset-stats", "Delete the stats file")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// The dashboard owns the terminal while a session runs, so logs are
	// discarded unless routed to a file. Non-session commands log to stderr.
	loggerConfig := logger.Config{Output: "discard", Level: "info"}
	if command != playCmd.FullCommand() {
		loggerConfig.Output = "stderr"
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := loadConfig()
	if err != nil {
		fatal(err)
	}

	switch command {
	case playCmd.FullCommand():
		if err := runPlay(cfg); err != nil {
			fatal(err)
		}
	case statsCmd.FullCommand():
		if err := runStats(); err != nil {
			fatal(err)
		}
	case soundsCmd.FullCommand():
		if err := runSounds(cfg); err != nil {
			fatal(err)
		}
	case resetCmd.FullCommand():
		if err := runReset(); err != nil {
			fatal(err)
		}
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func loadConfig() (*config.Config, error) {
	path := *configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			zlog.Warn().Err(err).Msg("Cannot resolve config dir, using defaults")
			return config.Load("")
		}
		path = p
	}
	return config.Load(path)
}

func openLibrary(cfg *config.Config) (*audio.Library, error) {
	dir := *assetsDir
	if dir == "" {
		dir = cfg.AssetsDir
	}
	return audio.OpenLibrary(audio.ResolveAssetsDir(dir))
}

func runPlay(cfg *config.Config) error {
	lib, err := openLibrary(cfg)
	if err != nil {
		return err
	}

	tracks, err := resolveTracks(lib, *playSounds)
	if err != nil {
		return err
	}

	spec := session.Spec{
		Duration:     cfg.Duration(),
		Tracks:       tracks,
		Volume:       cfg.InitialVolume(),
		WeatherLevel: weather.ParseLevel(cfg.WeatherFreq),
		Tasks:        *playTasks,
	}
	if *playMinutes >= 0 {
		spec.Duration = time.Duration(*playMinutes * float64(time.Minute))
	}
	if *playVolume >= 0 {
		spec.Volume = float64(*playVolume) / 100
	}
	if *playWeather != "" {
		spec.WeatherLevel = weather.ParseLevel(*playWeather)
	}
	if err := spec.Validate(); err != nil {
		return err
	}

	profile, err := buildProfile(cfg, lib, spec)
	if err != nil {
		return err
	}

	statsPath, err := statsfile.DefaultPath()
	if err != nil {
		return err
	}

	engCfg := session.Config{
		Fade:   cfg.Fade(),
		Policy: rank.Policy{CountGraceCancel: cfg.CountGraceCancel},
	}
	if cfg.PlayGong && lib.HasOneShot("gong.mp3") {
		engCfg.GongSound = "gong.mp3"
		engCfg.GongRing = gongRing
	}

	eng := session.New(spec, engCfg, session.Deps{
		OpenDevice: func() (audio.Device, error) {
			return audio.Open(lib, audio.DeviceConfig{})
		},
		Store:   statsfile.New(statsPath),
		Rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
		Now:     time.Now,
		Profile: profile,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runSession(ctx, eng)
}

// runSession drives the engine and the dashboard together: the engine runs
// in a goroutine feeding snapshots into the tea program, and the receipt is
// printed once the terminal is back in normal mode.
func runSession(ctx context.Context, eng *session.Engine) error {
	p := tea.NewProgram(dashboard.New(eng))

	type result struct {
		rec *receipt.Receipt
		err error
	}
	done := make(chan result, 1)

	go func() {
		for snap := range eng.Snapshots() {
			p.Send(dashboard.SnapshotMsg(snap))
		}
	}()
	go func() {
		rec, err := eng.Run(ctx)
		done <- result{rec, err}
		p.Send(dashboard.DoneMsg{})
	}()

	if _, err := p.Run(); err != nil {
		// The terminal is unusable; let the engine wind down cleanly anyway.
		eng.Cancel()
		<-done
		return err
	}

	res := <-done
	if res.rec != nil {
		fmt.Print("\n" + dashboard.RenderReceipt(*res.rec))
	}
	if res.err != nil {
		if res.rec != nil {
			// Receipt survived; the failure is a warning, not a session loss.
			fmt.Fprintf(os.Stderr, "Warning: %v\n", res.err)
			return nil
		}
		return res.err
	}
	return nil
}

// resolveTracks maps user-supplied sound names to asset ids, matching
// loosely against filenames. With no names given it lists what is
// available instead of guessing.
func resolveTracks(lib *audio.Library, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no sounds selected; available: %s", strings.Join(lib.BaseNames(), ", "))
	}
	tracks := make([]string, 0, len(names))
	for _, name := range names {
		id, ok := lib.ResolveBase(name)
		if !ok {
			return nil, fmt.Errorf("unknown sound %q; available: %s", name, strings.Join(lib.BaseNames(), ", "))
		}
		tracks = append(tracks, id)
	}
	return tracks, nil
}

// buildProfile derives the weather profile for the session, applying any
// per-level config overrides on top of the built-in parameters.
func buildProfile(cfg *config.Config, lib *audio.Library, spec session.Spec) (*weather.Profile, error) {
	level := spec.WeatherLevel
	profile, ok := weather.ProfileFor(level, spec.Tracks, lib.HasOneShot)
	if !ok {
		return nil, nil
	}

	override, err := cfg.WeatherOverrideFor(string(level))
	if err != nil {
		return nil, err
	}
	if override != nil {
		if override.Probability > 0 {
			profile.Probability = override.Probability
		}
		if override.CooldownSec > 0 {
			profile.Cooldown = time.Duration(override.CooldownSec * float64(time.Second))
		}
	}
	return &profile, nil
}

func runStats() error {
	path, err := statsfile.DefaultPath()
	if err != nil {
		return err
	}
	stats, err := statsfile.New(path).Load()
	if err != nil {
		return err
	}

	fmt.Printf("Total focus:   %.1fh\n", stats.TotalHours())
	fmt.Printf("Rank:          %s\n", stats.Tier.Title())
	if next, ok := nextThreshold(stats.Tier); ok {
		fmt.Printf("Next rank at:  %.0fh\n", next)
	}
	fmt.Printf("Streak:        %d days\n", stats.Streak)
	if !stats.LastSession.IsZero() {
		fmt.Printf("Last session:  %s\n", stats.LastSession.Format("2006-01-02"))
	}
	return nil
}

func nextThreshold(tier rank.Tier) (float64, bool) {
	next := tier + 1
	if next > rank.TierTimeLord {
		return 0, false
	}
	return next.Threshold(), true
}

func runSounds(cfg *config.Config) error {
	lib, err := openLibrary(cfg)
	if err != nil {
		return err
	}
	for _, name := range lib.BaseNames() {
		fmt.Println(audio.DisplayName(name))
	}
	return nil
}

func runReset() error {
	path, err := statsfile.DefaultPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	fmt.Println("Stats reset.")
	return nil
}
