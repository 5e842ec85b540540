package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"wifimgr/internal/app"
	"wifimgr/internal/config"
	"wifimgr/internal/storage"
	"wifimgr/internal/wlan"
	logx "wifimgr/pkg/logx"
)

var CLI struct {
	Config   string `short:"c" help:"Configuration file path (searched in the usual locations when empty)" type:"path"`
	EnvFile  string `help:"Load environment variables from this file" default:".env"`
	LogLevel string `help:"Override logging.level (debug, info, warn, error)"`

	Monitor struct{} `cmd:"" default:"1" help:"Watch the wifi adapter and send notifications (default)"`

	TestNotif struct{} `cmd:"" name:"test-notif" help:"Send one test notification to every channel"`

	Status struct{} `cmd:"" help:"Print the current connection"`

	Scan struct{} `cmd:"" help:"Print visible networks, strongest first"`

	InitConfig struct {
		Force bool `help:"Overwrite an existing file"`
	} `cmd:"" name:"init-config" help:"Write the default configuration file"`

	History struct {
		Limit int `short:"n" help:"Number of entries to show" default:"20"`
	} `cmd:"" help:"Show recently recorded notifications"`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("wifimgr"),
		kong.Description("Wifi adapter monitor with desktop and GNTP notifications."),
		kong.UsageOnError(),
	)

	if err := loadEnvFile(CLI.EnvFile); err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	switch kctx.Command() {
	case "monitor":
		err = runMonitor(ctx)
	case "test-notif":
		err = runTest(ctx)
	case "status":
		err = runStatus(ctx)
	case "scan":
		err = runScan(ctx)
	case "init-config":
		err = runInitConfig()
	case "history":
		err = runHistory(ctx, CLI.History.Limit)
	default:
		err = fmt.Errorf("unknown command %q", kctx.Command())
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

// loadEnvFile is quiet when the default file is absent.
func loadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("env file %s: %w", path, err)
	}
	return nil
}

func loadConfig(log logx.Logger) (*config.Config, string) {
	cfg, from, err := config.Load(CLI.Config)
	if err != nil {
		log.Warn("config unreadable; using defaults", logx.Err(err))
	}
	overlay(cfg)
	return cfg, from
}

// overlay layers the environment and flags over a parsed config.
func overlay(cfg *config.Config) {
	config.ApplyEnv(cfg, os.Getenv)
	if lvl := strings.TrimSpace(CLI.LogLevel); lvl != "" {
		cfg.Logging.Level = lvl
	}
}

func runMonitor(ctx context.Context) error {
	boot := logx.NewConsole("info").With(logx.String("comp", "main"))
	cfg, from := loadConfig(boot)

	ensureConfigFile(from, boot)
	boot.Info("config loaded", logx.String("path", from))

	a, err := app.New(from, cfg, app.Deps{Overlay: overlay})
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

// ensureConfigFile writes plain defaults when path is missing, so the
// watcher has a file to follow. Environment and flag overrides stay in
// memory only.
func ensureConfigFile(path string, log logx.Logger) {
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		return
	}
	def := config.Defaults()
	def.Normalize()
	if err := config.Save(def, path); err != nil {
		log.Warn("could not write default config", logx.String("path", path), logx.Err(err))
		return
	}
	log.Info("wrote default config", logx.String("path", path))
}

func runTest(ctx context.Context) error {
	cfg, from := loadConfig(logx.NewConsole("info"))
	a, err := app.New(from, cfg, app.Deps{})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	failed := 0
	for _, r := range a.Test(ctx) {
		if r.Err != nil {
			failed++
			fmt.Printf("%-24s FAILED: %v\n", r.Channel, r.Err)
			continue
		}
		fmt.Printf("%-24s ok\n", r.Channel)
	}
	if failed > 0 {
		return fmt.Errorf("%d channel(s) failed", failed)
	}
	return nil
}

func runStatus(ctx context.Context) error {
	cfg, _ := loadConfig(logx.NewConsole("warn"))
	ad, err := app.NewAdapter(cfg.Adapter)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	fmt.Println(app.StatusSummary(ctx, ad, app.UnitsFor(cfg.Adapter), nil))
	return nil
}

func runScan(ctx context.Context) error {
	cfg, _ := loadConfig(logx.NewConsole("warn"))
	ad, err := app.NewAdapter(cfg.Adapter)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	nets, err := ad.Scan(ctx)
	if err != nil {
		return err
	}
	wlan.SortBySignal(nets)
	for _, n := range nets {
		mark := " "
		if n.Connected {
			mark = "*"
		}
		lock := ""
		if n.Secure {
			lock = "secured"
		}
		fmt.Printf("%s %-32s %3d%% %s %s\n", mark, n.SSID, n.Signal, wlan.SignalBar(n.Signal), lock)
	}
	return nil
}

func runInitConfig() error {
	path := strings.TrimSpace(CLI.Config)
	if path == "" {
		path = config.DefaultPath()
	}
	if _, err := os.Stat(path); err == nil && !CLI.InitConfig.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	cfg := config.Defaults()
	cfg.Normalize()
	if err := config.Save(cfg, path); err != nil {
		return err
	}
	fmt.Println("wrote", path)
	return nil
}

func runHistory(ctx context.Context, limit int) error {
	log := logx.NewConsole("warn")
	cfg, _ := loadConfig(log)
	j, err := app.OpenJournal(cfg, log)
	if err != nil {
		return err
	}
	if j == nil {
		return errors.New("storage is disabled (set storage.driver and storage.path)")
	}
	defer func() { _ = j.Close() }()

	entries, err := j.Recent(ctx, limit)
	if err != nil {
		return err
	}
	printEntries(entries)
	return nil
}

func printEntries(entries []storage.Entry) {
	for _, e := range entries {
		fmt.Printf("%s  %-16s %s: %s\n", e.At.Local().Format(time.DateTime), e.Kind, e.Title, e.Body)
	}
}
