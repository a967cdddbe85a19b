// Package main is the entry point for the softdimd dimming daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
	godbus "github.com/godbus/dbus/v5"

	"github.com/jmylchreest/softdim/internal/config"
	"github.com/jmylchreest/softdim/internal/daemon"
	"github.com/jmylchreest/softdim/internal/dbus"
	"github.com/jmylchreest/softdim/internal/display"
	"github.com/jmylchreest/softdim/internal/settings"
	"github.com/jmylchreest/softdim/internal/theme"
)

const (
	appID   = "io.github.jmylchreest.softdimd"
	appName = "softdimd"
)

var (
	// Build-time variables
	version = "dev"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	themeName := flag.String("theme", theme.DefaultThemeName, "Overlay theme name")
	settingsPath := flag.String("settings", "", "Path to settings file (default: ~/.config/softdim/settings.toml)")
	flag.Parse()

	if *showVersion {
		fmt.Println(appName, "version", version)
		os.Exit(0)
	}

	// The debug setting moves this between Info and Debug at runtime
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	path := *settingsPath
	if path == "" {
		var err error
		path, err = config.SettingsPath()
		if err != nil {
			logger.Error("failed to get settings path", "error", err)
			os.Exit(1)
		}
	}

	run(logger, level, path, *themeName)
}

// dispatch hands fn to the GTK main loop.
func dispatch(fn func()) {
	glib.IdleAdd(fn)
}

func run(logger *slog.Logger, level *slog.LevelVar, settingsPath, themeName string) {
	logger.Info("starting softdimd", "version", version)

	app := adw.NewApplication(appID, 0)

	// Shared state between GTK main loop and signal handlers
	var (
		store           *settings.FileStore
		settingsWatcher *settings.Watcher
		power           *dbus.PowerProxy
		lockWatcher     *dbus.LockWatcher
		topology        *display.Topology
		inhibitor       *display.BypassInhibitor
		themeLoader     *theme.Loader
		rt              *daemon.Runtime
		running         atomic.Bool
	)

	var stopOnce sync.Once
	stop := func() {
		stopOnce.Do(func() {
			shutdown(rt, inhibitor, topology, themeLoader, lockWatcher, power, settingsWatcher)
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()

		glib.IdleAdd(func() {
			if running.Load() {
				stop()
				app.Quit()
			}
		})
	}()

	app.ConnectActivate(func() {
		if running.Load() {
			logger.Warn("application already running")
			return
		}
		running.Store(true)

		conn, busErr := godbus.SessionBus()
		if busErr != nil {
			logger.Warn("session bus unavailable, running without backlight or lock tracking", "error", busErr)
			conn = nil
		}

		var notify func(*dbus.Notification) error
		if conn != nil {
			notifications := dbus.NewNotifications(conn, logger)
			notify = func(n *dbus.Notification) error {
				_, err := notifications.Send(n)
				return err
			}
		}
		notifier := daemon.NewInternalNotifier(notify, logger)

		var err error
		store, err = settings.NewFileStore(settingsPath, logger)
		if err != nil {
			logger.Error("failed to load settings", "path", settingsPath, "error", err)
			notifier.NotifySettingsError(err)
			app.Quit()
			return
		}
		logger.Info("settings loaded", "path", settingsPath)

		settingsWatcher, err = settings.NewWatcher(store, dispatch, logger)
		if err != nil {
			logger.Warn("failed to create settings watcher", "error", err)
		} else {
			settingsWatcher.SetErrorCallback(notifier.NotifySettingsError)
			if err := settingsWatcher.Start(); err != nil {
				logger.Warn("failed to start settings watcher", "error", err)
			}
		}

		topology, err = display.NewTopology(logger)
		if err != nil {
			logger.Error("failed to open display", "error", err)
			app.Quit()
			return
		}
		topology.Start()

		themeLoader = theme.NewLoader(logger)
		if err := themeLoader.Load(themeName); err != nil {
			logger.Warn("failed to load theme, using default", "theme", themeName, "error", err)
			notifier.NotifyThemeError(err)
		}
		themeLoader.Apply()
		themeLoader.StartHotReload(ctx)

		gtkApp := &app.Application
		host, err := display.NewOverlayHost(gtkApp, topology, logger)
		if err != nil {
			logger.Error("failed to create overlay host", "error", err)
			notifier.NotifyEnableError(err)
			app.Quit()
			return
		}
		inhibitor = display.NewBypassInhibitor(gtkApp, topology, logger)

		deps := daemon.Deps{
			Settings:       store,
			Topology:       topology,
			TopologyEvents: topology,
			Identities:     topology,
			Surfaces:       host,
			Bypass:         inhibitor,
			Dispatch:       dispatch,
			Logger:         logger,
		}

		var lock daemon.LockState
		if conn != nil {
			power = dbus.NewPowerProxy(conn, dispatch, logger)
			if err := power.Start(); err != nil {
				logger.Warn("failed to start backlight proxy", "error", err)
				power = nil
			} else {
				deps.Backlight = power
				deps.BacklightEvents = power
			}

			if dc := dbus.NewDisplayConfig(conn, logger); dc.Available() {
				deps.Identities = dc
			} else {
				logger.Info("display config service not found, using GDK monitor names")
			}

			lockWatcher = dbus.NewLockWatcher(conn, dispatch, logger)
			if err := lockWatcher.Start(); err != nil {
				logger.Warn("failed to start lock watcher", "error", err)
				lockWatcher = nil
			} else {
				lock = lockWatcher
			}
		}

		rt = daemon.NewRuntime(deps, lock, level)
		if lockWatcher != nil {
			lockWatcher.SetChangeHandler(rt.OnLockChanged)
		}
		if err := rt.Start(); err != nil {
			logger.Error("failed to start dimming", "error", err)
			notifier.NotifyEnableError(err)
		}

		logger.Info("softdimd ready", "monitors", len(topology.Monitors()))

		// Create a hidden window to keep the application running
		// (GTK apps quit when all windows are closed)
		keepAliveWindow := gtk.NewWindow()
		keepAliveWindow.SetApplication(gtkApp)
		keepAliveWindow.SetDefaultSize(1, 1)
		keepAliveWindow.SetDecorated(false)
		keepAliveWindow.SetVisible(false)
	})

	app.ConnectShutdown(func() {
		logger.Info("application shutting down")
		stop()
		running.Store(false)
	})

	status := app.Run(os.Args[:1])
	cancel()

	if status != 0 {
		logger.Error("application exited with error", "status", status)
		os.Exit(status)
	}

	logger.Info("softdimd stopped")
}

// shutdown releases the overlays before tearing down what they depend on.
func shutdown(
	rt *daemon.Runtime,
	inhibitor *display.BypassInhibitor,
	topology *display.Topology,
	themeLoader *theme.Loader,
	lockWatcher *dbus.LockWatcher,
	power *dbus.PowerProxy,
	settingsWatcher *settings.Watcher,
) {
	if rt != nil {
		rt.Shutdown()
	}
	if inhibitor != nil {
		inhibitor.Close()
	}
	if topology != nil {
		topology.Stop()
	}
	if themeLoader != nil {
		themeLoader.StopHotReload()
	}
	if lockWatcher != nil {
		lockWatcher.Stop()
	}
	if power != nil {
		power.Stop()
	}
	if settingsWatcher != nil {
		_ = settingsWatcher.Stop()
	}
}
