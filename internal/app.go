// Package internal provides the App struct that wires all components of tg
// together and initializes the CLI layer.
package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/valter-silva-au/taskgraph/internal/cli"
	"github.com/valter-silva-au/taskgraph/internal/core"
	"github.com/valter-silva-au/taskgraph/internal/logging"
	"github.com/valter-silva-au/taskgraph/internal/observability"
	"github.com/valter-silva-au/taskgraph/internal/storage"
	"github.com/valter-silva-au/taskgraph/pkg/models"
)

const (
	// EventLogFileName is the append-only domain event log in the base path.
	EventLogFileName = ".tg_events.jsonl"
	// LogFileName is the structured log written inside the store directory
	// unless log.file is configured.
	LogFileName = "tg.log"
	// HomeEnv overrides the workspace lookup.
	HomeEnv = "TG_HOME"
)

// App holds all service dependencies for tg.
type App struct {
	BasePath string
	StoreDir string
	Config   *models.GlobalConfig

	ConfigMgr core.ConfigurationManager
	Logger    *logging.Logger

	// Storage layer
	TaskStore storage.TaskStoreManager
	DepStore  storage.DependencyStoreManager
	Snapshot  core.SnapshotSource

	// Core services
	TaskMgr  core.TaskManager
	DepMgr   core.DependencyManager
	GraphSvc core.GraphService

	// Observability
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
}

// NewApp creates and wires all components. basePath is the workspace root
// holding .tgconfig; the store directory is resolved relative to it.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadGlobalConfig()
	if err != nil {
		return nil, err
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	app.StoreDir = cfg.StoreDir
	if !filepath.IsAbs(app.StoreDir) {
		app.StoreDir = filepath.Join(basePath, app.StoreDir)
	}

	// --- Logging ---
	logPath := cfg.Log.File
	if logPath == "" {
		logPath = filepath.Join(app.StoreDir, LogFileName)
	} else if !filepath.IsAbs(logPath) {
		logPath = filepath.Join(basePath, logPath)
	}
	app.Logger, err = logging.NewLogger(logPath, cfg.Log.Level)
	if err != nil {
		// Non-fatal: keep working without a log file.
		app.Logger = logging.NopLogger()
	}

	// --- Storage layer ---
	app.TaskStore = storage.NewTaskStoreManager(app.StoreDir)
	app.DepStore = storage.NewDependencyStoreManager(app.StoreDir)
	app.Snapshot = core.NewStoreSnapshotSource(app.TaskStore, app.DepStore)

	// --- Observability ---
	app.EventLog, err = observability.NewJSONLEventLog(filepath.Join(basePath, EventLogFileName))
	if err != nil {
		// Non-fatal: disable observability if log can't be created.
		app.Logger.Warn("event log disabled", "error", err)
		app.EventLog = nil
	}
	var events core.EventLogger
	if app.EventLog != nil {
		events = &eventLogAdapter{log: app.EventLog}
		app.AlertEngine = observability.NewAlertEngine(app.EventLog, observability.DefaultAlertThresholds())
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}
	if cfg.Notifications.Enabled && cfg.Notifications.Slack.WebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(cfg.Notifications.Slack.WebhookURL)
	}

	// --- Core services ---
	graphCfg := core.GraphServiceConfig{Layout: core.LayoutOptions(cfg), MaxDepth: cfg.MaxDepth}
	app.TaskMgr = core.NewTaskManager(app.StoreDir, app.TaskStore, app.DepStore, cfg.GuardMode, app.Logger, events)
	app.DepMgr = core.NewDependencyManager(app.StoreDir, app.TaskStore, app.DepStore, app.Logger, events)
	app.GraphSvc = core.NewGraphService(app.Snapshot, graphCfg, app.Logger, events)

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.StoreDir = app.StoreDir
	cli.ConfigMgr = app.ConfigMgr
	cli.TaskMgr = app.TaskMgr
	cli.DepMgr = app.DepMgr
	cli.GraphSvc = app.GraphSvc
	cli.Snapshot = app.Snapshot
	cli.GraphConfig = graphCfg
	cli.Logger = app.Logger
	cli.Events = events
	cli.WatchDebounce = time.Duration(cfg.WatchDebounceMs) * time.Millisecond
	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	cli.Notifier = app.Notifier

	return app, nil
}

// Close releases the event log and log file handles. It is safe to call on
// an App whose EventLog is nil.
func (a *App) Close() error {
	var errs []error
	if a.EventLog != nil {
		if err := a.EventLog.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Logger != nil {
		if err := a.Logger.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ResolveBasePath determines the workspace root. TG_HOME wins; otherwise the
// nearest directory at or above the working directory holding .tgconfig (or
// .tgconfig.yaml); otherwise the working directory itself.
func ResolveBasePath() string {
	if home := os.Getenv(HomeEnv); home != "" {
		return home
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	for dir := cwd; ; {
		for _, name := range []string{core.ConfigFileName, core.ConfigFileName + ".yaml"} {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return cwd
}

// eventLogAdapter adapts observability.EventLog to core.EventLogger.
type eventLogAdapter struct {
	log observability.EventLog
}

func (a *eventLogAdapter) LogEvent(eventType string, data map[string]any) error {
	if err := a.log.Write(observability.NewEvent(eventType, eventMessage(eventType, data), data)); err != nil {
		return fmt.Errorf("writing %s event: %w", eventType, err)
	}
	return nil
}

// eventMessage builds the human-readable msg field of an event.
func eventMessage(eventType string, data map[string]any) string {
	switch eventType {
	case observability.EventTaskCreated:
		return fmt.Sprintf("task %v created", data["task_id"])
	case observability.EventTaskStatusChanged:
		return fmt.Sprintf("task %v moved to %v", data["task_id"], data["new_status"])
	case observability.EventTaskRemoved:
		return fmt.Sprintf("task %v removed", data["task_id"])
	case observability.EventTaskStartBlocked:
		return fmt.Sprintf("task %v cannot start", data["task_id"])
	case observability.EventDependencyAdded:
		return fmt.Sprintf("%v now depends on %v", data["task_id"], data["depends_on"])
	case observability.EventDependencyRemoved:
		return fmt.Sprintf("dependency %v removed", data["edge_id"])
	case observability.EventDependencyRejected:
		return fmt.Sprintf("dependency %v -> %v rejected: %v", data["task_id"], data["depends_on"], data["reason"])
	case observability.EventGraphCycleDetected:
		return "dependency cycle detected"
	case observability.EventGraphRecomputed:
		return "graph recomputed"
	default:
		return eventType
	}
}
