package cli

import (
	"time"

	"github.com/valter-silva-au/taskgraph/internal/core"
	"github.com/valter-silva-au/taskgraph/internal/logging"
	"github.com/valter-silva-au/taskgraph/internal/observability"
)

// Service instances, set during app initialization in app.go.
var (
	BasePath  string
	StoreDir  string
	ConfigMgr core.ConfigurationManager

	TaskMgr  core.TaskManager
	DepMgr   core.DependencyManager
	GraphSvc core.GraphService

	// Snapshot and GraphConfig let graph commands build a GraphService over
	// a filtered snapshot when --match is given.
	Snapshot    core.SnapshotSource
	GraphConfig core.GraphServiceConfig

	Logger        *logging.Logger
	Events        core.EventLogger
	WatchDebounce time.Duration
)

// Observability service instances.
var (
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
)
