// Package cmd contains the command-line interface for driftwatch. The root
// command wires the Docker runtime client, the registry digest client, the
// update-detection engine, the job scheduler, notifications, and the
// optional HTTP API together from flags and environment variables.
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/driftwatch/driftwatch/internal/flags"
	"github.com/driftwatch/driftwatch/internal/logging"
	"github.com/driftwatch/driftwatch/pkg/api"
	apiJobs "github.com/driftwatch/driftwatch/pkg/api/jobs"
	apiMetrics "github.com/driftwatch/driftwatch/pkg/api/metrics"
	apiUpdates "github.com/driftwatch/driftwatch/pkg/api/updates"
	"github.com/driftwatch/driftwatch/pkg/container"
	"github.com/driftwatch/driftwatch/pkg/engine"
	"github.com/driftwatch/driftwatch/pkg/filters"
	"github.com/driftwatch/driftwatch/pkg/image"
	"github.com/driftwatch/driftwatch/pkg/metrics"
	"github.com/driftwatch/driftwatch/pkg/notifications"
	"github.com/driftwatch/driftwatch/pkg/registry"
	"github.com/driftwatch/driftwatch/pkg/scheduler"
	"github.com/driftwatch/driftwatch/pkg/types"
)

// checkJobName is the scheduler key of the periodic update check.
const checkJobName = "update-check"

// version is set at build time with linker flags.
var version = "unknown"

var (
	client          types.RuntimeClient
	detectionEngine *engine.Engine
	notifier        types.Notifier
	sched           *scheduler.Scheduler

	pollInterval time.Duration
	scheduleSpec string
	filtering    string

	// latestMu guards latestRecords, the results of the most recent check
	// served by the HTTP API.
	latestMu      sync.Mutex
	latestRecords []types.UpdateRecord
)

// rootCmd is the driftwatch root command.
var rootCmd = NewRootCommand()

// NewRootCommand creates the root command with its run hooks.
func NewRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "driftwatch",
		Short:         "Reports containers whose images have newer versions in their registry",
		Long: `driftwatch periodically compares the image digest recorded against each
running container with the digest its origin registry currently serves for
the same tag, and reports newly-detected updates exactly once per change.`,
		PreRunE:       preRun,
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func init() {
	flags.RegisterDockerFlags(rootCmd)
	flags.RegisterSystemFlags(rootCmd)
	flags.RegisterAPIFlags(rootCmd)
}

// Execute runs the root command and exits on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("Execution failed")
	}
}

// preRun translates flags into the wired component graph.
func preRun(c *cobra.Command, _ []string) error {
	f := c.PersistentFlags()

	if err := flags.SetupLogging(f); err != nil {
		return err
	}

	if err := flags.GetSecretsFromFiles(c); err != nil {
		return err
	}

	var err error

	pollInterval, err = flags.PollInterval(f)
	if err != nil {
		return err
	}

	scheduleSpec, _ = f.GetString("schedule")

	include, _ := f.GetStringSlice("containers")
	exclude, _ := f.GetStringSlice("exclude-containers")

	var filter types.Filter
	filter, filtering = filters.BuildFilter(include, exclude)

	authToken, _ := f.GetString("registry-auth-token")
	if authToken == "" {
		if fromConfig, _ := f.GetBool("registry-auth-from-config"); fromConfig {
			creds, err := registry.Credentials(image.GHCRHost)
			if err != nil {
				logrus.WithError(err).Warn("No stored GHCR credentials found")
			} else {
				authToken = creds.Password
			}
		}
	}

	client = container.NewClient()
	detectionEngine = engine.New(
		client,
		registry.NewClient(registry.ClientOptions{}),
		engine.Config{Filter: filter, AuthToken: authToken},
	)

	urls, _ := f.GetStringSlice("notification-url")

	notifier, err = notifications.NewNotifier(urls, "driftwatch")
	if err != nil {
		return err
	}

	return nil
}

// run drives the check loop until the process receives SIGINT or SIGTERM.
func run(c *cobra.Command, _ []string) error {
	f := c.PersistentFlags()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if runOnce, _ := f.GetBool("run-once"); runOnce {
		return checkAndNotify(ctx)
	}

	sched = scheduler.New(scheduler.Options{})

	runOnStart, _ := f.GetBool("run-on-start")

	err := sched.Schedule(checkJobName, func() error {
		return checkAndNotify(context.Background())
	}, pollInterval, runOnStart)
	if err != nil {
		return err
	}

	// A cron expression triggers extra checks on top of the interval
	// cadence; overlap with a running check is skipped by the in-flight
	// guard, never queued.
	if scheduleSpec != "" {
		cronScheduler := cron.New()

		err := cronScheduler.AddFunc(scheduleSpec, func() {
			err := sched.RunNow(checkJobName)
			if err != nil && !errors.Is(err, scheduler.ErrJobAlreadyRunning) {
				logrus.WithError(err).Error("Cron-triggered check failed")
			}
		})
		if err != nil {
			return err
		}

		cronScheduler.Start()
		defer cronScheduler.Stop()
	}

	if err := startAPI(ctx, c); err != nil {
		return err
	}

	logging.WriteStartupMessage(c, version, pollInterval, scheduleSpec, filtering)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	<-interrupt
	logrus.Debug("Received interrupt signal, shutting down")

	cancel()
	sched.Shutdown()
	notifier.Close()

	return nil
}

// startAPI wires and starts the HTTP API when enabled.
func startAPI(ctx context.Context, c *cobra.Command) error {
	f := c.PersistentFlags()

	enabled, _ := f.GetBool("http-api")
	if !enabled {
		return nil
	}

	token, _ := f.GetString("http-api-token")

	addr, _ := f.GetString("http-api-addr")
	if addr == "" {
		addr = ":8080"
	}

	httpAPI := api.New(token, addr)

	updatesHandler := apiUpdates.New(
		func() ([]types.UpdateRecord, error) {
			if err := sched.RunNow(checkJobName); err != nil {
				return nil, err
			}

			return latest(), nil
		},
		latest,
		detectionEngine.ClearNotificationHistory,
	)
	httpAPI.RegisterFunc(updatesHandler.CheckPath, updatesHandler.HandleCheck)
	httpAPI.RegisterFunc(updatesHandler.UpdatesPath, updatesHandler.HandleUpdates)
	httpAPI.RegisterFunc(updatesHandler.HistoryPath, updatesHandler.HandleClearHistory)

	jobsHandler := apiJobs.New(sched)
	httpAPI.RegisterFunc(jobsHandler.Path, jobsHandler.Handle)

	if metricsEnabled, _ := f.GetBool("http-api-metrics"); metricsEnabled {
		metricsHandler := apiMetrics.New()
		httpAPI.RegisterFunc(metricsHandler.Path, metricsHandler.Handle)
	}

	return httpAPI.Start(ctx)
}

// checkAndNotify runs one update check, records metrics, caches the results
// for the HTTP API, and notifies about anything new.
func checkAndNotify(ctx context.Context) error {
	records, err := detectionEngine.CheckForNewUpdates(ctx)
	if err != nil {
		metrics.Default().RegisterCheck(metrics.Metric{Failed: true})

		return err
	}

	metrics.Default().RegisterCheck(metrics.Metric{Updates: len(records)})

	latestMu.Lock()
	latestRecords = records
	latestMu.Unlock()

	for _, record := range records {
		logrus.WithFields(logrus.Fields{
			"container":     record.ContainerName,
			"image":         record.Image,
			"local_digest":  record.LocalDigest,
			"remote_digest": record.RemoteDigest,
		}).Info("New image update detected")
	}

	if err := notifier.SendUpdates(records); err != nil {
		logrus.WithError(err).Error("Failed to deliver update notification")
	}

	return nil
}

// latest returns the cached results of the most recent check.
func latest() []types.UpdateRecord {
	latestMu.Lock()
	defer latestMu.Unlock()

	return latestRecords
}
