package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"netrics/pkg/conf"
	"netrics/pkg/database"
	"netrics/pkg/measurement"
	"netrics/pkg/models"
	"netrics/pkg/proc"
	"netrics/pkg/task"
)

var (
	debugFlag bool
	logger    *slog.Logger
	runID     uuid.UUID
)

var rootCmd = &cobra.Command{
	Use:   "netrics",
	Short: "Connectivity-gated network measurement tasks",
	Long: `netrics runs one network measurement task per invocation, reading
JSON parameters from stdin and writing one JSON result document to
stdout. The exit code reports the task's outcome to the scheduler.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var logLevel slog.Level
		if debugFlag {
			logLevel = slog.LevelDebug
		} else {
			logLevel = slog.LevelInfo
		}

		runID = uuid.New()
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})).
			With("task", cmd.Name(), "run_id", runID)
		slog.SetDefault(logger)
	},
}

// taskCommand wraps one measurement as a subcommand. Every task shares
// the same invocation contract: parameters on stdin, the shaped result
// on stdout, logs on stderr and the task status as the exit code.
func taskCommand(use, short string, run func(*measurement.Service, context.Context) task.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(int(runTask(cmd.Name(), run)))
		},
	}
}

func runTask(name string, run func(*measurement.Service, context.Context) task.Status) task.Status {
	defaults, err := conf.Load()
	if err != nil {
		task.Critical(logger, "defaults file unusable", "error", err)
		return task.StatusConfError
	}

	ctx := context.Background()

	sink := task.NewSink(os.Stdout)
	service := measurement.NewService(logger, proc.ExecRunner{}, defaults, os.Stdin, sink)

	status := run(service, ctx)

	logger.Info("task finished", "status", status.String(), "code", int(status))

	if defaults.Database.Enabled {
		archive(ctx, defaults, name, status, sink)
	}

	return status
}

// archive inserts the written result into the Postgres archive.
// Archive failures are logged errors, never task failures.
func archive(ctx context.Context, defaults conf.Defaults, name string, status task.Status, sink *task.Sink) {
	payload := sink.Payload()
	if payload == nil {
		return
	}

	db, err := database.NewDB(defaults.Database)
	if err != nil {
		logger.Error("archive database unavailable", "error", err)
		return
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		logger.Error("archive schema initialization failed", "error", err)
		return
	}

	record := &models.TaskRecord{
		RunID:  runID,
		Task:   name,
		Status: int(status),
		Result: payload,
	}

	if err := db.InsertRecord(ctx, record); err != nil {
		logger.Error("archive insert failed", "error", err)
		return
	}

	logger.Debug("result archived", "task", name)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "Enable debug logging")

	rootCmd.AddCommand(
		taskCommand("ping", "Measure round-trip latency to configured hosts",
			(*measurement.Service).Ping),
		taskCommand("dns-latency", "Measure DNS query latency against a configured resolver",
			(*measurement.Service).DNSLatency),
		taskCommand("hops", "Count router hops to configured hosts with scamper",
			(*measurement.Service).Hops),
		taskCommand("hops-traceroute", "Count router hops to configured hosts with traceroute",
			(*measurement.Service).HopsTraceroute),
		taskCommand("lml", "Measure last-mile round-trip latency with scamper",
			(*measurement.Service).LastMile),
		taskCommand("lml-traceroute", "Measure last-mile round-trip latency with traceroute and ping",
			(*measurement.Service).LastMileTraceroute),
		taskCommand("speedtest", "Measure internet bandwidth with the configured speedtest client",
			(*measurement.Service).Speedtest),
		taskCommand("devices", "Count devices connected to the local network",
			(*measurement.Service).Devices),
		taskCommand("ip", "Retrieve the public IP address from a reflection service",
			(*measurement.Service).PublicIP),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(int(task.StatusConfError))
	}
}
