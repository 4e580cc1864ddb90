package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/snowpull/snowpull/internal/config"
	"github.com/snowpull/snowpull/internal/logging"
	"github.com/snowpull/snowpull/pkg/executor"
	"github.com/snowpull/snowpull/pkg/inventory"
	"github.com/snowpull/snowpull/pkg/manifest"
	"github.com/snowpull/snowpull/pkg/planner"
	"github.com/snowpull/snowpull/pkg/progress"
	"github.com/snowpull/snowpull/pkg/s3client"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

var (
	endpoint        string
	accessKeyID     string
	secretAccessKey string
	region          string
	logFile         string
	logLevel        string

	bucket       string
	dest         string
	manifestFile string
	workers      int
	dryRun       bool
	excludes     []string
	outFile      string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "snowpull",
		Short: "Pull bucket contents off an S3-compatible storage appliance",
		Long: `snowpull reconciles a bucket on an S3-compatible appliance (such as an
AWS Snowball) against a local directory and downloads only the missing or
size-changed objects. Runs are idempotent: interrupt at any point and a
subsequent run resumes from whatever already landed on disk.`,
		Version:       fmt.Sprintf("%s (commit: %s, built at: %s by %s)", version, commit, date, builtBy),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "Appliance S3 endpoint URL (or SNOWPULL_ENDPOINT)")
	rootCmd.PersistentFlags().StringVar(&accessKeyID, "access-key-id", "", "Access key ID (or AWS_ACCESS_KEY_ID)")
	rootCmd.PersistentFlags().StringVar(&secretAccessKey, "secret-access-key", "", "Secret access key (or AWS_SECRET_ACCESS_KEY)")
	rootCmd.PersistentFlags().StringVar(&region, "region", "", "Signing region (uses SDK default if not specified)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file, with rotation")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Download missing or changed objects from a bucket to a local folder",
		RunE:  runSync,
	}
	syncCmd.Flags().StringVar(&bucket, "bucket", "", "Bucket name on the appliance")
	syncCmd.Flags().StringVar(&dest, "dest", "", "Local destination folder (must exist)")
	syncCmd.Flags().StringVar(&manifestFile, "manifest", "", "CSV manifest restricting the work set by name")
	syncCmd.Flags().IntVar(&workers, "workers", 1, "Maximum concurrent downloads")
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report the work set without downloading")
	syncCmd.Flags().StringSliceVar(&excludes, "exclude", nil, "Exclude patterns (multiple allowed)")
	_ = syncCmd.MarkFlagRequired("bucket")
	_ = syncCmd.MarkFlagRequired("dest")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Snapshot the full bucket inventory to a CSV manifest",
		RunE:  runExport,
	}
	exportCmd.Flags().StringVar(&bucket, "bucket", "", "Bucket name on the appliance")
	exportCmd.Flags().StringVar(&outFile, "out", "", "Path of the manifest file to write")
	_ = exportCmd.MarkFlagRequired("bucket")
	_ = exportCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(syncCmd, exportCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

// setup resolves config, builds the logger and the appliance client. Any
// failure here is fatal; nothing has been transferred yet.
func setup(cmd *cobra.Command) (*zap.Logger, *s3client.AWSClient, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.NewLogger(logging.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return nil, nil, err
	}

	var configOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		configOpts = append(configOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(cmd.Context(), configOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("load AWS config: %w", err)
	}

	return logger, s3client.NewAWSClient(awsCfg, cfg.Endpoint), nil
}

func runSync(cmd *cobra.Command, args []string) error {
	logger, client, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	return syncRun(cmd.Context(), logger, client)
}

func syncRun(ctx context.Context, logger *zap.Logger, client s3client.Client) error {
	info, err := os.Stat(dest)
	if err != nil {
		return fmt.Errorf("destination folder: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("destination is not a directory: %s", dest)
	}

	logger.Info("starting sync", zap.String("bucket", bucket), zap.String("dest", dest))

	work, workTotal, err := buildWorkSet(ctx, logger, client)
	if err != nil {
		return err
	}

	if dryRun {
		logger.Info("dry run: nothing downloaded",
			zap.Int("files", len(work)),
			zap.Int64("bytes", workTotal),
			zap.String("size", progress.FormatBytes(workTotal)),
		)
		return nil
	}

	meter := progress.NewMeter(workTotal)
	reporter := progress.NewReporter(meter, logger, 0)
	reporter.Start()

	exec := executor.New(client, logger, workers)
	results := exec.Execute(ctx, bucket, work, dest, meter)

	reporter.Stop()

	var failedKeys []string
	var bytesTransferred int64
	for _, result := range results {
		if result.Err != nil {
			failedKeys = append(failedKeys, result.Key)
		} else {
			bytesTransferred += result.Bytes
		}
	}
	sort.Strings(failedKeys)

	fields := []zap.Field{
		zap.Int("attempted", len(results)),
		zap.Int("succeeded", len(results)-len(failedKeys)),
		zap.Int("failed", len(failedKeys)),
		zap.String("transferred", progress.FormatBytes(bytesTransferred)),
	}
	if len(failedKeys) > 0 {
		fields = append(fields, zap.Strings("failed_keys", failedKeys))
	}
	logger.Info("sync completed", fields...)

	// Per-item failures are reported above but are not fatal; only setup
	// errors change the exit status.
	return nil
}

// buildWorkSet runs both inventories, plans the delta, and applies exclude
// patterns and the optional manifest filter.
func buildWorkSet(ctx context.Context, logger *zap.Logger, client s3client.Client) (inventory.Set, int64, error) {
	remote, remoteTotal, err := inventory.Remote(ctx, client, bucket)
	if err != nil {
		return nil, 0, err
	}
	logger.Info("remote inventory",
		zap.Int("files", len(remote)),
		zap.Int64("bytes", remoteTotal),
	)

	local, localTotal, err := inventory.Local(dest, excludes)
	if err != nil {
		return nil, 0, err
	}
	logger.Info("local inventory",
		zap.Int("files", len(local)),
		zap.Int64("bytes", localTotal),
	)

	work, workTotal := planner.Plan(remote, local)

	work, workTotal, err = planner.Exclude(work, excludes)
	if err != nil {
		return nil, 0, err
	}

	if manifestFile != "" {
		names, err := manifest.ReadNamesFile(manifestFile)
		if err != nil {
			return nil, 0, err
		}
		work, workTotal = planner.Filter(work, names)
		logger.Info("manifest filter applied",
			zap.String("manifest", manifestFile),
			zap.Int("files", len(work)),
		)
	}

	logger.Info("work set planned",
		zap.Int("files", len(work)),
		zap.Int64("bytes", workTotal),
	)

	return work, workTotal, nil
}

func runExport(cmd *cobra.Command, args []string) error {
	logger, client, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	remote, total, err := inventory.Remote(ctx, client, bucket)
	if err != nil {
		return err
	}
	logger.Info("remote inventory",
		zap.Int("files", len(remote)),
		zap.Int64("bytes", total),
	)

	if err := manifest.WriteFile(outFile, remote); err != nil {
		return err
	}

	logger.Info("manifest written",
		zap.String("path", outFile),
		zap.Int("files", len(remote)),
	)
	return nil
}
