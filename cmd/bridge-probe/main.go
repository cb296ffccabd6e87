// Command bridge-probe checks a device bridge end to end: availability,
// permissions, the last seven days of steps and today's hourly activity.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/vcscsvcscs/healthlayer/internal/bridge"
	"github.com/vcscsvcscs/healthlayer/internal/config"
	"github.com/vcscsvcscs/healthlayer/internal/daterange"
	"github.com/vcscsvcscs/healthlayer/internal/healthlayer"
	"github.com/vcscsvcscs/healthlayer/internal/jsonutil"
	"github.com/vcscsvcscs/healthlayer/pkg/model"
	"go.uber.org/zap"
)

const probeDays = 7

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("Invalid time zone", zap.Error(err))
	}

	opts := bridge.Options{BaseURL: cfg.Bridge.URL, Timeout: cfg.Bridge.Timeout}
	healthConnect, err := bridge.NewHealthConnectClient(opts, logger)
	if err != nil {
		logger.Fatal("Failed to create Health Connect client", zap.Error(err))
	}
	healthKit, err := bridge.NewHealthKitClient(opts, logger)
	if err != nil {
		logger.Fatal("Failed to create HealthKit client", zap.Error(err))
	}

	layer := healthlayer.New(
		healthlayer.Runtime{OS: cfg.Health.Platform},
		healthlayer.Backends{HealthConnect: healthConnect, HealthKit: healthKit, Location: loc},
		logger,
	)

	ctx := context.Background()
	failed := false

	logger.Info("=== Permissions ===", zap.String("bridge_url", cfg.Bridge.URL), zap.String("platform", layer.Platform()))
	req := model.PermissionRequest{
		model.MetricSteps:                {Read: true},
		model.MetricActiveCaloriesBurned: {Read: true},
		model.MetricDistance:             {Read: true},
		model.MetricBloodGlucose:         {Read: true},
	}
	perms, err := layer.EnsurePermissions(ctx, req)
	if err != nil {
		failed = report(logger, "permissions", err) || failed
	} else {
		fmt.Println(jsonutil.SafeStringify(perms, 0))
	}

	logger.Info("=== Daily steps ===", zap.Int("days", probeDays))
	now := time.Now().In(loc)
	days, err := layer.ReadDailySteps(ctx, daterange.DateRangeForLastDays(probeDays, now))
	if err != nil {
		failed = report(logger, "daily steps", err) || failed
	} else {
		for _, d := range days {
			fmt.Printf("%s  %6d\n", d.Date, d.Steps)
		}
		total := model.SumDailySteps(days)
		fmt.Printf("total %d, average %.0f per day\n", total, float64(total)/float64(len(days)))
	}

	logger.Info("=== Hourly activity today ===")
	hours, err := layer.ReadHourlyActivity(ctx, now)
	if err != nil {
		failed = report(logger, "hourly activity", err) || failed
	} else {
		fmt.Println(jsonutil.SafeStringify(hours, 0))
	}

	if failed {
		os.Exit(1)
	}
	logger.Info("=== All probes passed ===")
}

// report prints a failed probe. An empty range is not a failure.
func report(logger *zap.Logger, probe string, err error) bool {
	info := model.NormalizeError(err)
	if info.Code == model.ErrCodeNoData {
		logger.Info("probe returned no data", zap.String("probe", probe))
		return false
	}
	logger.Error("probe failed",
		zap.String("probe", probe),
		zap.String("code", string(info.Code)),
		zap.String("detail", info.Message),
	)
	fmt.Fprintln(os.Stderr, model.UserMessage(info))
	return true
}
