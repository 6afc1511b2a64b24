package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stupid-simple/dedup/action"
	"github.com/stupid-simple/dedup/config"
	"github.com/stupid-simple/dedup/criteria"
	"github.com/stupid-simple/dedup/dirtree"
	"github.com/stupid-simple/dedup/dupes"
	"github.com/stupid-simple/dedup/fileutils"
	"github.com/stupid-simple/dedup/scheduler"
)

func daemonCommand(ctx context.Context, args Command, logger zerolog.Logger) error {
	if args.Daemon.DryRun {
		logger = logger.With().Bool("dryrun", true).Logger()
	}

	cfg, err := config.LoadFromFile(args.Daemon.Config)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	sched := scheduler.NewScheduler(scheduler.SchedulerParams{
		Logger: logger,
	})

	err = addScanJobsFromConfig(ctx, sched, cfg, logger, args.Daemon.DryRun)
	if err != nil {
		return fmt.Errorf("could not add scan jobs: %w", err)
	}

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	startConfigFileWatcher(ctx, args.Daemon.Config, logger, ticker, func(cfg *config.Config) {
		sched.RemoveJobs()
		err := addScanJobsFromConfig(ctx, sched, cfg, logger, args.Daemon.DryRun)
		if err != nil {
			logger.Error().Err(err).Msg("failed to add scan jobs")
		}
	})

	sched.Start()
	defer sched.Stop()

	<-ctx.Done()

	return nil
}

func addScanJobsFromConfig(
	ctx context.Context,
	sched *scheduler.Scheduler,
	cfg *config.Config,
	logger zerolog.Logger,
	dryRun bool,
) error {
	rootSets := make(map[string]struct{})

	for _, cfgJob := range cfg.Jobs {
		job, err := configJobToScanJob(ctx, cfgJob, logger, dryRun)
		if err != nil {
			logger.Warn().AnErr("cause", err).Msg("skipping job")
			continue
		}

		key := strings.Join(cfgJob.Roots, "\x00")
		if _, ok := rootSets[key]; ok {
			logger.Warn().Strs("roots", cfgJob.Roots).Msg("skipping job with duplicate roots")
			continue
		}
		rootSets[key] = struct{}{}

		if !cfgJob.Enable {
			logger.Info().Strs("roots", cfgJob.Roots).Msg("skipping disabled scan job")
			continue
		}

		if err := sched.AddScanJob(ctx, cfgJob.Schedule, job); err != nil {
			logger.Error().Err(err).Strs("roots", cfgJob.Roots).Msg("could not add scan job")
			continue
		}

		logger.Info().
			Object("job", cfgJob).
			Msg("added scan job")
	}
	return nil
}

func configJobToScanJob(
	ctx context.Context,
	cfgJob config.Job,
	logger zerolog.Logger,
	dryRun bool,
) (scheduler.ScanJob, error) {
	if len(cfgJob.Roots) == 0 {
		return nil, fmt.Errorf("job must have at least one root")
	}
	if cfgJob.Schedule == "" {
		return nil, fmt.Errorf("job must have a schedule")
	}

	mode := action.Report
	switch cfgJob.Action {
	case "", "report":
	case "delete":
		mode = action.Delete
	case "symlink":
		mode = action.Symlink
	case "hardlink":
		mode = action.Hardlink
	default:
		return nil, fmt.Errorf("unknown action %q", cfgJob.Action)
	}

	set, err := criteria.Resolve(asCriteriaList(cfgJob.Check), asCriteriaList(cfgJob.Ignore))
	if err != nil {
		return nil, err
	}

	return &scanJob{
		ctx:     ctx,
		roots:   cfgJob.Roots,
		set:     set,
		exclude: cfgJob.Exclude,
		minSize: cfgJob.MinSize.Size,
		mode:    mode,
		dryRun:  dryRun || cfgJob.DryRun,
		logger:  logger,
	}, nil
}

func asCriteriaList(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

func startConfigFileWatcher(ctx context.Context, cfgPath string, logger zerolog.Logger, ticker *time.Ticker, onChanged func(cfg *config.Config)) {
	logger.Info().Str("path", cfgPath).Msg("watching config file for changes")
	watcher, err := fileutils.WatchFile(ctx, cfgPath, when(ticker.C), func(err error) {
		logger.Error().Err(err).Msg("could not watch config file")
	})
	if err != nil {
		logger.Error().Err(err).Msg("could not watch config file")
		return
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-watcher:
				logger.Info().Str("path", cfgPath).Msg("config file changed, reloading")

				cfg, err := config.LoadFromFile(cfgPath)
				if err != nil {
					logger.Error().Err(err).Msg("could not load config")
					break
				}

				onChanged(cfg)
			}
		}
	}()
}

func when[T any](ch <-chan T) <-chan struct{} {
	out := make(chan struct{})
	go func() {
		defer close(out)
		for range ch {
			out <- struct{}{}
		}
	}()
	return out
}

type scanJob struct {
	roots   []string
	set     criteria.Set
	exclude []string
	minSize int64
	mode    action.Mode
	ctx     context.Context
	logger  zerolog.Logger
	dryRun  bool
}

func (j *scanJob) Run() {
	p := findParams{
		roots: j.roots,
		set:   j.set,
		filter: dirtree.Filter{
			ExcludeFiles: j.exclude,
			ExcludeDirs:  j.exclude,
		},
		dupeOpts: dupes.Options{
			MinFileSize: j.minSize,
			MinDirSize:  j.minSize,
		},
		mode:   j.mode,
		dryRun: j.dryRun,
		quiet:  true,
		logger: j.logger.With().Strs("roots", j.roots).Logger(),
	}
	if needsDigests(j.set) {
		if path, err := defaultCachePath(); err == nil {
			p.cachePath = path
		}
	}

	if err := findDuplicates(j.ctx, p); err != nil {
		j.logger.Error().Err(err).Strs("roots", j.roots).Msg("scan job failed")
	}
}
