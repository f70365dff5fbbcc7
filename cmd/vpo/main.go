// Copyright (c) 2025 vpo authors
// SPDX-License-Identifier: MIT

// vpo is the job-CLI surface (spec §6.6): a thin command dispatcher over
// internal/job/{store,worker,progress,scratch} and internal/policy. It owns
// no business logic of its own — every subcommand is a handful of lines
// gluing flags to an already-built package.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/vpoeng/vpo/internal/action"
	"github.com/vpoeng/vpo/internal/execadapter"
	"github.com/vpoeng/vpo/internal/fsutil"
	"github.com/vpoeng/vpo/internal/inspect"
	"github.com/vpoeng/vpo/internal/job/model"
	"github.com/vpoeng/vpo/internal/job/progress"
	"github.com/vpoeng/vpo/internal/job/scratch"
	"github.com/vpoeng/vpo/internal/job/store"
	"github.com/vpoeng/vpo/internal/job/worker"
	vpolog "github.com/vpoeng/vpo/internal/log"
	"github.com/vpoeng/vpo/internal/mediaprovider"
	"github.com/vpoeng/vpo/internal/phase"
	"github.com/vpoeng/vpo/internal/planner"
	"github.com/vpoeng/vpo/internal/policy"
	"github.com/vpoeng/vpo/internal/runtimeconfig"

	"github.com/redis/go-redis/v9"
)

// Exit codes per §6.6.
const (
	exitSuccess      = 0
	exitGenericError = 1
	exitPolicyError  = 2
	exitStoreError   = 3
	exitSIGINT       = 130
	exitSIGTERM      = 143
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return exitGenericError
	}

	switch args[0] {
	case "jobs":
		return runJobs(args[1:])
	case "transcode":
		return runTranscode(args[1:])
	case "plan":
		return runPlan(args[1:])
	case "version":
		fmt.Println(version)
		return exitSuccess
	default:
		fmt.Fprintf(os.Stderr, "vpo: unknown command %q\n", args[0])
		usage()
		return exitGenericError
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  vpo jobs list [--status=all|queued|running|completed|failed|cancelled] [--limit N] [--json]
  vpo jobs status <job-id> [--follow] [--json]
  vpo jobs start [--max-files N] [--max-duration D] [--end-by HH:MM] [--cpu-cores N]
  vpo jobs cancel <job-id> [--force]
  vpo jobs cleanup [--older-than D] [--include-backups] [--dry-run]
  vpo transcode [--policy P] PATHS...
  vpo plan --policy P --input PATH [--json]`)
}

// buildStore resolves a Store from runtime configuration (§10.3 store
// backend selection), wrapped in the prometheus-instrumented decorator the
// same way the teacher wraps its own persistence layer.
func buildStore(cfg runtimeconfig.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case runtimeconfig.StoreMemory:
		return store.NewInstrumentedStore(store.NewMemoryStore(), "memory"), nil
	case runtimeconfig.StoreSQLite:
		s, err := store.OpenSQLiteStore(cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("vpo: open sqlite store: %w", err)
		}
		return store.NewInstrumentedStore(s, "sqlite"), nil
	default:
		return nil, fmt.Errorf("vpo: unknown store backend %q", cfg.Store.Backend)
	}
}

func loadRuntimeConfig() (runtimeconfig.Config, error) {
	path := os.Getenv("VPO_CONFIG_FILE")
	res, err := runtimeconfig.Load(path)
	if err != nil {
		return runtimeconfig.Config{}, err
	}
	for _, w := range res.FileWarnings {
		vpolog.WithComponent("vpo").Warn().Str("field", w.Path).Msg("unrecognized config field")
	}
	return res.Config, nil
}

func configureLogging(cfg runtimeconfig.Config) {
	vpolog.Configure(vpolog.Config{Level: cfg.LogLevel, Service: "vpo", Version: version})
}

func runJobs(args []string) int {
	if len(args) == 0 {
		usage()
		return exitGenericError
	}
	switch args[0] {
	case "list":
		return runJobsList(args[1:])
	case "status":
		return runJobsStatus(args[1:])
	case "start":
		return runJobsStart(args[1:])
	case "cancel":
		return runJobsCancel(args[1:])
	case "cleanup":
		return runJobsCleanup(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "vpo: unknown jobs subcommand %q\n", args[0])
		return exitGenericError
	}
}

func runJobsList(args []string) int {
	fs := flag.NewFlagSet("jobs list", flag.ContinueOnError)
	status := fs.String("status", "all", "queued|running|completed|failed|cancelled|all")
	limit := fs.Int("limit", 0, "maximum number of jobs to print (0 = no limit)")
	asJSON := fs.Bool("json", false, "print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return exitGenericError
	}

	cfg, err := loadRuntimeConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitGenericError
	}
	s, err := buildStore(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitStoreError
	}
	defer s.Close()

	filter := store.Filter{}
	if *status != "all" && *status != "" {
		filter.Statuses = []model.Status{model.Status(strings.ToUpper(*status))}
	}

	recs, err := s.List(context.Background(), filter, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitStoreError
	}

	if *asJSON {
		return printJSON(recs)
	}
	for _, r := range recs {
		fmt.Printf("%s\t%s\t%s\t%.1f%%\n", r.ID, r.Status, r.SourcePath, r.ProgressPercent)
	}
	return exitSuccess
}

func runJobsStatus(args []string) int {
	fs := flag.NewFlagSet("jobs status", flag.ContinueOnError)
	follow := fs.Bool("follow", false, "tail progress until the job reaches a terminal state")
	asJSON := fs.Bool("json", false, "print JSON instead of plain text")
	if err := fs.Parse(args); err != nil {
		return exitGenericError
	}
	rest := fs.Args()
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "vpo: jobs status requires exactly one <job-id>")
		return exitGenericError
	}
	jobID := rest[0]

	cfg, err := loadRuntimeConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitGenericError
	}
	s, err := buildStore(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitStoreError
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *follow {
		return followJobStatus(ctx, s, jobID, *asJSON)
	}

	rec, err := s.Get(ctx, jobID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitStoreError
	}
	if rec == nil {
		fmt.Fprintf(os.Stderr, "vpo: job %s not found\n", jobID)
		return exitGenericError
	}
	return printJobStatus(*rec, *asJSON)
}

// followJobStatus tails the job's Redis progress channel until it reaches a
// terminal state (§12 "jobs status --follow"), falling back to
// short-interval store polling when no progress subscriber is available
// (e.g. redis unreachable) — per §12 this polling fallback is the
// mechanism behind the --follow contract, not an afterthought.
func followJobStatus(ctx context.Context, s store.Store, jobID string, asJSON bool) int {
	const pollInterval = 2 * time.Second

	redisAddr := strings.TrimSpace(os.Getenv("VPO_REDIS_ADDR"))
	var sub *progress.Subscriber
	if redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer client.Close()
		b := progress.NewBroadcaster(client)
		if bsub, err := b.Subscribe(ctx, jobID); err == nil {
			sub = bsub
			defer sub.Close()
		}
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		rec, err := s.Get(ctx, jobID)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitStoreError
		}
		if rec == nil {
			fmt.Fprintf(os.Stderr, "vpo: job %s not found\n", jobID)
			return exitGenericError
		}
		printJobStatus(*rec, asJSON)
		if rec.Status.IsTerminal() {
			return exitSuccess
		}

		if sub != nil {
			if _, ok := sub.Next(ctx); !ok {
				return exitCtxOrSignal(ctx)
			}
			continue
		}

		select {
		case <-ctx.Done():
			return exitCtxOrSignal(ctx)
		case <-ticker.C:
		}
	}
}

func exitCtxOrSignal(ctx context.Context) int {
	if ctx.Err() != nil {
		if cause := context.Cause(ctx); cause != nil && strings.HasPrefix(cause.Error(), syscall.SIGTERM.String()) {
			return exitSIGTERM
		}
		return exitSIGINT
	}
	return exitGenericError
}

func printJobStatus(r model.Record, asJSON bool) int {
	if asJSON {
		return printJSON(r)
	}
	fmt.Printf("id=%s status=%s progress=%.1f%% source=%s\n", r.ID, r.Status, r.ProgressPercent, r.SourcePath)
	if r.ErrorMessage != nil {
		fmt.Printf("error: %s\n", *r.ErrorMessage)
	}
	return exitSuccess
}

func runJobsStart(args []string) int {
	fs := flag.NewFlagSet("jobs start", flag.ContinueOnError)
	maxFiles := fs.Int("max-files", 0, "stop after this many jobs (0 = unbounded)")
	maxDuration := fs.Duration("max-duration", 0, "stop after this much wall-clock time (0 = unbounded)")
	endBy := fs.String("end-by", "", "stop at this local HH:MM (empty = unbounded)")
	cpuCores := fs.Int("cpu-cores", 0, "advisory worker concurrency hint (unused by the single-threaded loop, kept for CLI-contract parity)")
	if err := fs.Parse(args); err != nil {
		return exitGenericError
	}
	_ = cpuCores // §5's worker loop is single in-flight-job by default; this flag is accepted, not acted on.

	cfg, err := loadRuntimeConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitGenericError
	}
	configureLogging(cfg)

	s, err := buildStore(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitStoreError
	}
	defer s.Close()

	mediaBin := strings.TrimSpace(os.Getenv("VPO_FFPROBE_PATH"))
	execBin := strings.TrimSpace(os.Getenv("VPO_FFMPEG_PATH"))
	scratchRoot := strings.TrimSpace(os.Getenv("VPO_SCRATCH_DIR"))
	if scratchRoot == "" {
		scratchRoot = os.TempDir()
	}

	var endByTime time.Time
	if *endBy != "" {
		t, err := parseLocalHHMM(*endBy)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitGenericError
		}
		endByTime = t
	}

	var bc *progress.Broadcaster
	if addr := strings.TrimSpace(os.Getenv("VPO_REDIS_ADDR")); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		defer client.Close()
		bc = progress.NewBroadcaster(client)
	}

	w := &worker.Worker{
		Store:         s,
		Executor:      execadapter.NewFFmpegExecutor(execBin),
		MediaProvider: mediaprovider.NewFFprobeProvider(mediaBin),
		PolicyLoader:  policyLoaderFor(strings.TrimSpace(os.Getenv("VPO_POLICY_DIR"))),
		Progress:      bc,
		Config: worker.Config{
			HeartbeatInterval: cfg.Worker.HeartbeatInterval,
			StaleAfter:        cfg.Worker.StaleAfter(),
			MaxAttempts:       cfg.Worker.MaxAttempts,
			MaxFiles:          *maxFiles,
			MaxDuration:       *maxDuration,
			EndBy:             endByTime,
			DrainTimeout:      cfg.Worker.DrainTimeout,
			OutputPathFor:     func(r model.Record) string { return defaultOutputPath(r) },
			ScratchCleanup: func(jobID string) {
				scratch.New(scratchRoot, jobID).RemoveAll()
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := w.Run(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitStoreError
	}

	fmt.Printf("processed=%d succeeded=%d failed=%d cancelled=%d stop_reason=%s\n",
		result.JobsProcessed, result.JobsSucceeded, result.JobsFailed, result.JobsCancelled, result.StopReason)

	if ctx.Err() != nil {
		return exitCtxOrSignal(ctx)
	}
	return exitSuccess
}

// policyLoaderFor returns a worker.Config.PolicyLoader that resolves a
// policy_ref to a file under dir (empty dir means policy_ref is itself a
// full path).
func policyLoaderFor(dir string) func(string) (*policy.Policy, error) {
	return func(policyRef string) (*policy.Policy, error) {
		path := policyRef
		if dir != "" && !filepath.IsAbs(policyRef) {
			path = filepath.Join(dir, policyRef)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("vpo: read policy %s: %w", path, err)
		}
		pol, warnings, err := policy.LoadYAML(data)
		if err != nil {
			return nil, err
		}
		for _, w := range warnings {
			vpolog.WithComponent("vpo").Warn().Str("field", w.Path).Msg("unrecognized policy field")
		}
		return pol, nil
	}
}

func defaultOutputPath(r model.Record) string {
	if r.TargetPath != nil && *r.TargetPath != "" {
		return *r.TargetPath
	}
	dir := filepath.Dir(r.SourcePath)
	ext := filepath.Ext(r.SourcePath)
	base := strings.TrimSuffix(filepath.Base(r.SourcePath), ext)
	return filepath.Join(dir, base+".vpo-out"+ext)
}

func parseLocalHHMM(s string) (time.Time, error) {
	now := time.Now()
	t, err := time.ParseInLocation("15:04", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("vpo: invalid --end-by %q, want HH:MM: %w", s, err)
	}
	result := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, time.Local)
	if result.Before(now) {
		result = result.Add(24 * time.Hour)
	}
	return result, nil
}

func runJobsCancel(args []string) int {
	fs := flag.NewFlagSet("jobs cancel", flag.ContinueOnError)
	_ = fs.Bool("force", false, "accepted for CLI-contract parity; cancellation is always cooperative (§4.6)")
	if err := fs.Parse(args); err != nil {
		return exitGenericError
	}
	rest := fs.Args()
	if len(rest) != 1 {
		fmt.Fprintln(os.Stderr, "vpo: jobs cancel requires exactly one <job-id>")
		return exitGenericError
	}

	cfg, err := loadRuntimeConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitGenericError
	}
	s, err := buildStore(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitStoreError
	}
	defer s.Close()

	outcome, err := s.CancelRequest(context.Background(), rest[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitStoreError
	}
	fmt.Println(outcome)
	if outcome == store.CancelNotFound {
		return exitGenericError
	}
	return exitSuccess
}

func runJobsCleanup(args []string) int {
	fs := flag.NewFlagSet("jobs cleanup", flag.ContinueOnError)
	olderThan := fs.Duration("older-than", 7*24*time.Hour, "purge terminal jobs finished longer ago than this")
	includeBackups := fs.Bool("include-backups", false, "also purge CANCELLED jobs, not only COMPLETED/FAILED")
	dryRun := fs.Bool("dry-run", false, "report what would be purged without deleting anything (§12)")
	if err := fs.Parse(args); err != nil {
		return exitGenericError
	}

	cfg, err := loadRuntimeConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitGenericError
	}
	s, err := buildStore(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitStoreError
	}
	defer s.Close()

	statuses := []model.Status{model.StatusCompleted, model.StatusFailed}
	if *includeBackups {
		statuses = append(statuses, model.StatusCancelled)
	}
	cutoff := time.Now().Add(-*olderThan)

	ctx := context.Background()
	if *dryRun {
		recs, err := s.PreviewPurge(ctx, cutoff, statuses)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitStoreError
		}
		for _, r := range recs {
			fmt.Printf("would purge\t%s\t%s\t%s\n", r.ID, r.Status, r.SourcePath)
		}
		fmt.Printf("dry-run: %d job(s) would be purged\n", len(recs))
		return exitSuccess
	}

	n, err := s.PurgeOlderThan(ctx, cutoff, statuses)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitStoreError
	}

	scratchRoot := strings.TrimSpace(os.Getenv("VPO_SCRATCH_DIR"))
	if scratchRoot == "" {
		scratchRoot = os.TempDir()
	}
	live, err := liveJobIDs(ctx, s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitStoreError
	}
	orphans, err := scratch.Sweep(scratchRoot, *olderThan, live, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitGenericError
	}

	fmt.Printf("purged %d job(s), swept %d orphan scratch file(s)\n", n, len(orphans))
	return exitSuccess
}

func liveJobIDs(ctx context.Context, s store.Store) ([]string, error) {
	recs, err := s.List(ctx, store.Filter{Statuses: []model.Status{model.StatusQueued, model.StatusRunning}}, 0)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func runTranscode(args []string) int {
	fs := flag.NewFlagSet("transcode", flag.ContinueOnError)
	policyPath := fs.String("policy", "", "path to the policy document to evaluate against each input")
	priority := fs.Int("priority", 0, "queue priority (lower = earlier)")
	recursive := fs.Bool("recursive", false, "recurse into directory PATHS")
	dryRunOnly := fs.Bool("dry-run", false, "print the resulting plan for each path instead of enqueueing jobs")
	asJSON := fs.Bool("json", false, "print JSON instead of plain text")
	outputDir := fs.String("output", "", "directory to confine transcode outputs to (defaults to each input's own directory)")
	// Accepted for CLI-contract parity with §6.6; concrete codec/crf/resolution
	// overrides are expressed through the policy document, not ad hoc flags.
	fs.String("codec", "", "accepted for CLI-contract parity; set via policy instead")
	fs.String("crf", "", "accepted for CLI-contract parity; set via policy instead")
	fs.String("max-resolution", "", "accepted for CLI-contract parity; set via policy instead")
	if err := fs.Parse(args); err != nil {
		return exitGenericError
	}
	paths := fs.Args()
	if len(paths) == 0 || *policyPath == "" {
		fmt.Fprintln(os.Stderr, "vpo: transcode requires --policy and at least one PATH")
		return exitGenericError
	}

	var confinedOutputRoot string
	if *outputDir != "" {
		abs, err := filepath.Abs(*outputDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitGenericError
		}
		confinedOutputRoot = abs
	}

	inputs, err := expandPaths(paths, *recursive)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitGenericError
	}

	if *dryRunOnly {
		return planPaths(inputs, *policyPath, *asJSON)
	}

	cfg, err := loadRuntimeConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitGenericError
	}
	s, err := buildStore(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitStoreError
	}
	defer s.Close()

	for _, p := range inputs {
		rec := model.NewRecord(model.KindTranscode, p, *policyPath, *priority)
		if confinedOutputRoot != "" {
			target, err := outputTargetFor(confinedOutputRoot, p)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return exitGenericError
			}
			rec.TargetPath = &target
		}
		if err := s.Enqueue(context.Background(), rec); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitStoreError
		}
		fmt.Println(rec.ID)
	}
	return exitSuccess
}

// outputTargetFor confines an input's derived output filename to
// outputRoot, rejecting any path that would escape it via symlink or "..".
func outputTargetFor(outputRoot, inputPath string) (string, error) {
	base := filepath.Base(inputPath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext) + ".vpo-out" + ext
	if err := os.MkdirAll(outputRoot, 0o750); err != nil {
		return "", fmt.Errorf("vpo: create --output directory %s: %w", outputRoot, err)
	}
	return fsutil.ConfineRelPath(outputRoot, name)
}

func expandPaths(paths []string, recursive bool) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("vpo: stat %s: %w", p, err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		if !recursive {
			return nil, fmt.Errorf("vpo: %s is a directory; pass --recursive to include it", p)
		}
		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("vpo: no input files found")
	}
	return out, nil
}

// runPlan implements §12's plan export: it inspects one input, runs the
// phase executor against it and prints the resulting flat action list
// without enqueueing a job. It is always a dry run and takes no --dry-run
// flag.
func runPlan(args []string) int {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	policyPath := fs.String("policy", "", "path to the policy document")
	input := fs.String("input", "", "path to the input media file")
	asJSON := fs.Bool("json", false, "print JSON instead of a one-action-per-line summary")
	if err := fs.Parse(args); err != nil {
		return exitGenericError
	}
	if *policyPath == "" || *input == "" {
		fmt.Fprintln(os.Stderr, "vpo: plan requires --policy and --input")
		return exitGenericError
	}
	return planPaths([]string{*input}, *policyPath, *asJSON)
}

func planPaths(inputs []string, policyPath string, asJSON bool) int {
	data, err := os.ReadFile(policyPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitGenericError
	}
	pol, warnings, err := policy.LoadYAML(data)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitPolicyError
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: unrecognized policy field %s\n", w.Path)
	}

	provider := mediaprovider.NewFFprobeProvider(strings.TrimSpace(os.Getenv("VPO_FFPROBE_PATH")))

	for _, path := range inputs {
		insp, err := provider.Inspect(context.Background(), path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitGenericError
		}
		planCtx := planner.NewContext(pol, filepath.Base(path), path)
		plan, _, err := phase.Execute(pol, insp, planCtx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitGenericError
		}
		if err := printPlan(path, plan, insp, asJSON); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitGenericError
		}
	}
	return exitSuccess
}

func printPlan(path string, plan action.Plan, insp inspect.Inspection, asJSON bool) error {
	if asJSON {
		return printJSONErr(struct {
			Path string      `json:"path"`
			Plan action.Plan `json:"plan"`
		}{Path: path, Plan: plan})
	}
	fmt.Printf("%s:\n", path)
	for _, a := range plan {
		fmt.Printf("  %s\n", a.Kind())
	}
	return nil
}

func printJSON(v any) int {
	if err := printJSONErr(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitGenericError
	}
	return exitSuccess
}

func printJSONErr(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
