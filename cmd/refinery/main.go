// Command refinery cleans Vietnamese user reviews for downstream NLP.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/alejandroruanova/review-refinery/internal/core/services/batch"
	"github.com/alejandroruanova/review-refinery/internal/core/services/refinery"
	"github.com/alejandroruanova/review-refinery/internal/infrastructure/queue"
	"github.com/alejandroruanova/review-refinery/internal/pkg/config"
	"github.com/alejandroruanova/review-refinery/internal/pkg/logger"
)

const version = "0.1.0"

// CLI defines the command-line interface for refinery.
type CLI struct {
	Config   string `name:"config" short:"c" help:"Config file (yaml, json, toml or env)" type:"path"`
	LogLevel string `name:"log-level" help:"Override LOG_LEVEL (debug, info, warn, error)"`

	Clean      CleanCmd      `cmd:"" help:"Clean review texts given as arguments or read from stdin, one per line"`
	Batch      BatchCmd      `cmd:"" help:"Clean the text column of a review file"`
	Enqueue    EnqueueCmd    `cmd:"" help:"Stage a review file and queue it for a worker"`
	Worker     WorkerCmd     `cmd:"" help:"Process queued review files"`
	Steps      StepsCmd      `cmd:"" help:"List the cleaning steps of a refinery"`
	Refineries RefineriesCmd `cmd:"" help:"List available refineries"`
	Cleanup    CleanupCmd    `cmd:"" help:"Remove old staged and processed files"`
	Version    VersionCmd    `cmd:"" help:"Print version information"`
}

// RefineryFlags select and tune the refinery
type RefineryFlags struct {
	Refinery string   `name:"refinery" short:"r" help:"Refinery version or alias (default REFINERY_VERSION)"`
	Disable  []string `name:"disable" help:"Steps to skip, e.g. --disable=remove_emojis"`
}

// CleanCmd cleans texts from the command line
type CleanCmd struct {
	RefineryFlags
	Texts []string `arg:"" optional:"" help:"Texts to clean; stdin is read when none are given"`
	Trace bool     `name:"trace" help:"Print the output of every step"`
}

func (c *CleanCmd) Run(app *App) error {
	pipeline, _, err := app.pipeline(c.Refinery, c.Disable)
	if err != nil {
		return err
	}

	texts := c.Texts
	if len(texts) == 0 {
		texts, err = readLines(app.In)
		if err != nil {
			return err
		}
	}

	if !c.Trace {
		cleaned, err := pipeline.CleanBatchContext(app.ctx, texts, app.Config.BatchWorkers)
		if err != nil {
			return err
		}
		for _, text := range cleaned {
			fmt.Fprintln(app.Out, text)
		}
		return nil
	}

	for i, text := range texts {
		if i > 0 {
			fmt.Fprintln(app.Out)
		}
		fmt.Fprintf(app.Out, "%-26s %q\n", "input", text)
		for _, step := range pipeline.Trace(text) {
			fmt.Fprintf(app.Out, "%-26s %q\n", step.Step, step.Output)
		}
	}
	return nil
}

// BatchCmd cleans a file in the foreground
type BatchCmd struct {
	RefineryFlags
	Input        string `arg:"" help:"Input file (.csv, .tsv, .txt, .json, .jsonl, .xlsx, optionally .xz)" type:"existingfile"`
	Output       string `arg:"" help:"Output file (.csv, .jsonl, .xlsx, .txt, .db)" type:"path"`
	Column       string `name:"column" help:"Text column (default TEXT_COLUMN)"`
	OutputColumn string `name:"output-column" help:"Cleaned column (default OUTPUT_COLUMN)"`
	Dedup        bool   `name:"dedup" help:"Drop reviews whose cleaned text repeats (also enabled by DEDUPLICATE)"`
	Workers      int    `name:"workers" short:"w" help:"Cleaning goroutines (default BATCH_WORKERS, 0 = all CPUs)"`
}

func (c *BatchCmd) job(cfg *config.Config) batch.Job {
	job := batch.Job{
		BatchID:         uuid.New(),
		InputPath:       c.Input,
		OutputPath:      c.Output,
		Column:          firstNonEmpty(c.Column, cfg.TextColumn),
		OutputColumn:    firstNonEmpty(c.OutputColumn, cfg.OutputColumn),
		Deduplicate:     c.Dedup || cfg.Deduplicate,
		Workers:         cfg.BatchWorkers,
		RefineryVersion: firstNonEmpty(c.Refinery, cfg.RefineryVersion),
	}
	if c.Workers > 0 {
		job.Workers = c.Workers
	}
	return job
}

func (c *BatchCmd) Run(app *App) error {
	service, closeAll, err := app.batchService(c.Refinery, c.Disable)
	if err != nil {
		return err
	}
	defer closeAll()

	report, err := service.Run(app.ctx, c.job(app.Config))
	if err != nil {
		return err
	}
	return writeJSON(app.Out, report)
}

// EnqueueCmd stages a file and queues a clean:data task
type EnqueueCmd struct {
	BatchCmd
	Queue string `name:"queue" default:"default" enum:"critical,high,default" help:"Queue priority"`
}

func (c *EnqueueCmd) Run(app *App) error {
	store, err := app.storage()
	if err != nil {
		return err
	}

	job := c.job(app.Config)
	id := job.BatchID.String()

	file, err := os.Open(c.Input)
	if err != nil {
		return err
	}
	defer file.Close()

	staged, err := store.SaveUpload(app.ctx, id, filepath.Base(c.Input), file)
	if err != nil {
		return err
	}
	job.InputPath = staged.StoredPath

	job.OutputPath, err = store.ProcessedPath(id, filepath.Base(c.Output))
	if err != nil {
		return err
	}

	task, err := queue.NewCleanDataTask(job, asynq.Queue(c.Queue))
	if err != nil {
		return err
	}

	client := queue.NewAsynqClient(app.Config.Queue(), app.Logger)
	defer client.Close()

	info, err := client.EnqueueContext(app.ctx, task)
	if err != nil {
		return err
	}

	return writeJSON(app.Out, map[string]interface{}{
		"task_id":   info.ID,
		"queue":     info.Queue,
		"batch_id":  id,
		"input":     job.InputPath,
		"output":    job.OutputPath,
		"file_hash": staged.Hash,
	})
}

// WorkerCmd runs the asynq server
type WorkerCmd struct {
	RefineryFlags
}

func (c *WorkerCmd) Run(app *App) error {
	service, closeAll, err := app.batchService(c.Refinery, c.Disable)
	if err != nil {
		return err
	}
	defer closeAll()

	server := queue.NewAsynqServer(app.Config.Queue(), app.Logger)
	server.Handle(queue.TaskTypeCleanData, queue.NewCleanDataHandler(service, app.Logger))

	return server.Start()
}

// StepsCmd lists pipeline steps
type StepsCmd struct {
	RefineryFlags
}

func (c *StepsCmd) Run(app *App) error {
	pipeline, _, err := app.pipeline(c.Refinery, c.Disable)
	if err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "%s (%s)\n", pipeline.GetName(), pipeline.GetVersion())
	for i, step := range pipeline.GetPipelineSteps() {
		fmt.Fprintf(app.Out, "%2d. %s\n", i+1, step)
	}
	return nil
}

// RefineriesCmd lists registered refineries
type RefineriesCmd struct{}

func (c *RefineriesCmd) Run(app *App) error {
	for _, info := range refinery.Describe() {
		fmt.Fprintf(app.Out, "%s\t%s\taliases: %s\n", info.Version, info.Name, strings.Join(info.Aliases, ", "))
	}
	return nil
}

// CleanupCmd prunes the storage directory
type CleanupCmd struct {
	OlderThan time.Duration `name:"older-than" default:"168h" help:"Minimum age of removed files"`
}

func (c *CleanupCmd) Run(app *App) error {
	store, err := app.storage()
	if err != nil {
		return err
	}

	removed, err := store.CleanupOldFiles(app.ctx, c.OlderThan)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "removed %d directories\n", removed)
	return nil
}

// VersionCmd prints the version
type VersionCmd struct{}

func (c *VersionCmd) Run(app *App) error {
	fmt.Fprintf(app.Out, "refinery version %s\n", version)
	return nil
}

func newApp(ctx context.Context, cli *CLI, in io.Reader, out, logOut io.Writer) (*App, error) {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return nil, err
	}

	level := firstNonEmpty(cli.LogLevel, cfg.LogLevel)
	log := logger.InitializeWithLevel(cfg.Environment, level, logOut)
	cfg.LogConfig(log)

	return &App{
		ctx:    ctx,
		Config: cfg,
		Logger: log,
		In:     in,
		Out:    out,
	}, nil
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("refinery"),
		kong.Description("Vietnamese review cleaning pipeline"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, &cli, os.Stdin, os.Stdout, os.Stderr)
	kctx.FatalIfErrorf(err)

	err = kctx.Run(app)
	kctx.FatalIfErrorf(err)
}

// Helper functions

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return lines, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
