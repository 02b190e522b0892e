package refinery

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pipeline orchestrates the text cleaning process using a specific refinery
type Pipeline struct {
	refinery BaseRefinery
	version  string
}

// NewPipeline creates a new refinery pipeline
// refineryType can be a version (e.g., "v1") or an alias (e.g., "vietnamese")
func NewPipeline(refineryType string, customConfig map[string]interface{}) (*Pipeline, error) {
	refinery, err := Create(refineryType, customConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create refinery: %w", err)
	}

	return NewPipelineFromRefinery(refinery), nil
}

// NewPipelineFromRefinery wraps an already-built refinery
func NewPipelineFromRefinery(refinery BaseRefinery) *Pipeline {
	return &Pipeline{
		refinery: refinery,
		version:  refinery.GetVersion(),
	}
}

// CleanText processes a single text string
func (p *Pipeline) CleanText(text string) string {
	return p.refinery.Process(text)
}

// CleanBatch processes a batch of texts
func (p *Pipeline) CleanBatch(texts []string) []string {
	results := make([]string, len(texts))
	for i, text := range texts {
		results[i] = p.refinery.Process(text)
	}
	return results
}

// CleanBatchContext processes texts on up to workers goroutines, keeping input order.
// workers <= 0 uses GOMAXPROCS. Returns ctx.Err() if cancelled before all texts are done.
func (p *Pipeline) CleanBatchContext(ctx context.Context, texts []string, workers int) ([]string, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]string, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, text := range texts {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.refinery.Process(text)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// Trace reports per-step output when the underlying refinery supports it
func (p *Pipeline) Trace(text string) []StepTrace {
	if tracer, ok := p.refinery.(interface{ Trace(string) []StepTrace }); ok {
		return tracer.Trace(text)
	}
	return []StepTrace{{Step: p.version, Output: p.refinery.Process(text)}}
}

// GetVersion returns the refinery version being used
func (p *Pipeline) GetVersion() string {
	return p.version
}

// GetName returns the refinery name
func (p *Pipeline) GetName() string {
	return p.refinery.GetName()
}

// GetDescription returns the refinery description
func (p *Pipeline) GetDescription() string {
	return p.refinery.GetDescription()
}

// GetPipelineSteps returns the processing steps
func (p *Pipeline) GetPipelineSteps() []string {
	return p.refinery.GetPipelineSteps()
}
