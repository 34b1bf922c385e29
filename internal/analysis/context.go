package analysis

import (
	"context"
	"sync"

	"github.com/section-speed/backend/internal/models"
)

// Context owns the current result of one analysis. A run replaces the held
// result (a failed run clears it), Reset discards it. Readers always see
// either a complete ResultSet or none.
type Context struct {
	mu       sync.RWMutex
	pipeline *Pipeline
	result   *models.ResultSet
	runs     int
}

// NewContext creates an empty analysis context.
func NewContext(p *Pipeline) *Context {
	return &Context{pipeline: p}
}

// Run executes the pipeline and stores its result in place of any earlier one.
func (c *Context) Run(ctx context.Context, cfg models.AnalysisConfig, in Inputs, onProgress ProgressCallback) (*models.ResultSet, error) {
	result, err := c.pipeline.Run(ctx, cfg, in, onProgress)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs++
	if err != nil {
		c.result = nil
		return nil, err
	}
	c.result = result
	return result, nil
}

// Result returns the current result, if any.
func (c *Context) Result() (*models.ResultSet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.result, c.result != nil
}

// Reset drops the current result.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result = nil
}

// Runs returns how many times Run has been called.
func (c *Context) Runs() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.runs
}
