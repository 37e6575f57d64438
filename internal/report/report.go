// Package report holds the outcome of one execution pass.
package report

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/vk/insituflow/internal/diag"
)

// Status is the outcome of one pipeline, step, extract or plot.
type Status string

const (
	StatusSuccess Status = "success"
	// StatusFailed means the filter itself reported an error.
	StatusFailed Status = "failed"
	// StatusSkipped means an upstream node failed.
	StatusSkipped Status = "skipped"
	// StatusInvalid means the directive did not pass validation.
	StatusInvalid Status = "invalid"
	// StatusPruned means the node was dropped while building the graph.
	StatusPruned Status = "pruned"
	// StatusCancelled means the pass was cancelled before the node ran.
	StatusCancelled Status = "cancelled"
)

// severity orders statuses so a pipeline reports its worst step.
var severity = map[Status]int{
	StatusSuccess:   0,
	StatusCancelled: 1,
	StatusSkipped:   2,
	StatusFailed:    3,
	StatusPruned:    4,
	StatusInvalid:   5,
}

// Worse returns the more severe of two statuses.
func Worse(a, b Status) Status {
	if severity[b] > severity[a] {
		return b
	}
	return a
}

// StepResult is the outcome of one pipeline step.
type StepResult struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Status Status `json:"status"`
	// Cached is set when the result was reused instead of invoked.
	Cached bool   `json:"cached,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Result is the outcome of a pipeline, extract or plot.
type Result struct {
	Status Status       `json:"status"`
	Error  string       `json:"error,omitempty"`
	Steps  []StepResult `json:"steps,omitempty"`
}

// Report is the outcome of one pass. It is safe for concurrent use.
type Report struct {
	mu sync.Mutex

	PassID    string
	Started   time.Time
	Duration  time.Duration
	Pipelines map[string]*Result
	Extracts  map[string]*Result
	Plots     map[string]*Result
	Errors    diag.List
}

// New creates an empty report.
func New(passID string) *Report {
	return &Report{
		PassID:    passID,
		Started:   time.Now(),
		Pipelines: make(map[string]*Result),
		Extracts:  make(map[string]*Result),
		Plots:     make(map[string]*Result),
		Errors:    diag.List{},
	}
}

// Kind selects one of the report sections.
type Kind int

const (
	Pipeline Kind = iota
	Extract
	Plot
)

func (r *Report) section(k Kind) map[string]*Result {
	switch k {
	case Extract:
		return r.Extracts
	case Plot:
		return r.Plots
	}
	return r.Pipelines
}

// Set records the outcome of a named entry, keeping any step results
// already recorded.
func (r *Report) Set(k Kind, name string, status Status, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sec := r.section(k)
	res, ok := sec[name]
	if !ok {
		res = &Result{}
		sec[name] = res
	}
	res.Status = status
	res.Error = ""
	if err != nil {
		res.Error = err.Error()
	}
}

// AddStep appends a step result to a pipeline and folds its status into
// the pipeline's.
func (r *Report) AddStep(pipeline string, step StepResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.Pipelines[pipeline]
	if !ok {
		res = &Result{Status: StatusSuccess}
		r.Pipelines[pipeline] = res
	}
	res.Steps = append(res.Steps, step)
	res.Status = Worse(res.Status, step.Status)
	if res.Error == "" && step.Error != "" {
		res.Error = step.Error
	}
}

// Get returns a copy of the named entry.
func (r *Report) Get(k Kind, name string) (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.section(k)[name]
	if !ok {
		return Result{}, false
	}
	out := *res
	out.Steps = append([]StepResult(nil), res.Steps...)
	return out, true
}

// Status returns the status of the named entry, or "" if absent.
func (r *Report) Status(k Kind, name string) Status {
	res, _ := r.Get(k, name)
	return res.Status
}

// AddErrors appends diagnostics.
func (r *Report) AddErrors(l diag.List) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors.Extend(l)
}

// Finish stamps the pass duration.
func (r *Report) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Duration = time.Since(r.Started)
}

// Counts tallies every pipeline, extract and plot by status.
func (r *Report) Counts() map[Status]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[Status]int)
	for _, sec := range []map[string]*Result{r.Pipelines, r.Extracts, r.Plots} {
		for _, res := range sec {
			counts[res.Status]++
		}
	}
	return counts
}

// OK reports whether every entry succeeded and no diagnostics were raised.
func (r *Report) OK() bool {
	counts := r.Counts()
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Errors) == 0 && len(counts) <= 1 && (len(counts) == 0 || counts[StatusSuccess] > 0)
}

// Names returns the sorted names in a section.
func (r *Report) Names(k Kind) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	sec := r.section(k)
	names := make([]string, 0, len(sec))
	for name := range sec {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type jsonReport struct {
	PassID    string             `json:"pass_id"`
	Started   time.Time          `json:"started"`
	Duration  time.Duration      `json:"duration_ns"`
	Pipelines map[string]*Result `json:"pipelines"`
	Extracts  map[string]*Result `json:"extracts"`
	Plots     map[string]*Result `json:"plots"`
	Errors    diag.List          `json:"errors"`
}

// MarshalJSON renders the report with map keys in sorted order.
func (r *Report) MarshalJSON() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return json.Marshal(jsonReport{
		PassID:    r.PassID,
		Started:   r.Started,
		Duration:  r.Duration,
		Pipelines: r.Pipelines,
		Extracts:  r.Extracts,
		Plots:     r.Plots,
		Errors:    r.Errors,
	})
}
