package trend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/kimdw524/trendcast/internal/store"
	"github.com/kimdw524/trendcast/pkg/source"
)

// ErrNoTopicSelected means every source and the static fallback list came
// up empty. The run is finalized as failed and the caller should alert.
var ErrNoTopicSelected = errors.New("no topic selected")

// Engine runs one trend discovery pass: fan out to all adapters in
// parallel, resolve observations into clusters, score them, pick a winner,
// and persist the run with its topic snapshots.
type Engine struct {
	store        store.Store
	adapters     []source.Adapter
	filter       *source.Filter
	region       string
	window       time.Duration
	fetchTimeout time.Duration
	fallback     []string
	topicLimit   int
}

// NewEngine creates a discovery engine.
func NewEngine(s store.Store, adapters []source.Adapter, filter *source.Filter, region string, window time.Duration, fallback []string) *Engine {
	if region == "" {
		region = "KR"
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Engine{
		store:        s,
		adapters:     adapters,
		filter:       filter,
		region:       region,
		window:       window,
		fetchTimeout: 60 * time.Second,
		fallback:     fallback,
		topicLimit:   10,
	}
}

// RunResult is the outcome of one discovery run.
type RunResult struct {
	Run      *store.TrendRun
	Selected *Cluster
	Clusters []*Cluster
}

// Discover executes a full discovery run. Adapter failures are tolerated:
// the run proceeds with whatever subset returned data. Only a completely
// empty result (all sources plus fallback) fails the run.
func (e *Engine) Discover(ctx context.Context) (*RunResult, error) {
	started := time.Now()

	run := &store.TrendRun{Status: store.RunRunning, StartedAt: started.UTC()}
	if err := e.store.CreateRun(ctx, run); err != nil {
		// Persistence is best-effort; the run itself still happens.
		fmt.Fprintf(os.Stderr, "  run insert error: %v\n", err)
	}

	observations, sourcesUsed := e.fetchAll(ctx)
	if e.filter != nil {
		observations = e.filter.Apply(observations)
	}
	run.SourcesUsed = sourcesUsed

	var clusters []*Cluster
	if len(observations) > 0 {
		clusters = Resolve(observations)
		for _, c := range clusters {
			Score(c)
		}
	} else {
		fmt.Fprintln(os.Stderr, "  all sources empty, using fallback topics")
		clusters = fallbackClusters(e.fallback)
	}

	selected := SelectFinal(clusters)
	run.TopicsFound = len(clusters)
	run.ExecutionMs = time.Since(started).Milliseconds()

	if selected == nil {
		run.Status = store.RunFailed
		run.ErrorMessage = ErrNoTopicSelected.Error()
		if err := e.store.FinishRun(ctx, run); err != nil {
			fmt.Fprintf(os.Stderr, "  run finalize error: %v\n", err)
		}
		return &RunResult{Run: run}, ErrNoTopicSelected
	}

	e.persistTopics(ctx, run.ID, clusters, selected)

	run.Status = store.RunCompleted
	run.SelectedTopic = selected.CanonicalKeyword
	if err := e.store.FinishRun(ctx, run); err != nil {
		fmt.Fprintf(os.Stderr, "  run finalize error: %v\n", err)
	}

	return &RunResult{Run: run, Selected: selected, Clusters: clusters}, nil
}

// fetchAll invokes every adapter in parallel with a bounded per-call
// timeout. A failing adapter is skipped; results keep adapter order so
// resolution stays deterministic.
func (e *Engine) fetchAll(ctx context.Context) ([]source.Observation, []string) {
	results := make([][]source.Observation, len(e.adapters))
	oks := make([]bool, len(e.adapters))

	var wg sync.WaitGroup
	for i, adapter := range e.adapters {
		wg.Add(1)
		go func(i int, adapter source.Adapter) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
			defer cancel()

			obs, err := adapter.FetchObservations(fetchCtx, e.region, e.window)
			if err != nil {
				fmt.Fprintf(os.Stderr, "  %s unavailable: %v\n", adapter.Name(), err)
				return
			}
			results[i] = obs
			oks[i] = true
			fmt.Fprintf(os.Stderr, "  %s: %d observations\n", adapter.Name(), len(obs))
		}(i, adapter)
	}
	wg.Wait()

	var observations []source.Observation
	var sourcesUsed []string
	for i, adapter := range e.adapters {
		if oks[i] {
			sourcesUsed = append(sourcesUsed, string(adapter.Name()))
			observations = append(observations, results[i]...)
		}
	}
	return observations, sourcesUsed
}

// persistTopics writes the top clusters as audit rows. Write errors are
// logged and skipped; a partially persisted run is acceptable.
func (e *Engine) persistTopics(ctx context.Context, runID int64, clusters []*Cluster, selected *Cluster) {
	limit := e.topicLimit
	if limit <= 0 || limit > len(clusters) {
		limit = len(clusters)
	}

	for _, c := range clusters[:limit] {
		topic := &store.TrendingTopic{
			RunID:           runID,
			Keyword:         c.CanonicalKeyword,
			Category:        c.Category,
			AggregatedScore: c.AggregatedScore,
			PredictedViews:  c.PredictedViews,
			Confidence:      c.Confidence,
			Velocity:        c.Velocity,
			CrossPlatform:   c.CrossPlatform,
			Selected:        c == selected,
			Sources:         c.Sources(),
		}
		if err := e.store.CreateTopic(ctx, topic); err != nil {
			fmt.Fprintf(os.Stderr, "  topic insert error for %q: %v\n", c.CanonicalKeyword, err)
		}
	}
}

// fallbackClusters turns the static topic list into minimal clusters with
// conservative scores. Used only when every source returned nothing.
func fallbackClusters(keywords []string) []*Cluster {
	var clusters []*Cluster
	for _, kw := range keywords {
		normalized := Normalize(kw)
		if normalized == "" {
			continue
		}
		clusters = append(clusters, &Cluster{
			CanonicalKeyword: kw,
			normalized:       normalized,
			Members:          map[source.SourceType]source.Observation{},
			Confidence:       0.3,
			Velocity:         defaultVelocity,
			Competitiveness:  0.5,
			Category:         "general",
		})
	}
	return clusters
}
