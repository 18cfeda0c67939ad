package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/ajitpratap0/evcollapse/internal/eventalign"
	"github.com/ajitpratap0/evcollapse/pkg/errors"
	"github.com/ajitpratap0/evcollapse/pkg/metrics"
)

// collapseWorker pulls read groups off the shared work channel and collapses
// each into a (summary, block) pair. Workers race on the channel, so there
// is no assignment of groups to workers and downstream order is arrival
// order. On end-of-input or on a fault the worker forwards exactly one
// termination marker so the writer's expected-marker count stays
// satisfiable.
func (p *Pipeline) collapseWorker(ctx context.Context, id int, work <-chan *eventalign.ReadGroup, results chan<- *result) {
	log := p.log.With(zap.Int("worker", id))
	log.Debug("collapse worker started")

	for {
		select {
		case group := <-work:
			if group == nil {
				p.forwardMarker(ctx, results)
				log.Debug("collapse worker finished")
				return
			}

			summary, block, err := p.collapser.Collapse(group)
			if err != nil {
				p.fail(errors.Wrap(err, errors.ErrorTypeData, "failed to collapse read group").
					WithDetail("read_id", group.ReadID).
					WithDetail("ref_id", group.RefID))
				p.forwardMarker(ctx, results)
				return
			}

			metrics.KmersCollapsed.Add(float64(summary.Kmers))
			metrics.QueueDepth.WithLabelValues("results").Set(float64(len(results)))

			select {
			case results <- &result{summary: summary, block: block}:
			case <-ctx.Done():
				return
			}

		case <-ctx.Done():
			log.Debug("collapse worker cancelled")
			return
		}
	}
}

func (p *Pipeline) forwardMarker(ctx context.Context, results chan<- *result) {
	select {
	case results <- nil:
	case <-ctx.Done():
	}
}
