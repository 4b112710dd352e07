package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/rag-tutor/internal/domain"
	"github.com/Rrens/rag-tutor/internal/observability"
)

const recordTimeout = 10 * time.Second

// Recorder writes interaction records to every configured sink. It never
// returns an error and never panics.
type Recorder struct {
	sinks   []domain.InteractionSink
	metrics *observability.Metrics
}

func NewRecorder(metrics *observability.Metrics, sinks ...domain.InteractionSink) *Recorder {
	return &Recorder{sinks: sinks, metrics: metrics}
}

// Record appends rec to each sink in turn
func (r *Recorder) Record(ctx context.Context, rec domain.InteractionRecord) {
	rec = sanitizeRecord(rec)

	// the reply has already been produced; a cancelled request must not drop the audit row
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	for _, sink := range r.sinks {
		if err := r.appendTo(ctx, sink, rec); err != nil {
			log.Error().Err(err).Str("sink", sink.Name()).Str("user_id", rec.UserID).Msg("failed to record interaction")
			r.metrics.ObserveDegradation(domain.KindAudit)
			r.metrics.ObserveRecorderFailure(sink.Name())
		}
	}
}

func (r *Recorder) appendTo(ctx context.Context, sink domain.InteractionSink, rec domain.InteractionRecord) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = domain.NewError(domain.KindAudit, "append", fmt.Errorf("sink panicked: %v", p))
		}
	}()

	if err := sink.Append(ctx, rec); err != nil {
		return domain.NewError(domain.KindAudit, "append", err)
	}
	return nil
}

func sanitizeRecord(rec domain.InteractionRecord) domain.InteractionRecord {
	rec.UserID = domain.StripNUL(rec.UserID)
	rec.ContentDescriptor = domain.StripNUL(rec.ContentDescriptor)
	rec.MediaURL = domain.StripNUL(rec.MediaURL)
	rec.Analysis = domain.StripNUL(rec.Analysis)
	rec.RetrievedContext = domain.StripNUL(rec.RetrievedContext)
	rec.FinalReply = domain.StripNUL(rec.FinalReply)
	return rec
}
