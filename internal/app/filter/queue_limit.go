package filter

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/queuebox/internal/domain/song"
)

// QueueLimitConfig represents the configuration for QueueLimitFilter.
type QueueLimitConfig struct {
	MaxSongs   int     `yaml:"max_songs" mapstructure:"max_songs" default:"500" validate:"gte=1"`
	MaxMinutes float64 `yaml:"max_minutes" mapstructure:"max_minutes" validate:"gte=0"`
}

// QueueLimitFilter rejects songs once the queue holds too many songs or too
// much playing time.
type QueueLimitFilter struct {
	queue  QueueReader
	config *QueueLimitConfig
}

// NewQueueLimitFilter creates a new queue limit filter.
func NewQueueLimitFilter(queue QueueReader) *QueueLimitFilter {
	return &QueueLimitFilter{queue: queue}
}

func (f *QueueLimitFilter) Name() string {
	return "queue_limit_filter"
}

func (f *QueueLimitFilter) Description() string {
	return "Rejects requests once the queue reaches its song count or playing time limit"
}

func (f *QueueLimitFilter) ReturnCodes() []string {
	return []string{"queue_full", "time_limit_exceeded"}
}

func (f *QueueLimitFilter) ValidateConfig(settings map[string]any) error {
	var config QueueLimitConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	f.config = &config
	zlog.Info().Msgf("queue limit filter config: %+v", config)
	return nil
}

func (f *QueueLimitFilter) AppliesTo(origin Origin) bool {
	return origin == OriginUser
}

func (f *QueueLimitFilter) Check(_ context.Context, _ Request, m song.Metadata) Result {
	if f.config == nil {
		return Accept()
	}
	if len(f.queue.SongIDs()) >= f.config.MaxSongs {
		return Reject("queue_full")
	}
	if f.config.MaxMinutes > 0 {
		limit := time.Duration(f.config.MaxMinutes * float64(time.Minute))
		if f.queue.TotalDuration()+m.Duration > limit {
			return Reject("time_limit_exceeded")
		}
	}
	return Accept()
}

func init() {
	Register("queue_limit_filter", func(d Deps) Filter {
		return NewQueueLimitFilter(d.Queue)
	})
}
