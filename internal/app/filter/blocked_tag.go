package filter

import (
	"context"
	"strings"

	"github.com/samber/lo"

	"github.com/osa030/queuebox/internal/domain/song"
)

// BlockedTagConfig represents the configuration for BlockedTagFilter.
type BlockedTagConfig struct {
	Tags []string `yaml:"tags" mapstructure:"tags" validate:"dive,required"`
}

// BlockedTagFilter rejects songs carrying any of the configured tags.
type BlockedTagFilter struct {
	blocked map[string]struct{}
}

func (f *BlockedTagFilter) Name() string {
	return "blocked_tag_filter"
}

func (f *BlockedTagFilter) Description() string {
	return "Rejects songs tagged with any of the configured tags"
}

func (f *BlockedTagFilter) ReturnCodes() []string {
	return []string{"blocked_tag"}
}

func (f *BlockedTagFilter) ValidateConfig(settings map[string]any) error {
	var config BlockedTagConfig
	if err := decodeSettings(settings, &config); err != nil {
		return err
	}
	f.blocked = lo.SliceToMap(config.Tags, func(tag string) (string, struct{}) {
		return strings.ToLower(strings.TrimSpace(tag)), struct{}{}
	})
	return nil
}

func (f *BlockedTagFilter) AppliesTo(Origin) bool {
	return true
}

func (f *BlockedTagFilter) Check(_ context.Context, _ Request, m song.Metadata) Result {
	for _, tag := range m.Tags {
		if _, ok := f.blocked[strings.ToLower(strings.TrimSpace(tag))]; ok {
			return Reject("blocked_tag")
		}
	}
	return Accept()
}

func init() {
	Register("blocked_tag_filter", func(Deps) Filter {
		return &BlockedTagFilter{}
	})
}
