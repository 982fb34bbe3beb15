package coordinator

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/queuebox/internal/app/fetch"
	"github.com/osa030/queuebox/internal/app/filter"
	"github.com/osa030/queuebox/internal/domain/queue"
)

// AppendIndex as EnqueueRequest.Index appends to the parent group.
const AppendIndex = -1

// EnqueueRequest describes nodes to add to the queue.
type EnqueueRequest struct {
	Parent queue.Path
	Index  int // AppendIndex appends
	Node   *queue.Node
	Origin filter.Origin
}

// EnqueueResult reports where the node went and which songs were refused.
type EnqueueResult struct {
	Path     queue.Path // nil when nothing was added
	Added    int
	Rejected []RejectedError
}

// Enqueue runs the admission filters over the node and inserts what passes.
// A user request fails as a whole when its songs are refused; a playlist
// keeps its accepted songs. Filters run before the mutation is serialized.
func (c *Coordinator) Enqueue(ctx context.Context, req EnqueueRequest) (EnqueueResult, error) {
	if req.Node == nil {
		return EnqueueResult{}, errors.Wrap(queue.ErrInvalidNode, "nothing to enqueue")
	}

	node, rejected, err := c.admit(ctx, req.Node.Clone(), req.Origin)
	if err != nil {
		return EnqueueResult{}, err
	}
	result := EnqueueResult{Rejected: rejected}
	if len(rejected) > 0 && req.Origin == filter.OriginUser {
		return result, &rejected[0]
	}
	if node == nil || (node.LeafCount() == 0 && len(rejected) > 0) {
		return result, nil
	}

	err = c.do(ctx, func() error {
		index := req.Index
		if index == AppendIndex {
			n, err := c.tree.ChildCount(req.Parent)
			if err != nil {
				return err
			}
			index = n
		}
		if err := c.tree.Insert(req.Parent, index, node); err != nil {
			return err
		}
		result.Path = req.Parent.Child(index)
		result.Added = node.LeafCount()
		zlog.Info().Msgf("enqueued %d songs at %s (%d rejected)", result.Added, result.Path, len(rejected))

		c.afterMutation()
		if c.config.AutoPlay && c.playing == "" && !c.stopped {
			return c.proceed(false)
		}
		return nil
	})
	return result, err
}

// admit filters leaves out of node, filling unknown durations from metadata.
// It returns nil when node itself is a refused leaf.
func (c *Coordinator) admit(ctx context.Context, node *queue.Node, origin filter.Origin) (*queue.Node, []RejectedError, error) {
	if node.IsLeaf() {
		code, err := c.check(ctx, node, origin)
		if err != nil {
			return nil, nil, err
		}
		if code != "" {
			return nil, []RejectedError{{SongID: node.SongID, Code: code}}, nil
		}
		return node, nil, nil
	}

	var rejected []RejectedError
	kept := make([]*queue.Node, 0, len(node.Children))
	for _, child := range node.Children {
		admitted, r, err := c.admit(ctx, child, origin)
		if err != nil {
			return nil, nil, err
		}
		rejected = append(rejected, r...)
		if admitted != nil {
			kept = append(kept, admitted)
		}
	}
	node.Children = kept
	return node, rejected, nil
}

// check returns the rejection code for leaf, empty when it is accepted.
func (c *Coordinator) check(ctx context.Context, leaf *queue.Node, origin filter.Origin) (string, error) {
	if c.catalog == nil {
		return "", nil
	}
	m, err := c.catalog.Metadata(ctx, leaf.SongID)
	if err != nil {
		if fetch.IsKind(err, fetch.KindNotFound) {
			return "song_not_found", nil
		}
		return "", errors.Wrapf(err, "failed to look up %s", leaf.SongID)
	}
	if leaf.DurationHint == 0 {
		leaf.DurationHint = m.Duration
	}

	result := c.filters.Execute(ctx, filter.Request{SongID: leaf.SongID, Origin: origin}, m)
	if !result.Accepted {
		zlog.Info().Msgf("song request rejected: song=%s origin=%s code=%s", leaf.SongID, origin, result.Code)
		return result.Code, nil
	}
	return "", nil
}
