package artifact

import (
	"context"
	"fmt"

	"github.com/iliassehm/conformity/internal/domain"
)

// DocumentKey is the storage key of one document binary of a session.
func DocumentKey(sessionID, documentID string, kind domain.ArtifactKind) string {
	return fmt.Sprintf("documents/%s/%s/%s.bin", sessionID, documentID, kind)
}

// Offload moves every in-memory content of batch to store and returns a
// copy carrying references only. Documents that already have no content
// keep their existing reference.
func Offload(
	ctx context.Context, store Store, sessionID string, batch domain.Batch, kind domain.ArtifactKind,
) (domain.Batch, error) {
	out := make(domain.Batch, len(batch))
	for i, d := range batch {
		c := d.Clone()
		if c.Content != nil {
			ref, err := store.Put(ctx, c.Content, kind, DocumentKey(sessionID, c.ID, kind))
			if err != nil {
				return nil, fmt.Errorf("offload %q: %w", c.FileName(), err)
			}
			c.ContentRef = ref
			c.Content = nil
		}
		out[i] = c
	}
	return out, nil
}

// Hydrate loads the content of every referenced document of batch.
func Hydrate(ctx context.Context, store Store, batch domain.Batch) (domain.Batch, error) {
	out := batch.Clone()
	for i := range out {
		if out[i].Content != nil || out[i].ContentRef.IsZero() {
			continue
		}
		content, err := store.Get(ctx, out[i].ContentRef)
		if err != nil {
			return nil, fmt.Errorf("hydrate %q: %w", out[i].FileName(), err)
		}
		out[i].Content = content
	}
	return out, nil
}
