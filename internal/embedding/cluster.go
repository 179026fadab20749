package embedding

import (
	"context"
	"fmt"
	"strings"

	"synthfeed/internal/logging"
	"synthfeed/internal/types"
)

// =============================================================================
// COMMENT CLUSTERING
// =============================================================================

// Report summarizes one Arrange call.
type Report struct {
	Clusters int
	Dropped  int
	// Skipped is set when embedding failed and the input order was kept.
	Skipped bool
}

// Clusterer groups top-level comments by meaning.
type Clusterer struct {
	engine           Engine
	clusterThreshold float64
	dedupeThreshold  float64
}

// NewClusterer creates a clusterer. A comment joins the cluster whose leader
// it is most similar to when that similarity reaches clusterThreshold; a
// reply-less comment at or above dedupeThreshold against any kept comment is
// dropped.
func NewClusterer(engine Engine, clusterThreshold, dedupeThreshold float64) *Clusterer {
	return &Clusterer{
		engine:           engine,
		clusterThreshold: clusterThreshold,
		dedupeThreshold:  dedupeThreshold,
	}
}

type cluster struct {
	leader  []float32
	members []int
}

// Arrange reorders top-level comments cluster by cluster. Clusters appear in
// the order their first member appeared, members keep their relative order,
// and replies are left untouched. If embedding fails the input is returned
// as is.
func (c *Clusterer) Arrange(ctx context.Context, comments []types.Comment) ([]types.Comment, Report) {
	if len(comments) < 2 {
		return comments, Report{Clusters: len(comments)}
	}

	timer := logging.StartTimer(logging.CategoryEmbedding, "Arrange")
	defer timer.Stop()

	texts := make([]string, len(comments))
	for i, cm := range comments {
		texts[i] = embedText(cm)
	}

	vecs, err := c.engine.EmbedBatch(ctx, texts)
	if err == nil && len(vecs) != len(comments) {
		err = fmt.Errorf("engine returned %d vectors for %d comments", len(vecs), len(comments))
	}
	if err != nil {
		logging.Get(logging.CategoryEmbedding).Warn("Embedding failed, keeping original comment order: %v", err)
		return comments, Report{Skipped: true}
	}

	var clusters []*cluster
	var kept [][]float32
	dropped := 0

	for i, vec := range vecs {
		if len(comments[i].Replies) == 0 && c.isDuplicate(vec, kept) {
			logging.EmbeddingDebug("Dropping near-duplicate comment %d by %s", i, comments[i].DisplayAuthor())
			dropped++
			continue
		}
		kept = append(kept, vec)

		var best *cluster
		bestSim := c.clusterThreshold
		for _, cl := range clusters {
			sim, err := CosineSimilarity(vec, cl.leader)
			if err != nil {
				continue
			}
			if sim >= bestSim {
				best, bestSim = cl, sim
			}
		}
		if best == nil {
			clusters = append(clusters, &cluster{leader: vec, members: []int{i}})
			continue
		}
		best.members = append(best.members, i)
	}

	out := make([]types.Comment, 0, len(comments)-dropped)
	for _, cl := range clusters {
		for _, idx := range cl.members {
			out = append(out, comments[idx])
		}
	}

	logging.Embedding("Arranged %d comments into %d clusters (%d duplicates dropped)", len(comments), len(clusters), dropped)
	return out, Report{Clusters: len(clusters), Dropped: dropped}
}

func (c *Clusterer) isDuplicate(vec []float32, kept [][]float32) bool {
	if c.dedupeThreshold <= 0 {
		return false
	}
	for _, k := range kept {
		if sim, err := CosineSimilarity(vec, k); err == nil && sim >= c.dedupeThreshold {
			return true
		}
	}
	return false
}

func embedText(c types.Comment) string {
	body := strings.TrimSpace(c.Body)
	if body == "" {
		return c.DisplayAuthor()
	}
	return body
}
