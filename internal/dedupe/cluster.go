package dedupe

import (
	"runtime"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/transparencydata/payments-cli/internal/model"
)

// MatchFunc is a pairwise equivalence judgment over two records.
type MatchFunc func(a, b *model.Record) bool

// Clusterer assigns each record a group id such that records connected
// by any chain of pairwise matches share one group. The comparator is
// not transitive, so groups are united explicitly (union-find) rather
// than derived from a sort key.
type Clusterer struct {
	cmp     *Comparator
	workers int
	geo     bool
}

// ClusterOption configures a Clusterer.
type ClusterOption func(*Clusterer)

// WithWorkers sets how many shards scan record pairs in parallel.
func WithWorkers(n int) ClusterOption {
	return func(c *Clusterer) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithGeoPass enables the geo-augmented second pass over geocoded
// records.
func WithGeoPass(enabled bool) ClusterOption {
	return func(c *Clusterer) { c.geo = enabled }
}

// NewClusterer creates a Clusterer over the given comparator.
func NewClusterer(cmp *Comparator, opts ...ClusterOption) *Clusterer {
	c := &Clusterer{cmp: cmp, workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run assigns GroupID to every record in place. Group ids are minted
// per union-find root in first-seen record order, so the grouping is
// independent of scan order and shard interleaving.
func (cl *Clusterer) Run(records []*model.Record) {
	uf := newUnionFind(len(records))

	passes := []MatchFunc{cl.cmp.Match}
	if cl.geo {
		passes = append(passes, cl.cmp.GeoMatch)
	}
	for _, match := range passes {
		cl.scan(records, match, uf)
	}

	ids := make(map[int]string)
	for i := range records {
		root := uf.find(i)
		id, ok := ids[root]
		if !ok {
			id = uuid.NewString()
			ids[root] = id
		}
		records[i].GroupID = id
	}
}

// scan partitions records by type and compares all pairs within each
// partition. The comparator rejects cross-type pairs unconditionally,
// so the partition can never drop a match.
func (cl *Clusterer) scan(records []*model.Record, match MatchFunc, uf *unionFind) {
	byType := make(map[model.RecipientType][]int)
	for i, r := range records {
		byType[r.Type] = append(byType[r.Type], i)
	}
	for _, idxs := range byType {
		cl.scanPartition(records, idxs, match, uf)
	}
}

// scanPartition shards the triangular pair scan across workers. Match
// evaluation is pure and runs unsynchronized; unions are serialized
// under a mutex. Union is commutative and associative, so the shard
// interleaving cannot change the final components.
func (cl *Clusterer) scanPartition(records []*model.Record, idxs []int, match MatchFunc, uf *unionFind) {
	var mu sync.Mutex
	g := new(errgroup.Group)

	for w := 0; w < cl.workers; w++ {
		g.Go(func() error {
			for i := w; i < len(idxs); i += cl.workers {
				for j := i + 1; j < len(idxs); j++ {
					if match(records[idxs[i]], records[idxs[j]]) {
						mu.Lock()
						uf.union(idxs[i], idxs[j])
						mu.Unlock()
					}
				}
			}
			return nil
		})
	}
	_ = g.Wait()
}

// unionFind is a classic disjoint-set forest with union by size and
// path compression.
type unionFind struct {
	parent []int
	size   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{
		parent: make([]int, n),
		size:   make([]int, n),
	}
	for i := range uf.parent {
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.size[ra] < uf.size[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
}
