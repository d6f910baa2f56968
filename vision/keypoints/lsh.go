package keypoints

import (
	"github.com/pkg/errors"

	"go.viam.com/monovo/utils"
	"go.viam.com/monovo/vision/keypoints/descriptors"
)

// maxLSHKeySize is the largest number of bits a bucket key can hold.
const maxLSHKeySize = 32

type lshTable struct {
	bits    []int
	buckets map[uint32][]int
}

func (t *lshTable) key(d descriptors.Descriptor) uint32 {
	var k uint32
	for i, b := range t.bits {
		k |= uint32(d.Bit(b)) << i
	}
	return k
}

// LSHIndex is a locality sensitive hashing index over binary descriptors. Each table hashes a
// descriptor to the value of a fixed random subset of its bits; lookups probe the query bucket
// and the buckets whose keys differ by at most multiProbeLevel bits.
type LSHIndex struct {
	train  descriptors.Descriptors
	tables []*lshTable
	probes []uint32
}

// NewLSHIndex builds an index over train. The bit subsets only depend on seed.
func NewLSHIndex(train descriptors.Descriptors, tableNumber, keySize, multiProbeLevel int, seed uint64) (*LSHIndex, error) {
	if err := descriptors.CheckUniformLength(train); err != nil {
		return nil, err
	}
	if tableNumber < 1 {
		return nil, errors.Errorf("table number should be >= 1, got %d", tableNumber)
	}
	if keySize < 1 || keySize > maxLSHKeySize {
		return nil, errors.Errorf("key size should be in [1, %d], got %d", maxLSHKeySize, keySize)
	}
	if multiProbeLevel < 0 || multiProbeLevel > keySize {
		return nil, errors.Errorf("multi probe level should be in [0, %d], got %d", keySize, multiProbeLevel)
	}
	idx := &LSHIndex{train: train, probes: probeMasks(keySize, multiProbeLevel)}
	if len(train) == 0 {
		return idx, nil
	}
	nBits := train[0].NBits()
	if keySize > nBits {
		return nil, errors.Errorf("key size %d is larger than the %d descriptor bits", keySize, nBits)
	}
	rng := utils.NewSeededRand(seed)
	scratch := make([]int, nBits)
	for i := 0; i < tableNumber; i++ {
		t := &lshTable{
			bits:    append([]int(nil), utils.SampleDistinctIndices(rng, nBits, keySize, scratch)...),
			buckets: make(map[uint32][]int),
		}
		for j, d := range train {
			k := t.key(d)
			t.buckets[k] = append(t.buckets[k], j)
		}
		idx.tables = append(idx.tables, t)
	}
	return idx, nil
}

// probeMasks returns the xor masks of at most level bits among keySize, by increasing number of
// bits set.
func probeMasks(keySize, level int) []uint32 {
	masks := []uint32{0}
	prev := []uint32{0}
	for l := 1; l <= level; l++ {
		var next []uint32
		for _, m := range prev {
			// extend masks with bits above their highest set bit so each one is generated once
			start := 0
			for b := keySize - 1; b >= 0; b-- {
				if m&(1<<b) != 0 {
					start = b + 1
					break
				}
			}
			for b := start; b < keySize; b++ {
				next = append(next, m|1<<b)
			}
		}
		masks = append(masks, next...)
		prev = next
	}
	return masks
}

// Len returns the number of indexed descriptors.
func (idx *LSHIndex) Len() int {
	return len(idx.train)
}

// candidates returns the distinct train indices sharing a probed bucket with query, stopping
// once maxChecks are found when maxChecks > 0.
func (idx *LSHIndex) candidates(query descriptors.Descriptor, maxChecks int, seen []bool) []int {
	var out []int
	keys := make([]uint32, len(idx.tables))
	for i, t := range idx.tables {
		keys[i] = t.key(query)
	}
	for _, mask := range idx.probes {
		for i, t := range idx.tables {
			for _, j := range t.buckets[keys[i]^mask] {
				if seen[j] {
					continue
				}
				seen[j] = true
				out = append(out, j)
				if maxChecks > 0 && len(out) >= maxChecks {
					return out
				}
			}
		}
	}
	return out
}

// KnnSearch returns the k nearest neighbors of every query among the probed candidates. Queries
// with fewer than k candidates fall back to a linear scan of the whole index.
func (idx *LSHIndex) KnnSearch(query descriptors.Descriptors, k, maxChecks int) ([][]DescriptorMatch, error) {
	if err := checkDescriptorSets(query, idx.train); err != nil {
		return nil, err
	}
	out := make([][]DescriptorMatch, len(query))
	seen := make([]bool, len(idx.train))
	for qi, q := range query {
		cands := idx.candidates(q, maxChecks, seen)
		for _, j := range cands {
			seen[j] = false
		}
		if len(cands) < k {
			cands = nil
		}
		nn, err := nearestNeighbors(qi, q, idx.train, cands, k)
		if err != nil {
			return nil, err
		}
		out[qi] = nn
	}
	return out, nil
}
