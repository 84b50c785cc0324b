package duplicates

import (
	"encoding/binary"
	"sort"

	"github.com/zeebo/blake3"
)

// computeMinHash computes a MinHash signature using k-shingles.
// Shingles are blake3-hashed and reduced with seeded bit mixing.
func computeMinHash(tokens []string, shingleSize, numHashes int) *MinHashSignature {
	shingles := generateKShingles(tokens, shingleSize)

	signature := &MinHashSignature{
		Values: make([]uint64, numHashes),
	}
	for i := range signature.Values {
		signature.Values[i] = ^uint64(0)
	}

	for _, shingleHash := range shingles {
		for i := 0; i < numHashes; i++ {
			h := hashUint64WithSeed(shingleHash, uint64(i))
			if h < signature.Values[i] {
				signature.Values[i] = h
			}
		}
	}

	return signature
}

// hashUint64WithSeed computes a hash of a uint64 value with a seed.
func hashUint64WithSeed(value uint64, seed uint64) uint64 {
	// murmur3 finalizer
	h := value ^ seed
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return h
}

// generateKShingles creates the set of k-token shingles as blake3 hashes.
func generateKShingles(tokens []string, k int) []uint64 {
	if len(tokens) < k {
		if len(tokens) > 0 {
			h := blake3.New()
			for _, t := range tokens {
				_, _ = h.Write([]byte(t))
			}
			sum := h.Sum(nil)
			return []uint64{binary.LittleEndian.Uint64(sum[:8])}
		}
		return nil
	}

	shingleSet := make(map[uint64]struct{})
	h := blake3.New()

	for i := 0; i <= len(tokens)-k; i++ {
		h.Reset()
		for j := i; j < i+k; j++ {
			_, _ = h.Write([]byte(tokens[j]))
			_, _ = h.Write([]byte{0})
		}
		sum := h.Sum(nil)
		shingleSet[binary.LittleEndian.Uint64(sum[:8])] = struct{}{}
	}

	shingles := make([]uint64, 0, len(shingleSet))
	for hash := range shingleSet {
		shingles = append(shingles, hash)
	}
	return shingles
}

// hashBand computes a hash for a band portion of the signature.
// Uses FNV-1a style combining without allocations.
func hashBand(values []uint64, seed uint64) uint64 {
	const fnvPrime = 0x00000100000001B3
	h := seed ^ 0xcbf29ce484222325 // FNV offset basis
	for _, v := range values {
		h ^= v
		h *= fnvPrime
	}
	return h
}

type similarPair struct {
	idxA       int
	idxB       int
	similarity float64
}

// findSimilarPairs buckets signatures with LSH bands and verifies only the
// pairs that share at least one bucket. skip filters pairs before the
// Jaccard estimate is computed.
func findSimilarPairs(sigs []*MinHashSignature, cfg Config, skip func(a, b int) bool) []similarPair {
	lshBuckets := make([]map[uint64][]int, cfg.NumBands)
	for i := range lshBuckets {
		lshBuckets[i] = make(map[uint64][]int)
	}

	for idx, sig := range sigs {
		if sig == nil || len(sig.Values) == 0 {
			continue
		}
		for band := 0; band < cfg.NumBands; band++ {
			start := band * cfg.RowsPerBand
			end := start + cfg.RowsPerBand
			if end > len(sig.Values) {
				end = len(sig.Values)
			}
			if start >= end {
				continue
			}
			bandHash := hashBand(sig.Values[start:end], uint64(band))
			lshBuckets[band][bandHash] = append(lshBuckets[band][bandHash], idx)
		}
	}

	candidatePairs := make(map[uint64]struct{})
	for _, bandBuckets := range lshBuckets {
		for _, bucket := range bandBuckets {
			if len(bucket) < 2 {
				continue
			}
			for i := 0; i < len(bucket); i++ {
				for j := i + 1; j < len(bucket); j++ {
					idxA, idxB := bucket[i], bucket[j]
					if idxA > idxB {
						idxA, idxB = idxB, idxA
					}
					candidatePairs[uint64(idxA)<<32|uint64(idxB)] = struct{}{}
				}
			}
		}
	}

	var pairs []similarPair
	for pairKey := range candidatePairs {
		idxA := int(pairKey >> 32)
		idxB := int(pairKey & 0xFFFFFFFF)
		if skip != nil && skip(idxA, idxB) {
			continue
		}
		similarity := sigs[idxA].JaccardSimilarity(sigs[idxB])
		if similarity >= cfg.SimilarityThreshold {
			pairs = append(pairs, similarPair{idxA: idxA, idxB: idxB, similarity: similarity})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].idxA != pairs[j].idxA {
			return pairs[i].idxA < pairs[j].idxA
		}
		return pairs[i].idxB < pairs[j].idxB
	})
	return pairs
}

// nearGroups unions similar pairs into groups using Union-Find.
func nearGroups(units []FunctionUnit, pairs []similarPair) []NearGroup {
	if len(pairs) == 0 {
		return nil
	}

	parent := make([]int, len(units))
	for i := range parent {
		parent[i] = i
	}

	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}

	union := func(x, y int) {
		px, py := find(x), find(y)
		if px == py {
			return
		}
		if px < py {
			parent[py] = px
		} else {
			parent[px] = py
		}
	}

	for _, p := range pairs {
		union(p.idxA, p.idxB)
	}

	members := make(map[int][]int)
	simSum := make(map[int]float64)
	simCount := make(map[int]int)
	for _, p := range pairs {
		root := find(p.idxA)
		simSum[root] += p.similarity
		simCount[root]++
	}
	for i := range units {
		root := find(i)
		if simCount[root] > 0 {
			members[root] = append(members[root], i)
		}
	}

	roots := make([]int, 0, len(members))
	for root := range members {
		roots = append(roots, root)
	}
	sort.Ints(roots)

	groups := make([]NearGroup, 0, len(roots))
	for _, root := range roots {
		g := NearGroup{Similarity: simSum[root] / float64(simCount[root])}
		for _, idx := range members[root] {
			g.Functions = append(g.Functions, refOf(units[idx]))
		}
		groups = append(groups, g)
	}
	return groups
}
