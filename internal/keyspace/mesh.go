package keyspace

import (
	"fmt"
	"math"
	"math/big"
)

// SplitKeySpace returns min, up to count evenly-ish spaced interior
// checkpoints, and max -- the full boundary list TableSegment.choose_checkpoints
// uses for one key dimension (spec §4.5, §3 "Key arithmetic").
//
// Grounded on original_source/data_diff/table_segment.py's
// split_key_space + sqeleton/utils.py's split_space: checkpoints are chosen
// by converting both ends to their integer representation, stepping by
// (size+1)/(count+1), and keeping the first count interior multiples. Every
// gap but the last equals that step; all gaps are equal only when count+1
// divides size, and otherwise the last gap (up to max) differs from the
// rest, matching the source's own tail-skew.
func SplitKeySpace(min, max Arith, count int) ([]KeyValue, error) {
	if count < 1 {
		return nil, fmt.Errorf("keyspace: count must be >= 1, got %d", count)
	}
	minInt, maxInt := min.Int(), max.Int()
	size := new(big.Int).Sub(maxInt, minInt)
	if size.Sign() <= 0 {
		return nil, fmt.Errorf("keyspace: min must be less than max")
	}
	if size.Cmp(big.NewInt(int64(count))) <= 0 {
		count = 1
	}

	checkpoints := splitSpace(minInt, maxInt, count)
	result := make([]KeyValue, 0, len(checkpoints)+2)
	result = append(result, min)
	for _, c := range checkpoints {
		kv, err := min.FromInt(c)
		if err != nil {
			return nil, err
		}
		result = append(result, kv)
	}
	result = append(result, max)
	return result, nil
}

// splitSpace ports sqeleton/utils.py's split_space: the first `count`
// members of the arithmetic sequence start+step, start+2*step, ... that
// remain strictly less than end, where step = (size+1)/(count+1).
func splitSpace(start, end *big.Int, count int) []*big.Int {
	size := new(big.Int).Sub(end, start)
	divisor := big.NewInt(int64(count + 1))
	step := new(big.Int).Add(size, big.NewInt(1))
	step.Div(step, divisor)
	if step.Sign() == 0 {
		step.SetInt64(1)
	}

	var out []*big.Int
	x := new(big.Int).Add(start, step)
	for i := 0; i < count && x.Cmp(end) < 0; i++ {
		out = append(out, new(big.Int).Set(x))
		x.Add(x, step)
	}
	return out
}

// SplitCompoundKeySpace returns, for each key dimension, the boundary list
// (min, ...interior checkpoints..., max) produced by SplitKeySpace, used to
// build an N-dimensional grid of split points across a compound key (spec
// §4.5 "choose_checkpoints").
func SplitCompoundKeySpace(min, max Vector, count int) ([][]KeyValue, error) {
	if len(min) != len(max) {
		return nil, fmt.Errorf("keyspace: min/max vector length mismatch")
	}
	result := make([][]KeyValue, len(min))
	for i := range min {
		a, ok := min[i].(Arith)
		if !ok {
			return nil, fmt.Errorf("keyspace: key dimension %d is not an arithmetic type", i)
		}
		b, ok := max[i].(Arith)
		if !ok {
			return nil, fmt.Errorf("keyspace: key dimension %d is not an arithmetic type", i)
		}
		pts, err := SplitKeySpace(a, b, count)
		if err != nil {
			return nil, err
		}
		result[i] = pts
	}
	return result, nil
}

// NthRootCount computes the per-dimension checkpoint count for an overall
// target of `count` child segments spread across `dims` key dimensions,
// per spec §4.5: "approximately count^(1/keyDims)". Matches the source's
// `int(count ** (1/len(key_columns))) or 1`.
func NthRootCount(count, dims int) int {
	if dims <= 1 {
		if count < 1 {
			return 1
		}
		return count
	}
	root := int(math.Pow(float64(count), 1.0/float64(dims)))
	if root < 1 {
		root = 1
	}
	return root
}

// CreateMeshFromPoints builds the Cartesian mesh of adjacent checkpoint
// pairs across every key dimension, returning one (min, max) Vector pair
// per child box. Grounded on table_segment.py's create_mesh_from_points;
// gaps are impossible by construction since adjacent boxes share an
// endpoint (spec §4.5).
func CreateMeshFromPoints(perDim [][]KeyValue) ([][2]Vector, error) {
	dims := len(perDim)
	if dims == 0 {
		return nil, fmt.Errorf("keyspace: no key dimensions given")
	}
	segsPerDim := make([]int, dims)
	total := 1
	for d, pts := range perDim {
		if len(pts) < 2 {
			return nil, fmt.Errorf("keyspace: dimension %d has fewer than 2 boundary points", d)
		}
		segsPerDim[d] = len(pts) - 1
		total *= segsPerDim[d]
	}

	result := make([][2]Vector, 0, total)
	idx := make([]int, dims)
	for {
		lo := make(Vector, dims)
		hi := make(Vector, dims)
		for d := 0; d < dims; d++ {
			lo[d] = perDim[d][idx[d]]
			hi[d] = perDim[d][idx[d]+1]
		}
		result = append(result, [2]Vector{lo, hi})

		d := dims - 1
		for d >= 0 {
			idx[d]++
			if idx[d] < segsPerDim[d] {
				break
			}
			idx[d] = 0
			d--
		}
		if d < 0 {
			break
		}
	}
	return result, nil
}
