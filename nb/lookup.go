package nb

// countBin holds one distinct value appearing in a count vector,
// together with its multiplicity.
type countBin struct {
	val int
	n   int
}

// countTable compresses a vector of non-negative integer counts into
// (value, multiplicity) pairs, in ascending order of value.  Only
// values that actually occur are included, so the multiplicities sum
// to len(y).  Aggregate sums of an expensive function f over y can
// then be computed as sum over bins of f(val)*n, which evaluates f
// once per distinct value rather than once per observation.
//
// The table is built by bin counting over 0..max(y), so time is
// O(len(y) + max(y)) and space is O(max(y)).  This suits count data
// with heavy repetition of small values; it degrades for sparse
// large-magnitude counts.
func countTable(y []float64) []countBin {

	if len(y) == 0 {
		return nil
	}

	mx := 0
	for _, v := range y {
		if int(v) > mx {
			mx = int(v)
		}
	}

	bc := make([]int, mx+1)
	for _, v := range y {
		bc[int(v)]++
	}

	var tab []countBin
	for v, n := range bc {
		if n > 0 {
			tab = append(tab, countBin{v, n})
		}
	}

	return tab
}
