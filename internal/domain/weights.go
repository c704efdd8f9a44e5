package domain

// WeightVector holds one non-negative routing weight per partition, index-aligned.
type WeightVector []int

// EqualWeights returns a vector giving every partition the same share.
func EqualWeights(partitions int) WeightVector {
	w := make(WeightVector, partitions)
	for i := range w {
		w[i] = 1
	}
	return w
}

// Total returns the sum of all weights.
func (w WeightVector) Total() int {
	total := 0
	for _, v := range w {
		total += v
	}
	return total
}

// Valid reports whether the vector can be used for a topic with the given number of partitions.
func (w WeightVector) Valid(partitions int) bool {
	if len(w) != partitions {
		return false
	}
	for _, v := range w {
		if v < 0 {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (w WeightVector) Clone() WeightVector {
	if w == nil {
		return nil
	}
	out := make(WeightVector, len(w))
	copy(out, w)
	return out
}
