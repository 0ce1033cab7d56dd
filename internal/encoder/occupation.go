package encoder

// occupation is the hybrid dense-array + sparse-map table backing both the
// full and short code spaces: codes below the table's span hit the dense
// array, anything beyond spills into the map. Counts saturate at 255 so a
// pathological number of collisions never overflows; beyond that point
// every further insert is still reported as "a duplicate", which is all
// the objective needs.
type occupation struct {
	dense  []uint8
	span   uint64
	sparse map[uint64]uint8
}

func newOccupation(span uint64) *occupation {
	return &occupation{dense: make([]uint8, span), span: span, sparse: make(map[uint64]uint8)}
}

func (o *occupation) reset() {
	for i := range o.dense {
		o.dense[i] = 0
	}
	for k := range o.sparse {
		delete(o.sparse, k)
	}
}

// count returns the number of prior inserts at code, the "rank" a new
// encodable at this code would receive.
func (o *occupation) count(code uint64) uint8 {
	if code < o.span {
		return o.dense[code]
	}
	return o.sparse[code]
}

// add records one more encodable at code, saturating at 255.
func (o *occupation) add(code uint64) {
	if code < o.span {
		if o.dense[code] < 255 {
			o.dense[code]++
		}
		return
	}
	if o.sparse[code] < 255 {
		o.sparse[code]++
	}
}
