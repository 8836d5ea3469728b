package interval

// Search finds the record containing point in an ascending, disjoint record
// sequence by bisection. It returns -1 if no record contains the point.
func Search[K Key[K]](point K, records []Range[K]) int {
	for p, q := 0, len(records)-1; p <= q; {
		o := (p + q) >> 1

		switch r := &records[o]; {
		case point.Cmp(r.Lo) < 0:
			q = o - 1
		case r.Hi.Cmp(point) < 0:
			p = o + 1
		default:
			return o
		}
	}

	return -1
}
