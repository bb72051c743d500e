package geom

func FloorDiv(a, b int32) int32 {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func Mod(a, b int32) int32 {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Hash is a stable per-point hash used for procedural fill.
func Hash[P Point[P]](seed int64, p P) uint64 {
	muls := [...]uint64{0x9e3779b97f4a7c15, 0xc2b2ae3d27d4eb4f, 0xbf58476d1ce4e5b9, 0x165667b19e3779f9}
	v := uint64(seed)
	for i := 0; i < p.Dim(); i++ {
		v ^= uint64(uint32(p.At(i))) * muls[i%len(muls)]
	}
	return mix64(v)
}
