package insert

import "sort"

// insertion is one placeholder to splice into a paragraph, addressed by a
// character offset into the paragraph's concatenated run text. Tabs count
// as one character. seq orders insertions that share an offset: lower seq
// ends up further left.
type insertion struct {
	offset int
	seq    int
	token  string
}

// plannedRun is one run of the rebuilt paragraph. source indexes the
// original run whose formatting applies; -1 means no original run covers
// the position and caller-supplied defaults are used.
type plannedRun struct {
	text        string
	source      int
	placeholder bool
}

// planInsertions computes the run layout that results from splicing the
// given insertions into a paragraph whose runs carry the given texts.
// Original run boundaries are preserved: a run only splits when an
// insertion lands strictly inside it. Offsets past the end clamp to the
// end. The input slices are not modified.
func planInsertions(runTexts []string, ins []insertion) []plannedRun {
	pieces := make([]plannedRun, 0, len(runTexts)+2*len(ins))
	starts := make([]int, 0, len(runTexts)+2*len(ins))
	off := 0
	for i, t := range runTexts {
		pieces = append(pieces, plannedRun{text: t, source: i})
		starts = append(starts, off)
		off += len([]rune(t))
	}

	ordered := make([]insertion, len(ins))
	copy(ordered, ins)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].offset != ordered[j].offset {
			return ordered[i].offset > ordered[j].offset
		}
		return ordered[i].seq > ordered[j].seq
	})

	for _, in := range ordered {
		pieces, starts = splice(pieces, starts, in)
	}
	return pieces
}

func splice(pieces []plannedRun, starts []int, in insertion) ([]plannedRun, []int) {
	if in.offset <= 0 {
		src := firstSource(pieces)
		return insertAt(pieces, starts, 0, plannedRun{text: in.token, source: src, placeholder: true})
	}
	for i, pc := range pieces {
		if pc.placeholder {
			continue
		}
		runes := []rune(pc.text)
		end := starts[i] + len(runes)
		if in.offset <= starts[i] || in.offset > end {
			continue
		}
		src := pc.source
		ph := plannedRun{text: in.token, source: src, placeholder: true}
		if in.offset == end {
			return insertAt(pieces, starts, i+1, ph)
		}
		local := in.offset - starts[i]
		tail := plannedRun{text: string(runes[local:]), source: src}
		pieces[i].text = string(runes[:local])
		pieces, starts = insertAt(pieces, starts, i+1, ph)
		return insertAt(pieces, starts, i+2, tail, starts[i]+local)
	}
	// Past the end of all text: clamp to the end.
	src := lastSource(pieces)
	return insertAt(pieces, starts, len(pieces), plannedRun{text: in.token, source: src, placeholder: true})
}

func insertAt(pieces []plannedRun, starts []int, i int, p plannedRun, start ...int) ([]plannedRun, []int) {
	s := 0
	if len(start) > 0 {
		s = start[0]
	} else if i < len(starts) {
		s = starts[i]
	} else if len(starts) > 0 {
		s = starts[len(starts)-1]
	}
	pieces = append(pieces, plannedRun{})
	copy(pieces[i+1:], pieces[i:])
	pieces[i] = p
	starts = append(starts, 0)
	copy(starts[i+1:], starts[i:])
	starts[i] = s
	return pieces, starts
}

func firstSource(pieces []plannedRun) int {
	for _, pc := range pieces {
		if !pc.placeholder {
			return pc.source
		}
	}
	return -1
}

func lastSource(pieces []plannedRun) int {
	for i := len(pieces) - 1; i >= 0; i-- {
		if !pieces[i].placeholder {
			return pieces[i].source
		}
	}
	return -1
}
