package insert

import (
	"strings"
	"testing"
)

func planText(plan []plannedRun) string {
	var sb strings.Builder
	for _, pc := range plan {
		sb.WriteString(pc.text)
	}
	return sb.String()
}

func TestPlanInsertionsRelativeOrder(t *testing.T) {
	// A batch on one paragraph must come out in left-to-right order no
	// matter how the offsets compare to each other.
	cases := []struct {
		name string
		runs []string
		ins  []insertion
		want string
	}{
		{
			name: "start middle end",
			runs: []string{"Hello"},
			ins: []insertion{
				{offset: 0, seq: 1, token: "<<A>>"},
				{offset: 5, seq: 2, token: "<<B>>"},
				{offset: 2, seq: 3, token: "<<C>>"},
			},
			want: "<<A>>He<<C>>llo<<B>>",
		},
		{
			name: "descending offsets given ascending",
			runs: []string{"ABC"},
			ins: []insertion{
				{offset: 1, seq: 1, token: "<<X>>"},
				{offset: 2, seq: 2, token: "<<Y>>"},
			},
			want: "A<<X>>B<<Y>>C",
		},
		{
			name: "ascending offsets given descending",
			runs: []string{"ABC"},
			ins: []insertion{
				{offset: 2, seq: 2, token: "<<Y>>"},
				{offset: 1, seq: 1, token: "<<X>>"},
			},
			want: "A<<X>>B<<Y>>C",
		},
		{
			name: "equal offsets order by seq",
			runs: []string{"ABC"},
			ins: []insertion{
				{offset: 1, seq: 2, token: "<<second>>"},
				{offset: 1, seq: 1, token: "<<first>>"},
			},
			want: "A<<first>><<second>>BC",
		},
		{
			name: "offset past end clamps",
			runs: []string{"Hi"},
			ins:  []insertion{{offset: 99, seq: 1, token: "<<End>>"}},
			want: "Hi<<End>>",
		},
		{
			name: "offset spans run boundary",
			runs: []string{"AB", "CD"},
			ins:  []insertion{{offset: 3, seq: 1, token: "<<M>>"}},
			want: "ABC<<M>>D",
		},
		{
			name: "no runs",
			runs: nil,
			ins:  []insertion{{offset: 0, seq: 1, token: "<<Only>>"}},
			want: "<<Only>>",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := planText(planInsertions(tc.runs, tc.ins))
			if got != tc.want {
				t.Fatalf("plan text = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPlanInsertionsPreservesRunBoundaries(t *testing.T) {
	plan := planInsertions([]string{"AB", "CD"}, []insertion{
		{offset: 2, seq: 1, token: "<<M>>"},
	})
	want := []plannedRun{
		{text: "AB", source: 0},
		{text: "<<M>>", source: 0, placeholder: true},
		{text: "CD", source: 1},
	}
	if len(plan) != len(want) {
		t.Fatalf("plan has %d pieces, want %d: %+v", len(plan), len(want), plan)
	}
	for i := range want {
		if plan[i] != want[i] {
			t.Errorf("piece %d = %+v, want %+v", i, plan[i], want[i])
		}
	}
}

func TestPlanInsertionsSplitInheritsSource(t *testing.T) {
	plan := planInsertions([]string{"Hello"}, []insertion{
		{offset: 2, seq: 1, token: "<<F>>"},
	})
	if len(plan) != 3 {
		t.Fatalf("plan has %d pieces, want 3: %+v", len(plan), plan)
	}
	for i, pc := range plan {
		if pc.source != 0 {
			t.Errorf("piece %d source = %d, want 0", i, pc.source)
		}
	}
	if !plan[1].placeholder || plan[1].text != "<<F>>" {
		t.Errorf("middle piece = %+v, want the placeholder", plan[1])
	}
}

func TestPlanInsertionsTabCountsAsOneCharacter(t *testing.T) {
	got := planText(planInsertions([]string{"A\tB"}, []insertion{
		{offset: 2, seq: 1, token: "<<T>>"},
	}))
	if got != "A\t<<T>>B" {
		t.Fatalf("plan text = %q, want %q", got, "A\t<<T>>B")
	}
}
