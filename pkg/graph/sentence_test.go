package graph

import (
	"reflect"
	"testing"
)

func TestSplitIntoSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty input",
			text: "",
			want: []string(nil),
		},
		{
			name: "multiple sentences",
			text: "Graphs have nodes. Edges connect them! Is that all?",
			want: []string{
				"Graphs have nodes.",
				"Edges connect them!",
				"Is that all?",
			},
		},
		{
			name: "blank lines end sentences",
			text: "A heading\n\nFirst sentence.\n\nSecond sentence.",
			want: []string{
				"A heading",
				"First sentence.",
				"Second sentence.",
			},
		},
		{
			name: "multi-line sentence",
			text: "PageRank ranks\nnodes by the\nstructure of links.",
			want: []string{"PageRank ranks nodes by the structure of links."},
		},
		{
			name: "text with table",
			text: "Measures compared.\n| Measure | Cost |\n|---------|------|\n| Degree  | O(E) |\nThat is all.",
			want: []string{
				"Measures compared.",
				"| Measure | Cost |\n|---------|------|\n| Degree  | O(E) |",
				"That is all.",
			},
		},
		{
			name: "table without delimiter",
			text: "Header1 | Header2\nValue1  | Value2",
			want: []string{
				"Header1 | Header2",
				"Value1  | Value2",
			},
		},
		{
			name: "numeric listing stays in one sentence",
			text: "Three measures matter. 1. Degree 2. Betweenness 3. Closeness. Done!",
			want: []string{
				"Three measures matter.",
				"1. Degree 2. Betweenness 3. Closeness.",
				"Done!",
			},
		},
		{
			name: "closing quotes stay attached",
			text: `He said "stop." Then left.`,
			want: []string{`He said "stop."`, "Then left."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitIntoSentences(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitIntoSentences() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
