package harvest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelectorSpec(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want []fieldQuery
	}{
		{
			name: "named and bare entries",
			spec: "price=.price, .title",
			want: []fieldQuery{
				{Name: "price", Query: ".price", Kind: kindCSS},
				{Name: "data", Query: ".title", Kind: kindCSS},
			},
		},
		{
			name: "single bare entry",
			spec: "h1",
			want: []fieldQuery{{Name: "data", Query: "h1", Kind: kindCSS}},
		},
		{
			name: "empty spec",
			spec: "",
			want: nil,
		},
		{
			name: "blank entries skipped",
			spec: " , ,title=h1,",
			want: []fieldQuery{{Name: "title", Query: "h1", Kind: kindCSS}},
		},
		{
			name: "attribute selector with equals stays bare",
			spec: `a[href="/contact"]`,
			want: []fieldQuery{{Name: "data", Query: `a[href="/contact"]`, Kind: kindCSS}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSelectorSpec(tt.spec, kindCSS))
		})
	}
}

func TestParseSelectorSpecXPath(t *testing.T) {
	got := parseSelectorSpec(`headline=//h1, //meta[@name="description"]`, kindXPath)
	require.Len(t, got, 2)
	assert.Equal(t, fieldQuery{Name: "headline", Query: "//h1", Kind: kindXPath}, got[0])
	assert.Equal(t, fieldQuery{Name: "data", Query: `//meta[@name="description"]`, Kind: kindXPath}, got[1])
}

func TestMergeFieldQueriesCSSBeforeXPath(t *testing.T) {
	got := mergeFieldQueries("title=h1", "body=//p")
	require.Len(t, got, 2)
	assert.Equal(t, kindCSS, got[0].Kind)
	assert.Equal(t, kindXPath, got[1].Kind)
}
