package fallback

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/archsearch/internal/archive"
)

func TestEmbeddedDatasetsLoad(t *testing.T) {
	idx, err := New()
	require.NoError(t, err)
	for _, c := range archive.Categories() {
		assert.Positive(t, idx.Len(c), "category %s should have bundled records", c)
	}
}

func TestSearchMatchesTitleSummaryTagsAndDecade(t *testing.T) {
	idx := NewFromRecords(map[archive.Category][]Record{
		archive.Documents: {
			{ID: "a", Title: "Strike Bulletin", Summary: "daily news"},
			{ID: "b", Title: "Minutes", Summary: "Assembly of WEAVERS"},
			{ID: "c", Title: "Charter", Tags: []string{"sindicato"}},
			{ID: "d", Title: "Report", Decade: "1960s"},
		},
	})

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "title", query: "bulletin", want: []string{"a"}},
		{name: "summary case-insensitive", query: "weavers", want: []string{"b"}},
		{name: "tags", query: "SINDICATO", want: []string{"c"}},
		{name: "decade", query: "1960", want: []string{"d"}},
		{name: "trimmed", query: "  minutes ", want: []string{"b"}},
		{name: "no match", query: "zzz", want: nil},
		{name: "empty query", query: "   ", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := idx.Search(archive.Documents, tt.query)
			var ids []string
			for _, r := range got {
				ids = append(ids, r.ID)
				assert.Equal(t, archive.Documents, r.Category)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestSearchPreservesDatasetOrder(t *testing.T) {
	idx := NewFromRecords(map[archive.Category][]Record{
		archive.References: {
			{ID: "z", Title: "greve z"},
			{ID: "a", Title: "greve a"},
			{ID: "m", Title: "greve m"},
		},
	})
	got := idx.Search(archive.References, "greve")
	require.Len(t, got, 3)
	assert.Equal(t, "z", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
	assert.Equal(t, "m", got[2].ID)
}

func TestNewFromRecordsDefaultsHrefAndSkipsIncomplete(t *testing.T) {
	idx := NewFromRecords(map[archive.Category][]Record{
		archive.PersonalArchives: {
			{ID: "fundo-x", Title: "X papers"},
			{ID: "custom", Title: "Custom papers", Href: "https://example.org/custom"},
			{ID: "", Title: "no id papers"},
			{ID: "no-title"},
		},
	})
	got := idx.Search(archive.PersonalArchives, "papers")
	require.Len(t, got, 2)
	assert.Equal(t, "/personal-archives/fundo-x", got[0].Href)
	assert.Equal(t, "https://example.org/custom", got[1].Href)
	assert.Equal(t, 2, idx.Len(archive.PersonalArchives))
}

func TestSearchAllCoversEveryCategory(t *testing.T) {
	idx, err := New()
	require.NoError(t, err)
	all := idx.SearchAll("greve")
	assert.Len(t, all, len(archive.Categories()))
	assert.NotEmpty(t, all[archive.Documents])
	assert.NotEmpty(t, all[archive.PersonalArchives])
}

func TestNilIndex(t *testing.T) {
	var idx *Index
	assert.Nil(t, idx.Search(archive.Documents, "x"))
	assert.Zero(t, idx.Len(archive.Documents))
}

func TestLoadAndOverlay(t *testing.T) {
	fsys := fstest.MapFS{
		"over/documents.yaml": {Data: []byte("- id: only\n  title: Only document\n")},
	}

	loaded, err := Load(fsys, "over")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Len(archive.Documents))
	assert.Zero(t, loaded.Len(archive.Photos))

	merged, err := Overlay(fsys, "over")
	require.NoError(t, err)
	assert.Equal(t, 1, merged.Len(archive.Documents))
	assert.Positive(t, merged.Len(archive.Photos), "categories without an override keep the bundled data")
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	fsys := fstest.MapFS{
		"bad/photos.yaml": {Data: []byte("id: [unclosed")},
	}
	_, err := Load(fsys, "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "photos.yaml")
}
