package layout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/contractd/internal/document"
	"github.com/kalambet/contractd/internal/document/documenttest"
	"github.com/kalambet/contractd/internal/extraction"
)

type zoneFunc func(ctx context.Context) (document.Zone, error)

func (f zoneFunc) SignatureZone(ctx context.Context) (document.Zone, error) { return f(ctx) }

func staticZone(text string, page int) ZoneReader {
	return zoneFunc(func(context.Context) (document.Zone, error) {
		return document.Zone{Text: text, Page: page}, nil
	})
}

func TestExtract_SignatureInZone(t *testing.T) {
	out := NewExtractor(nil).Extract(context.Background(), staticZone("By: Name: Jane Doe\nTitle: CEO\n", 4))

	require.Equal(t, extraction.KindFound, out.Kind)
	c := out.Candidate
	assert.Equal(t, "Jane Doe", c.StringValue())
	assert.Equal(t, 0.98, c.Confidence)
	require.NotNil(t, c.SourcePage)
	assert.Equal(t, 4, *c.SourcePage)
	assert.Equal(t, "Found in signature zone on page 4: By: Name: Jane Doe", c.SourceSnippet)
}

func TestExtract_EmptyZoneIsAbsent(t *testing.T) {
	for _, text := range []string{"", "  \n "} {
		out := NewExtractor(nil).Extract(context.Background(), staticZone(text, 1))
		assert.Equal(t, extraction.KindAbsent, out.Kind)
	}
}

func TestExtract_NoSignatureIsAbsent(t *testing.T) {
	out := NewExtractor(nil).Extract(context.Background(), staticZone("Page 3 of 3\n", 3))
	assert.Equal(t, extraction.KindAbsent, out.Kind)
}

func TestExtract_ZoneErrorIsAbsent(t *testing.T) {
	failing := zoneFunc(func(context.Context) (document.Zone, error) {
		return document.Zone{}, errors.New("cannot crop page")
	})
	out := NewExtractor(nil).Extract(context.Background(), failing)
	assert.Equal(t, extraction.KindAbsent, out.Kind)
	assert.Nil(t, out.Err)
}

func TestExtract_FromPDF(t *testing.T) {
	path := documenttest.Write(t, "signed.pdf",
		documenttest.Page{{X: 72, Y: 700, Text: "Services Agreement"}},
		documenttest.Page{
			{X: 72, Y: 700, Text: "By: Name: Someone Else"},
			{X: 72, Y: 120, Text: "By: Name: Jane Doe"},
			{X: 72, Y: 100, Text: "Title: CEO"},
		},
	)
	doc := document.Load(context.Background(), path, nil)

	out := NewExtractor(nil).Extract(context.Background(), doc)

	require.Equal(t, extraction.KindFound, out.Kind)
	assert.Equal(t, "Jane Doe", out.Candidate.StringValue())
	require.NotNil(t, out.Candidate.SourcePage)
	assert.Equal(t, 2, *out.Candidate.SourcePage)
	assert.Contains(t, out.Candidate.SourceSnippet, "page 2: ")
}
