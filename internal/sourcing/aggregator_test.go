package sourcing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliassehm/conformity/internal/domain"
	"github.com/iliassehm/conformity/internal/sourcing"
)

func TestSource_MixedOrigins(t *testing.T) {
	m := &mockMaterializer{
		templates: map[string]*domain.MaterializedDocument{
			"t1": {URL: "https://bo/t1", Name: "Mandate", Extension: "DOCX", Category: "kyc"},
			// t2 is missing: the backoffice could not instantiate it.
		},
		ged: map[string]*domain.MaterializedDocument{
			"g1": {URL: "https://bo/g1", Name: "ID card.pdf", Extension: "pdf"},
			"g2": {URL: "https://bo/g2-broken", Name: "Proof of address", Extension: "pdf"},
		},
	}
	f := &mockFetcher{blobs: map[string][]byte{
		"https://bo/t1": []byte("PK-docx"),
		"https://bo/g1": []byte("%PDF-id"),
	}}
	agg := sourcing.NewAggregator(m, f)

	req := sourcing.Request{
		CustomerID:      "cust-1",
		Templates:       []domain.TemplateRef{{ID: "t1", Label: "Mandate"}, {ID: "t2", Label: "Risk profile"}},
		Ged:             []domain.GedRef{{ID: "g1", Label: "ID card"}, {ID: "g2", Label: "Proof of address"}},
		Uploads:         []sourcing.Upload{{FileName: "notes.v2.final.PDF", Content: []byte("%PDF-up")}, {FileName: "sheet.xlsx"}},
		DefaultCategory: "general",
	}

	res, err := agg.Source(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, req.Requested(1), len(res.Documents)+len(res.Errors))
	require.Len(t, res.Documents, 3)
	assert.Equal(t, "Mandate", res.Documents[0].Name)
	assert.Equal(t, "docx", res.Documents[0].Extension)
	assert.Equal(t, "kyc", res.Documents[0].Category)
	assert.Equal(t, domain.OriginTemplate, res.Documents[0].Origin.Kind)

	assert.Equal(t, "ID card", res.Documents[1].Name)
	assert.Equal(t, "general", res.Documents[1].Category, "missing category falls back to default")
	assert.Equal(t, []byte("%PDF-id"), res.Documents[1].Content)

	assert.Equal(t, "notes.v2.final", res.Documents[2].Name)
	assert.Equal(t, "pdf", res.Documents[2].Extension)
	assert.Equal(t, domain.OriginUpload, res.Documents[2].Origin.Kind)

	assert.ElementsMatch(t, []domain.SourcingError{
		{DocumentLabel: "Risk profile", OriginKind: domain.OriginTemplate},
		{DocumentLabel: "Proof of address", OriginKind: domain.OriginGed},
	}, res.Errors)
	assert.True(t, res.NeedsConfirmation())

	require.Len(t, res.Rejected, 1)
	assert.Equal(t, "sheet.xlsx", res.Rejected[0].FileName)
	assert.ErrorIs(t, res.Rejected[0], domain.ErrUploadFormat)

	assert.Equal(t, 3, f.callCount(), "only materialized items are fetched")
	for _, d := range res.Documents {
		require.NoError(t, d.Validate())
	}
}

func TestSource_BatchFailureBecomesPerItemErrors(t *testing.T) {
	m := &mockMaterializer{templateErr: errors.New("backoffice down")}
	agg := sourcing.NewAggregator(m, &mockFetcher{})

	res, err := agg.Source(context.Background(), sourcing.Request{
		CustomerID: "cust-1",
		Templates:  []domain.TemplateRef{{ID: "t1", Label: "A"}, {ID: "t2", Label: "B"}},
		Uploads:    []sourcing.Upload{{FileName: "scan.pdf", Content: []byte("%PDF")}},
	})
	require.NoError(t, err)
	assert.Len(t, res.Documents, 1)
	assert.Len(t, res.Errors, 2)
	assert.Equal(t, int32(1), m.templateCall.Load())
	assert.Zero(t, m.gedCall.Load(), "empty GED selection makes no call")
}

func TestSource_NothingProduced(t *testing.T) {
	m := &mockMaterializer{}
	agg := sourcing.NewAggregator(m, &mockFetcher{})

	_, err := agg.Source(context.Background(), sourcing.Request{
		CustomerID: "cust-1",
		Ged:        []domain.GedRef{{ID: "g1", Label: "Contract"}},
	})
	var none *domain.NoDocumentsProducedError
	require.ErrorAs(t, err, &none)
	assert.ErrorIs(t, err, domain.ErrNoDocumentsProduced)
	assert.Len(t, none.Errors, 1)

	_, err = agg.Source(context.Background(), sourcing.Request{CustomerID: "cust-1"})
	require.ErrorIs(t, err, domain.ErrNoDocumentsProduced)
}

func TestSource_RejectedUploadsNeverReachNetwork(t *testing.T) {
	m := &mockMaterializer{}
	f := &mockFetcher{}
	agg := sourcing.NewAggregator(m, f)

	res, err := agg.Source(context.Background(), sourcing.Request{
		CustomerID: "cust-1",
		Uploads:    []sourcing.Upload{{FileName: "virus.exe"}, {FileName: "README"}},
	})
	require.ErrorIs(t, err, domain.ErrNoDocumentsProduced)
	assert.Len(t, res.Rejected, 2)
	assert.Zero(t, f.callCount())
	assert.Zero(t, m.templateCall.Load())
}

func TestSource_DuplicateNamesAreSuffixed(t *testing.T) {
	m := &mockMaterializer{templates: map[string]*domain.MaterializedDocument{
		"t1": {URL: "u1", Name: "Mandate", Extension: "pdf"},
		"t2": {URL: "u2", Name: "Mandate", Extension: "pdf"},
	}}
	f := &mockFetcher{blobs: map[string][]byte{"u1": []byte("a"), "u2": []byte("b")}}
	agg := sourcing.NewAggregator(m, f)

	res, err := agg.Source(context.Background(), sourcing.Request{
		CustomerID: "cust-1",
		Templates:  []domain.TemplateRef{{ID: "t1"}, {ID: "t2"}},
		Uploads:    []sourcing.Upload{{FileName: "Mandate.pdf", Content: []byte("c")}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Mandate", "Mandate (2)", "Mandate (3)"},
		[]string{res.Documents[0].Name, res.Documents[1].Name, res.Documents[2].Name})
	require.NoError(t, res.Documents.ValidateUniqueNames())
}

func TestSource_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := &mockMaterializer{templateErr: context.Canceled}
	agg := sourcing.NewAggregator(m, &mockFetcher{})

	_, err := agg.Source(ctx, sourcing.Request{
		CustomerID: "cust-1",
		Templates:  []domain.TemplateRef{{ID: "t1"}},
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestCheckUpload(t *testing.T) {
	for _, name := range []string{"a.pdf", "b.DOCX", "c.doc", "report.v2.final.docx"} {
		assert.Nil(t, sourcing.CheckUpload(name), name)
	}
	for _, name := range []string{"a.odt", "b", ".pdf", "c.pdf.zip"} {
		assert.NotNil(t, sourcing.CheckUpload(name), name)
	}
}
