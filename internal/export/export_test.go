package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kalambet/contractd/internal/consolidate"
	"github.com/kalambet/contractd/internal/extraction"
	"github.com/kalambet/contractd/internal/storage"
)

func completedData(t *testing.T) json.RawMessage {
	t.Helper()
	customer, err := extraction.NewCandidate("Acme Corp", 0.75, "Acme Corp")
	require.NoError(t, err)
	renewal, err := extraction.NewCandidate(extraction.RenewalValue{Classification: "Auto-Renewal", Text: "Renews yearly."}, 0.8, "Renews yearly.")
	require.NoError(t, err)

	res := consolidate.Finalize(&extraction.FieldSet{CustomerName: customer, RenewalTerms: renewal})
	data, err := json.Marshal(res.ExtractedData)
	require.NoError(t, err)
	return data
}

func readRows(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(Sheet)
	require.NoError(t, err)
	return rows
}

func TestWorkbook(t *testing.T) {
	uploaded := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	data, err := Workbook([]storage.Contract{{
		ID:             "c1",
		FileName:       "msa.pdf",
		UploadedAt:     uploaded,
		ExtractedData:  completedData(t),
		IdentifiedGaps: []string{"vendor_name", "payment_terms"},
	}})
	require.NoError(t, err)

	rows := readRows(t, data)
	require.Len(t, rows, 2)
	assert.Equal(t, headers, rows[0])
	row := rows[1]
	assert.Equal(t, "c1", row[0])
	assert.Equal(t, "msa.pdf", row[1])
	assert.Equal(t, "2025-03-01T12:00:00Z", row[2])
	assert.Equal(t, "Acme Corp", row[3])
	assert.Equal(t, "", row[4])
	assert.Equal(t, "Auto-Renewal: Renews yearly.", row[8])
	assert.Equal(t, "vendor_name, payment_terms", row[9])
}

func TestWorkbook_Empty(t *testing.T) {
	data, err := Workbook(nil)
	require.NoError(t, err)
	assert.Equal(t, [][]string{headers}, readRows(t, data))
}

type fakeLister struct {
	all     []storage.Contract
	queries []storage.ContractQuery
}

func (f *fakeLister) ListContracts(q storage.ContractQuery) (storage.ContractPage, error) {
	f.queries = append(f.queries, q)
	start := min((q.Page-1)*q.Size, len(f.all))
	end := min(start+q.Size, len(f.all))
	return storage.ContractPage{Items: f.all[start:end], Total: len(f.all), Page: q.Page, Size: q.Size}, nil
}

func TestContractsXLSX_PagesThroughCompleted(t *testing.T) {
	lister := &fakeLister{}
	for i := 0; i < 150; i++ {
		lister.all = append(lister.all, storage.Contract{ID: fmt.Sprintf("c%03d", i), FileName: "f.pdf"})
	}

	data, err := NewService(lister, nil).ContractsXLSX(context.Background(), storage.ContractQuery{
		FileNameContains: "f",
		Status:           storage.StatusError,
	})
	require.NoError(t, err)

	require.Len(t, lister.queries, 2)
	for _, q := range lister.queries {
		assert.Equal(t, storage.StatusCompleted, q.Status)
		assert.Equal(t, "f", q.FileNameContains)
	}
	assert.Len(t, readRows(t, data), 151)
}
