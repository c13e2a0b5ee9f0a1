// Package export renders completed contracts as an XLSX workbook.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kalambet/contractd/internal/consolidate"
	"github.com/kalambet/contractd/internal/storage"
)

// Sheet is the name of the worksheet holding the contract rows.
const Sheet = "Contracts"

const pageSize = 100

var headers = []string{
	"Contract ID",
	"File Name",
	"Uploaded At",
	"Customer",
	"Vendor",
	"Authorized Signatory",
	"Payment Terms",
	"Billing Cycle",
	"Renewal Terms",
	"Gaps",
}

// Lister pages through stored contracts.
type Lister interface {
	ListContracts(q storage.ContractQuery) (storage.ContractPage, error)
}

// Service produces XLSX exports.
type Service struct {
	store  Lister
	logger *slog.Logger
}

func NewService(store Lister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// ContractsXLSX returns a workbook with one row per completed contract
// matching q. Paging and status fields of q are overridden.
func (s *Service) ContractsXLSX(ctx context.Context, q storage.ContractQuery) ([]byte, error) {
	start := time.Now()

	q.Status = storage.StatusCompleted
	q.Size = pageSize
	var rows []storage.Contract
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q.Page = page
		res, err := s.store.ListContracts(q)
		if err != nil {
			return nil, fmt.Errorf("listing contracts: %w", err)
		}
		rows = append(rows, res.Items...)
		if len(res.Items) < pageSize || len(rows) >= res.Total {
			break
		}
	}

	buf, err := Workbook(rows)
	if err != nil {
		return nil, err
	}

	s.logger.Info("export.xlsx.ok", "rows", len(rows), "elapsed_ms", time.Since(start).Milliseconds())
	return buf, nil
}

// Workbook renders contracts into XLSX bytes. Contracts without extracted
// data get a row with empty field columns.
func Workbook(contracts []storage.Contract) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", Sheet); err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(Sheet, cell, h)
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetRowStyle(Sheet, 1, 1, style)
	}

	for i, c := range contracts {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(Sheet, cell, v)
		}

		var data consolidate.ExtractedData
		if len(c.ExtractedData) > 0 {
			if err := json.Unmarshal(c.ExtractedData, &data); err != nil {
				return nil, fmt.Errorf("decoding contract %s: %w", c.ID, err)
			}
		}

		write(1, c.ID)
		write(2, c.FileName)
		write(3, c.UploadedAt.UTC().Format(time.RFC3339))
		write(4, consolidate.DisplayValue(data.PartyIdentification.Customer))
		write(5, consolidate.DisplayValue(data.PartyIdentification.Vendor))
		write(6, consolidate.DisplayValue(data.PartyIdentification.AuthorizedSignatories))
		write(7, consolidate.DisplayValue(data.PaymentStructure.PaymentTerms))
		write(8, consolidate.DisplayValue(data.RevenueClassification.BillingCycle))
		write(9, consolidate.DisplayValue(data.RevenueClassification.RenewalTerms))
		write(10, strings.Join(c.IdentifiedGaps, ", "))
	}

	_ = f.SetColWidth(Sheet, "A", "A", 38) // id
	_ = f.SetColWidth(Sheet, "B", "B", 32)
	_ = f.SetColWidth(Sheet, "C", "C", 22)
	_ = f.SetColWidth(Sheet, "D", "H", 24)
	_ = f.SetColWidth(Sheet, "I", "I", 60) // renewal text
	_ = f.SetColWidth(Sheet, "J", "J", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
