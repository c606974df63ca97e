package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/poofware/fleet-service/internal/constants"
	"github.com/poofware/fleet-service/internal/dtos"
	"github.com/poofware/fleet-service/internal/repositories"
	"github.com/poofware/fleet-service/internal/utils"
	"github.com/xuri/excelize/v2"
)

// LedgerService reports on the stock ledger. Writes to the ledger only
// happen through the inventory state machine.
type LedgerService struct {
	ledger repositories.StockLedgerRepository
}

func NewLedgerService(ledger repositories.StockLedgerRepository) *LedgerService {
	return &LedgerService{ledger: ledger}
}

func (s *LedgerService) List(ctx context.Context, f repositories.LedgerFilter) ([]dtos.LedgerEntryResponse, error) {
	entries, err := s.ledger.List(ctx, f)
	if err != nil {
		return nil, utils.NewInternalError("failed to list stock ledger", err)
	}
	out := make([]dtos.LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dtos.LedgerEntryResponse{
			Kind:       string(e.Kind),
			BucketDate: utils.NewDate(e.BucketDate),
			Category:   e.Category,
			Quantity:   e.Quantity,
		})
	}
	return out, nil
}

// ExportXLSX renders the filtered ledger as a single-sheet workbook.
func (s *LedgerService) ExportXLSX(ctx context.Context, f repositories.LedgerFilter) ([]byte, error) {
	rows, err := s.List(ctx, f)
	if err != nil {
		return nil, err
	}

	wb := excelize.NewFile()
	defer func() { _ = wb.Close() }()

	sheet := constants.LedgerExportSheet
	if err := wb.SetSheetName(wb.GetSheetName(wb.GetActiveSheetIndex()), sheet); err != nil {
		return nil, utils.NewInternalError("failed to build ledger export", err)
	}

	header := []interface{}{"unit_kind", "bucket_date", "category", "quantity"}
	if err := wb.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, utils.NewInternalError("failed to build ledger export", err)
	}

	total := 0
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, utils.NewInternalError("failed to build ledger export", err)
		}
		line := []interface{}{r.Kind, r.BucketDate.Format(utils.DateLayout), r.Category, r.Quantity}
		if err := wb.SetSheetRow(sheet, cell, &line); err != nil {
			return nil, utils.NewInternalError("failed to build ledger export", err)
		}
		total += r.Quantity
	}

	footer := []interface{}{"TOTAL", "", "", total}
	if err := wb.SetSheetRow(sheet, fmt.Sprintf("A%d", len(rows)+2), &footer); err != nil {
		return nil, utils.NewInternalError("failed to build ledger export", err)
	}

	buf := &bytes.Buffer{}
	if err := wb.Write(buf); err != nil {
		return nil, utils.NewInternalError("failed to write ledger export", err)
	}
	return buf.Bytes(), nil
}
