package campaign

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/petdesk/internal/models"
	"github.com/nikhilbhutani/petdesk/internal/segmentation"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Destinatarios"

var exportHeader = []string{"Nome", "WhatsApp", "Email", "Segmento", "Última compra"}

// ExportRecipients renders the clients a campaign would reach as XLSX.
func (s *Service) ExportRecipients(ctx context.Context, tenantID uuid.UUID, criteria []Criterion, dias int) ([]byte, error) {
	if len(criteria) == 0 {
		return nil, ErrNoCriteria
	}
	if hasCriterion(criteria, CriterionInactive) {
		if err := segmentation.ValidateThreshold(dias); err != nil {
			return nil, err
		}
	}
	matched, err := s.recipients(ctx, tenantID, criteria, dias)
	if err != nil {
		return nil, err
	}
	return recipientsXLSX(matched, s.loc)
}

func recipientsXLSX(clients []models.Client, loc *time.Location) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(exportSheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	if index, err := f.GetSheetIndex(exportSheet); err == nil {
		f.SetActiveSheet(index)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for col, h := range exportHeader {
		if err := setCell(f, col+1, 1, h); err != nil {
			return nil, err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(exportHeader), 1)
	if err := f.SetCellStyle(exportSheet, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("set header style: %w", err)
	}
	if err := f.SetColWidth(exportSheet, "A", "E", 24); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}

	for i, c := range clients {
		row := i + 2
		values := []interface{}{c.Nome, c.WhatsApp, "", "", ""}
		if c.Email != nil {
			values[2] = *c.Email
		}
		if c.TipoCampanha != nil {
			values[3] = string(*c.TipoCampanha)
		}
		if c.LastPurchase != nil {
			values[4] = c.LastPurchase.In(loc).Format("02/01/2006")
		}
		for col, v := range values {
			if err := setCell(f, col+1, row, v); err != nil {
				return nil, err
			}
		}
	}

	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, col, row int, v interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(exportSheet, cell, v); err != nil {
		return fmt.Errorf("set cell %s: %w", cell, err)
	}
	return nil
}
