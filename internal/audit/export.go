package audit

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"
	"github.com/posdenous/naviya-launcher-sub002/internal/repository"
)

const (
	auditSheet = "Audit Trail"
	flagSheet  = "Abuse Flags"
)

var auditHeader = []string{"Sequence", "Time", "Event", "Caregiver", "Actor", "Details", "Hash"}

var flagHeader = []string{
	"Created", "Caregiver", "Type", "Severity", "Description",
	"Resolved", "Resolved By", "Reported", "User Notified", "Action Taken",
}

// ExportWorkbook writes the audit trail and every abuse flag to an xlsx
// workbook for advocate review.
func ExportWorkbook(ctx context.Context, store *repository.Store, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(auditSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := f.NewSheet(flagSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeHeader(f, auditSheet, auditHeader, headerStyle); err != nil {
		return err
	}
	if err := writeHeader(f, flagSheet, flagHeader, headerStyle); err != nil {
		return err
	}

	row := 2
	var after int64
	for {
		page, err := store.Audit.ListAudit(ctx, after, verifyPageSize)
		if err != nil {
			return fmt.Errorf("failed to list audit entries: %w", err)
		}
		for _, e := range page {
			values := []any{
				e.Sequence,
				e.Timestamp.UTC().Format(time.RFC3339),
				string(e.Event),
				e.CaregiverID,
				e.Actor,
				formatDetails(e.Details),
				e.Hash,
			}
			if err := writeRow(f, auditSheet, row, values); err != nil {
				return err
			}
			row++
			after = e.Sequence
		}
		if len(page) < verifyPageSize {
			break
		}
	}

	flags, err := store.Flags.ListFlags(ctx, models.FlagFilters{})
	if err != nil {
		return fmt.Errorf("failed to list abuse flags: %w", err)
	}
	for i, fl := range flags {
		resolvedBy := ""
		if fl.ResolvedBy != nil {
			resolvedBy = *fl.ResolvedBy
		}
		values := []any{
			fl.CreatedAt.UTC().Format(time.RFC3339),
			fl.CaregiverID,
			string(fl.FlagType),
			string(fl.Severity),
			fl.Description,
			yesNo(fl.Resolved),
			resolvedBy,
			yesNo(fl.ReportedToAuthorities),
			yesNo(fl.UserNotified),
			yesNo(fl.AutomaticActionTaken),
		}
		if err := writeRow(f, flagSheet, i+2, values); err != nil {
			return err
		}
	}

	for _, sheet := range []string{auditSheet, flagSheet} {
		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return fmt.Errorf("failed to freeze panes: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheet, name, name, 20); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
	}
	return nil
}

func formatDetails(details map[string]string) string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+details[k])
	}
	return strings.Join(parts, "; ")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
