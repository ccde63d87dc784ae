package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// writeXLSX writes one worksheet per section into a single workbook.
func (w *Writer) writeXLSX(b *Bundle) ([]string, error) {
	f := excelize.NewFile()
	defer f.Close()

	for i, sec := range b.Sections() {
		sheet := sec.Title()
		if i == 0 {
			// Reuse the workbook's initial sheet so it stays active.
			if err := f.SetSheetName(defaultSheet, sheet); err != nil {
				return nil, fmt.Errorf("failed to rename sheet %s: %w", sheet, err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}

		header, rows := b.Table(sec)
		headerCells := make([]any, len(header))
		for j, h := range header {
			headerCells[j] = h
		}
		if err := f.SetSheetRow(sheet, "A1", &headerCells); err != nil {
			return nil, err
		}
		for r, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return nil, err
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	path := w.path(b, "export", "xlsx")
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return nil, err
	}
	return []string{path}, nil
}
