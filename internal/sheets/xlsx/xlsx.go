// Package xlsx reads and writes Excel workbooks with excelize.
package xlsx

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"contas/internal/core"
	ports "contas/internal/sheets"
)

var (
	_ ports.TableReader    = (*File)(nil)
	_ ports.WorkbookWriter = (*File)(nil)
)

// File is a workbook on disk.
type File struct {
	Path string
}

// ReadTable returns the cells of the first sheet. Numeric cells keep their
// raw value so amounts are not reformatted.
func (f *File) ReadTable(_ context.Context) ([][]string, error) {
	x, err := excelize.OpenFile(f.Path)
	if err != nil {
		return nil, &core.ImportFormatError{Source: f.Path, Err: err}
	}
	defer x.Close()
	return firstSheet(x, f.Path)
}

// WriteWorkbook saves wb at Path, replacing any existing file.
func (f *File) WriteWorkbook(_ context.Context, wb ports.Workbook) error {
	x, err := build(wb)
	if err != nil {
		return err
	}
	defer x.Close()
	if err := x.SaveAs(f.Path); err != nil {
		return fmt.Errorf("save %s: %w", f.Path, err)
	}
	return nil
}

// ReadTableFrom reads the first sheet of a workbook streamed from r.
func ReadTableFrom(r io.Reader) ([][]string, error) {
	x, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &core.ImportFormatError{Source: "upload", Err: err}
	}
	defer x.Close()
	return firstSheet(x, "upload")
}

// Write renders wb to w.
func Write(w io.Writer, wb ports.Workbook) error {
	x, err := build(wb)
	if err != nil {
		return err
	}
	defer x.Close()
	if err := x.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func firstSheet(x *excelize.File, source string) ([][]string, error) {
	names := x.GetSheetList()
	if len(names) == 0 {
		return nil, &core.ImportFormatError{Source: source, Err: fmt.Errorf("workbook has no sheets")}
	}
	rows, err := x.GetRows(names[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &core.ImportFormatError{Source: source, Err: err}
	}
	return rows, nil
}

func build(wb ports.Workbook) (*excelize.File, error) {
	if len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	x := excelize.NewFile()
	for i, s := range wb.Sheets {
		if i == 0 {
			if err := x.SetSheetName(x.GetSheetName(0), s.Name); err != nil {
				x.Close()
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := x.NewSheet(s.Name); err != nil {
			x.Close()
			return nil, fmt.Errorf("add sheet %s: %w", s.Name, err)
		}
		if err := writeSheet(x, s); err != nil {
			x.Close()
			return nil, err
		}
	}
	x.SetActiveSheet(0)
	return x, nil
}

func writeSheet(x *excelize.File, s ports.Sheet) error {
	header := make([]any, len(s.Header))
	for i, h := range s.Header {
		header[i] = h
	}
	rows := append([][]any{header}, s.Rows...)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		r := row
		if err := x.SetSheetRow(s.Name, cell, &r); err != nil {
			return fmt.Errorf("write %s row %d: %w", s.Name, i+1, err)
		}
	}
	return nil
}
