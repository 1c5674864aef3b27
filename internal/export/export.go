// Package export writes projection tables to CSV or Excel files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fortuna/ceres/internal/engine"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet written by WriteXLSX.
const SheetName = "Projections"

// Columns in output order.
var Columns = []string{
	"player_id", "player_name", "position", "team", "season", "week",
	"projected_points", "confidence_lower", "confidence_upper", "expected_games",
	"roster_status", "injury_status", "depth_chart_order", "zeroed_by",
}

func values(r engine.Row) []interface{} {
	var depth interface{} = ""
	if r.DepthChartOrder != nil {
		depth = *r.DepthChartOrder
	}
	var week interface{} = ""
	if r.Week > 0 {
		week = r.Week
	}
	var games interface{} = ""
	if r.ExpectedGames > 0 {
		games = r.ExpectedGames
	}
	return []interface{}{
		r.PlayerID, r.PlayerName, r.Position, r.Team, r.Season, week,
		r.Points, r.Lower, r.Upper, games,
		r.RosterStatus, r.InjuryStatus, depth, r.ZeroedBy,
	}
}

func format(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// WriteCSV writes the table with a header row.
func WriteCSV(w io.Writer, table engine.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	record := make([]string, len(Columns))
	for _, row := range table.Rows {
		for i, v := range values(row) {
			record[i] = format(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row %s: %w", row.PlayerID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteXLSX saves the table as a single-sheet workbook with a frozen header.
func WriteXLSX(path string, table engine.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(Columns), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	for i, row := range table.Rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		vals := values(row)
		if err := f.SetSheetRow(SheetName, cell, &vals); err != nil {
			return fmt.Errorf("writing row %s: %w", row.PlayerID, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freezing header: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

// WriteFile picks the format from the extension: .xlsx or .csv.
func WriteFile(path string, table engine.Table) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return WriteXLSX(path, table)
	case ".csv":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		if err := WriteCSV(f, table); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	default:
		return fmt.Errorf("unsupported output format %q (use .csv or .xlsx)", filepath.Ext(path))
	}
}
