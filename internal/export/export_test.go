package export

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"testing"

	"github.com/fortuna/ceres/internal/engine"
	"github.com/xuri/excelize/v2"
)

func sampleTable() engine.Table {
	depth := 2
	return engine.Table{
		Kind:   engine.KindWeekly,
		Week:   7,
		Season: 2024,
		Rows: []engine.Row{
			{PlayerID: "00-1", PlayerName: "Starter", Position: "QB", Team: "KC", Season: 2024, Week: 7, Points: 21.44, Lower: 9.1, Upper: 33.78},
			{PlayerID: "00-2", PlayerName: "Backup", Position: "QB", Team: "KC", Season: 2024, Week: 7, DepthChartOrder: &depth, ZeroedBy: engine.ZeroedBenched},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleTable()); err != nil {
		t.Fatalf("WriteCSV error: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d lines, want 3", len(records))
	}
	if records[1][6] != "21.44" || records[1][12] != "" {
		t.Errorf("starter row = %v", records[1])
	}
	if records[2][12] != "2" || records[2][13] != "benched" || records[2][6] != "0" {
		t.Errorf("backup row = %v", records[2])
	}
}

func TestWriteFile_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "week7.xlsx")
	if err := WriteFile(path, sampleTable()); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("opening workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows error: %v", err)
	}
	if len(rows) != 3 || rows[0][0] != "player_id" || rows[1][1] != "Starter" {
		t.Errorf("rows = %v", rows)
	}
}

func TestWriteFile_UnsupportedExtension(t *testing.T) {
	if err := WriteFile(filepath.Join(t.TempDir(), "out.json"), sampleTable()); err == nil {
		t.Fatal("expected error")
	}
}
