package excel

import (
	"errors"
	"reflect"
	"testing"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"

	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	rows := [][]any{
		{"PhilGEPS Award Notices 2024"},
		{"Reference No.", "Procuring Entity", "Awardee", "Contract Amount"},
		{"R-1", "DPWH Cebu", "ABC Corp", 4500000},
		{nil, nil, nil, nil},
		{"R-2", "DPWH Cebu", "XYZ Inc", 120000},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	if _, err := f.NewSheet("Notes"); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	if err := f.SetCellValue("Notes", "A1", "only one cell"); err != nil {
		t.Fatalf("SetCellValue: %v", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func TestParseWorkbook(t *testing.T) {
	got, err := ParseWorkbook(workbook(t), "", "philgeps_awards")
	if err != nil {
		t.Fatalf("ParseWorkbook: %v", err)
	}
	want := []common.Record{
		{"reference_number": "R-1", "procuring_entity": "DPWH Cebu", "contractor_name": "ABC Corp", "amount": "4500000"},
		{"reference_number": "R-2", "procuring_entity": "DPWH Cebu", "contractor_name": "XYZ Inc", "amount": "120000"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseWorkbookMissingSheet(t *testing.T) {
	_, err := ParseWorkbook(workbook(t), "Awards", "philgeps_awards")
	if !errors.Is(err, common.ErrMalformedInput) {
		t.Fatalf("expected ErrMalformedInput, got %v", err)
	}
}
