package csv

import (
	"errors"
	"reflect"
	"testing"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
)

func TestParseCSV(t *testing.T) {
	content := []byte("\n,,\nReference No,Supplier,Amount\nR-1,\"Cruz, Juan Builders\",\"1,500,000\"\n,,\nR-2,ABC Corp,200\n")
	got, err := ParseCSV(content, "philgeps_awards")
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	want := []common.Record{
		{"reference_number": "R-1", "contractor_name": "Cruz, Juan Builders", "amount": "1,500,000"},
		{"reference_number": "R-2", "contractor_name": "ABC Corp", "amount": "200"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseCSVEmpty(t *testing.T) {
	if _, err := ParseCSV([]byte("\n \n"), ""); !errors.Is(err, common.ErrMalformedInput) {
		t.Fatalf("expected ErrMalformedInput, got %v", err)
	}
}
