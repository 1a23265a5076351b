package pgx

import (
	"reflect"
	"testing"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
)

func TestSanitizeStripsNulBytes(t *testing.T) {
	in := common.Properties{"name": "ACME\x00 BUILDERS", "amount": 12.5}
	got := sanitize(in)
	want := common.Properties{"name": "ACME BUILDERS", "amount": 12.5}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("sanitize() = %v, want %v", got, want)
	}
	if in.Text("name") != "ACME\x00 BUILDERS" {
		t.Fatalf("sanitize must not modify its input")
	}
}

func TestEdgeTypeStrings(t *testing.T) {
	got := edgeTypeStrings([]common.EdgeType{common.EdgeBidOn, common.EdgeAwardedTo})
	if !reflect.DeepEqual(got, []string{"BID_ON", "AWARDED_TO"}) {
		t.Fatalf("got %v", got)
	}
	if got := edgeTypeStrings(nil); len(got) != 0 {
		t.Fatalf("expected empty slice, got %v", got)
	}
}

func TestOptions(t *testing.T) {
	s := New(nil, WithBatchSize(10), WithSearchThreshold(0.5), WithBatchSize(0), nil)
	if s.batchSize != 10 || s.searchThreshold != 0.5 {
		t.Fatalf("options not applied: %+v", s)
	}
}
