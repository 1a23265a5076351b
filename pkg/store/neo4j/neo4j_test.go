package neo4j

import (
	"reflect"
	"testing"
	"time"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
)

func TestToNeo4jFlattensValues(t *testing.T) {
	in := common.Properties{
		"id":          "Contract:1",
		"amount":      1500000,
		"award_date":  time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
		"procurement": "Public Bidding",
		"bidders":     []string{"A", "B"},
		"meta":        map[string]any{"k": 1},
		"empty":       nil,
	}
	want := map[string]any{
		"amount":      int64(1500000),
		"award_date":  "2023-03-01",
		"procurement": "Public Bidding",
		"bidders":     []string{"A", "B"},
		"meta":        `{"k":1}`,
	}
	if got := toNeo4j(in); !reflect.DeepEqual(got, want) {
		t.Fatalf("toNeo4j() = %#v, want %#v", got, want)
	}
}

func TestNodeFromPropsDropsReservedKeys(t *testing.T) {
	n := nodeFromProps(map[string]any{
		keyID:    "Agency:DPWH",
		keyType:  "Agency",
		keyLabel: "DPWH",
		"name":   "DPWH",
	})
	if n.ID != "Agency:DPWH" || n.Type != common.NodeAgency {
		t.Fatalf("unexpected node %+v", n)
	}
	if !reflect.DeepEqual(n.Properties, common.Properties{"name": "DPWH"}) {
		t.Fatalf("unexpected properties %v", n.Properties)
	}
}

func TestLuceneEscaper(t *testing.T) {
	if got := luceneEscaper.Replace(`a+b(c)`); got != `a\+b\(c\)` {
		t.Fatalf("got %q", got)
	}
}
