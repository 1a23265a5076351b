package normalize

import "testing"

func TestContractorName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ABC Construction Inc.", "ABC CONSTRUCTION"},
		{"ABC CONSTRUCTION INCORPORATED", "ABC CONSTRUCTION"},
		{"abc construction corp., inc.", "ABC CONSTRUCTION"},
		{"Santos Builders Corporation", "SANTOS BUILDERS"},
		{"Reyes & Co.", "REYES"},
		{"Reyes and Co", "REYES"},
		{"Mega Pacific Pte. Ltd.", "MEGA PACIFIC"},
		{"Global Infra Pvt Limited", "GLOBAL INFRA"},
		{"Delta Works LLC", "DELTA WORKS"},
		{"Acme Company", "ACME"},
		{"  J.B.   Trading;  ", "JB TRADING"},
		{"", ""},
		{"Inc.", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ContractorName(tt.in); got != tt.want {
				t.Fatalf("ContractorName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPoliticianName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Juan de la Cruz Jr.", "JUAN DELA CRUZ"},
		{"Maria de los Santos", "MARIA DELOS SANTOS"},
		{"Ana de las Alas", "ANA DELAS ALAS"},
		{"Pedro del Rosario III", "PEDRO DEL ROSARIO"},
		{"Dela Cruz, Jr., Juan", "DELA CRUZ, JUAN"},
		{"Cruz Jr., Juan", "CRUZ, JUAN"},
		{"Ramon Revilla, Sr.", "RAMON REVILLA"},
		{"Jose Ivan Santos IV", "JOSE IVAN SANTOS"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := PoliticianName(tt.in); got != tt.want {
				t.Fatalf("PoliticianName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizationIsIdempotent(t *testing.T) {
	names := []string{
		"ABC Construction Inc.",
		"abc construction corp., inc.",
		"ABC CO INC",
		"Reyes & Co., Ltd.",
		"Foo Company Inc, Corp",
		"J.B.   Trading;",
		"  ",
		"Juan de la Cruz Jr.",
		"Dela Cruz, Jr., Juan",
		"A, , JR,",
		"de   la   Paz, Sr.",
		"JR. Santos",
		"DE JR LA CRUZ",
	}

	for _, n := range names {
		c := ContractorName(n)
		if again := ContractorName(c); again != c {
			t.Fatalf("ContractorName not idempotent for %q: %q -> %q", n, c, again)
		}
		p := PoliticianName(n)
		if again := PoliticianName(p); again != p {
			t.Fatalf("PoliticianName not idempotent for %q: %q -> %q", n, p, again)
		}
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("ABC CONSTRUCTION", "ABC CONSTRUCTION"); got != 1 {
		t.Fatalf("identical names should score 1, got %v", got)
	}
	if got := Similarity("", "ABC"); got != 0 {
		t.Fatalf("empty name should score 0, got %v", got)
	}
	close := Similarity("ABC CONSTRUCTION", "ABC CONSTRUCTON")
	far := Similarity("ABC CONSTRUCTION", "XYZ TRADING")
	if close < 0.92 {
		t.Fatalf("one-letter typo should be above auto threshold, got %v", close)
	}
	if far >= 0.85 {
		t.Fatalf("unrelated names should be below review threshold, got %v", far)
	}
	if Similarity("ABCD", "ABDC") != Similarity("ABDC", "ABCD") {
		t.Fatalf("similarity should be symmetric")
	}
}

func TestAddress(t *testing.T) {
	a := Address("123 Rizal St., Brgy. San Roque,  Quezon City")
	b := Address("123 RIZAL ST BRGY SAN ROQUE QUEZON CITY")
	if a != b {
		t.Fatalf("addresses should normalize equal: %q vs %q", a, b)
	}
}

func TestProcurementMethod(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Public Bidding", "public_bidding"},
		{"public_bidding", "public_bidding"},
		{"Negotiated Procurement - Small Value Procurement", "shopping"},
		{"Negotiated Procurement (Emergency Cases)", "negotiated"},
		{"Direct Contracting", "negotiated"},
		{"Limited Source Bidding", "limited_source"},
		{"  ", "unknown"},
		{"By administration", "other"},
	}
	for _, tt := range tests {
		if got := ProcurementMethod(tt.in); got != tt.want {
			t.Fatalf("ProcurementMethod(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
