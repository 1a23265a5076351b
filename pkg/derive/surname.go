package derive

import (
	"strings"

	"github.com/kwenta-ph/kwenta/backend/pkg/common"
	"github.com/kwenta-ph/kwenta/backend/pkg/normalize"
)

// SurnameLink is a weak contractor-politician association: the contractor's
// name ends with the politician's surname and both are in the same province.
type SurnameLink struct {
	Contractor string `json:"contractor"`
	Politician string `json:"politician"`
	Province   string `json:"province"`
	Surname    string `json:"surname"`
	Confidence string `json:"confidence"`
}

// Surname returns "CRUZ" for both "JUAN CRUZ" and "CRUZ, JUAN".
func Surname(name string) string {
	name = strings.TrimSpace(strings.ToUpper(name))
	if before, _, ok := strings.Cut(name, ","); ok {
		return strings.TrimSpace(before)
	}
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// SurnameLinks matches contractor records against politician records on
// (surname, province). Records without a province never match.
func SurnameLinks(contractors, politicians []common.Record) []SurnameLink {
	type key struct{ surname, province string }
	index := make(map[key][]string)
	for _, p := range politicians {
		name := normalize.PoliticianName(p.Text("name"))
		k := key{Surname(name), strings.ToUpper(p.Text("province"))}
		if k.surname == "" || k.province == "" {
			continue
		}
		index[k] = append(index[k], name)
	}

	var links []SurnameLink
	for _, c := range contractors {
		name := normalize.ContractorName(c.First("contractor_name", "name"))
		k := key{Surname(name), strings.ToUpper(c.Text("province"))}
		if k.surname == "" || k.province == "" {
			continue
		}
		for _, pol := range index[k] {
			links = append(links, SurnameLink{
				Contractor: name,
				Politician: pol,
				Province:   k.province,
				Surname:    k.surname,
				Confidence: "low",
			})
		}
	}
	return links
}
