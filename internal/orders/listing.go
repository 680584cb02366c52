package orders

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/esora/officine/internal/pharmaapi"
	"github.com/esora/officine/internal/workflow"
)

// StatusCount is the number of orders in one status.
type StatusCount struct {
	Status workflow.Status
	Count  int
}

// Stats counts orders per known status, in lifecycle order. Every status is
// listed, including empty ones.
func Stats(orders []pharmaapi.Order) []StatusCount {
	counts := make(map[workflow.Status]int)
	for _, o := range orders {
		counts[o.Status]++
	}
	out := make([]StatusCount, 0, len(workflow.Statuses()))
	for _, s := range workflow.Statuses() {
		out = append(out, StatusCount{Status: s, Count: counts[s]})
	}
	return out
}

// Filter keeps the orders in status (any when empty) whose number or
// patient name contains query. Matching ignores case and accents.
func Filter(orders []pharmaapi.Order, query string, status workflow.Status) []pharmaapi.Order {
	needle := fold(strings.TrimSpace(query))
	out := make([]pharmaapi.Order, 0, len(orders))
	for _, o := range orders {
		if status != "" && o.Status != status {
			continue
		}
		if needle != "" && !strings.Contains(fold(o.Number), needle) && !strings.Contains(fold(o.PatientName()), needle) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// SortRecent orders newest first, higher ids first on equal times.
func SortRecent(orders []pharmaapi.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if orders[i].OrderedAt.Equal(orders[j].OrderedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].OrderedAt.After(orders[j].OrderedAt)
	})
}

func fold(s string) string {
	// Transformers are stateful; one chain per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
