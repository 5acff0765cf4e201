package gallery

import (
	"strings"

	"portfolio/internal/models"
)

// Query selects what the gallery shows. An empty Category means "all".
type Query struct {
	Category models.Category
	Search   string
}

// Filter keeps records of the selected category whose title or description
// contains the search term, case-insensitively. Input order is preserved.
func Filter(records []models.PhotoRecord, q Query) []models.PhotoRecord {
	term := strings.ToLower(q.Search)
	out := make([]models.PhotoRecord, 0, len(records))
	for _, r := range records {
		if q.Category != "" && q.Category != models.CategoryAll && r.Category != q.Category {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(r.Title), term) &&
			!strings.Contains(strings.ToLower(r.Description), term) {
			continue
		}
		out = append(out, r)
	}
	return out
}
