package gallery

import (
	"fmt"
	"math/rand/v2"

	"portfolio/internal/models"
)

const placeholderCount = 12

func defaultDescription(c models.Category) string {
	return fmt.Sprintf("A stunning capture showcasing the beauty of %s photography.", c)
}

// Placeholders generates the sample set shown when the gallery cannot load.
func Placeholders(rng *rand.Rand) []models.PhotoRecord {
	choices := models.GalleryCategories[1:]
	out := make([]models.PhotoRecord, 0, placeholderCount)
	for i := 1; i <= placeholderCount; i++ {
		dims := "800/600"
		if rng.Float64() <= 0.5 {
			dims = "600/800"
		}
		src := fmt.Sprintf("/api/placeholder/%s/%d", dims, i)
		out = append(out, models.PhotoRecord{
			ID:          fmt.Sprintf("sample-%d", i),
			Title:       fmt.Sprintf("Sample Photograph %d", i),
			Category:    choices[rng.IntN(len(choices))],
			FrameSize:   models.FrameSizes[rng.IntN(len(models.FrameSizes))],
			Description: defaultDescription(choices[rng.IntN(len(choices))]),
			Preview:     src,
		})
	}
	return out
}
