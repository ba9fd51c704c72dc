package services

import "github.com/oliversimiyu/movie-downloader/models"

// trailerSite is the single hosting site we recognize for trailers.
const trailerSite = "YouTube"

// ExtractProviders flattens the per-region provider sub-resource for one
// region into a deduplicated list. Category order is always stream, then
// rent, then buy; within a category upstream source order is preserved.
// An absent sub-resource or unknown region yields an empty list.
func ExtractProviders(regions map[string]tmdbRegionOfferings, region string) []models.Provider {
	providers := []models.Provider{}
	offerings, ok := regions[region]
	if !ok {
		return providers
	}

	seen := make(map[models.Provider]bool)
	appendCategory := func(entries []tmdbProvider, availability string) {
		for _, e := range entries {
			p := models.Provider{Name: e.ProviderName, Type: availability}
			if seen[p] {
				continue
			}
			seen[p] = true
			providers = append(providers, p)
		}
	}

	appendCategory(offerings.Flatrate, models.AvailabilityStream)
	appendCategory(offerings.Rent, models.AvailabilityRent)
	appendCategory(offerings.Buy, models.AvailabilityBuy)

	return providers
}

// ExtractTrailers keeps only entries that are actual trailers hosted on the
// recognized site; everything else (teasers, clips, other hosts) is dropped.
func ExtractTrailers(videos []tmdbVideo) []models.Trailer {
	trailers := []models.Trailer{}
	for _, v := range videos {
		if v.Type != "Trailer" || v.Site != trailerSite {
			continue
		}
		trailers = append(trailers, models.Trailer{
			Name: v.Name,
			Key:  v.Key,
			Site: v.Site,
		})
	}
	return trailers
}

// TrailerWatchURL builds the playable URL for a trailer's video key.
func TrailerWatchURL(t models.Trailer) string {
	return "https://www.youtube.com/watch?v=" + t.Key
}
