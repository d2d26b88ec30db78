package openalex

import (
	"strings"
	"time"
)

// convertWork turns one upstream work record into a ConvertedPaper, reconstructing the
// abstract from its inverted index and picking the first usable landing/PDF URL.
func convertWork(w work) ConvertedPaper {
	title := w.Title
	if title == "" {
		title = w.DisplayName
	}

	var publishedAt *time.Time
	if w.PublicationDate != "" {
		if t, err := time.Parse("2006-01-02", w.PublicationDate); err == nil {
			publishedAt = &t
		}
	}
	if publishedAt == nil && w.PublicationYear > 0 {
		t := time.Date(w.PublicationYear, time.January, 1, 0, 0, 0, 0, time.UTC)
		publishedAt = &t
	}

	authorNames := make([]string, 0, len(w.Authorships))
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			authorNames = append(authorNames, a.Author.DisplayName)
		}
	}

	var journal, landingURL, pdfURL string
	if w.PrimaryLocation != nil {
		journal = w.PrimaryLocation.Source.DisplayName
		landingURL = w.PrimaryLocation.LandingPageURL
		pdfURL = w.PrimaryLocation.PDFURL
	}
	if pdfURL == "" && w.BestOALocation != nil {
		pdfURL = w.BestOALocation.PDFURL
	}
	if pdfURL == "" {
		for _, loc := range w.Locations {
			if loc.PDFURL != "" {
				pdfURL = loc.PDFURL
				break
			}
		}
	}

	categories := make([]string, 0, len(w.Topics))
	for _, t := range w.Topics {
		if t.DisplayName != "" {
			categories = append(categories, t.DisplayName)
		}
	}

	isOA := false
	if w.OpenAccess != nil {
		isOA = w.OpenAccess.IsOA
	}

	return ConvertedPaper{
		ID:             w.ID,
		DOI:            strings.TrimPrefix(w.DOI, "https://doi.org/"),
		Title:          title,
		Abstract:       reconstructAbstract(w.AbstractInvertedIndex),
		AuthorNames:    authorNames,
		PublishedAt:    publishedAt,
		Journal:        journal,
		URL:            landingURL,
		PDFURL:         pdfURL,
		CategoryNames:  categories,
		CitationCount:  w.CitedByCount,
		RelevanceScore: w.RelevanceScore,
		Language:       w.Language,
		SourceID:       w.ID,
		IsOA:           isOA,
		RelatedWorkIDs: w.RelatedWorks,
	}
}
