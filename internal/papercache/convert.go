package papercache

import (
	"scifind-backend/internal/models"
	"scifind-backend/internal/openalex"
)

// FromUpstream converts a C1-reconstructed work into the Paper row shape C2 stores.
// Author and category rows are attached by display name only; the repository's
// many2many association handling is responsible for resolving or creating the
// underlying Author/Category rows.
func FromUpstream(cp openalex.ConvertedPaper) models.Paper {
	var doi, abstract, journal, pdfURL, sourceURL *string
	if cp.DOI != "" {
		doi = &cp.DOI
	}
	if cp.Abstract != "" {
		abstract = &cp.Abstract
	}
	if cp.Journal != "" {
		journal = &cp.Journal
	}
	if cp.PDFURL != "" {
		pdfURL = &cp.PDFURL
	}
	if cp.URL != "" {
		sourceURL = &cp.URL
	}

	authors := make([]models.Author, 0, len(cp.AuthorNames))
	for _, name := range cp.AuthorNames {
		authors = append(authors, models.Author{Name: name})
	}

	categories := make([]models.Category, 0, len(cp.CategoryNames))
	for _, name := range cp.CategoryNames {
		categories = append(categories, models.Category{Name: name, Source: "openalex"})
	}

	language := cp.Language
	if language == "" {
		language = "en"
	}

	return models.Paper{
		ID:             cp.ID,
		DOI:            doi,
		Title:          cp.Title,
		Abstract:       abstract,
		Authors:        authors,
		Journal:        journal,
		PublishedAt:    cp.PublishedAt,
		URL:            sourceURL,
		PDFURL:         pdfURL,
		Categories:     categories,
		Language:       language,
		CitationCount:  cp.CitationCount,
		RelevanceScore: cp.RelevanceScore,
		SourceProvider: "openalex",
		SourceID:       cp.SourceID,
		SourceURL:      sourceURL,
	}
}
