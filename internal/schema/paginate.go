// Package schema implements the pure parts of the form engine: splitting an
// ordered field list into wizard pages and validating values against field
// definitions. Nothing in this package performs I/O.
package schema

import "github.com/formweave/formweave/internal/models"

// Paginate splits an ordered field list into logical pages using page-break
// entries as separators. A break only closes the current page when it has
// accumulated at least one field, so leading and consecutive breaks collapse
// and no empty page is ever emitted. The break entries themselves never
// appear in any page. The one degenerate case is a field list with no input
// fields at all, which yields exactly one empty page so a renderer always has
// a page to stand on.
func Paginate(fields []models.FieldDefinition) [][]models.FieldDefinition {
	pages := [][]models.FieldDefinition{{}}
	for _, f := range fields {
		if f.IsPageBreak {
			if len(pages[len(pages)-1]) > 0 {
				pages = append(pages, []models.FieldDefinition{})
			}
			continue
		}
		pages[len(pages)-1] = append(pages[len(pages)-1], f)
	}
	// A trailing break leaves an empty final bucket; drop it unless it is the
	// only page.
	if len(pages) > 1 && len(pages[len(pages)-1]) == 0 {
		pages = pages[:len(pages)-1]
	}
	return pages
}

// PageCount returns the number of pages Paginate would produce.
func PageCount(fields []models.FieldDefinition) int {
	return len(Paginate(fields))
}
