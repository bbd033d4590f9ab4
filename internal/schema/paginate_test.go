package schema

import (
	"testing"

	"github.com/formweave/formweave/internal/models"
)

func field(key string) models.FieldDefinition {
	return models.FieldDefinition{
		FieldKey:    key,
		Label:       key,
		DataType:    models.DataTypeString,
		InputWidget: models.WidgetText,
	}
}

func TestPaginateSplitsOnBreaks(t *testing.T) {
	fields := []models.FieldDefinition{
		field("a"), field("b"),
		models.PageBreak(),
		field("c"),
	}
	pages := Paginate(fields)
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if len(pages[0]) != 2 || len(pages[1]) != 1 {
		t.Errorf("unexpected page sizes: %d, %d", len(pages[0]), len(pages[1]))
	}
	if pages[1][0].FieldKey != "c" {
		t.Errorf("expected field c on page 2, got %q", pages[1][0].FieldKey)
	}
}

func TestPaginateNeverEmitsBreakEntries(t *testing.T) {
	fields := []models.FieldDefinition{field("a"), models.PageBreak(), field("b")}
	for _, page := range Paginate(fields) {
		for _, f := range page {
			if f.IsPageBreak {
				t.Fatal("page break leaked into a page")
			}
		}
	}
}

func TestPaginateCollapsesEmptyPages(t *testing.T) {
	fields := []models.FieldDefinition{
		models.PageBreak(), // leading
		field("a"),
		models.PageBreak(),
		models.PageBreak(), // consecutive
		field("b"),
		models.PageBreak(), // trailing
	}
	pages := Paginate(fields)
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages after collapsing, got %d", len(pages))
	}
	for i, page := range pages {
		if len(page) == 0 {
			t.Errorf("page %d is empty", i)
		}
	}
}

func TestPaginateNoFields(t *testing.T) {
	pages := Paginate(nil)
	if len(pages) != 1 || len(pages[0]) != 0 {
		t.Errorf("expected exactly one empty page, got %v", pages)
	}
	pages = Paginate([]models.FieldDefinition{models.PageBreak()})
	if len(pages) != 1 || len(pages[0]) != 0 {
		t.Errorf("breaks only should still yield one empty page, got %v", pages)
	}
}

func TestPageCount(t *testing.T) {
	fields := []models.FieldDefinition{field("a"), models.PageBreak(), field("b"), models.PageBreak(), field("c")}
	if n := PageCount(fields); n != 3 {
		t.Errorf("expected 3 pages, got %d", n)
	}
}
