// Package report renders study progress as an Excel workbook: one summary
// sheet plus a sheet per module listing each topic's mastery status.
package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/certlab/studyguide/internal/curriculum"
	"github.com/certlab/studyguide/internal/progress"
)

const summarySheet = "Summary"

// Excel sheet names are capped at 31 characters.
const maxSheetName = 31

var titleCaser = cases.Title(language.AmericanEnglish)

// Build assembles a progress workbook from the catalog and tracker.
func Build(catalog *curriculum.Catalog, tracker *progress.Tracker) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename summary sheet: %w", err)
	}
	if err := writeSummary(f, catalog, tracker); err != nil {
		return nil, err
	}

	used := map[string]bool{summarySheet: true}
	for _, mod := range catalog.Modules() {
		if err := writeModuleSheet(f, uniqueSheetName(used, mod.ID), mod, tracker); err != nil {
			return nil, err
		}
	}

	return f, nil
}

func writeSummary(f *excelize.File, catalog *curriculum.Catalog, tracker *progress.Tracker) error {
	total := catalog.TotalTopics()
	rows := [][]any{
		{"Study Progress Report"},
		{},
		{"Modules", len(catalog.Modules())},
		{"Topics", total},
		{"Topics mastered", tracker.Count()},
		{"Completion", fmt.Sprintf("%d%%", tracker.Percentage(total))},
	}

	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return fmt.Errorf("summary cell name: %w", err)
			}
			if err := f.SetCellValue(summarySheet, cell, v); err != nil {
				return fmt.Errorf("write summary cell: %w", err)
			}
		}
	}
	return nil
}

func writeModuleSheet(f *excelize.File, name string, mod curriculum.Module, tracker *progress.Tracker) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %q: %w", name, err)
	}

	header := []any{"Topic", "Status"}
	for j, v := range header {
		cell, err := excelize.CoordinatesToCellName(j+1, 1)
		if err != nil {
			return fmt.Errorf("header cell name: %w", err)
		}
		if err := f.SetCellValue(name, cell, v); err != nil {
			return fmt.Errorf("write header cell: %w", err)
		}
	}

	for i, topic := range mod.Topics {
		status := "Not started"
		if tracker.Completed(topic.ID) {
			status = "Mastered"
		}
		row := []any{topic.Title, status}
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return fmt.Errorf("topic cell name: %w", err)
			}
			if err := f.SetCellValue(name, cell, v); err != nil {
				return fmt.Errorf("write topic cell: %w", err)
			}
		}
	}
	return nil
}

// SheetName derives a sheet title from a module id slug, e.g.
// "automated-enrollment" becomes "Automated Enrollment".
func SheetName(moduleID string) string {
	name := titleCaser.String(strings.ReplaceAll(moduleID, "-", " "))
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	return name
}

// uniqueSheetName returns SheetName disambiguated against names already
// taken in the workbook. Distinct module ids can truncate to the same
// 31-character title, and sheet names must be unique, so collisions get
// a numeric suffix carved out of the cap.
func uniqueSheetName(used map[string]bool, moduleID string) string {
	name := SheetName(moduleID)
	if !used[name] {
		used[name] = true
		return name
	}
	for i := 2; ; i++ {
		suffix := fmt.Sprintf(" %d", i)
		candidate := name
		if len(candidate)+len(suffix) > maxSheetName {
			candidate = candidate[:maxSheetName-len(suffix)]
		}
		candidate += suffix
		if !used[candidate] {
			used[candidate] = true
			return candidate
		}
	}
}
