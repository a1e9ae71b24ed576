// Package export writes a month of the meal calendar to an XLSX workbook.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"kids-meal-calendar/internal/calendar"
	"kids-meal-calendar/internal/meal"
)

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// FileName is the download name for a child's month.
func FileName(childName string, grid calendar.Grid) string {
	return fmt.Sprintf("%s_%s_meals.xlsx", childName, calendar.MonthKey(grid.Month))
}

// MonthlyWorkbook lays out one row per day of the month with a column per
// meal slot. Days from adjacent months are left out.
func MonthlyWorkbook(childName string, grid calendar.Grid, cells []calendar.Cell, loc calendar.Locale) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := calendar.MonthKey(grid.Month)
	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}

	lastCol := colName(2 + len(meal.Slots))
	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", "B", 10)
	f.SetColWidth(sheetName, "C", lastCol, 30)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	todayStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFF2CC"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create today style: %w", err)
	}
	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create body style: %w", err)
	}

	// Title
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s · %s", childName, grid.Label(loc)))
	f.MergeCell(sheetName, "A1", lastCol+"1")
	f.SetCellStyle(sheetName, "A1", lastCol+"1", headerStyle)

	// Header
	row := 2
	f.SetCellValue(sheetName, cell("A", row), dateHeader(loc))
	f.SetCellValue(sheetName, cell("B", row), weekdayHeader(loc))
	for i, slot := range meal.Slots {
		f.SetCellValue(sheetName, cell(colName(3+i), row), loc.SlotLabel(slot))
	}
	f.SetCellStyle(sheetName, cell("A", row), cell(lastCol, row), headerStyle)

	for _, c := range cells {
		if !c.IsCurrentMonth {
			continue
		}
		row++
		f.SetCellValue(sheetName, cell("A", row), c.Date)
		f.SetCellValue(sheetName, cell("B", row), c.Weekday)
		for i, s := range c.Slots {
			text := "-"
			if s.Filled {
				text = s.Description
			}
			f.SetCellValue(sheetName, cell(colName(3+i), row), text)
		}
		f.SetCellStyle(sheetName, cell("A", row), cell(lastCol, row), wrapStyle)
		if c.IsToday {
			f.SetCellStyle(sheetName, cell("A", row), cell(lastCol, row), todayStyle)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, nil
}

func dateHeader(loc calendar.Locale) string {
	if loc.Korean() {
		return "날짜"
	}
	return "Date"
}

func weekdayHeader(loc calendar.Locale) string {
	if loc.Korean() {
		return "요일"
	}
	return "Day"
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx)
	return name
}
