package businessflow

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/amirphl/conference-registry/utils"
	"github.com/xuri/excelize/v2"
)

// importRow is one data row of an import file. Line is 1-based and counts the header.
type importRow struct {
	Line      int
	FirstName string
	LastName  string
	Email     string
	Mobile    string
	Category  string
	PublicID  string
}

var requiredImportColumns = []string{"first_name", "last_name", "email"}

// parseImportFile reads CSV or XLSX content into rows. Blank rows are skipped.
func parseImportFile(fileName string, content []byte) ([]importRow, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		records, err = readCSVRecords(content)
	case ".xlsx":
		records, err = readXLSXRecords(content)
	default:
		return nil, ErrImportFormatUnknown
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrImportHeaderMalformed
	}

	colIndex := map[string]int{}
	for i, h := range records[0] {
		colIndex[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, col := range requiredImportColumns {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrImportHeaderMalformed, col)
		}
	}

	cell := func(rec []string, col string) string {
		i, ok := colIndex[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	rows := make([]importRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		if isBlankRecord(rec) {
			continue
		}
		rows = append(rows, importRow{
			Line:      i + 2,
			FirstName: cell(rec, "first_name"),
			LastName:  cell(rec, "last_name"),
			Email:     strings.ToLower(cell(rec, "email")),
			Mobile:    cell(rec, "mobile"),
			Category:  cell(rec, "category"),
			PublicID:  cell(rec, "public_id"),
		})
		if len(rows) > utils.MaxImportRows {
			return nil, ErrImportFileTooLarge
		}
	}
	if len(rows) == 0 {
		return nil, ErrImportFileEmpty
	}
	return rows, nil
}

func readCSVRecords(content []byte) ([][]string, error) {
	reader := csv.NewReader(bufio.NewReader(bytes.NewReader(content)))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var records [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, NewBusinessError("CSV_READ_ERROR", "Failed to read CSV row", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// readXLSXRecords reads the first sheet of the workbook
func readXLSXRecords(content []byte) ([][]string, error) {
	xl, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, NewBusinessError("EXCEL_READ_ERROR", "Failed to open Excel file", err)
	}
	defer func() { _ = xl.Close() }()

	rows, err := xl.GetRows(xl.GetSheetName(0))
	if err != nil {
		return nil, NewBusinessError("EXCEL_READ_ERROR", "Failed to read Excel sheet", err)
	}
	return rows, nil
}

func isBlankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
