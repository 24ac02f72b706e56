package businessflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseImportFileCSV(t *testing.T) {
	t.Run("ColumnsInAnyOrder", func(t *testing.T) {
		content := "\ufeffEmail,First_Name,last_name,public_id,mobile\n" +
			"Ann@Example.com, Ann ,Lee,,0912\n" +
			",,,,\n" +
			"bob@example.com,Bob,Ray,REG-0100,\n"

		rows, err := parseImportFile("attendees.CSV", []byte(content))
		require.NoError(t, err)
		require.Len(t, rows, 2)

		assert.Equal(t, 2, rows[0].Line)
		assert.Equal(t, "Ann", rows[0].FirstName)
		assert.Equal(t, "ann@example.com", rows[0].Email)
		assert.Equal(t, "0912", rows[0].Mobile)
		assert.Empty(t, rows[0].PublicID)

		assert.Equal(t, 4, rows[1].Line)
		assert.Equal(t, "REG-0100", rows[1].PublicID)
	})

	t.Run("MissingRequiredColumn", func(t *testing.T) {
		_, err := parseImportFile("a.csv", []byte("first_name,email\nAnn,ann@example.com\n"))
		assert.ErrorIs(t, err, ErrImportHeaderMalformed)
		assert.Contains(t, err.Error(), "last_name")
	})

	t.Run("HeaderOnly", func(t *testing.T) {
		_, err := parseImportFile("a.csv", []byte("first_name,last_name,email\n"))
		assert.ErrorIs(t, err, ErrImportFileEmpty)
	})

	t.Run("EmptyFile", func(t *testing.T) {
		_, err := parseImportFile("a.csv", nil)
		assert.ErrorIs(t, err, ErrImportHeaderMalformed)
	})

	t.Run("UnknownExtension", func(t *testing.T) {
		_, err := parseImportFile("a.json", []byte("{}"))
		assert.ErrorIs(t, err, ErrImportFormatUnknown)
		assert.True(t, IsImportError(err))
	})

	t.Run("ShortRowsPadded", func(t *testing.T) {
		rows, err := parseImportFile("a.csv", []byte("first_name,last_name,email,category\nAnn,Lee,ann@example.com\n"))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Empty(t, rows[0].Category)
	})
}

func TestParseImportFileXLSX(t *testing.T) {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := xl.GetSheetName(0)
	header := []string{"first_name", "last_name", "email", "category"}
	require.NoError(t, xl.SetSheetRow(sheet, "A1", &header))
	for i, rec := range [][]string{
		{"Ann", "Lee", "ann@example.com", "student"},
		{"Bob", "Ray", "bob@example.com", ""},
	} {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, xl.SetSheetRow(sheet, cell, &rec))
	}
	buf, err := xl.WriteToBuffer()
	require.NoError(t, err)

	rows, err := parseImportFile("attendees.xlsx", buf.Bytes())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "student", rows[0].Category)
	assert.Equal(t, "Bob", rows[1].FirstName)
	assert.Equal(t, 3, rows[1].Line)
}

func TestParseImportFileTooManyRows(t *testing.T) {
	var b strings.Builder
	b.WriteString("first_name,last_name,email\n")
	for i := 0; i <= 10000; i++ {
		b.WriteString("a,b,c@example.com\n")
	}
	_, err := parseImportFile("big.csv", []byte(b.String()))
	assert.ErrorIs(t, err, ErrImportFileTooLarge)
}

func TestImportRowValidation(t *testing.T) {
	f := NewRegistrationImportFlow(nil, nil, nil, nil).(*RegistrationImportFlowImpl)

	assert.Empty(t, f.validateRow(importRow{FirstName: "Ann", LastName: "Lee", Email: "ann@example.com"}))
	assert.Equal(t, "first_name is required", f.validateRow(importRow{LastName: "Lee", Email: "ann@example.com"}))
	assert.Equal(t, "last_name is required", f.validateRow(importRow{FirstName: "Ann", Email: "ann@example.com"}))
	assert.Equal(t, "email is missing or invalid", f.validateRow(importRow{FirstName: "Ann", LastName: "Lee", Email: "not-an-email"}))
	assert.Equal(t, "public_id is too long", f.validateRow(importRow{
		FirstName: "Ann", LastName: "Lee", Email: "ann@example.com", PublicID: strings.Repeat("X", 65),
	}))
}

func TestPublicIDKey(t *testing.T) {
	assert.Equal(t, publicIDKey("REG", "REG-5"), publicIDKey("REG", "REG-0005"))
	assert.Equal(t, publicIDKey("ABS-EVT", "ABS-EVT-12"), publicIDKey("ABS-EVT", "ABS-EVT-00012"))
	assert.NotEqual(t, publicIDKey("REG", "REG-5"), publicIDKey("REG", "REG-6"))
	assert.NotEqual(t, publicIDKey("REG", "VIP-5"), publicIDKey("REG", "REG-5"))
	assert.Equal(t, "VIP-0005", publicIDKey("REG", "VIP-0005"))
}
