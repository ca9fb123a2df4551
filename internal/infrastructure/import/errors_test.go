package csvimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRowError(t *testing.T) {
	assert.Equal(t, "row 5, column 'name': missing", NewRowError(5, "name", ErrCodeImportRequiredField, "missing").Error())
	assert.Equal(t, "row 10: broken", NewRowError(10, "", ErrCodeImportFailed, "broken").Error())
}

func TestErrorCollection(t *testing.T) {
	ec := NewErrorCollection(2)
	assert.False(t, ec.HasErrors())
	assert.Equal(t, "no errors", ec.String())

	ec.AddRequiredError(2, "name")
	ec.AddTypeError(3, "amount", "decimal", "lots")
	ec.AddReferenceError(4, "category", "Caps", "category")

	assert.True(t, ec.HasErrors())
	assert.True(t, ec.IsTruncated())
	assert.Equal(t, 3, ec.TotalCount())
	assert.Len(t, ec.Errors(), 2)
	assert.Equal(t, "lots", ec.Errors()[1].Value)
	assert.Contains(t, ec.String(), "3 error(s) found (showing first 2)")

	assert.Equal(t, 100, NewErrorCollection(0).maxErrors)
}
