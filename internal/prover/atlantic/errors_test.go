package atlantic

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseError_UsesJSONMessageWhenPresent(t *testing.T) {
	err := parseError(http.StatusBadRequest, []byte(`{"message":"invalid layout"}`))

	var atlErr *Error
	assert.ErrorAs(t, err, &atlErr)
	assert.Equal(t, http.StatusBadRequest, atlErr.StatusCode)
	assert.Equal(t, "invalid layout", atlErr.Message)
	assert.Equal(t, "atlantic: 400: invalid layout", atlErr.Error())
}

func TestParseError_FallsBackToStatusTextOnNonJSONBody(t *testing.T) {
	err := parseError(http.StatusInternalServerError, []byte("not json"))

	var atlErr *Error
	assert.ErrorAs(t, err, &atlErr)
	assert.Equal(t, http.StatusText(http.StatusInternalServerError), atlErr.Message)
}

func TestParseError_FallsBackToStatusTextOnEmptyMessage(t *testing.T) {
	err := parseError(http.StatusServiceUnavailable, []byte(`{"message":""}`))

	var atlErr *Error
	assert.ErrorAs(t, err, &atlErr)
	assert.Equal(t, http.StatusText(http.StatusServiceUnavailable), atlErr.Message)
}
