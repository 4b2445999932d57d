package apperr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_MapsEveryKind(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:      http.StatusBadRequest,
		KindUnauthenticated: http.StatusUnauthorized,
		KindForbidden:       http.StatusForbidden,
		KindNotFound:        http.StatusNotFound,
		KindConflict:        http.StatusConflict,
		KindGone:            http.StatusGone,
		KindRateLimited:     http.StatusTooManyRequests,
		KindUnavailable:     http.StatusServiceUnavailable,
		KindInternal:        http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, Status(kind), "kind=%s", kind)
	}
}

func TestAs_ExtractsTypedError(t *testing.T) {
	original := NotFound("patient not found")
	assert.Same(t, original, As(original))
}

func TestAs_FallsBackToInternalForUntypedError(t *testing.T) {
	extracted := As(errors.New("some wrapped db failure"))
	assert.Equal(t, KindInternal, extracted.Kind)
}
