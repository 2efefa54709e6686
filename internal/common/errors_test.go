package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinels_AreDistinct(t *testing.T) {
	all := []error{
		ErrorNotFound, ErrorAlreadyExists, ErrorInternal, ErrorUnauthorized,
		ErrorTransient, ErrorCorrupted, ErrorValidation, ErrorNotArchive,
		ErrorNoImages, ErrorTooLarge, ErrorStorageMisconfigured, ErrInvalidToken,
	}
	for i, a := range all {
		for j, b := range all {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v must not match %v", a, b)
			}
		}
	}
}

func TestSentinels_SurviveWrapping(t *testing.T) {
	err := fmt.Errorf("fetch archive: %w", ErrorTransient)
	assert.ErrorIs(t, err, ErrorTransient)
	assert.NotErrorIs(t, err, ErrorNotFound)
}
