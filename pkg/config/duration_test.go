package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidatePositiveDuration(t *testing.T) {
	assert.NoError(t, ValidatePositiveDuration(time.Second))
	assert.NoError(t, ValidatePositiveDuration(time.Nanosecond))
	assert.Error(t, ValidatePositiveDuration(0))
	assert.Error(t, ValidatePositiveDuration(-time.Second))
}

func TestValidateNonNegativeDuration(t *testing.T) {
	assert.NoError(t, ValidateNonNegativeDuration(time.Second))
	assert.NoError(t, ValidateNonNegativeDuration(0))
	assert.Error(t, ValidateNonNegativeDuration(-time.Second))
}
