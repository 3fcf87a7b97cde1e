package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alumnet-cloud/entitlement-service/internal/constants"
)

func TestJitterTTL(t *testing.T) {
	assert.Equal(t, time.Duration(0), jitterTTL(0), "no expiry stays no expiry")

	base := 5 * time.Minute
	ceiling := base + time.Duration(constants.CacheJitterMaxSeconds)*time.Second
	for i := 0; i < 200; i++ {
		got := jitterTTL(base)
		assert.GreaterOrEqual(t, got, base)
		assert.LessOrEqual(t, got, ceiling)
	}
}
