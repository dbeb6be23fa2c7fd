package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	assert.Equal(t, Name, Current.Name)
	assert.Equal(t, 15, Current.PageSize)
	assert.Equal(t, "US/Pacific", Current.TimeZone)
	assert.True(t, AllowAllOrigins())
}

func TestLocation(t *testing.T) {
	assert.Equal(t, "Asia/Tokyo", Location("Asia/Tokyo").String())
	assert.Equal(t, "US/Pacific", Location("").String())
	assert.Equal(t, "US/Pacific", Location("Nowhere/Land").String())

	old := Current.TimeZone
	Current.TimeZone = ""
	defer func() { Current.TimeZone = old }()
	assert.Equal(t, "UTC", Location("bogus").String())
}
