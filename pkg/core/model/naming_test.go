package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventName_Conventional(t *testing.T) {
	parsed, err := ParseEventName("606001-PR-Olive Oil Tasting")
	require.NoError(t, err)
	assert.Equal(t, "606001", parsed.Correlation)
	assert.Equal(t, CategoryPrimary, parsed.Category)
	assert.False(t, parsed.Teardown)
	assert.Equal(t, "Olive Oil Tasting", parsed.Title)
}

func TestParseEventName_TitleMayContainDashes(t *testing.T) {
	parsed, err := ParseEventName("606002-JB-Citrus-Ginger Blend")
	require.NoError(t, err)
	assert.Equal(t, CategoryJuiceBar, parsed.Category)
	assert.Equal(t, "Citrus-Ginger Blend", parsed.Title)
}

func TestParseEventName_TeardownTag(t *testing.T) {
	parsed, err := ParseEventName("610044-DIGTD-Endcap Screens")
	require.NoError(t, err)
	assert.Equal(t, CategoryDigitalMaintenance, parsed.Category)
	assert.True(t, parsed.Teardown)

	setup, err := ParseEventName("610044-DIG-Endcap Screens")
	require.NoError(t, err)
	assert.Equal(t, CategoryDigitalMaintenance, setup.Category)
	assert.False(t, setup.Teardown)
}

func TestParseEventName_AllTags(t *testing.T) {
	cases := map[string]EventCategory{
		"SUP":   CategorySupervisor,
		"KIOSK": CategoryKioskSetup,
		"OTHER": CategoryOther,
	}
	for tag, want := range cases {
		parsed, err := ParseEventName("123456-" + tag + "-Something")
		require.NoError(t, err, "tag %s should parse", tag)
		assert.Equal(t, want, parsed.Category)
	}
}

func TestParseEventName_FullCategoryTags(t *testing.T) {
	// Imported feeds sometimes spell the category out instead of the tag
	parsed, err := ParseEventName("606001-Supervisor-Midday Check")
	require.NoError(t, err)
	assert.Equal(t, CategorySupervisor, parsed.Category)
	assert.Equal(t, "606001", parsed.Correlation)

	parsed, err = ParseEventName("606001-Primary-Olive Oil Tasting")
	require.NoError(t, err)
	assert.Equal(t, CategoryPrimary, parsed.Category)
}

func TestParseEventName_Malformed(t *testing.T) {
	cases := []string{
		"no separators here",
		"606001-PR",             // Missing title
		"60601-PR-Short number", // Five digit correlation
		"60600a-PR-Letters",     // Non numeric correlation
		"606001-XX-Unknown tag",
		"606001-PR-", // Empty title
	}
	for _, name := range cases {
		_, err := ParseEventName(name)
		assert.Error(t, err, "name %q should be rejected", name)
	}
}

func TestEventDisplayName_RoundTrip(t *testing.T) {
	name := EventDisplayName("606001", CategoryPrimary, false, "Olive Oil Tasting")
	assert.Equal(t, "606001-PR-Olive Oil Tasting", name)

	teardown := EventDisplayName("610044", CategoryDigitalMaintenance, true, "Endcap Screens")
	assert.Equal(t, "610044-DIGTD-Endcap Screens", teardown)

	parsed, err := ParseEventName(teardown)
	require.NoError(t, err)
	assert.True(t, parsed.Teardown)
	assert.Equal(t, "610044", parsed.Correlation)
}
