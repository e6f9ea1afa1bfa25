package model

import (
	"fmt"
	"strings"
)

// Event display names follow the convention used on the printed floor
// schedule: a six digit correlation number, a category tag and a free text
// title, joined by dashes. Example: "606001-PR-Olive Oil Tasting".

var categoryTags = map[EventCategory]string{
	CategoryPrimary:            "PR",
	CategoryJuiceBar:           "JB",
	CategorySupervisor:         "SUP",
	CategoryKioskSetup:         "KIOSK",
	CategoryDigitalMaintenance: "DIG",
	CategoryOther:              "OTHER",
}

// teardownTag marks the evening teardown step of a DigitalMaintenance event.
const teardownTag = "DIGTD"

// tagCategories is the reverse lookup from name tag to category. Imported
// names sometimes spell the category out in full, so both forms are accepted.
var tagCategories = func() map[string]EventCategory {
	m := make(map[string]EventCategory, 2*len(categoryTags)+1)
	for category, tag := range categoryTags {
		m[tag] = category
		m[string(category)] = category
	}
	m[teardownTag] = CategoryDigitalMaintenance
	return m
}()

// EventDisplayName builds the conventional display name for an event. It is
// the inverse of ParseEventName and pins the encoding for the feed that
// creates events upstream of this module.
func EventDisplayName(correlation string, category EventCategory, teardown bool, title string) string {
	tag := categoryTags[category]
	if category == CategoryDigitalMaintenance && teardown {
		tag = teardownTag
	}
	return fmt.Sprintf("%s-%s-%s", correlation, tag, title)
}

// ParsedEventName holds the components of a conventional event display name.
type ParsedEventName struct {
	Correlation string
	Category    EventCategory
	Teardown    bool
	Title       string
}

// ParseEventName splits a display name into its components. The title may
// itself contain dashes; only the first two separators are structural.
func ParseEventName(name string) (ParsedEventName, error) {
	parts := strings.SplitN(name, "-", 3)
	if len(parts) != 3 {
		return ParsedEventName{}, fmt.Errorf("event name %q does not follow the correlation-tag-title convention", name)
	}

	correlation, tag, title := parts[0], parts[1], parts[2]
	if len(correlation) != 6 {
		return ParsedEventName{}, fmt.Errorf("event name %q has a correlation of %d digits, want 6", name, len(correlation))
	}
	for _, r := range correlation {
		if r < '0' || r > '9' {
			return ParsedEventName{}, fmt.Errorf("event name %q has a non numeric correlation", name)
		}
	}

	category, ok := tagCategories[tag]
	if !ok {
		return ParsedEventName{}, fmt.Errorf("event name %q has unknown category tag %q", name, tag)
	}
	if title == "" {
		return ParsedEventName{}, fmt.Errorf("event name %q has an empty title", name)
	}

	return ParsedEventName{
		Correlation: correlation,
		Category:    category,
		Teardown:    tag == teardownTag,
		Title:       title,
	}, nil
}
