package rotation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mfleming/demoroster/pkg/core/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolver_WeekdayAssignment(t *testing.T) {
	resolver := NewResolver([]model.RotationAssignment{
		{Role: model.RotationJuicer, Weekday: time.Monday, EmployeeID: "alice"},
		{Role: model.RotationJuicer, Weekday: time.Wednesday, EmployeeID: "bob"},
		{Role: model.RotationPrimaryLead, Weekday: time.Wednesday, EmployeeID: "carol"},
	}, nil)

	owner, ok := resolver.OwnerOn(model.RotationJuicer, date(2025, time.October, 8)) // Wednesday
	assert.True(t, ok)
	assert.Equal(t, "bob", owner)

	owner, ok = resolver.OwnerOn(model.RotationPrimaryLead, date(2025, time.October, 8))
	assert.True(t, ok)
	assert.Equal(t, "carol", owner)

	_, ok = resolver.OwnerOn(model.RotationJuicer, date(2025, time.October, 10)) // Friday, nobody rostered
	assert.False(t, ok)
}

func TestResolver_ExceptionOverridesWeekday(t *testing.T) {
	resolver := NewResolver(
		[]model.RotationAssignment{
			{Role: model.RotationJuicer, Weekday: time.Wednesday, EmployeeID: "bob"},
		},
		[]model.RotationException{
			{Role: model.RotationJuicer, Date: date(2025, time.October, 8), EmployeeID: "dana"},
		},
	)

	owner, ok := resolver.OwnerOn(model.RotationJuicer, date(2025, time.October, 8))
	assert.True(t, ok)
	assert.Equal(t, "dana", owner, "the dated exception replaces the weekday owner")

	owner, ok = resolver.OwnerOn(model.RotationJuicer, date(2025, time.October, 15))
	assert.True(t, ok)
	assert.Equal(t, "bob", owner, "other Wednesdays keep the weekday owner")
}

func TestResolver_EmptyExceptionUnstaffsTheDay(t *testing.T) {
	resolver := NewResolver(
		[]model.RotationAssignment{
			{Role: model.RotationJuicer, Weekday: time.Wednesday, EmployeeID: "bob"},
		},
		[]model.RotationException{
			{Role: model.RotationJuicer, Date: date(2025, time.October, 8), EmployeeID: ""},
		},
	)

	_, ok := resolver.OwnerOn(model.RotationJuicer, date(2025, time.October, 8))
	assert.False(t, ok, "an empty exception means the role is explicitly unstaffed")
}
