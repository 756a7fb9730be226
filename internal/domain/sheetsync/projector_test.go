package sheetsync

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/skillmint/regsync/internal/domain/event"
	"github.com/skillmint/regsync/internal/domain/registration"
)

func sampleRegistration() *registration.EventRegistration {
	return &registration.EventRegistration{
		ID:            uuid.MustParse("6f1a2b3c-4d5e-6f70-8192-a3b4c5d6e7f8"),
		Name:          "Asha Verma",
		Email:         "asha@example.com",
		Phone:         "+919876543210",
		State:         "Karnataka",
		Qualification: "B.Tech",
		Course:        "AI Bootcamp",
		CreatedAt:     time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestProjectRow(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	row := ProjectRow(sampleRegistration(), loc)
	require.Len(t, row, 7)
	assert.Equal(t, "Asha Verma", row[0])
	assert.Equal(t, "asha@example.com", row[1])
	assert.Equal(t, "+919876543210", row[2])
	assert.Equal(t, "Karnataka", row[3])
	assert.Equal(t, "B.Tech", row[4])
	assert.Equal(t, "AI Bootcamp", row[5])
	// 09:30 UTC is 15:00 IST.
	assert.Equal(t, "14 Mar 2026, 03:00 PM", row[6])
}

func TestProjectRowNilLocationDefaultsToUTC(t *testing.T) {
	row := ProjectRow(sampleRegistration(), nil)
	assert.Equal(t, "14 Mar 2026, 09:30 AM", row[6])
}

func TestProjectLogBlock(t *testing.T) {
	reg := sampleRegistration()
	reg.EventDetails = datatypes.JSONMap{
		"joinUrl":  "https://meet.example.com/ai",
		"hostName": "Dr. Rao",
	}
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	block := ProjectLogBlock(reg, ModeNew, at)

	lines := strings.Split(block, "\n")
	assert.Equal(t, "New entry | 2026-03-14T10:00:00Z", lines[0])
	assert.Contains(t, block, "Registration: 6f1a2b3c-4d5e-6f70-8192-a3b4c5d6e7f8\n")
	assert.Contains(t, block, "Name: Asha Verma\n")
	assert.Contains(t, block, "Event: AI Bootcamp\n")
	assert.Contains(t, block, "Join URL: https://meet.example.com/ai\n")
	assert.Contains(t, block, "Host: Dr. Rao\n")
	assert.True(t, strings.HasSuffix(block, "\n\n"), "block must end with a blank line separator")
}

func TestProjectLogBlockOmitsEmptyFields(t *testing.T) {
	reg := sampleRegistration()
	reg.State = ""
	reg.Qualification = ""

	block := ProjectLogBlock(reg, ModeUpdated, time.Now())

	assert.True(t, strings.HasPrefix(block, "Updated entry | "))
	assert.NotContains(t, block, "State:")
	assert.NotContains(t, block, "Qualification:")
	assert.NotContains(t, block, "Join URL:")
}

func TestProjectEventMetadata(t *testing.T) {
	start := time.Date(2026, 4, 1, 18, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	ev := &event.Event{
		Title:     "AI Bootcamp",
		Slug:      "ai-bootcamp",
		StartTime: &start,
		EndTime:   &end,
		Timezone:  "Asia/Kolkata",
		HostName:  "Dr. Rao",
		JoinURL:   "https://meet.example.com/ai",
		Price:     499,
		Tags:      []string{"ai", "beginner"},
	}

	rows := ProjectEventMetadata(ev)

	require.NotEmpty(t, rows)
	assert.Equal(t, []interface{}{"Field", "Value"}, rows[0])

	got := make(map[string]string, len(rows))
	for _, r := range rows[1:] {
		got[r[0].(string)] = r[1].(string)
	}
	assert.Equal(t, "AI Bootcamp", got["Title"])
	assert.Equal(t, "01 Apr 2026, 06:00 PM to 01 Apr 2026, 08:00 PM", got["Schedule"])
	assert.Equal(t, "INR 499.00", got["Pricing"])
	assert.Equal(t, "ai, beginner", got["Tags"])
	assert.NotContains(t, got, "Description")
	assert.NotContains(t, got, "Call to action")
}

func TestProjectEventMetadataFreePriceOmitted(t *testing.T) {
	rows := ProjectEventMetadata(&event.Event{Title: "Free Intro", Price: 0})
	for _, r := range rows[1:] {
		assert.NotEqual(t, "Pricing", r[0])
	}
}
