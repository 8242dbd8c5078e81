package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var slotTimePattern = regexp.MustCompile(`^([0-9]{1,2}):([0-5][0-9])(?: ?([AaPp][Mm]))?$`)

// ParseSlotDate parses a "D_M_YYYY" date key and rejects dates that do not
// exist on the calendar.
func ParseSlotDate(key string) (time.Time, error) {
	parts := strings.Split(key, "_")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("slot date %q must look like D_M_YYYY", key)
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			return time.Time{}, fmt.Errorf("slot date %q has an invalid component %q", key, p)
		}
		nums[i] = n
	}

	day, month, year := nums[0], nums[1], nums[2]
	if year < 1000 || year > 9999 {
		return time.Time{}, fmt.Errorf("slot date %q has an invalid year", key)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, fmt.Errorf("slot date %q is not a calendar date", key)
	}
	return t, nil
}

// SlotDateKey formats t the way the booking page builds date keys.
func SlotDateKey(t time.Time) string {
	return fmt.Sprintf("%d_%d_%d", t.Day(), int(t.Month()), t.Year())
}

// NormalizeSlotDate returns the canonical key for a "D_M_YYYY" date, so
// "010_06_2025" and "10_6_2025" name the same day.
func NormalizeSlotDate(key string) (string, error) {
	t, err := ParseSlotDate(key)
	if err != nil {
		return "", err
	}
	return SlotDateKey(t), nil
}

// NormalizeSlotTime returns s as a zero-padded 24-hour "HH:MM" time. Hours
// run 0-23 on their own and 1-12 with an AM/PM suffix.
func NormalizeSlotTime(s string) (string, error) {
	m := slotTimePattern.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("slot time %q must look like 10:00 or 10:00 AM", s)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])

	if suffix := strings.ToUpper(m[3]); suffix != "" {
		if hour < 1 || hour > 12 {
			return "", fmt.Errorf("slot time %q has an invalid hour", s)
		}
		hour %= 12
		if suffix == "PM" {
			hour += 12
		}
	} else if hour > 23 {
		return "", fmt.Errorf("slot time %q has an invalid hour", s)
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

// ValidSlotTime reports whether s looks like "10:00", "9:30" or "10:30 AM".
func ValidSlotTime(s string) bool {
	_, err := NormalizeSlotTime(s)
	return err == nil
}
