package model

import "time"

// ISOFormat is the UTC timestamp layout used for every *ISO field
const ISOFormat = "2006-01-02T15:04:05.000Z07:00"

// FormatISO renders t as a UTC timestamp with millisecond precision
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOFormat)
}

// DateRange is an inclusive span of local calendar days
type DateRange struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// LocalDayRange represents one calendar day in local time
type LocalDayRange struct {
	Date  string    `json:"date"` // YYYY-MM-DD
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// LocalHourRange represents one hour-of-day slice within a single calendar day
type LocalHourRange struct {
	Date  string    `json:"date"`
	Hour  int       `json:"hour"` // 0..23
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DailySteps represents the step total of one local day
type DailySteps struct {
	Date     string `json:"date"`
	Steps    int    `json:"steps"`
	StartISO string `json:"start_iso"`
	EndISO   string `json:"end_iso"`
}

// HourlySteps represents the step total of one local hour
type HourlySteps struct {
	Date     string `json:"date"`
	Hour     int    `json:"hour"`
	Steps    int    `json:"steps"`
	StartISO string `json:"start_iso"`
	EndISO   string `json:"end_iso"`
}

// DailyActivitySummary represents active calories (kcal) and distance (meters) of one local day
type DailyActivitySummary struct {
	Date                 string  `json:"date"`
	ActiveCaloriesBurned float64 `json:"active_calories_burned"`
	Distance             float64 `json:"distance"`
	StartISO             string  `json:"start_iso"`
	EndISO               string  `json:"end_iso"`
}

// HourlyActivitySummary represents active calories and distance of one local hour
type HourlyActivitySummary struct {
	Date                 string  `json:"date"`
	Hour                 int     `json:"hour"`
	ActiveCaloriesBurned float64 `json:"active_calories_burned"`
	Distance             float64 `json:"distance"`
	StartISO             string  `json:"start_iso"`
	EndISO               string  `json:"end_iso"`
}

// SumDailySteps returns the step total across days
func SumDailySteps(days []DailySteps) int {
	total := 0
	for _, day := range days {
		total += day.Steps
	}
	return total
}

// SumHourlySteps returns the step total across hours
func SumHourlySteps(hours []HourlySteps) int {
	total := 0
	for _, hour := range hours {
		total += hour.Steps
	}
	return total
}

// SumActiveCalories returns the active calorie total across days
func SumActiveCalories(days []DailyActivitySummary) float64 {
	var total float64
	for _, day := range days {
		total += day.ActiveCaloriesBurned
	}
	return total
}

// SumDistance returns the distance total across days
func SumDistance(days []DailyActivitySummary) float64 {
	var total float64
	for _, day := range days {
		total += day.Distance
	}
	return total
}
