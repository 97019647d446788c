package calendar

import (
	"fmt"
	"strings"
	"time"
)

// WeekdayNames are the column headers of the grid, starting on Sunday.
var WeekdayNames = [7]string{"일", "월", "화", "수", "목", "금", "토"}

type WeekDay struct {
	Date  string `json:"date"`
	Label string `json:"label"`
	Today bool   `json:"today"`
}

type Week struct {
	Title string    `json:"title"`
	Days  []WeekDay `json:"days"`
}

// WeekStart returns the Sunday starting the week that contains day.
func WeekStart(day time.Time) time.Time {
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// WeekOf builds the Sunday to Saturday week containing day. today marks the current date.
func WeekOf(day time.Time, today time.Time) Week {
	start := WeekStart(day)
	todayDate := today.Format(DateLayout)

	days := make([]WeekDay, 0, len(WeekdayNames))
	for i, name := range WeekdayNames {
		d := start.AddDate(0, 0, i)
		days = append(days, WeekDay{
			Date:  d.Format(DateLayout),
			Label: fmt.Sprintf("%s(%s)", name, d.Format("01/02")),
			Today: d.Format(DateLayout) == todayDate,
		})
	}
	return Week{Title: weekTitle(start), Days: days}
}

// weekTitle names a week after its Wednesday, so a week spanning two months belongs to the month
// holding most of its days: "2024년 05월 2주차".
func weekTitle(start time.Time) string {
	mid := start.AddDate(0, 0, 3)
	firstOfMonth := time.Date(mid.Year(), mid.Month(), 1, 0, 0, 0, 0, mid.Location())
	weekNum := (mid.Day() + int(firstOfMonth.Weekday()) + 6) / 7
	return fmt.Sprintf("%d년 %02d월 %d주차", mid.Year(), int(mid.Month()), weekNum)
}

// Filter returns the buckets whose slot keys fall on one of the week's days.
func (w Week) Filter(board Board) Board {
	filtered := make(Board)
	for key, bucket := range board {
		for _, d := range w.Days {
			if strings.HasPrefix(key, d.Date+slotKeySeparator) {
				filtered[key] = bucket
				break
			}
		}
	}
	return filtered
}
