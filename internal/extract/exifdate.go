package extract

import (
	"fmt"
	"time"
)

var (
	monthsTR = []string{"", "Ocak", "Şubat", "Mart", "Nisan", "Mayıs", "Haziran",
		"Temmuz", "Ağustos", "Eylül", "Ekim", "Kasım", "Aralık"}
	daysTR = map[time.Weekday]string{
		time.Monday: "Pazartesi", time.Tuesday: "Salı", time.Wednesday: "Çarşamba",
		time.Thursday: "Perşembe", time.Friday: "Cuma", time.Saturday: "Cumartesi",
		time.Sunday: "Pazar",
	}
)

// formatDateHuman expands an EXIF timestamp into bilingual searchable text:
// day, month (Turkish and English), year, weekday, time with time-of-day
// words, and the season. Unparseable input is kept as-is.
func formatDateHuman(raw string) string {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006:01:02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return buildDateString(t)
		}
	}
	return "Date: " + raw
}

func buildDateString(t time.Time) string {
	var timeOfDay string
	switch h := t.Hour(); {
	case h >= 5 && h <= 11:
		timeOfDay = "morning, sabah"
	case h >= 12 && h <= 16:
		timeOfDay = "afternoon, öğleden sonra"
	case h >= 17 && h <= 20:
		timeOfDay = "evening, akşam"
	default:
		timeOfDay = "night, gece"
	}

	var season string
	switch m := int(t.Month()); {
	case m >= 3 && m <= 5:
		season = "spring, ilkbahar"
	case m >= 6 && m <= 8:
		season = "summer, yaz"
	case m >= 9 && m <= 11:
		season = "autumn, sonbahar"
	default:
		season = "winter, kış"
	}

	return fmt.Sprintf("%02d %s %s %d, %s %s, %s %s, %s",
		t.Day(), monthsTR[t.Month()], t.Month().String(), t.Year(),
		daysTR[t.Weekday()], t.Weekday().String(),
		t.Format("15:04"), timeOfDay,
		season)
}
