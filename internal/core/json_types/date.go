package json_types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Date - календарная дата без времени и без таймзоны.
// Расписание врача задано в его локальном времени,
// поэтому внутри генератора никаких конвертаций таймзон нет.
type Date struct {
	Date time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Date: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate парсит дату из строки в формате YYYY-MM-DD
func ParseDate(str string) (Date, error) {
	parsedDate, err := time.Parse("2006-01-02", str)
	if err != nil {
		return Date{}, fmt.Errorf("failed to parse date %q: %v", str, err)
	}
	return Date{Date: parsedDate}, nil
}

func (d Date) Weekday() time.Weekday {
	return d.Date.Weekday()
}

// AddDays возвращает новую дату, сдвинутую на days дней
func (d Date) AddDays(days int) Date {
	return Date{Date: d.Date.AddDate(0, 0, days)}
}

func (d Date) Before(other Date) bool {
	return d.Date.Before(other.Date)
}

func (d Date) After(other Date) bool {
	return d.Date.After(other.Date)
}

func (d Date) Equal(other Date) bool {
	return d.Date.Equal(other.Date)
}

// DaysUntil возвращает количество дней от d до other
func (d Date) DaysUntil(other Date) int {
	return int(other.Date.Sub(d.Date).Hours() / 24)
}

func (d Date) IsZero() bool {
	return d.Date.IsZero()
}

func (d Date) String() string {
	return d.Date.Format("2006-01-02")
}

func (d *Date) UnmarshalJSON(data []byte) error {
	// Убираем кавычки вокруг строки
	if len(data) < 2 {
		return fmt.Errorf("failed to parse date: %q", string(data))
	}
	str := string(data[1 : len(data)-1])

	parsedDate, err := ParseDate(str)
	if err != nil {
		return err
	}

	*d = parsedDate
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}
