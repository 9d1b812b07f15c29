package json_types

import (
	"encoding/json"
	"fmt"
)

// TimeOfDay - время суток в минутах с полуночи.
// Вся арифметика границ слотов делается в целых минутах,
// чтобы исключить плавающую точку и дрейф таймзон.
type TimeOfDay int

const MinutesPerDay TimeOfDay = 24 * 60

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay парсит строку в формате HH:MM
func ParseTimeOfDay(str string) (TimeOfDay, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(str, "%d:%d", &hour, &minute); err != nil {
		return 0, fmt.Errorf("failed to parse time of day %q: %v", str, err)
	}
	if hour < 0 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time of day %q is out of range", str)
	}
	t := NewTimeOfDay(hour, minute)
	if t > MinutesPerDay {
		return 0, fmt.Errorf("time of day %q is out of range", str)
	}
	return t, nil
}

func (t TimeOfDay) Hour() int {
	return int(t) / 60
}

func (t TimeOfDay) Minute() int {
	return int(t) % 60
}

// AddMinutes возвращает новое время, сдвинутое на minutes минут
func (t TimeOfDay) AddMinutes(minutes int) TimeOfDay {
	return t + TimeOfDay(minutes)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	// Убираем кавычки вокруг строки
	if len(data) < 2 {
		return fmt.Errorf("failed to parse time of day: %q", string(data))
	}
	str := string(data[1 : len(data)-1])

	parsed, err := ParseTimeOfDay(str)
	if err != nil {
		return err
	}

	*t = parsed
	return nil
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}
