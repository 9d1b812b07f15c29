package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/medibook/booking-slots-service/internal/core/json_types"
)

type DayOfWeek string

const (
	DayOfWeekSun DayOfWeek = "sun"
	DayOfWeekMon DayOfWeek = "mon"
	DayOfWeekTue DayOfWeek = "tue"
	DayOfWeekWed DayOfWeek = "wed"
	DayOfWeekThu DayOfWeek = "thu"
	DayOfWeekFri DayOfWeek = "fri"
	DayOfWeekSat DayOfWeek = "sat"
)

var DayOfWeekMap = map[time.Weekday]DayOfWeek{
	time.Sunday:    DayOfWeekSun,
	time.Monday:    DayOfWeekMon,
	time.Tuesday:   DayOfWeekTue,
	time.Wednesday: DayOfWeekWed,
	time.Thursday:  DayOfWeekThu,
	time.Friday:    DayOfWeekFri,
	time.Saturday:  DayOfWeekSat,
}

// WeeklyScheduleEntry - рабочее окно врача для одного дня недели.
// Время задано как время суток без даты и таймзоны (локальное время врача).
type WeeklyScheduleEntry struct {
	ID        uuid.UUID            `json:"id"`
	DoctorID  uuid.UUID            `json:"doctorId"`
	DayOfWeek DayOfWeek            `json:"dayOfWeek"`
	StartTime json_types.TimeOfDay `json:"startTime"`
	EndTime   json_types.TimeOfDay `json:"endTime"`
	IsActive  bool                 `json:"isActive"`
}

// TimeOffInterval - период недоступности врача, даты включительно.
type TimeOffInterval struct {
	ID        uuid.UUID       `json:"id"`
	DoctorID  uuid.UUID       `json:"doctorId"`
	StartDate json_types.Date `json:"startDate"`
	EndDate   json_types.Date `json:"endDate"`
	Reason    string          `json:"reason,omitempty"`
}

// Covers проверяет, попадает ли дата в период недоступности
func (t TimeOffInterval) Covers(date json_types.Date) bool {
	return !date.Before(t.StartDate) && !date.After(t.EndDate)
}

type Doctor struct {
	ID                  uuid.UUID `json:"id"`
	FullName            string    `json:"fullName"`
	Specialty           string    `json:"specialty"`
	SlotDurationMinutes int       `json:"slotDurationMinutes"`
}
