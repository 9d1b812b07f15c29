package domain

import (
	"github.com/medibook/booking-slots-service/internal/core/json_types"
)

// TimeSlot - один бронируемый интервал внутри рабочего окна.
// Слоты не персистятся, генерируются заново на каждый запрос.
type TimeSlot struct {
	StartTime json_types.TimeOfDay `json:"startTime"`
	EndTime   json_types.TimeOfDay `json:"endTime"`
	Available bool                 `json:"available"`
}

// DaySlots - слоты одного календарного дня, в хронологическом порядке.
type DaySlots struct {
	Date  json_types.Date `json:"date"`
	Slots []TimeSlot      `json:"slots"`
}
