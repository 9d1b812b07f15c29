package services

import (
	"github.com/medibook/booking-slots-service/internal/core/domain"
	"github.com/medibook/booking-slots-service/internal/core/json_types"
)

// GenerateSlots - чистая функция генерации шаблона доступности.
// Для каждого дня диапазона (включительно) ищет активное рабочее окно
// по дню недели и нарезает его на слоты фиксированной длительности.
// Никакого I/O и скрытого состояния: одинаковый вход дает одинаковый выход.
//
// Дни без рабочего окна и дни внутри периодов недоступности в результат
// не попадают вообще (не пустым списком, а отсутствием записи).
func GenerateSlots(
	startDate, endDate json_types.Date,
	weeklySchedule []domain.WeeklyScheduleEntry,
	timeOffIntervals []domain.TimeOffInterval,
	slotDurationMinutes int,
) ([]domain.DaySlots, error) {
	// Валидация до начала итерации: при ошибке никакого частичного результата
	if slotDurationMinutes <= 0 {
		return nil, domain.ErrInvalidSlotDuration
	}
	if endDate.Before(startDate) {
		return nil, domain.ErrInvalidDateRange
	}

	result := make([]domain.DaySlots, 0)

	for day := startDate; !day.After(endDate); day = day.AddDays(1) {
		entry, ok := scheduleEntryForDay(weeklySchedule, day)
		if !ok {
			continue
		}

		// День в отпуске исключается целиком, даже если день недели рабочий
		if isDayOff(day, timeOffIntervals) {
			continue
		}

		slots := generateDaySlots(entry, slotDurationMinutes)
		if len(slots) == 0 {
			continue
		}

		result = append(result, domain.DaySlots{
			Date:  day,
			Slots: slots,
		})
	}

	return result, nil
}

// scheduleEntryForDay возвращает первое активное рабочее окно для дня недели
func scheduleEntryForDay(weeklySchedule []domain.WeeklyScheduleEntry, day json_types.Date) (domain.WeeklyScheduleEntry, bool) {
	weekday := domain.DayOfWeekMap[day.Weekday()]

	for _, entry := range weeklySchedule {
		if entry.IsActive && entry.DayOfWeek == weekday {
			return entry, true
		}
	}

	return domain.WeeklyScheduleEntry{}, false
}

// isDayOff проверяет, попадает ли день хотя бы в один период недоступности
func isDayOff(day json_types.Date, timeOffIntervals []domain.TimeOffInterval) bool {
	for _, interval := range timeOffIntervals {
		if interval.Covers(day) {
			return true
		}
	}
	return false
}

// generateDaySlots нарезает рабочее окно на слоты.
// Слот эмитится только если целиком помещается в окно: хвост короче
// длительности слота отбрасывается, частичные слоты не эмитятся.
// Окно с startTime >= endTime дает ноль слотов.
func generateDaySlots(entry domain.WeeklyScheduleEntry, slotDurationMinutes int) []domain.TimeSlot {
	slots := make([]domain.TimeSlot, 0)

	duration := json_types.TimeOfDay(slotDurationMinutes)
	for current := entry.StartTime; current+duration <= entry.EndTime; current += duration {
		slots = append(slots, domain.TimeSlot{
			StartTime: current,
			EndTime:   current + duration,
			// Шаблон не знает про занятость, наложение занятости - дело
			// оркестратора
			Available: true,
		})
	}

	return slots
}
