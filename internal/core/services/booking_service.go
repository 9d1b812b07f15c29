package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/medibook/booking-slots-service/internal/config"
	"github.com/medibook/booking-slots-service/internal/core/domain"
	"github.com/medibook/booking-slots-service/internal/core/json_types"
	"github.com/medibook/booking-slots-service/internal/core/ports/in"
	"github.com/medibook/booking-slots-service/internal/core/ports/out"
)

// Повторяем только идемпотентные чтения, запись бронирования - никогда
const readRetryAttempts = 2

type BookingService struct {
	scheduleStore out.ScheduleStorePort
	bookingLedger out.BookingLedgerPort
	cachePort     out.CachePort
	eventsPort    out.EventPublisherPort
	logger        out.LoggerPort
	cfg           *config.Config
}

func NewBookingService(
	scheduleStore out.ScheduleStorePort,
	bookingLedger out.BookingLedgerPort,
	cachePort out.CachePort,
	eventsPort out.EventPublisherPort,
	logger out.LoggerPort,
	cfg *config.Config,
) *BookingService {
	return &BookingService{
		scheduleStore: scheduleStore,
		bookingLedger: bookingLedger,
		cachePort:     cachePort,
		eventsPort:    eventsPort,
		logger:        logger.WithModule("BookingService"),
		cfg:           cfg,
	}
}

func (s *BookingService) GetAvailability(ctx context.Context, doctorID uuid.UUID, startDate, endDate json_types.Date) ([]domain.DaySlots, error) {
	s.logger.Info("availability.get.started", out.LogFields{
		"doctorId":  doctorID,
		"startDate": startDate.String(),
		"endDate":   endDate.String(),
	})

	if endDate.Before(startDate) {
		return nil, domain.ErrInvalidDateRange
	}

	// Ограничиваем горизонт запроса, чтобы не раздувать ответ
	if startDate.DaysUntil(endDate) >= s.cfg.Booking.MaxRangeDays {
		s.logger.Warn("availability.get.range_too_large", out.LogFields{
			"doctorId":     doctorID,
			"maxRangeDays": s.cfg.Booking.MaxRangeDays,
		})
		return nil, domain.ErrInvalidDateRange
	}

	template, err := s.getTemplate(ctx, doctorID, startDate, endDate)
	if err != nil {
		return nil, err
	}

	appointments, err := s.bookingLedger.GetAppointments(ctx, doctorID, startDate, endDate)
	if err != nil {
		s.logger.Error("availability.get.appointments_fetch_failed", out.LogFields{
			"doctorId": doctorID,
			"error":    err.Error(),
		})
		return nil, fmt.Errorf("availability.get.appointments_fetch_failed: %w", err)
	}

	return applyAppointments(template, appointments), nil
}

func (s *BookingService) GetBatchAvailability(ctx context.Context, doctorIDs []uuid.UUID, startDate, endDate json_types.Date) (map[uuid.UUID][]domain.DaySlots, error) {
	result := make(map[uuid.UUID][]domain.DaySlots)
	var mu sync.Mutex
	var wg sync.WaitGroup
	errCh := make(chan error, len(doctorIDs))

	for _, id := range doctorIDs {
		wg.Add(1)
		go func(doctorID uuid.UUID) {
			defer wg.Done()

			days, err := s.GetAvailability(ctx, doctorID, startDate, endDate)
			if err != nil {
				errCh <- err
				return
			}

			mu.Lock()
			result[doctorID] = days
			mu.Unlock()
		}(id)
	}

	wg.Wait()
	close(errCh)

	// Проверяем ошибки
	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

// getTemplate возвращает чистый шаблон доступности: из кэша или генератора.
// Шаблон не содержит занятости, поэтому записи на прием его не инвалидируют.
func (s *BookingService) getTemplate(ctx context.Context, doctorID uuid.UUID, startDate, endDate json_types.Date) ([]domain.DaySlots, error) {
	if s.cachePort != nil && s.cfg.Cache.Enabled {
		if days, exists := s.cachePort.GetTemplate(ctx, doctorID, startDate, endDate); exists {
			s.logger.Debug("availability.template.cache.hit", out.LogFields{
				"doctorId":  doctorID,
				"daysCount": len(days),
			})
			return days, nil
		}
	}

	s.logger.Debug("availability.template.cache.miss", out.LogFields{
		"doctorId": doctorID,
	})

	doctor, err := s.getDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	var weeklySchedule []domain.WeeklyScheduleEntry
	err = s.withReadRetry(ctx, func() error {
		var err error
		weeklySchedule, err = s.scheduleStore.GetWeeklySchedule(ctx, doctorID)
		return err
	})
	if err != nil {
		s.logger.Error("availability.template.schedule_fetch_failed", out.LogFields{
			"doctorId": doctorID,
			"error":    err.Error(),
		})
		return nil, fmt.Errorf("availability.template.schedule_fetch_failed: %w", err)
	}

	var timeOffIntervals []domain.TimeOffInterval
	err = s.withReadRetry(ctx, func() error {
		var err error
		timeOffIntervals, err = s.scheduleStore.GetTimeOffIntervals(ctx, doctorID, startDate, endDate)
		return err
	})
	if err != nil {
		s.logger.Error("availability.template.time_off_fetch_failed", out.LogFields{
			"doctorId": doctorID,
			"error":    err.Error(),
		})
		return nil, fmt.Errorf("availability.template.time_off_fetch_failed: %w", err)
	}

	days, err := GenerateSlots(startDate, endDate, weeklySchedule, timeOffIntervals, doctor.SlotDurationMinutes)
	if err != nil {
		return nil, err
	}

	if s.cachePort != nil && s.cfg.Cache.Enabled {
		s.cachePort.StoreTemplate(ctx, doctorID, startDate, endDate, days)
	}

	return days, nil
}

func (s *BookingService) getDoctor(ctx context.Context, doctorID uuid.UUID) (*domain.Doctor, error) {
	var doctor *domain.Doctor
	err := s.withReadRetry(ctx, func() error {
		var err error
		doctor, err = s.scheduleStore.GetDoctor(ctx, doctorID)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrDoctorNotFound) {
			return nil, err
		}
		s.logger.Error("availability.doctor.fetch_failed", out.LogFields{
			"doctorId": doctorID,
			"error":    err.Error(),
		})
		return nil, fmt.Errorf("availability.doctor.fetch_failed: %w", err)
	}
	return doctor, nil
}

// applyAppointments накладывает занятость из журнала на шаблон.
// Занятый слот остается в ответе с available=false, а не исчезает:
// клиенту нужно показывать полностью занятые дни.
// Шаблон не мутируется - он может лежать в кэше.
func applyAppointments(template []domain.DaySlots, appointments []domain.Appointment) []domain.DaySlots {
	result := make([]domain.DaySlots, 0, len(template))

	for _, day := range template {
		slots := make([]domain.TimeSlot, len(day.Slots))
		copy(slots, day.Slots)

		for i := range slots {
			for _, appointment := range appointments {
				if appointment.Occupies(day.Date, slots[i].StartTime) {
					slots[i].Available = false
					break
				}
			}
		}

		result = append(result, domain.DaySlots{Date: day.Date, Slots: slots})
	}

	return result
}

func (s *BookingService) BookSlot(ctx context.Context, cmd in.BookSlotCommand) (*domain.Appointment, error) {
	s.logger.Info("booking.create.started", out.LogFields{
		"doctorId":  cmd.DoctorID,
		"patientId": cmd.PatientID,
		"date":      cmd.Date.String(),
		"startTime": cmd.StartTime.String(),
	})

	// Слот должен существовать в шаблоне: нельзя записаться на произвольное
	// время вне рабочего окна или в отпуск врача
	template, err := s.getTemplate(ctx, cmd.DoctorID, cmd.Date, cmd.Date)
	if err != nil {
		return nil, err
	}

	slot, ok := findTemplateSlot(template, cmd.Date, cmd.StartTime)
	if !ok {
		s.logger.Warn("booking.create.slot_not_in_template", out.LogFields{
			"doctorId":  cmd.DoctorID,
			"date":      cmd.Date.String(),
			"startTime": cmd.StartTime.String(),
		})
		return nil, domain.ErrSlotUnavailable
	}

	now := time.Now()
	appointment := &domain.Appointment{
		ID:        uuid.New(),
		DoctorID:  cmd.DoctorID,
		PatientID: cmd.PatientID,
		Date:      cmd.Date,
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime,
		Status:    domain.AppointmentStatusScheduled,
		Reason:    cmd.Reason,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Гонку двух пациентов за один слот разрешает уникальный индекс в журнале.
	// Нарушение уникальности - нормальный исход, не сбой; запись не ретраится.
	if err := s.bookingLedger.CreateAppointment(ctx, appointment); err != nil {
		if errors.Is(err, domain.ErrSlotUnavailable) {
			s.logger.Info("booking.create.conflict", out.LogFields{
				"doctorId":  cmd.DoctorID,
				"date":      cmd.Date.String(),
				"startTime": cmd.StartTime.String(),
			})
			return nil, domain.ErrSlotUnavailable
		}
		s.logger.Error("booking.create.failed", out.LogFields{
			"doctorId": cmd.DoctorID,
			"error":    err.Error(),
		})
		return nil, fmt.Errorf("booking.create.failed: %w", err)
	}

	s.publishCreated(ctx, appointment)

	s.logger.Info("booking.create.succeeded", out.LogFields{
		"appointmentId": appointment.ID,
		"doctorId":      cmd.DoctorID,
	})

	return appointment, nil
}

func findTemplateSlot(template []domain.DaySlots, date json_types.Date, startTime json_types.TimeOfDay) (domain.TimeSlot, bool) {
	for _, day := range template {
		if !day.Date.Equal(date) {
			continue
		}
		for _, slot := range day.Slots {
			if slot.StartTime == startTime {
				return slot, true
			}
		}
	}
	return domain.TimeSlot{}, false
}

func (s *BookingService) GetAppointment(ctx context.Context, appointmentID uuid.UUID) (*domain.Appointment, error) {
	appointment, err := s.bookingLedger.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	return appointment, nil
}

func (s *BookingService) ConfirmAppointment(ctx context.Context, appointmentID uuid.UUID) (*domain.Appointment, error) {
	return s.transitionAppointment(ctx, appointmentID, domain.AppointmentStatusConfirmed)
}

func (s *BookingService) CompleteAppointment(ctx context.Context, appointmentID uuid.UUID) (*domain.Appointment, error) {
	return s.transitionAppointment(ctx, appointmentID, domain.AppointmentStatusCompleted)
}

func (s *BookingService) CancelAppointment(ctx context.Context, appointmentID uuid.UUID) (*domain.Appointment, error) {
	return s.transitionAppointment(ctx, appointmentID, domain.AppointmentStatusCancelled)
}

func (s *BookingService) transitionAppointment(ctx context.Context, appointmentID uuid.UUID, status domain.AppointmentStatus) (*domain.Appointment, error) {
	appointment, err := s.bookingLedger.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if !appointment.Status.CanTransitionTo(status) {
		s.logger.Warn("booking.transition.rejected", out.LogFields{
			"appointmentId": appointmentID,
			"from":          appointment.Status,
			"to":            status,
		})
		return nil, domain.ErrInvalidStatusTransition
	}

	if err := s.bookingLedger.UpdateAppointmentStatus(ctx, appointmentID, status); err != nil {
		s.logger.Error("booking.transition.failed", out.LogFields{
			"appointmentId": appointmentID,
			"to":            status,
			"error":         err.Error(),
		})
		return nil, fmt.Errorf("booking.transition.failed: %w", err)
	}

	appointment.Status = status
	appointment.UpdatedAt = time.Now()

	s.publishStatusChanged(ctx, appointment)

	s.logger.Info("booking.transition.succeeded", out.LogFields{
		"appointmentId": appointmentID,
		"to":            status,
	})

	return appointment, nil
}

// Публикация событий не должна ронять бронирование: запись уже в журнале,
// потеря события - деградация уведомлений, не потеря брони
func (s *BookingService) publishCreated(ctx context.Context, appointment *domain.Appointment) {
	if s.eventsPort == nil {
		return
	}
	if err := s.eventsPort.PublishAppointmentCreated(ctx, appointment); err != nil {
		s.logger.Error("booking.events.publish_failed", out.LogFields{
			"appointmentId": appointment.ID,
			"error":         err.Error(),
		})
	}
}

func (s *BookingService) publishStatusChanged(ctx context.Context, appointment *domain.Appointment) {
	if s.eventsPort == nil {
		return
	}
	if err := s.eventsPort.PublishAppointmentStatusChanged(ctx, appointment); err != nil {
		s.logger.Error("booking.events.publish_failed", out.LogFields{
			"appointmentId": appointment.ID,
			"error":         err.Error(),
		})
	}
}

// withReadRetry повторяет идемпотентное чтение при транзиентной ошибке.
// Доменные ошибки не ретраятся - повтор даст тот же результат.
func (s *BookingService) withReadRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt <= readRetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
			}
		}

		err = fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrDoctorNotFound) {
			return err
		}
	}
	return err
}
