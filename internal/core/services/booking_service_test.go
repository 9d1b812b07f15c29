package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medibook/booking-slots-service/internal/config"
	"github.com/medibook/booking-slots-service/internal/core/domain"
	"github.com/medibook/booking-slots-service/internal/core/json_types"
	"github.com/medibook/booking-slots-service/internal/core/ports/in"
	"github.com/medibook/booking-slots-service/internal/core/ports/out"
)

type nopLogger struct{}

func (l nopLogger) Debug(event string, fields out.LogFields) {}
func (l nopLogger) Info(event string, fields out.LogFields)  {}
func (l nopLogger) Warn(event string, fields out.LogFields)  {}
func (l nopLogger) Error(event string, fields out.LogFields) {}

func (l nopLogger) WithFields(fields out.LogFields) out.LoggerPort { return l }
func (l nopLogger) WithModule(module string) out.LoggerPort        { return l }

type fakeScheduleStore struct {
	doctor       *domain.Doctor
	schedule     []domain.WeeklyScheduleEntry
	timeOff      []domain.TimeOffInterval
	doctorErrs   []error
	scheduleErrs []error
	doctorCalls  int
}

func (f *fakeScheduleStore) GetDoctor(ctx context.Context, doctorID uuid.UUID) (*domain.Doctor, error) {
	f.doctorCalls++
	if len(f.doctorErrs) > 0 {
		err := f.doctorErrs[0]
		f.doctorErrs = f.doctorErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if f.doctor == nil || f.doctor.ID != doctorID {
		return nil, domain.ErrDoctorNotFound
	}
	return f.doctor, nil
}

func (f *fakeScheduleStore) GetWeeklySchedule(ctx context.Context, doctorID uuid.UUID) ([]domain.WeeklyScheduleEntry, error) {
	if len(f.scheduleErrs) > 0 {
		err := f.scheduleErrs[0]
		f.scheduleErrs = f.scheduleErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.schedule, nil
}

func (f *fakeScheduleStore) GetTimeOffIntervals(ctx context.Context, doctorID uuid.UUID, startDate, endDate json_types.Date) ([]domain.TimeOffInterval, error) {
	return f.timeOff, nil
}

type fakeBookingLedger struct {
	appointments []domain.Appointment
	createErr    error
	created      []*domain.Appointment
	statusByID   map[uuid.UUID]domain.AppointmentStatus
}

func (f *fakeBookingLedger) GetAppointments(ctx context.Context, doctorID uuid.UUID, startDate, endDate json_types.Date) ([]domain.Appointment, error) {
	return f.appointments, nil
}

func (f *fakeBookingLedger) GetAppointmentByID(ctx context.Context, appointmentID uuid.UUID) (*domain.Appointment, error) {
	for i := range f.appointments {
		if f.appointments[i].ID == appointmentID {
			appointment := f.appointments[i]
			return &appointment, nil
		}
	}
	return nil, domain.ErrAppointmentNotFound
}

func (f *fakeBookingLedger) CreateAppointment(ctx context.Context, appointment *domain.Appointment) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, appointment)
	f.appointments = append(f.appointments, *appointment)
	return nil
}

func (f *fakeBookingLedger) UpdateAppointmentStatus(ctx context.Context, appointmentID uuid.UUID, status domain.AppointmentStatus) error {
	for i := range f.appointments {
		if f.appointments[i].ID == appointmentID {
			f.appointments[i].Status = status
			if f.statusByID == nil {
				f.statusByID = make(map[uuid.UUID]domain.AppointmentStatus)
			}
			f.statusByID[appointmentID] = status
			return nil
		}
	}
	return domain.ErrAppointmentNotFound
}

type fakeEventPublisher struct {
	createdEvents []uuid.UUID
	statusEvents  []domain.AppointmentStatus
	publishErr    error
}

func (f *fakeEventPublisher) PublishAppointmentCreated(ctx context.Context, appointment *domain.Appointment) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.createdEvents = append(f.createdEvents, appointment.ID)
	return nil
}

func (f *fakeEventPublisher) PublishAppointmentStatusChanged(ctx context.Context, appointment *domain.Appointment) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.statusEvents = append(f.statusEvents, appointment.Status)
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Booking.MaxRangeDays = 60
	return cfg
}

func newTestService(store *fakeScheduleStore, ledger *fakeBookingLedger, events *fakeEventPublisher) *BookingService {
	return NewBookingService(store, ledger, nil, events, nopLogger{}, testConfig())
}

func testDoctor() *domain.Doctor {
	return &domain.Doctor{
		ID:                  uuid.New(),
		FullName:            "Dr. Petrova",
		Specialty:           "cardiology",
		SlotDurationMinutes: 60,
	}
}

func TestGetAvailability_MarksBookedSlotUnavailable(t *testing.T) {
	doctor := testDoctor()
	monday := json_types.NewDate(2026, time.September, 7)

	store := &fakeScheduleStore{
		doctor: doctor,
		schedule: []domain.WeeklyScheduleEntry{
			{DayOfWeek: domain.DayOfWeekMon, StartTime: json_types.NewTimeOfDay(9, 0), EndTime: json_types.NewTimeOfDay(12, 0), IsActive: true},
		},
	}
	ledger := &fakeBookingLedger{
		appointments: []domain.Appointment{
			{
				ID:        uuid.New(),
				DoctorID:  doctor.ID,
				Date:      monday,
				StartTime: json_types.NewTimeOfDay(10, 0),
				EndTime:   json_types.NewTimeOfDay(11, 0),
				Status:    domain.AppointmentStatusScheduled,
			},
		},
	}

	svc := newTestService(store, ledger, &fakeEventPublisher{})

	days, err := svc.GetAvailability(context.Background(), doctor.ID, monday, monday)
	require.NoError(t, err)
	require.Len(t, days, 1)
	require.Len(t, days[0].Slots, 3)

	// Занятый слот виден, но недоступен - не исчезает из ответа
	assert.True(t, days[0].Slots[0].Available)
	assert.False(t, days[0].Slots[1].Available)
	assert.True(t, days[0].Slots[2].Available)
}

func TestGetAvailability_CancelledAppointmentFreesSlot(t *testing.T) {
	doctor := testDoctor()
	monday := json_types.NewDate(2026, time.September, 7)

	store := &fakeScheduleStore{
		doctor: doctor,
		schedule: []domain.WeeklyScheduleEntry{
			{DayOfWeek: domain.DayOfWeekMon, StartTime: json_types.NewTimeOfDay(9, 0), EndTime: json_types.NewTimeOfDay(11, 0), IsActive: true},
		},
	}
	ledger := &fakeBookingLedger{
		appointments: []domain.Appointment{
			{
				ID:        uuid.New(),
				DoctorID:  doctor.ID,
				Date:      monday,
				StartTime: json_types.NewTimeOfDay(9, 0),
				EndTime:   json_types.NewTimeOfDay(10, 0),
				Status:    domain.AppointmentStatusCancelled,
			},
		},
	}

	svc := newTestService(store, ledger, &fakeEventPublisher{})

	days, err := svc.GetAvailability(context.Background(), doctor.ID, monday, monday)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.True(t, days[0].Slots[0].Available)
}

func TestGetAvailability_UnknownDoctor(t *testing.T) {
	store := &fakeScheduleStore{}
	svc := newTestService(store, &fakeBookingLedger{}, &fakeEventPublisher{})

	monday := json_types.NewDate(2026, time.September, 7)
	_, err := svc.GetAvailability(context.Background(), uuid.New(), monday, monday)

	assert.ErrorIs(t, err, domain.ErrDoctorNotFound)
	// Доменная ошибка не ретраится
	assert.Equal(t, 1, store.doctorCalls)
}

func TestGetAvailability_InvalidRange(t *testing.T) {
	doctor := testDoctor()
	store := &fakeScheduleStore{doctor: doctor}
	svc := newTestService(store, &fakeBookingLedger{}, &fakeEventPublisher{})

	monday := json_types.NewDate(2026, time.September, 7)

	_, err := svc.GetAvailability(context.Background(), doctor.ID, monday, monday.AddDays(-1))
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)

	// Горизонт больше лимита тоже отклоняется до любых запросов
	_, err = svc.GetAvailability(context.Background(), doctor.ID, monday, monday.AddDays(90))
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
	assert.Equal(t, 0, store.doctorCalls)
}

func TestGetAvailability_RetriesTransientScheduleReadErrors(t *testing.T) {
	doctor := testDoctor()
	monday := json_types.NewDate(2026, time.September, 7)

	store := &fakeScheduleStore{
		doctor: doctor,
		schedule: []domain.WeeklyScheduleEntry{
			{DayOfWeek: domain.DayOfWeekMon, StartTime: json_types.NewTimeOfDay(9, 0), EndTime: json_types.NewTimeOfDay(10, 0), IsActive: true},
		},
		scheduleErrs: []error{errors.New("connection reset"), errors.New("connection reset")},
	}

	svc := newTestService(store, &fakeBookingLedger{}, &fakeEventPublisher{})

	days, err := svc.GetAvailability(context.Background(), doctor.ID, monday, monday)
	require.NoError(t, err)
	require.Len(t, days, 1)
}

func TestBookSlot_Success(t *testing.T) {
	doctor := testDoctor()
	monday := json_types.NewDate(2026, time.September, 7)

	store := &fakeScheduleStore{
		doctor: doctor,
		schedule: []domain.WeeklyScheduleEntry{
			{DayOfWeek: domain.DayOfWeekMon, StartTime: json_types.NewTimeOfDay(9, 0), EndTime: json_types.NewTimeOfDay(12, 0), IsActive: true},
		},
	}
	ledger := &fakeBookingLedger{}
	events := &fakeEventPublisher{}

	svc := newTestService(store, ledger, events)

	patientID := uuid.New()
	appointment, err := svc.BookSlot(context.Background(), in.BookSlotCommand{
		DoctorID:  doctor.ID,
		PatientID: patientID,
		Date:      monday,
		StartTime: json_types.NewTimeOfDay(10, 0),
		Reason:    "checkup",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.AppointmentStatusScheduled, appointment.Status)
	assert.Equal(t, doctor.ID, appointment.DoctorID)
	assert.Equal(t, patientID, appointment.PatientID)
	// Конец слота берется из шаблона, не из запроса
	assert.Equal(t, "11:00", appointment.EndTime.String())

	require.Len(t, ledger.created, 1)
	assert.Equal(t, []uuid.UUID{appointment.ID}, events.createdEvents)
}

func TestBookSlot_LostRace(t *testing.T) {
	doctor := testDoctor()
	monday := json_types.NewDate(2026, time.September, 7)

	store := &fakeScheduleStore{
		doctor: doctor,
		schedule: []domain.WeeklyScheduleEntry{
			{DayOfWeek: domain.DayOfWeekMon, StartTime: json_types.NewTimeOfDay(9, 0), EndTime: json_types.NewTimeOfDay(12, 0), IsActive: true},
		},
	}
	ledger := &fakeBookingLedger{createErr: domain.ErrSlotUnavailable}
	events := &fakeEventPublisher{}

	svc := newTestService(store, ledger, events)

	_, err := svc.BookSlot(context.Background(), in.BookSlotCommand{
		DoctorID:  doctor.ID,
		PatientID: uuid.New(),
		Date:      monday,
		StartTime: json_types.NewTimeOfDay(10, 0),
	})

	assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
	// Проигранная гонка не публикует событий
	assert.Empty(t, events.createdEvents)
}

func TestBookSlot_OutsideTemplate(t *testing.T) {
	doctor := testDoctor()
	monday := json_types.NewDate(2026, time.September, 7)

	store := &fakeScheduleStore{
		doctor: doctor,
		schedule: []domain.WeeklyScheduleEntry{
			{DayOfWeek: domain.DayOfWeekMon, StartTime: json_types.NewTimeOfDay(9, 0), EndTime: json_types.NewTimeOfDay(12, 0), IsActive: true},
		},
	}
	ledger := &fakeBookingLedger{}

	svc := newTestService(store, ledger, &fakeEventPublisher{})

	// 10:30 не является началом часового слота из шаблона 9-12
	_, err := svc.BookSlot(context.Background(), in.BookSlotCommand{
		DoctorID:  doctor.ID,
		PatientID: uuid.New(),
		Date:      monday,
		StartTime: json_types.NewTimeOfDay(10, 30),
	})

	assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
	assert.Empty(t, ledger.created)
}

func TestBookSlot_DayOffRejected(t *testing.T) {
	doctor := testDoctor()
	monday := json_types.NewDate(2026, time.September, 7)

	store := &fakeScheduleStore{
		doctor: doctor,
		schedule: []domain.WeeklyScheduleEntry{
			{DayOfWeek: domain.DayOfWeekMon, StartTime: json_types.NewTimeOfDay(9, 0), EndTime: json_types.NewTimeOfDay(12, 0), IsActive: true},
		},
		timeOff: []domain.TimeOffInterval{
			{StartDate: monday, EndDate: monday},
		},
	}

	svc := newTestService(store, &fakeBookingLedger{}, &fakeEventPublisher{})

	_, err := svc.BookSlot(context.Background(), in.BookSlotCommand{
		DoctorID:  doctor.ID,
		PatientID: uuid.New(),
		Date:      monday,
		StartTime: json_types.NewTimeOfDay(9, 0),
	})

	assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
}

func TestBookSlot_PublishFailureDoesNotFailBooking(t *testing.T) {
	doctor := testDoctor()
	monday := json_types.NewDate(2026, time.September, 7)

	store := &fakeScheduleStore{
		doctor: doctor,
		schedule: []domain.WeeklyScheduleEntry{
			{DayOfWeek: domain.DayOfWeekMon, StartTime: json_types.NewTimeOfDay(9, 0), EndTime: json_types.NewTimeOfDay(12, 0), IsActive: true},
		},
	}
	events := &fakeEventPublisher{publishErr: errors.New("broker down")}

	svc := newTestService(store, &fakeBookingLedger{}, events)

	appointment, err := svc.BookSlot(context.Background(), in.BookSlotCommand{
		DoctorID:  doctor.ID,
		PatientID: uuid.New(),
		Date:      monday,
		StartTime: json_types.NewTimeOfDay(9, 0),
	})

	// Бронь уже в журнале, потеря события - не ошибка бронирования
	require.NoError(t, err)
	assert.NotNil(t, appointment)
}

func TestAppointmentTransitions(t *testing.T) {
	doctor := testDoctor()
	monday := json_types.NewDate(2026, time.September, 7)

	appointmentID := uuid.New()
	ledger := &fakeBookingLedger{
		appointments: []domain.Appointment{
			{
				ID:        appointmentID,
				DoctorID:  doctor.ID,
				Date:      monday,
				StartTime: json_types.NewTimeOfDay(9, 0),
				Status:    domain.AppointmentStatusScheduled,
			},
		},
	}
	events := &fakeEventPublisher{}
	svc := newTestService(&fakeScheduleStore{doctor: doctor}, ledger, events)

	ctx := context.Background()

	// scheduled -> completed запрещен, только через confirmed
	_, err := svc.CompleteAppointment(ctx, appointmentID)
	assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)

	appointment, err := svc.ConfirmAppointment(ctx, appointmentID)
	require.NoError(t, err)
	assert.Equal(t, domain.AppointmentStatusConfirmed, appointment.Status)

	appointment, err = svc.CompleteAppointment(ctx, appointmentID)
	require.NoError(t, err)
	assert.Equal(t, domain.AppointmentStatusCompleted, appointment.Status)

	// completed - терминальный статус
	_, err = svc.CancelAppointment(ctx, appointmentID)
	assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)

	assert.Equal(t, []domain.AppointmentStatus{
		domain.AppointmentStatusConfirmed,
		domain.AppointmentStatusCompleted,
	}, events.statusEvents)
}

func TestCancelAppointment_NotFound(t *testing.T) {
	svc := newTestService(&fakeScheduleStore{}, &fakeBookingLedger{}, &fakeEventPublisher{})

	_, err := svc.CancelAppointment(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrAppointmentNotFound)
}

func TestGetBatchAvailability(t *testing.T) {
	doctor := testDoctor()
	monday := json_types.NewDate(2026, time.September, 7)

	store := &fakeScheduleStore{
		doctor: doctor,
		schedule: []domain.WeeklyScheduleEntry{
			{DayOfWeek: domain.DayOfWeekMon, StartTime: json_types.NewTimeOfDay(9, 0), EndTime: json_types.NewTimeOfDay(11, 0), IsActive: true},
		},
	}

	svc := newTestService(store, &fakeBookingLedger{}, &fakeEventPublisher{})

	result, err := svc.GetBatchAvailability(context.Background(), []uuid.UUID{doctor.ID}, monday, monday)
	require.NoError(t, err)
	require.Contains(t, result, doctor.ID)
	require.Len(t, result[doctor.ID], 1)
	assert.Len(t, result[doctor.ID][0].Slots, 2)
}
