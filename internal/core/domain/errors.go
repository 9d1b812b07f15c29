package domain

import "errors"

var (
	// Ошибки валидации входных данных генератора
	ErrInvalidDateRange    = errors.New("invalid date range: end date is before start date")
	ErrInvalidSlotDuration = errors.New("invalid slot duration: must be a positive number of minutes")

	// Врач не найден в хранилище расписаний.
	// Не путать с врачом без рабочих дней - тот дает пустой результат без ошибки.
	ErrDoctorNotFound = errors.New("doctor not found")

	// Слот занят другой записью - нормальный сигнал проигранной гонки,
	// а не системный сбой. Пользователю предлагается выбрать другой слот.
	ErrSlotUnavailable = errors.New("slot is not available")

	ErrAppointmentNotFound     = errors.New("appointment not found")
	ErrInvalidStatusTransition = errors.New("invalid appointment status transition")
)
