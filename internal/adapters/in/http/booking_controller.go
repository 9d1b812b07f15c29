package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/medibook/booking-slots-service/internal/config"
	"github.com/medibook/booking-slots-service/internal/core/domain"
	"github.com/medibook/booking-slots-service/internal/core/json_types"
	"github.com/medibook/booking-slots-service/internal/core/ports/in"
)

type BookingController struct {
	useCase in.BookingUseCase
	cfg     *config.Config
}

func NewBookingController(useCase in.BookingUseCase, cfg *config.Config) *BookingController {
	return &BookingController{
		useCase: useCase,
		cfg:     cfg,
	}
}

func (c *BookingController) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	api.Use(c.basicAuth())
	{
		api.GET("/doctors/:doctorId/availability", c.getAvailability)
		api.POST("/doctors/availability-batch", c.getBatchAvailability)
		api.POST("/appointments", c.bookSlot)
		api.GET("/appointments/:appointmentId", c.getAppointment)
		api.POST("/appointments/:appointmentId/confirm", c.confirmAppointment)
		api.POST("/appointments/:appointmentId/complete", c.completeAppointment)
		api.POST("/appointments/:appointmentId/cancel", c.cancelAppointment)
	}
}

type BatchAvailabilityRequest struct {
	DoctorIDs []uuid.UUID `json:"doctorIds" binding:"required,min=1"`
	StartDate string      `json:"startDate" binding:"required"`
	EndDate   string      `json:"endDate" binding:"required"`
}

type BookSlotRequest struct {
	DoctorID  uuid.UUID `json:"doctorId" binding:"required"`
	PatientID uuid.UUID `json:"patientId" binding:"required"`
	Date      string    `json:"date" binding:"required"`
	StartTime string    `json:"startTime" binding:"required"`
	Reason    string    `json:"reason"`
}

func (c *BookingController) getAvailability(ctx *gin.Context) {
	doctorID, err := uuid.Parse(ctx.Param("doctorId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid doctor ID format"})
		return
	}

	startDate, err := json_types.ParseDate(ctx.Query("startDate"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start date format"})
		return
	}

	endDate, err := json_types.ParseDate(ctx.Query("endDate"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end date format"})
		return
	}

	days, err := c.useCase.GetAvailability(ctx.Request.Context(), doctorID, startDate, endDate)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"doctorId": doctorID,
		"days":     days,
	})
}

func (c *BookingController) getBatchAvailability(ctx *gin.Context) {
	var req BatchAvailabilityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startDate, err := json_types.ParseDate(req.StartDate)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start date format"})
		return
	}

	endDate, err := json_types.ParseDate(req.EndDate)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end date format"})
		return
	}

	result, err := c.useCase.GetBatchAvailability(ctx.Request.Context(), req.DoctorIDs, startDate, endDate)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"results": result})
}

func (c *BookingController) bookSlot(ctx *gin.Context) {
	var req BookSlotRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	date, err := json_types.ParseDate(req.Date)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format"})
		return
	}

	startTime, err := json_types.ParseTimeOfDay(req.StartTime)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start time format"})
		return
	}

	appointment, err := c.useCase.BookSlot(ctx.Request.Context(), in.BookSlotCommand{
		DoctorID:  req.DoctorID,
		PatientID: req.PatientID,
		Date:      date,
		StartTime: startTime,
		Reason:    req.Reason,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, appointment)
}

func (c *BookingController) getAppointment(ctx *gin.Context) {
	c.withAppointmentID(ctx, c.useCase.GetAppointment)
}

func (c *BookingController) confirmAppointment(ctx *gin.Context) {
	c.withAppointmentID(ctx, c.useCase.ConfirmAppointment)
}

func (c *BookingController) completeAppointment(ctx *gin.Context) {
	c.withAppointmentID(ctx, c.useCase.CompleteAppointment)
}

func (c *BookingController) cancelAppointment(ctx *gin.Context) {
	c.withAppointmentID(ctx, c.useCase.CancelAppointment)
}

func (c *BookingController) withAppointmentID(ctx *gin.Context, fn func(ctx context.Context, appointmentID uuid.UUID) (*domain.Appointment, error)) {
	appointmentID, err := uuid.Parse(ctx.Param("appointmentId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid appointment ID format"})
		return
	}

	appointment, err := fn(ctx.Request.Context(), appointmentID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, appointment)
}

// respondError переводит доменные ошибки в HTTP статусы
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidDateRange), errors.Is(err, domain.ErrInvalidSlotDuration):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrDoctorNotFound), errors.Is(err, domain.ErrAppointmentNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrSlotUnavailable), errors.Is(err, domain.ErrInvalidStatusTransition):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (c *BookingController) basicAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		username, password, hasAuth := ctx.Request.BasicAuth()
		if !hasAuth {
			ctx.Header("WWW-Authenticate", "Basic realm=Authorization Required")
			ctx.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		for _, client := range c.cfg.Auth.BasicClients {
			if subtle.ConstantTimeCompare([]byte(username), []byte(client.Username)) == 1 &&
				subtle.ConstantTimeCompare([]byte(password), []byte(client.Password)) == 1 {
				ctx.Next()
				return
			}
		}

		ctx.Header("WWW-Authenticate", "Basic realm=Authorization Required")
		ctx.AbortWithStatus(http.StatusUnauthorized)
	}
}
