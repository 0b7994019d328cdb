package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Domenick1991/busbooking/internal/auth"
	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/service/booking"
	"github.com/Domenick1991/busbooking/internal/tickets"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type bookSeatsRequest struct {
	PassengerName    string `json:"passenger_name" form:"name"`
	PassengerContact string `json:"passenger_contact" form:"contact"`
	Seats            int    `json:"seats" form:"seats"`
}

type bookingResponse struct {
	Reference        string  `json:"reference"`
	TripID           int64   `json:"trip_id"`
	PassengerName    string  `json:"passenger_name"`
	PassengerContact string  `json:"passenger_contact"`
	SeatsBooked      int     `json:"seats_booked"`
	CreatedAt        string  `json:"created_at"`
	Route            string  `json:"route,omitempty"`
	Departure        string  `json:"departure,omitempty"`
	Total            float64 `json:"total,omitempty"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

// RegisterTripBookings mounts booking creation under a trip group.
func (h *BookingHandler) RegisterTripBookings(router *gin.RouterGroup) {
	router.POST("/:id/bookings", h.book)
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/:reference/ticket", h.ticket)
}

func (h *BookingHandler) book(c *gin.Context) {
	id, ok := tripID(c)
	if !ok {
		return
	}

	var req bookSeatsRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "message": booking.InvalidSeatsMessage})
		return
	}

	var caller *auth.Identity
	if identity, ok := IdentityFrom(c); ok {
		caller = &identity
	}

	b, err := h.service.BookSeats(c.Request.Context(), caller, booking.BookSeatsInput{
		TripID:           id,
		Seats:            req.Seats,
		PassengerName:    req.PassengerName,
		PassengerContact: req.PassengerContact,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": fmt.Sprintf("Booking confirmed for %s!", b.PassengerName),
		"booking": newBookingResponse(domain.BookingView{Booking: *b}),
	})
}

func (h *BookingHandler) list(c *gin.Context) {
	identity, _ := IdentityFrom(c)
	views, err := h.service.ListBookings(c.Request.Context(), identity)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]bookingResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, newBookingResponse(v))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) ticket(c *gin.Context) {
	identity, _ := IdentityFrom(c)
	view, err := h.service.GetBooking(c.Request.Context(), identity, c.Param("reference"))
	if err != nil {
		respondError(c, err)
		return
	}

	pdf, filename, err := tickets.Render(*view)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func newBookingResponse(v domain.BookingView) bookingResponse {
	return bookingResponse{
		Reference:        v.Reference,
		TripID:           v.TripID,
		PassengerName:    v.PassengerName,
		PassengerContact: v.PassengerContact,
		SeatsBooked:      v.SeatsBooked,
		CreatedAt:        v.CreatedAt.UTC().Format(time.RFC3339),
		Route:            v.Route,
		Departure:        v.Departure,
		Total:            float64(v.TotalCents()) / 100,
	}
}
