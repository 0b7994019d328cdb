package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/Domenick1991/busbooking/internal/service/trips"
	"github.com/gin-gonic/gin"
)

type TripHandler struct {
	service trips.TripUseCase
}

type tripResponse struct {
	ID         int64   `json:"id"`
	Route      string  `json:"route"`
	Departure  string  `json:"departure"`
	Price      float64 `json:"price"`
	SeatsTotal int     `json:"seats_total"`
	SeatsLeft  int     `json:"seats_left"`
	SoldOut    bool    `json:"sold_out"`
}

type createTripRequest struct {
	Route     string  `json:"route" form:"route"`
	Departure string  `json:"departure" form:"departure"`
	Price     float64 `json:"price" form:"price"`
	Seats     int     `json:"seats" form:"seats"`
}

func NewTripHandler(service trips.TripUseCase) *TripHandler {
	return &TripHandler{service: service}
}

func (h *TripHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.GET("/:id", h.get)
}

func (h *TripHandler) RegisterAdmin(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.DELETE("/:id", h.delete)
}

func (h *TripHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]tripResponse, 0, len(list))
	for _, t := range list {
		resp = append(resp, newTripResponse(t))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TripHandler) get(c *gin.Context) {
	id, ok := tripID(c)
	if !ok {
		return
	}
	trip, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTripResponse(*trip))
}

func (h *TripHandler) create(c *gin.Context) {
	identity, _ := IdentityFrom(c)

	var req createTripRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "message": "Invalid trip details."})
		return
	}

	trip, err := h.service.Create(c.Request.Context(), identity, trips.CreateTripInput{
		Route:     req.Route,
		Departure: req.Departure,
		Price:     req.Price,
		Seats:     req.Seats,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Trip added successfully!", "trip": newTripResponse(*trip)})
}

func (h *TripHandler) delete(c *gin.Context) {
	identity, _ := IdentityFrom(c)
	id, ok := tripID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), identity, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Trip deleted successfully."})
}

func tripID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id", "message": "Invalid trip id."})
		return 0, false
	}
	return id, true
}

func newTripResponse(t domain.Trip) tripResponse {
	return tripResponse{
		ID:         t.ID,
		Route:      t.Route,
		Departure:  t.Departure,
		Price:      float64(t.PriceCents) / 100,
		SeatsTotal: t.SeatsTotal,
		SeatsLeft:  t.SeatsLeft,
		SoldOut:    t.SoldOut(),
	}
}
