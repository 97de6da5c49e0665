package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/stages-admin/internal/orgunit"
	"github.com/noah-isme/stages-admin/pkg/response"
)

// OptionsHandler exposes the dependent select lists of the stage form to
// scripts that refresh them in place.
type OptionsHandler struct{}

// NewOptionsHandler constructs the handler.
func NewOptionsHandler() *OptionsHandler {
	return &OptionsHandler{}
}

// Directions godoc
// @Summary List directions
// @Tags Options
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /options/directions [get]
func (h *OptionsHandler) Directions(c *gin.Context) {
	response.JSON(c, http.StatusOK, orgunit.Directions, nil)
}

// Divisions godoc
// @Summary List the divisions of a direction
// @Tags Options
// @Produce json
// @Param direction query string true "Direction code"
// @Success 200 {object} response.Envelope
// @Router /options/divisions [get]
func (h *OptionsHandler) Divisions(c *gin.Context) {
	response.JSON(c, http.StatusOK, nonNil(orgunit.Divisions(c.Query("direction"))), nil)
}

// Units godoc
// @Summary List the assignment units
// @Tags Options
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /options/unites [get]
func (h *OptionsHandler) Units(c *gin.Context) {
	response.JSON(c, http.StatusOK, orgunit.Units, nil)
}

// Services godoc
// @Summary List the services of a unit
// @Tags Options
// @Produce json
// @Param unite query string true "Unit name"
// @Success 200 {object} response.Envelope
// @Router /options/services [get]
func (h *OptionsHandler) Services(c *gin.Context) {
	response.JSON(c, http.StatusOK, nonNil(orgunit.Services(c.Query("unite"))), nil)
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
