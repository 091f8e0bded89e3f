package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/model"
)

func (h *Handler) MarkAttendance(c *gin.Context) {
	h.writeAttendance(c, false)
}

func (h *Handler) UpdateAttendance(c *gin.Context) {
	h.writeAttendance(c, true)
}

func (h *Handler) writeAttendance(c *gin.Context, update bool) {
	owner, ok := h.owner(c)
	if !ok {
		return
	}
	var req attendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return
	}
	date, status, err := req.values()
	if err != nil {
		h.writeError(c, err)
		return
	}
	roll := c.Param("roll_number")
	if update {
		if err := h.ledger.Update(c.Request.Context(), owner, roll, date, status); err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, messageResponse{Message: "Attendance updated"})
		return
	}
	if err := h.ledger.Mark(c.Request.Context(), owner, roll, date, status); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, messageResponse{Message: "Attendance marked"})
}

// AttendanceByDate is the roll call for one day.
func (h *Handler) AttendanceByDate(c *gin.Context) {
	owner, ok := h.owner(c)
	if !ok {
		return
	}
	date, err := parseDate(c.Param("date"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	entries, err := h.ledger.RollCall(c.Request.Context(), owner, date)
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := []rollCallEntry{}
	for e := range entries {
		out = append(out, rollCallEntry{
			Student:    e.StudentName,
			RollNumber: e.RollNumber,
			Status:     model.StatusLabel(e.Status),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) AttendanceHistory(c *gin.Context) {
	owner, ok := h.owner(c)
	if !ok {
		return
	}
	records, err := h.ledger.History(c.Request.Context(), owner, c.Param("roll_number"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := []historyEntry{}
	for r := range records {
		out = append(out, historyEntry{Date: r.Date, Status: r.Status})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) AttendancePercentage(c *gin.Context) {
	owner, ok := h.owner(c)
	if !ok {
		return
	}
	sum, err := h.ledger.Percentage(c.Request.Context(), owner, c.Param("roll_number"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, percentageResponse{RollNumber: sum.RollNumber, AttendancePercentage: sum.Percentage})
}
