package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) AddStudent(c *gin.Context) {
	owner, ok := h.owner(c)
	if !ok {
		return
	}
	var req addStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return
	}
	if _, err := h.roster.Add(c.Request.Context(), owner, req.Name, req.RollNumber); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, messageResponse{Message: "Student added"})
}

func (h *Handler) ListStudents(c *gin.Context) {
	owner, ok := h.owner(c)
	if !ok {
		return
	}
	students, err := h.roster.List(c.Request.Context(), owner)
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]studentResponse, 0, len(students))
	for _, s := range students {
		out = append(out, studentResponse{Name: s.Name, RollNumber: s.RollNumber})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) UpdateStudent(c *gin.Context) {
	owner, ok := h.owner(c)
	if !ok {
		return
	}
	var req updateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return
	}
	if err := h.roster.Rename(c.Request.Context(), owner, c.Param("roll_number"), req.Name); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "Student updated"})
}

func (h *Handler) DeleteStudent(c *gin.Context) {
	owner, ok := h.owner(c)
	if !ok {
		return
	}
	if err := h.roster.Remove(c.Request.Context(), owner, c.Param("roll_number")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "Student deleted"})
}
