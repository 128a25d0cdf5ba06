package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/examdesk/colloquium-api/internal/dto"
	"github.com/examdesk/colloquium-api/internal/models"
	appErrors "github.com/examdesk/colloquium-api/pkg/errors"
	"github.com/examdesk/colloquium-api/pkg/response"
)

type examService interface {
	Create(ctx context.Context, req dto.CreateExamRequest) (*models.Exam, error)
	GetByID(ctx context.Context, id string) (*models.Exam, error)
	List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, *models.Pagination, error)
	Update(ctx context.Context, id string, req dto.UpdateExamRequest) (*models.Exam, error)
	Delete(ctx context.Context, id string) error
}

// ExamHandler exposes exam CRUD endpoints.
type ExamHandler struct {
	service examService
}

// NewExamHandler builds a new handler.
func NewExamHandler(service examService) *ExamHandler {
	return &ExamHandler{service: service}
}

// Create godoc
// @Summary Register an exam
// @Tags Exams
// @Accept json
// @Produce json
// @Param payload body dto.CreateExamRequest true "Exam payload"
// @Success 201 {object} response.Envelope
// @Router /exams [post]
func (h *ExamHandler) Create(c *gin.Context) {
	var req dto.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exam payload"))
		return
	}
	exam, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exam)
}

// List godoc
// @Summary List exams
// @Tags Exams
// @Produce json
// @Param degree query string false "Degree filter"
// @Param competence_area query string false "Competence area filter"
// @Param search query string false "Student name search"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /exams [get]
func (h *ExamHandler) List(c *gin.Context) {
	filter := models.ExamFilter{
		Degree:         c.Query("degree"),
		CompetenceArea: c.Query("competence_area"),
		Search:         c.Query("search"),
		Page:           queryInt(c, "page"),
		PageSize:       queryInt(c, "page_size"),
	}
	exams, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exams, pagination)
}

// Get godoc
// @Summary Get exam by ID
// @Tags Exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id} [get]
func (h *ExamHandler) Get(c *gin.Context) {
	exam, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}

// Update godoc
// @Summary Update exam
// @Tags Exams
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param payload body dto.UpdateExamRequest true "Exam payload"
// @Success 200 {object} response.Envelope
// @Router /exams/{id} [put]
func (h *ExamHandler) Update(c *gin.Context) {
	var req dto.UpdateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exam payload"))
		return
	}
	exam, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}

// Delete godoc
// @Summary Delete exam
// @Tags Exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 204 {object} response.Envelope
// @Router /exams/{id} [delete]
func (h *ExamHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func queryInt(c *gin.Context, key string) int {
	raw := c.Query(key)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
}
