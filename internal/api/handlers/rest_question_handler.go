package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gahimbaref/Rentema-sub002/internal/models"
	"github.com/gahimbaref/Rentema-sub002/internal/services"
	"github.com/gahimbaref/Rentema-sub002/internal/utils"
)

// RestQuestionHandler handles pre-qualification questions and criteria for
// a property.
type RestQuestionHandler struct {
	questionService services.IQuestionService
	criteriaService services.ICriteriaService
}

// NewRestQuestionHandler creates a new RestQuestionHandler.
func NewRestQuestionHandler(questionService services.IQuestionService, criteriaService services.ICriteriaService) *RestQuestionHandler {
	return &RestQuestionHandler{
		questionService: questionService,
		criteriaService: criteriaService,
	}
}

// ListQuestions handles GET /v1/properties/:id/questions
func (h *RestQuestionHandler) ListQuestions(c *gin.Context) {
	propertyID, ok := pathID(c, "id")
	if !ok {
		return
	}

	questions, err := h.questionService.ListQuestions(c.Request.Context(), propertyID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": questions})
}

// CreateQuestion handles POST /v1/properties/:id/questions
func (h *RestQuestionHandler) CreateQuestion(c *gin.Context) {
	propertyID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Text         string   `json:"text" binding:"required"`
		ResponseType string   `json:"response_type" binding:"required"`
		Options      []string `json:"options"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text and response_type are required"})
		return
	}

	question, err := h.questionService.CreateQuestion(c.Request.Context(), propertyID, req.Text, models.ResponseType(req.ResponseType), req.Options)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, question)
}

// UpdateQuestion handles PUT /v1/properties/:id/questions/:question_id
func (h *RestQuestionHandler) UpdateQuestion(c *gin.Context) {
	propertyID, ok := pathID(c, "id")
	if !ok {
		return
	}
	questionID, ok := pathID(c, "question_id")
	if !ok {
		return
	}

	var req struct {
		Text         string   `json:"text" binding:"required"`
		ResponseType string   `json:"response_type" binding:"required"`
		Options      []string `json:"options"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text and response_type are required"})
		return
	}

	question, err := h.questionService.UpdateQuestion(c.Request.Context(), propertyID, questionID, req.Text, models.ResponseType(req.ResponseType), req.Options)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

// DeleteQuestion handles DELETE /v1/properties/:id/questions/:question_id
func (h *RestQuestionHandler) DeleteQuestion(c *gin.Context) {
	propertyID, ok := pathID(c, "id")
	if !ok {
		return
	}
	questionID, ok := pathID(c, "question_id")
	if !ok {
		return
	}

	if err := h.questionService.DeleteQuestion(c.Request.Context(), propertyID, questionID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ReorderQuestions handles PUT /v1/properties/:id/questions/order
func (h *RestQuestionHandler) ReorderQuestions(c *gin.Context) {
	propertyID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		OrderedIDs []string `json:"ordered_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ordered_ids is required"})
		return
	}

	ids := make([]utils.SixID, 0, len(req.OrderedIDs))
	for _, raw := range req.OrderedIDs {
		id, err := utils.ParseSixID(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid question ID in ordered_ids"})
			return
		}
		ids = append(ids, id)
	}

	if err := h.questionService.ReorderQuestions(c.Request.Context(), propertyID, ids); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListCriteria handles GET /v1/properties/:id/criteria
func (h *RestQuestionHandler) ListCriteria(c *gin.Context) {
	propertyID, ok := pathID(c, "id")
	if !ok {
		return
	}

	criteria, err := h.criteriaService.ListCriteria(c.Request.Context(), propertyID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": criteria})
}

// CreateCriterion handles POST /v1/properties/:id/criteria
func (h *RestQuestionHandler) CreateCriterion(c *gin.Context) {
	propertyID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		QuestionID    string      `json:"question_id" binding:"required"`
		Operator      string      `json:"operator" binding:"required"`
		ExpectedValue interface{} `json:"expected_value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question_id and operator are required"})
		return
	}
	questionID, err := utils.ParseSixID(req.QuestionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid question ID format"})
		return
	}

	criterion, err := h.criteriaService.CreateCriterion(c.Request.Context(), propertyID, questionID, models.CriteriaOperator(req.Operator), req.ExpectedValue)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, criterion)
}

// UpdateCriterion handles PUT /v1/properties/:id/criteria/:criterion_id
func (h *RestQuestionHandler) UpdateCriterion(c *gin.Context) {
	propertyID, ok := pathID(c, "id")
	if !ok {
		return
	}
	criterionID, ok := pathID(c, "criterion_id")
	if !ok {
		return
	}

	var req struct {
		Operator      string      `json:"operator" binding:"required"`
		ExpectedValue interface{} `json:"expected_value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "operator is required"})
		return
	}

	criterion, err := h.criteriaService.UpdateCriterion(c.Request.Context(), propertyID, criterionID, models.CriteriaOperator(req.Operator), req.ExpectedValue)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, criterion)
}

// DeleteCriterion handles DELETE /v1/properties/:id/criteria/:criterion_id
func (h *RestQuestionHandler) DeleteCriterion(c *gin.Context) {
	propertyID, ok := pathID(c, "id")
	if !ok {
		return
	}
	criterionID, ok := pathID(c, "criterion_id")
	if !ok {
		return
	}

	if err := h.criteriaService.DeleteCriterion(c.Request.Context(), propertyID, criterionID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
