package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kweaver00/askgraph/internal/pkg/errcode"
	"github.com/kweaver00/askgraph/internal/pkg/response"
	"github.com/kweaver00/askgraph/internal/service"
)

type FAQHandler struct {
	faqs *service.FAQService
}

func NewFAQHandler(faqs *service.FAQService) *FAQHandler {
	return &FAQHandler{faqs: faqs}
}

type faqRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category"`
}

func (h *FAQHandler) Create(c *gin.Context) {
	var req faqRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	faq, err := h.faqs.Create(c.Request.Context(), req.Question, req.Answer, req.Category)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, faq)
}

func (h *FAQHandler) Update(c *gin.Context) {
	var req faqRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	faq, err := h.faqs.Update(c.Request.Context(), c.Param("id"), req.Question, req.Answer, req.Category)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, faq)
}

func (h *FAQHandler) Delete(c *gin.Context) {
	if err := h.faqs.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *FAQHandler) Get(c *gin.Context) {
	faq, err := h.faqs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, faq)
}

func (h *FAQHandler) List(c *gin.Context) {
	faqs, err := h.faqs.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, faqs)
}

func (h *FAQHandler) Categories(c *gin.Context) {
	categories, err := h.faqs.Categories(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, categories)
}
