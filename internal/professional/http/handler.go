package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/studio-booking-backend/internal/auth"
	"github.com/nekogravitycat/studio-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/studio-booking-backend/internal/professional"
)

type Handler struct {
	service    professional.Service
	jwtManager *auth.JWTManager
}

func NewHandler(service professional.Service, jwtManager *auth.JWTManager) *Handler {
	return &Handler{
		service:    service,
		jwtManager: jwtManager,
	}
}

//
// GET /professionals
//

func (h *Handler) List(c *gin.Context) {
	pros, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]ProfessionalResponse, len(pros))
	for i, p := range pros {
		items[i] = NewProfessionalResponse(p)
	}

	c.JSON(http.StatusOK, ListResponse{Items: items})
}

//
// POST /professionals/login
//

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	p, err := h.service.Authenticate(c.Request.Context(), req.ProfessionalID, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.jwtManager.GenerateAccessToken(p.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken:  token,
		Professional: NewProfessionalResponse(p),
	})
}
