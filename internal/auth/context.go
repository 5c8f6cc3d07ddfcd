package auth

import "github.com/gin-gonic/gin"

const professionalIDKey = "auth.professional_id"

func setProfessionalID(c *gin.Context, id string) {
	c.Set(professionalIDKey, id)
}

// GetProfessionalID returns the id AuthRequired stored, or "" on public routes.
func GetProfessionalID(c *gin.Context) string {
	return c.GetString(professionalIDKey)
}
