package http

import "github.com/nekogravitycat/studio-booking-backend/internal/professional"

// LoginRequest is the payload for POST /professionals/login.
type LoginRequest struct {
	ProfessionalID string `json:"professional_id" binding:"required,uuid"`
	Password       string `json:"password" binding:"required"`
}

type LoginResponse struct {
	AccessToken  string               `json:"access_token"`
	Professional ProfessionalResponse `json:"professional"`
}

type OfferingResponse struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
}

// ProfessionalResponse is the public view of a professional; credentials and payout keys stay server side.
type ProfessionalResponse struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Services []OfferingResponse `json:"services"`
}

// ProfessionalTag is the compact form embedded in other resources.
type ProfessionalTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func NewProfessionalResponse(p *professional.Professional) ProfessionalResponse {
	services := make([]OfferingResponse, len(p.Services))
	for i, o := range p.Services {
		services[i] = OfferingResponse{Name: o.Name, DurationMinutes: o.DurationMinutes}
	}
	return ProfessionalResponse{
		ID:       p.ID,
		Name:     p.Name,
		Services: services,
	}
}

type ListResponse struct {
	Items []ProfessionalResponse `json:"items"`
}
