package professional

import (
	"net/http"
	"strings"
	"time"

	"github.com/nekogravitycat/studio-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound           = apperror.New(http.StatusNotFound, "professional not found")
	ErrInvalidCredentials = apperror.New(http.StatusUnauthorized, "invalid credentials")
	ErrInactive           = apperror.New(http.StatusNotFound, "professional is not taking bookings")
)

// Offering is one service in a professional's catalogue.
type Offering struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
}

// Professional is the person whose time is being booked.
type Professional struct {
	ID           string
	Name         string
	Services     []Offering
	PixKey       string
	Contact      string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
}

// FindService looks up an offering by name, ignoring case and surrounding spaces.
func (p *Professional) FindService(name string) (Offering, bool) {
	name = strings.TrimSpace(name)
	for _, o := range p.Services {
		if strings.EqualFold(o.Name, name) {
			return o, true
		}
	}
	return Offering{}, false
}
