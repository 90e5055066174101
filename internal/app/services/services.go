package services

import (
	"github.com/rs/zerolog"

	"github.com/evaldesk/copyflow/internal/app/repositories"
)

// Services holds all the service instances
type Services struct {
	CopyDistributionService *CopyDistributionService
}

// NewServices initializes all services
func NewServices(repos *repositories.Repositories, lgr zerolog.Logger) *Services {
	return &Services{
		CopyDistributionService: NewCopyDistributionService(
			repos.BundleRepository,
			repos.TeacherRepository,
			lgr,
		),
	}
}
