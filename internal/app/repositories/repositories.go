package repositories

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories holds all the repository instances
type Repositories struct {
	BundleRepository  *BundleRepository
	TeacherRepository *TeacherRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		BundleRepository:  NewBundleRepository(db),
		TeacherRepository: NewTeacherRepository(db),
	}
}
