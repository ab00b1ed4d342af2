package repository

import (
	"context"

	"patient-management/internal/domain/entity"
)

// PatientRepository is the backing store of patient records. The store is remote, so
// every call takes a context and may fail with a store error.
type PatientRepository interface {
	List(ctx context.Context) ([]entity.Patient, error)
	Get(ctx context.Context, id entity.PatientID) (*entity.Patient, error)
	Create(ctx context.Context, patient *entity.Patient) (*entity.Patient, error)
	Update(ctx context.Context, id entity.PatientID, patient *entity.Patient) (*entity.Patient, error)
	Delete(ctx context.Context, id entity.PatientID) error
}
