package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"patient-management/internal/delivery/dto"
	"patient-management/internal/domain/entity"
	"patient-management/internal/usecase"
	"patient-management/pkg/response"
	"patient-management/pkg/validator"

	"github.com/gorilla/mux"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type PatientHandler struct {
	patientUsecase usecase.PatientUsecase
	validator      *validator.CustomValidator
}

func NewPatientHandler(patientUsecase usecase.PatientUsecase, validator *validator.CustomValidator) *PatientHandler {
	return &PatientHandler{
		patientUsecase: patientUsecase,
		validator:      validator,
	}
}

// GetPatients handles listing the roster
// @Summary List patients
// @Description Roster narrowed by a search term (first name, last name, email) and a status
// @Tags Patients
// @Security BearerAuth
// @Produce json
// @Param search query string false "Search term"
// @Param status query string false "Status or all"
// @Success 200 {object} response.Response
// @Failure 502 {object} response.Response
// @Router /patients [get]
func (h *PatientHandler) GetPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.patientUsecase.GetPatients(r.Context(), rosterFilter(r))
	if err != nil {
		writePatientError(w, err, "Failed to get patients")
		return
	}

	response.Success(w, http.StatusOK, "Patients retrieved successfully", patients)
}

// ExportPatients handles exporting the roster
// @Summary Export patients
// @Description Filtered roster as an xlsx workbook
// @Tags Patients
// @Security BearerAuth
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param search query string false "Search term"
// @Param status query string false "Status or all"
// @Success 200 {file} file
// @Router /patients/export [get]
func (h *PatientHandler) ExportPatients(w http.ResponseWriter, r *http.Request) {
	content, err := h.patientUsecase.ExportPatients(r.Context(), rosterFilter(r))
	if err != nil {
		writePatientError(w, err, "Failed to export patients")
		return
	}

	filename := fmt.Sprintf("patients-%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

// GetPatient handles getting a single patient
// @Summary Get patient
// @Tags Patients
// @Security BearerAuth
// @Produce json
// @Param id path string true "Patient ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /patients/{id} [get]
func (h *PatientHandler) GetPatient(w http.ResponseWriter, r *http.Request) {
	id := entity.PatientID(mux.Vars(r)["id"])

	patient, err := h.patientUsecase.GetPatient(r.Context(), id)
	if err != nil {
		writePatientError(w, err, "Failed to get patient")
		return
	}

	response.Success(w, http.StatusOK, "Patient retrieved successfully", patient)
}

// CreatePatient handles adding a patient
// @Summary Create patient
// @Tags Patients
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.CreatePatientRequest true "Create Patient Request"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /patients [post]
func (h *PatientHandler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	patient, err := h.patientUsecase.CreatePatient(r.Context(), &req)
	if err != nil {
		writePatientError(w, err, "Failed to create patient")
		return
	}

	response.Success(w, http.StatusCreated, "Patient created successfully", patient)
}

// UpdatePatient handles editing a patient
// @Summary Update patient
// @Description Only email, phone, address, status and current medication can change
// @Tags Patients
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Patient ID"
// @Param request body dto.UpdatePatientRequest true "Update Patient Request"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /patients/{id} [put]
func (h *PatientHandler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	id := entity.PatientID(mux.Vars(r)["id"])

	var req dto.UpdatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	patient, err := h.patientUsecase.UpdatePatient(r.Context(), id, &req)
	if err != nil {
		writePatientError(w, err, "Failed to update patient")
		return
	}

	response.Success(w, http.StatusOK, "Patient updated successfully", patient)
}

// DeletePatient handles removing a patient
// @Summary Delete patient
// @Tags Patients
// @Security BearerAuth
// @Produce json
// @Param id path string true "Patient ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /patients/{id} [delete]
func (h *PatientHandler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	id := entity.PatientID(mux.Vars(r)["id"])

	if err := h.patientUsecase.DeletePatient(r.Context(), id); err != nil {
		writePatientError(w, err, "Failed to delete patient")
		return
	}

	response.Success(w, http.StatusOK, "Patient deleted successfully", nil)
}

func rosterFilter(r *http.Request) entity.RosterFilter {
	query := r.URL.Query()
	return entity.RosterFilter{
		Term:   query.Get("search"),
		Status: query.Get("status"),
	}
}

func writePatientError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, usecase.ErrPatientNotFound):
		response.NotFound(w, "Patient not found")
	case errors.Is(err, usecase.ErrEmailAlreadyExists):
		response.Conflict(w, "Email already exists")
	case errors.Is(err, usecase.ErrStoreUnauthorized):
		response.Unauthorized(w, "Session rejected by the backing store, please login again")
	case errors.Is(err, usecase.ErrStoreUnavailable):
		response.BadGateway(w, "")
	default:
		response.InternalServerError(w, fallback)
	}
}
