package validation

import (
	"fmt"
	"strings"
)

// Prescription is the single-medication order accepted by the order API.
type Prescription struct {
	PatientName         string `json:"patientName"`
	PatientDNI          string `json:"patientDNI"`
	PatientPhone        string `json:"patientPhone"`
	PatientEmail        string `json:"patientEmail"`
	MedicationName      string `json:"medicationName"`
	MedicationDosage    string `json:"medicationDosage"`
	MedicationQuantity  string `json:"medicationQuantity"`
	MedicationFrequency string `json:"medicationFrequency"`
	DoctorName          string `json:"doctorName"`
	Observations        string `json:"observations"`
	OrderID             string `json:"orderId"`
	Timestamp           string `json:"timestamp"`
}

// ValidatePrescription is the server-side check, independent of whatever the
// client already validated.
func ValidatePrescription(p Prescription) Result {
	var res Result

	required := []struct{ field, value string }{
		{"patientName", p.PatientName},
		{"patientDNI", p.PatientDNI},
		{"patientPhone", p.PatientPhone},
		{"patientEmail", p.PatientEmail},
		{"medicationName", p.MedicationName},
		{"medicationDosage", p.MedicationDosage},
		{"medicationQuantity", p.MedicationQuantity},
		{"medicationFrequency", p.MedicationFrequency},
		{"doctorName", p.DoctorName},
	}
	for _, rf := range required {
		if strings.TrimSpace(rf.value) == "" {
			res.add(KindRequired, rf.field, fmt.Sprintf("El campo %s es requerido", rf.field))
		}
	}

	if p.PatientEmail != "" && !IsValidEmail(p.PatientEmail) {
		res.add(KindEmail, "patientEmail", "El email del paciente no es válido")
	}
	if p.PatientPhone != "" && !IsValidPhone(p.PatientPhone, 8, 0) {
		res.add(KindPhone, "patientPhone", "El teléfono del paciente no es válido")
	}
	if p.MedicationQuantity != "" && !IsPositiveInt(p.MedicationQuantity) {
		res.add(KindQuantity, "medicationQuantity", "La cantidad de medicamento debe ser mayor a 0")
	}

	return res.finish()
}
