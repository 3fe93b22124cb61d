package intake

import "encoding/json"

// SubmitResponse is the 200 body of a saved order.
type SubmitResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	OrderID   string `json:"orderId"`
	Timestamp string `json:"timestamp"`
}

type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Details []string `json:"details,omitempty"`
}

// RelayOrder is the body accepted by the relay. Medicines is kept as sent.
type RelayOrder struct {
	ClientName  string          `json:"clientName"`
	ClientPhone string          `json:"clientPhone"`
	ClientEmail string          `json:"clientEmail"`
	Medicines   json.RawMessage `json:"medicines"`
	Timestamp   string          `json:"timestamp"`
	TotalItems  int             `json:"totalItems"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// OrderRecord is one sheet row read back.
type OrderRecord struct {
	OrderID             string `json:"orderId"`
	Timestamp           string `json:"timestamp"`
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
	Status              string `json:"status"`
}

func recordFromRow(row []string) OrderRecord {
	return OrderRecord{
		OrderID:             cell(row, 0),
		Timestamp:           cell(row, 1),
		PatientName:         cell(row, 2),
		PatientDNI:          cell(row, 3),
		PatientPhone:        cell(row, 4),
		PatientEmail:        cell(row, 5),
		MedicationName:      cell(row, 6),
		MedicationDosage:    cell(row, 7),
		MedicationQuantity:  cell(row, 8),
		MedicationFrequency: cell(row, 9),
		DoctorName:          cell(row, 10),
		Observations:        cell(row, 11),
		Status:              cell(row, 12),
	}
}
