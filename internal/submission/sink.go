package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jcmexdev/pharmacy-orders/internal/order"
	"github.com/jcmexdev/pharmacy-orders/internal/pkg/interceptors"
)

// Sink delivers one submission to an external system.
type Sink interface {
	Name() string
	Send(ctx context.Context, sub *order.Submission) error
	// Observable is false for sinks whose response cannot be read; the
	// orchestrator reports success for them whenever Send returns nil.
	Observable() bool
}

// SinkError is a non-2xx answer from a sink. Message is the server's own
// explanation when the body carried one.
type SinkError struct {
	Sink    string
	Status  int
	Message string
}

func (e *SinkError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("submission: %s sink: status %d: %s", e.Sink, e.Status, e.Message)
	}
	return fmt.Sprintf("submission: %s sink: status %d", e.Sink, e.Status)
}

const maxErrorBody = 64 << 10

// DefaultClient stamps request id, idempotency key and trace headers on every
// sink call. Its timeout only bounds abandoned calls; the user-facing
// timeout is the orchestrator's race.
func DefaultClient() *http.Client {
	c := interceptors.NewClient(http.DefaultTransport)
	c.Timeout = time.Minute
	return c
}

type poster struct {
	name   string
	url    string
	client *http.Client
}

func newPoster(name, url string, client *http.Client) poster {
	if client == nil {
		client = DefaultClient()
	}
	return poster{name: name, url: url, client: client}
}

// post sends body as JSON. When observe is set, a non-2xx status becomes a
// *SinkError; otherwise only transport errors are reported.
func (p poster) post(ctx context.Context, body any, observe bool) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("submission: %s sink: encode: %w", p.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("submission: %s sink: build request: %w", p.name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("submission: %s sink: %w", p.name, err)
	}
	defer resp.Body.Close()

	if !observe {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return &SinkError{
		Sink:    p.name,
		Status:  resp.StatusCode,
		Message: errorMessage(io.LimitReader(resp.Body, maxErrorBody)),
	}
}

// errorMessage pulls a human readable reason out of an error body shaped
// like {error, message, details}.
func errorMessage(r io.Reader) string {
	var body struct {
		Error   string   `json:"error"`
		Message string   `json:"message"`
		Details []string `json:"details"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return ""
	}
	switch {
	case len(body.Details) > 0:
		return strings.Join(body.Details, "; ")
	case body.Message != "":
		return body.Message
	default:
		return body.Error
	}
}

// APIPayload is the single-prescription body accepted by the order API.
type APIPayload struct {
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

// Placeholders for the prescription fields a cart order does not collect.
const (
	DefaultDosage    = "Según prescripción"
	DefaultFrequency = "Según prescripción"
	DefaultDoctor    = "No informado"
)

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// NewAPIPayload flattens the cart into one medication line.
func NewAPIPayload(sub *order.Submission) APIPayload {
	return APIPayload{
		PatientName:         sub.Customer.Name,
		PatientDNI:          sub.Customer.NationalID,
		PatientPhone:        sub.Customer.Phone,
		PatientEmail:        sub.Customer.Email,
		MedicationName:      sub.ItemsText(),
		MedicationDosage:    orDefault(sub.Clinical.Dosage, DefaultDosage),
		MedicationQuantity:  fmt.Sprint(sub.TotalUnits),
		MedicationFrequency: orDefault(sub.Clinical.Frequency, DefaultFrequency),
		DoctorName:          orDefault(sub.Clinical.Doctor, DefaultDoctor),
		Observations:        sub.Clinical.Observations,
		OrderID:             sub.OrderID,
		Timestamp:           sub.CreatedAt.Format(time.RFC3339),
	}
}

// APISink posts to the validating order API.
type APISink struct {
	poster
}

var _ Sink = (*APISink)(nil)

// NewAPISink posts APIPayload bodies to url. A nil client uses DefaultClient.
func NewAPISink(url string, client *http.Client) *APISink {
	return &APISink{poster: newPoster("api", url, client)}
}

func (s *APISink) Name() string     { return s.name }
func (s *APISink) Observable() bool { return true }

func (s *APISink) Send(ctx context.Context, sub *order.Submission) error {
	return s.post(ctx, NewAPIPayload(sub), true)
}

// RelayMedicine is one line of a relayed order.
type RelayMedicine struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// RelayPayload is the body accepted by the logging relay.
type RelayPayload struct {
	ClientName  string          `json:"clientName"`
	ClientPhone string          `json:"clientPhone"`
	ClientEmail string          `json:"clientEmail"`
	Medicines   []RelayMedicine `json:"medicines"`
	Timestamp   string          `json:"timestamp"`
	TotalItems  int             `json:"totalItems"`
}

// NewRelayPayload maps sub to the relay body.
func NewRelayPayload(sub *order.Submission) RelayPayload {
	meds := make([]RelayMedicine, 0, len(sub.Lines))
	for _, l := range sub.Lines {
		meds = append(meds, RelayMedicine{Name: l.Name, Quantity: l.Quantity})
	}
	return RelayPayload{
		ClientName:  sub.Customer.Name,
		ClientPhone: sub.Customer.Phone,
		ClientEmail: sub.Customer.Email,
		Medicines:   meds,
		Timestamp:   sub.CreatedAt.Format(time.RFC3339),
		TotalItems:  sub.TotalUnits,
	}
}

// RelaySink posts RelayPayload bodies to a relay endpoint.
type RelaySink struct {
	poster
}

var _ Sink = (*RelaySink)(nil)

// NewRelaySink posts to url. A nil client uses DefaultClient.
func NewRelaySink(url string, client *http.Client) *RelaySink {
	return &RelaySink{poster: newPoster("relay", url, client)}
}

func (s *RelaySink) Name() string     { return s.name }
func (s *RelaySink) Observable() bool { return true }

func (s *RelaySink) Send(ctx context.Context, sub *order.Submission) error {
	return s.post(ctx, NewRelayPayload(sub), true)
}

// ScriptPayload is the row shape expected by the spreadsheet script.
type ScriptPayload struct {
	OrderID       string `json:"orderId"`
	Fecha         string `json:"fecha"`
	Hora          string `json:"hora"`
	Nombre        string `json:"nombre"`
	DNI           string `json:"dni"`
	Telefono      string `json:"telefono"`
	Email         string `json:"email"`
	Medicamentos  string `json:"medicamentos"`
	TotalItems    int    `json:"totalItems"`
	TotalUnidades int    `json:"totalUnidades"`
	Timestamp     string `json:"timestamp"`
}

// NewScriptPayload renders date and time in loc, day first.
func NewScriptPayload(sub *order.Submission, loc *time.Location) ScriptPayload {
	if loc == nil {
		loc = time.Local
	}
	at := sub.CreatedAt.In(loc)
	return ScriptPayload{
		OrderID:       sub.OrderID,
		Fecha:         at.Format("2/1/2006"),
		Hora:          at.Format("15:04:05"),
		Nombre:        sub.Customer.Name,
		DNI:           sub.Customer.NationalID,
		Telefono:      sub.Customer.Phone,
		Email:         sub.Customer.Email,
		Medicamentos:  sub.ItemsText(),
		TotalItems:    len(sub.Lines),
		TotalUnidades: sub.TotalUnits,
		Timestamp:     sub.CreatedAt.Format(time.RFC3339),
	}
}

// ScriptSink posts to a spreadsheet script endpoint whose response is opaque.
// Only transport failures are reported.
type ScriptSink struct {
	poster
	loc *time.Location
}

var _ Sink = (*ScriptSink)(nil)

// NewScriptSink posts to a spreadsheet script. Dates are rendered in loc,
// or the local zone when loc is nil.
func NewScriptSink(url string, client *http.Client, loc *time.Location) *ScriptSink {
	return &ScriptSink{poster: newPoster("script", url, client), loc: loc}
}

func (s *ScriptSink) Name() string     { return s.name }
func (s *ScriptSink) Observable() bool { return false }

func (s *ScriptSink) Send(ctx context.Context, sub *order.Submission) error {
	return s.post(ctx, NewScriptPayload(sub, s.loc), false)
}

// NewSink builds the sink for kind: "api", "relay" or "script".
func NewSink(kind, url string, client *http.Client) (Sink, error) {
	if url == "" {
		return nil, fmt.Errorf("submission: sink %q: empty url", kind)
	}
	switch kind {
	case "api":
		return NewAPISink(url, client), nil
	case "relay":
		return NewRelaySink(url, client), nil
	case "script":
		return NewScriptSink(url, client, nil), nil
	default:
		return nil, fmt.Errorf("submission: unknown sink kind %q", kind)
	}
}
