// Package billing holds the invoice and payment calls and the arithmetic
// around them.
package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"tims/internal/rest"
)

var log = logging.Logger("tims/billing")

const service = "primary"

// DateLayout is how dates are entered and shown.
const DateLayout = "2006-01-02"

// API is the subset of *rest.Client the package calls.
type API interface {
	Create(ctx context.Context, service, noun string, data any) (*rest.Envelope, error)
	Read(ctx context.Context, service, noun string, data any) (*rest.Envelope, error)
}

// LineType says whether an additional line adds to or takes from the
// invoice.
type LineType string

const (
	Cost     LineType = "cost"
	Discount LineType = "discount"
)

// Line is an additional invoice line entered by hand.
type Line struct {
	Text   string   `json:"text"`
	Type   LineType `json:"type"`
	Amount Amount   `json:"amount"`
}

// Signed is the line's contribution to the subtotal.
func (l Line) Signed() Amount {
	if l.Type == Discount {
		return -l.Amount
	}
	return l.Amount
}

// ParseLine reads "text:type:amount", e.g. "Hosting:cost:25.00".
func ParseLine(s string) (Line, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Line{}, fmt.Errorf("invalid line %q, expected text:type:amount", s)
	}
	l := Line{Text: strings.TrimSpace(parts[0]), Type: LineType(strings.TrimSpace(parts[1]))}
	if l.Text == "" {
		return Line{}, fmt.Errorf("invalid line %q: text is empty", s)
	}
	if l.Type != Cost && l.Type != Discount {
		return Line{}, fmt.Errorf("invalid line %q: type must be cost or discount", s)
	}
	a, err := ParseAmount(parts[2])
	if err != nil {
		return Line{}, err
	}
	if a < 0 {
		return Line{}, fmt.Errorf("invalid line %q: amount must not be negative", s)
	}
	l.Amount = a
	return l, nil
}

type Item struct {
	ProjectName string `json:"projectName"`
	Minutes     int64  `json:"minutes"`
	Amount      Amount `json:"amount"`
}

type Tax struct {
	Name   string `json:"name"`
	Amount Amount `json:"amount"`
}

// Invoice is an invoice as listed, or in full when previewed.
type Invoice struct {
	ID         string `json:"_id,omitempty"`
	Created    int64  `json:"_created,omitempty"`
	Client     string `json:"client,omitempty"`
	ClientName string `json:"clientName,omitempty"`
	Identifier string `json:"identifier,omitempty"`
	Start      int64  `json:"start"`
	End        int64  `json:"end"`
	Items      []Item `json:"items,omitempty"`
	Additional []Line `json:"additional,omitempty"`
	Taxes      []Tax  `json:"taxes,omitempty"`
	Subtotal   Amount `json:"subtotal"`
	Total      Amount `json:"total"`
}

// Totals computes the subtotal (items and additional lines) and the total
// (subtotal plus taxes).
func Totals(items []Item, lines []Line, taxes []Tax) (subtotal, total Amount) {
	for _, i := range items {
		subtotal += i.Amount
	}
	for _, l := range lines {
		subtotal += l.Signed()
	}
	total = subtotal
	for _, t := range taxes {
		total += t.Amount
	}
	return subtotal, total
}

// Check reports whether the invoice's own totals add up.
func (inv *Invoice) Check() error {
	sub, total := Totals(inv.Items, inv.Additional, inv.Taxes)
	if sub != inv.Subtotal || total != inv.Total {
		return fmt.Errorf("invoice %s totals %s/%s, expected %s/%s",
			inv.Identifier, inv.Subtotal, inv.Total, sub, total)
	}
	return nil
}

type Payment struct {
	ID          string `json:"_id"`
	Created     int64  `json:"_created"`
	ClientName  string `json:"clientName"`
	Transaction string `json:"transaction"`
	Amount      Amount `json:"amount"`
}

// Range is a pair of unix timestamps, sent as [start, end].
type Range [2]int64

func NewRange(start, end time.Time) Range { return Range{start.Unix(), end.Unix()} }

func (r Range) Start() time.Time { return time.Unix(r[0], 0) }
func (r Range) End() time.Time   { return time.Unix(r[1], 0) }

// PreviousMonth is the first 00:00:00 to the last 23:59:59 of the month
// before now.
func PreviousMonth(now time.Time) Range {
	y, m, _ := now.Date()
	first := time.Date(y, m-1, 1, 0, 0, 0, 0, now.Location())
	last := time.Date(y, m, 0, 23, 59, 59, 0, now.Location())
	return NewRange(first, last)
}

// LastYear is 365 days ago at 00:00:00 to today at 23:59:59.
func LastYear(now time.Time) Range {
	y, m, d := now.Date()
	start := time.Date(y, m, d-365, 0, 0, 0, 0, now.Location())
	end := time.Date(y, m, d, 23, 59, 59, 0, now.Location())
	return NewRange(start, end)
}

// DayStart parses YYYY-MM-DD as 00:00:00 that day in loc.
func DayStart(date string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	return t, nil
}

// DayEnd parses YYYY-MM-DD as 23:59:59 that day in loc.
func DayEnd(date string, loc *time.Location) (time.Time, error) {
	t, err := DayStart(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.Add(24*time.Hour - time.Second), nil
}

// ParseRange builds a range from two dates. Either may be empty to keep the
// matching bound of def.
func ParseRange(from, to string, def Range, loc *time.Location) (Range, error) {
	r := def
	if from != "" {
		t, err := DayStart(from, loc)
		if err != nil {
			return Range{}, err
		}
		r[0] = t.Unix()
	}
	if to != "" {
		t, err := DayEnd(to, loc)
		if err != nil {
			return Range{}, err
		}
		r[1] = t.Unix()
	}
	if r[0] > r[1] {
		return Range{}, errors.New("range starts after it ends")
	}
	return r, nil
}

// Service wraps the billing calls.
type Service struct {
	api API
}

func NewService(api API) *Service { return &Service{api: api} }

func (s *Service) Invoices(ctx context.Context, r Range) ([]Invoice, error) {
	return readList[Invoice](ctx, s.api, "invoices", map[string]any{"range": r})
}

func (s *Service) Payments(ctx context.Context, r Range) ([]Payment, error) {
	return readList[Payment](ctx, s.api, "payments", map[string]any{"range": r})
}

// GenerateRequest describes an invoice to preview or generate.
type GenerateRequest struct {
	Client     string
	Range      Range
	Additional []Line
}

func (g GenerateRequest) data() map[string]any {
	d := map[string]any{
		"client": g.Client,
		"start":  g.Range[0],
		"end":    g.Range[1],
	}
	if len(g.Additional) > 0 {
		d["additional"] = g.Additional
	}
	return d
}

// Preview returns the invoice that Generate would create.
func (s *Service) Preview(ctx context.Context, g GenerateRequest) (*Invoice, error) {
	return readOne[Invoice](ctx, s.api.Read, "invoice/preview", g.data())
}

func (s *Service) Generate(ctx context.Context, g GenerateRequest) (*Invoice, error) {
	inv, err := readOne[Invoice](ctx, s.api.Create, "invoice", g.data())
	if err != nil {
		return nil, err
	}
	log.Infow("invoice generated", "id", inv.ID, "identifier", inv.Identifier)
	return inv, nil
}

// PDF returns the link to the invoice's PDF.
func (s *Service) PDF(ctx context.Context, id string) (string, error) {
	link, err := readOne[string](ctx, s.api.Read, "invoice/pdf", map[string]any{"_id": id})
	if err != nil {
		return "", err
	}
	return *link, nil
}

// Owes returns the signed in client's balance.
func (s *Service) Owes(ctx context.Context) (Amount, error) {
	a, err := readOne[Amount](ctx, s.api.Read, "client/owes", nil)
	if err != nil {
		return 0, err
	}
	return *a, nil
}

type call func(ctx context.Context, service, noun string, data any) (*rest.Envelope, error)

func readOne[T any](ctx context.Context, fn call, noun string, data any) (*T, error) {
	env, err := fn(ctx, service, noun, data)
	if err != nil {
		return nil, err
	}
	var v T
	if err := env.Decode(&v); err != nil {
		return nil, fmt.Errorf("%s: %w", noun, err)
	}
	return &v, nil
}

func readList[T any](ctx context.Context, api API, noun string, data any) ([]T, error) {
	env, err := api.Read(ctx, service, noun, data)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := env.Decode(&out); err != nil && !errors.Is(err, rest.ErrNoData) {
		return nil, fmt.Errorf("%s: %w", noun, err)
	}
	return out, nil
}
