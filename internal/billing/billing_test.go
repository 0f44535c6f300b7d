package billing

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tims/internal/rest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want Amount
	}{
		{"0.00", 0},
		{"12", 1200},
		{"12.5", 1250},
		{"12.05", 1205},
		{".99", 99},
		{"-3.10", -310},
		{" 7.00 ", 700},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "abc", "1.234", "1.2.3", "1,00"} {
		_, err := ParseAmount(bad)
		assert.Error(t, err, bad)
	}

	got, err := ParseAmount("92233720368547757.99")
	require.NoError(t, err)
	assert.Equal(t, Amount(math.MaxInt64-8), got)

	for _, big := range []string{"200000000000000000", "-92233720368547758.00", "99999999999999999999999"} {
		_, err := ParseAmount(big)
		assert.ErrorIs(t, err, ErrAmountRange, big)
	}

	var a Amount
	assert.ErrorIs(t, json.Unmarshal([]byte(`"200000000000000000.00"`), &a), ErrAmountRange)
}

func TestAmountJSON(t *testing.T) {
	b, err := json.Marshal(Amount(-1250))
	require.NoError(t, err)
	assert.Equal(t, `"-12.50"`, string(b))

	var a Amount
	require.NoError(t, json.Unmarshal([]byte(`"40.125"`), &a))
	assert.Equal(t, Amount(4012), a)
	require.NoError(t, json.Unmarshal([]byte(`15.5`), &a))
	assert.Equal(t, Amount(1550), a)
}

func TestTotals(t *testing.T) {
	items := []Item{{ProjectName: "Site", Amount: 10000}, {ProjectName: "App", Amount: 5050}}
	lines := []Line{{Text: "Hosting", Type: Cost, Amount: 2000}, {Text: "Loyalty", Type: Discount, Amount: 1050}}
	taxes := []Tax{{Name: "GST", Amount: 700}, {Name: "QST", Amount: 1396}}

	sub, total := Totals(items, lines, taxes)
	assert.Equal(t, Amount(16000), sub)
	assert.Equal(t, Amount(18096), total)

	inv := Invoice{Items: items, Additional: lines, Taxes: taxes, Subtotal: sub, Total: total}
	assert.NoError(t, inv.Check())
	inv.Total++
	assert.Error(t, inv.Check())
}

func TestParseLine(t *testing.T) {
	l, err := ParseLine("Hosting:cost:25")
	require.NoError(t, err)
	assert.Equal(t, Line{Text: "Hosting", Type: Cost, Amount: 2500}, l)

	l, err = ParseLine("Referral:discount:5.50")
	require.NoError(t, err)
	assert.Equal(t, Amount(-550), l.Signed())

	for _, bad := range []string{"Hosting", "Hosting:tax:1.00", ":cost:1", "Hosting:cost:-1"} {
		_, err := ParseLine(bad)
		assert.Error(t, err, bad)
	}
}

func TestRanges(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, loc)

	prev := PreviousMonth(now)
	assert.Equal(t, time.Date(2023, 12, 1, 0, 0, 0, 0, loc), prev.Start().In(loc))
	assert.Equal(t, time.Date(2023, 12, 31, 23, 59, 59, 0, loc), prev.End().In(loc))

	year := LastYear(now)
	assert.Equal(t, time.Date(2023, 1, 10, 0, 0, 0, 0, loc), year.Start().In(loc))
	assert.Equal(t, time.Date(2024, 1, 10, 23, 59, 59, 0, loc), year.End().In(loc))
}

func TestParseRange(t *testing.T) {
	loc := time.UTC
	def := PreviousMonth(time.Date(2024, 3, 5, 0, 0, 0, 0, loc))

	r, err := ParseRange("2024-02-10", "", def, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 10, 0, 0, 0, 0, loc).Unix(), r[0])
	assert.Equal(t, def[1], r[1])

	r, err = ParseRange("", "2024-02-20", def, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 20, 23, 59, 59, 0, loc).Unix(), r[1])

	_, err = ParseRange("2024-02-20", "2024-02-10", def, loc)
	assert.Error(t, err)
	_, err = ParseRange("20/02/2024", "", def, loc)
	assert.Error(t, err)
}

func TestOwesState(t *testing.T) {
	assert.Equal(t, PaidInFull, StateOf(0))
	assert.Equal(t, AmountDue, StateOf(1))
	assert.Equal(t, Credit, StateOf(-1))
	assert.Contains(t, OwesMessage(-4500), "$45.00")
	assert.Contains(t, OwesMessage(12000), "$120.00")
	assert.Equal(t, "Paid in Full", StateOf(0).String())
}

func newService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewService(rest.New(srv.URL, rest.Hooks{}))
}

func reply(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestInvoicesSendsRange(t *testing.T) {
	r := Range{100, 200}
	svc := newService(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/primary/invoices", req.URL.Path)
		assert.JSONEq(t, `{"range":[100,200]}`, req.URL.Query().Get("d"))
		reply(w, map[string]any{"data": []map[string]any{{"_id": "i1", "identifier": "0001", "total": "99.90"}}})
	})

	list, err := svc.Invoices(context.Background(), r)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, Amount(9990), list[0].Total)
}

func TestGenerateSendsAdditional(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodPost, req.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, "c1", body["client"])
		assert.Equal(t, []any{map[string]any{"text": "Hosting", "type": "cost", "amount": "25.00"}}, body["additional"])
		reply(w, map[string]any{"data": map[string]any{"_id": "i2", "identifier": "0002", "subtotal": "25.00", "total": "25.00"}})
	})

	inv, err := svc.Generate(context.Background(), GenerateRequest{
		Client:     "c1",
		Range:      Range{1, 2},
		Additional: []Line{{Text: "Hosting", Type: Cost, Amount: 2500}},
	})
	require.NoError(t, err)
	assert.Equal(t, "i2", inv.ID)
}

func TestPDFNoSuchInvoice(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, req *http.Request) {
		reply(w, map[string]any{"error": map[string]any{"code": rest.CodeDBNoRecord, "msg": []string{"i9", "invoice"}}})
	})

	_, err := svc.PDF(context.Background(), "i9")
	var se *rest.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, rest.CodeDBNoRecord, se.Code)
}

func TestOwes(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/primary/client/owes", req.URL.Path)
		reply(w, map[string]any{"data": "-45.00"})
	})
	a, err := svc.Owes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Credit, StateOf(a))
}
