// Package customer holds the read-only customer directory loaded from the
// operator's CSV export: profile lookup, login checks and the derived
// usage and billing views shown to the logged-in customer.
package customer

import (
	"crypto/subtle"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// ErrInvalidCredentials is returned when the phone number is unknown or the
// password does not match.
var ErrInvalidCredentials = errors.New("customer: invalid phone number or password")

// CSV column names.
const (
	colPhone           = "phone_number"
	colName            = "name"
	colPassword        = "password"
	colMobilePlan      = "mobile_plan_name"
	colMobileDataMB    = "monthly_mobile_data_mb"
	colMobileBill      = "monthly_bill_mobile_amount"
	colRemainingMobile = "remaining_mobile_quota"
	colRouterPlan      = "router_plan_name"
	colRouterQuotaMB   = "monthly_router_quota_mb"
	colRouterBill      = "monthly_bill_router_amount"
	colRemainingRouter = "remaining_router_quota"
)

// Profile is one customer record. Values are kept as the raw CSV strings;
// the typed views (Usage, Billing) parse them on demand.
type Profile struct {
	Phone             string `json:"phone_number"`
	Name              string `json:"Name"`
	MobilePlan        string `json:"mobile_plan_name"`
	MobileDataMB      string `json:"monthly_mobile_data_mb"`
	MobileBillEGP     string `json:"monthly_bill_mobile_amount"`
	RemainingMobileMB string `json:"remaining_mobile_quota"`
	RouterPlan        string `json:"router_plan_name"`
	RouterQuotaMB     string `json:"monthly_router_quota_mb"`
	RouterBillEGP     string `json:"monthly_bill_router_amount"`
	RemainingRouterMB string `json:"remaining_router_quota"`

	password string
}

// MaskedPhone replaces every character except the last four with '*'.
func (p Profile) MaskedPhone() string {
	r := []rune(p.Phone)
	if len(r) <= 4 {
		return p.Phone
	}
	return strings.Repeat("*", len(r)-4) + string(r[len(r)-4:])
}

// Usage is the consumption view of one quota.
type Usage struct {
	AllowanceMB float64 `json:"allowance_mb"`
	RemainingMB float64 `json:"remaining_mb"`
	UsedMB      float64 `json:"used_mb"`
	// Known is false when the allowance or remaining value is not numeric.
	Known bool `json:"known"`
}

// UsageSummary groups the mobile and router quotas.
type UsageSummary struct {
	Mobile Usage `json:"mobile"`
	Router Usage `json:"router"`
}

// Billing is the monthly bill view.
type Billing struct {
	MobileEGP float64 `json:"mobile_egp"`
	RouterEGP float64 `json:"router_egp"`
	TotalEGP  float64 `json:"total_egp"`
	// Known is false when neither bill amount is numeric.
	Known bool `json:"known"`
}

// UsageSummary derives used = allowance - remaining for both quotas.
func (p Profile) UsageSummary() UsageSummary {
	return UsageSummary{
		Mobile: usage(p.MobileDataMB, p.RemainingMobileMB),
		Router: usage(p.RouterQuotaMB, p.RemainingRouterMB),
	}
}

// BillingSummary adds the mobile and router monthly bills.
func (p Profile) BillingSummary() Billing {
	mobile, okM := parseNumber(p.MobileBillEGP)
	router, okR := parseNumber(p.RouterBillEGP)
	return Billing{
		MobileEGP: mobile,
		RouterEGP: router,
		TotalEGP:  mobile + router,
		Known:     okM || okR,
	}
}

func usage(allowanceRaw, remainingRaw string) Usage {
	allowance, okA := parseNumber(allowanceRaw)
	remaining, okR := parseNumber(remainingRaw)
	if !okA || !okR {
		return Usage{AllowanceMB: allowance, RemainingMB: remaining}
	}
	return Usage{
		AllowanceMB: allowance,
		RemainingMB: remaining,
		UsedMB:      max(allowance-remaining, 0),
		Known:       true,
	}
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Directory is the immutable in-memory customer directory keyed by phone.
type Directory struct {
	byPhone map[string]Profile
}

// NewDirectory builds a directory from already-parsed profiles. Later
// duplicates of a phone number win.
func NewDirectory(profiles []Profile) *Directory {
	d := &Directory{byPhone: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		p.Phone = strings.TrimSpace(p.Phone)
		if p.Phone == "" {
			continue
		}
		d.byPhone[p.Phone] = p
	}
	return d
}

// WithPassword returns a copy of p carrying password, for building fixtures.
func (p Profile) WithPassword(password string) Profile {
	p.password = password
	return p
}

// Load reads the customer CSV at path. A missing or unreadable file is
// logged once and yields an empty directory so the assistant still runs.
func Load(path string, log *slog.Logger) *Directory {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn("customer: directory file not found, continuing without customers", slog.String("path", path))
		} else {
			log.Warn("customer: cannot open directory file", slog.String("path", path), slog.String("error", err.Error()))
		}
		return NewDirectory(nil)
	}
	defer f.Close()

	profiles, err := Parse(f)
	if err != nil {
		log.Warn("customer: cannot parse directory file", slog.String("path", path), slog.String("error", err.Error()))
		return NewDirectory(nil)
	}
	log.Info("customer: directory loaded", slog.String("path", path), slog.Int("customers", len(profiles)))
	return NewDirectory(profiles)
}

// Parse decodes customer CSV rows. Header names are matched
// case-insensitively; rows without a phone number are skipped.
func Parse(r io.Reader) ([]Profile, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("customer: read header: %w", err)
	}
	idx := headerIndex(header)
	if _, ok := idx[colPhone]; !ok {
		return nil, fmt.Errorf("customer: header lacks %q column", colPhone)
	}

	var out []Profile
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("customer: read row: %w", err)
		}
		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		p := Profile{
			Phone:             get(colPhone),
			Name:              get(colName),
			MobilePlan:        get(colMobilePlan),
			MobileDataMB:      get(colMobileDataMB),
			MobileBillEGP:     get(colMobileBill),
			RemainingMobileMB: get(colRemainingMobile),
			RouterPlan:        get(colRouterPlan),
			RouterQuotaMB:     get(colRouterQuotaMB),
			RouterBillEGP:     get(colRouterBill),
			RemainingRouterMB: get(colRemainingRouter),
			password:          get(colPassword),
		}
		if p.Phone == "" {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	return idx
}

// Len reports the number of customers.
func (d *Directory) Len() int {
	return len(d.byPhone)
}

// Lookup returns the profile for phone.
func (d *Directory) Lookup(phone string) (Profile, bool) {
	p, ok := d.byPhone[strings.TrimSpace(phone)]
	return p, ok
}

// Authenticate returns the profile when phone exists and password matches
// exactly. Unknown phones and wrong passwords both yield
// ErrInvalidCredentials.
func (d *Directory) Authenticate(phone, password string) (Profile, error) {
	p, ok := d.Lookup(phone)
	if !ok || p.password == "" {
		return Profile{}, ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(p.password), []byte(password)) != 1 {
		return Profile{}, ErrInvalidCredentials
	}
	return p, nil
}
