package customer

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCSV = "\ufeffphone_number,Name,password,mobile_plan_name,monthly_mobile_data_mb,monthly_bill_mobile_amount,remaining_mobile_quota,router_plan_name,monthly_router_quota_mb,monthly_bill_router_amount,remaining_router_quota\n" +
	"01226285272,Ahmed,12345678,GO 7250,7250,150,2000,Home Premium,140000,450,90000\n" +
	"01000000001,Mona,secret,ALO 100,abc,n/a,,,,,\n" +
	",Ghost,pw,,,,,,,,\n"

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func loadSample(t *testing.T) *Directory {
	t.Helper()
	profiles, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return NewDirectory(profiles)
}

func TestParse_SkipsRowsWithoutPhone(t *testing.T) {
	t.Parallel()
	d := loadSample(t)
	if d.Len() != 2 {
		t.Fatalf("Len = %d, want 2", d.Len())
	}
	p, ok := d.Lookup(" 01226285272 ")
	if !ok {
		t.Fatal("Lookup should trim and find Ahmed")
	}
	if p.Name != "Ahmed" || p.MobilePlan != "GO 7250" || p.RouterBillEGP != "450" {
		t.Errorf("unexpected profile: %+v", p)
	}
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()
	d := loadSample(t)

	tests := []struct {
		name, phone, password string
		wantErr               bool
	}{
		{"valid", "01226285272", "12345678", false},
		{"wrong password", "01226285272", "1234567", true},
		{"unknown phone", "01999999999", "12345678", true},
		{"empty password", "01226285272", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p, err := d.Authenticate(tc.phone, tc.password)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidCredentials) {
					t.Fatalf("expected ErrInvalidCredentials, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Name != "Ahmed" {
				t.Errorf("Name = %q", p.Name)
			}
		})
	}
}

func TestProfile_PasswordNeverSerialized(t *testing.T) {
	t.Parallel()
	p, _ := loadSample(t).Lookup("01226285272")
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "12345678") || strings.Contains(string(b), "password") {
		t.Errorf("password leaked: %s", b)
	}
}

func TestMaskedPhone(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"01226285272": "*******5272",
		"1234":        "1234",
		"":            "",
	}
	for in, want := range tests {
		if got := (Profile{Phone: in}).MaskedPhone(); got != want {
			t.Errorf("MaskedPhone(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUsageAndBilling(t *testing.T) {
	t.Parallel()
	d := loadSample(t)

	ahmed, _ := d.Lookup("01226285272")
	u := ahmed.UsageSummary()
	if !u.Mobile.Known || u.Mobile.UsedMB != 5250 {
		t.Errorf("mobile usage = %+v, want used 5250", u.Mobile)
	}
	if !u.Router.Known || u.Router.UsedMB != 50000 {
		t.Errorf("router usage = %+v, want used 50000", u.Router)
	}
	b := ahmed.BillingSummary()
	if !b.Known || b.TotalEGP != 600 {
		t.Errorf("billing = %+v, want total 600", b)
	}

	mona, _ := d.Lookup("01000000001")
	if mona.UsageSummary().Mobile.Known {
		t.Error("non-numeric allowance should be unknown")
	}
	if mona.BillingSummary().Known {
		t.Error("non-numeric bills should be unknown")
	}
}

func TestLoad_MissingFileYieldsEmptyDirectory(t *testing.T) {
	t.Parallel()
	d := Load(filepath.Join(t.TempDir(), "missing.csv"), discard())
	if d.Len() != 0 {
		t.Fatalf("Len = %d, want 0", d.Len())
	}
	if _, err := d.Authenticate("01226285272", "12345678"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("empty directory must reject logins, got %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "customers.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	if d := Load(path, discard()); d.Len() != 2 {
		t.Fatalf("Len = %d, want 2", d.Len())
	}
}
