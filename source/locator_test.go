package source

import "testing"

func TestParseLocalPath(t *testing.T) {
	loc, err := Parse("data/orders.csv")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if loc.Scheme != SchemeFile {
		t.Fatalf("expected SchemeFile, got %v", loc.Scheme)
	}
	if loc.Path != "data/orders.csv" {
		t.Fatalf("unexpected path %q", loc.Path)
	}
}

func TestParseFragmentFormatAndSelector(t *testing.T) {
	loc, err := Parse("api.json#json:data.users")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	format, selector := loc.Format()
	if format != "json" || selector != "data.users" {
		t.Fatalf("Format() = %q,%q, want json,data.users", format, selector)
	}
}

func TestParseFragmentNoSelector(t *testing.T) {
	loc, err := Parse("report.html#html")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	format, selector := loc.Format()
	if format != "html" || selector != "" {
		t.Fatalf("Format() = %q,%q, want html,\"\"", format, selector)
	}
}

func TestParseHTTPURL(t *testing.T) {
	loc, err := Parse("https://example.com/data.csv")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if loc.Scheme != SchemeHTTP {
		t.Fatalf("expected SchemeHTTP, got %v", loc.Scheme)
	}
}

func TestParseS3URL(t *testing.T) {
	loc, err := Parse("s3://my-bucket/path/to/key.parquet")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if loc.Scheme != SchemeS3 {
		t.Fatalf("expected SchemeS3, got %v", loc.Scheme)
	}
	if loc.Path != "my-bucket/path/to/key.parquet" {
		t.Fatalf("unexpected path %q", loc.Path)
	}
}

func TestParseUnsupportedScheme(t *testing.T) {
	if _, err := Parse("ftp://example.com/x.csv"); err == nil {
		t.Fatal("expected an error for an unsupported scheme")
	}
}

func TestLocatorExt(t *testing.T) {
	loc := Locator{Path: "a/b/data.CSV"}
	if loc.Ext() != ".csv" {
		t.Fatalf("Ext() = %q, want .csv (lowercased)", loc.Ext())
	}
	if (Locator{Path: "noext"}).Ext() != "" {
		t.Fatal("expected empty ext for a path with no dot")
	}
}
