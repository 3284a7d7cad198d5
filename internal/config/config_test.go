package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		OutputFile:  "out.parquet",
		Query:       "SELECT 1",
		Compression: CompressionZstd,
		Conn:        Connection{Port: 5432},
	}
	cfg.Settings.DecimalScale = 18
	cfg.Settings.DecimalPrecision = 38
	return cfg
}

func TestValidateAccumulatesAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.OutputFile = ""
	cfg.Table = "t" // both query and table set
	cfg.Conn.Port = 0

	err := Validate(&cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"--output-file", "--query or --table", "--port"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error should mention %q, got: %v", want, err)
		}
	}
}

func TestValidateQueryXorTable(t *testing.T) {
	cfg := validConfig()
	cfg.Query = ""
	if err := Validate(&cfg); err == nil {
		t.Fatal("neither query nor table should fail")
	}

	cfg.Table = "users"
	if err := Validate(&cfg); err != nil {
		t.Fatalf("table-only should validate: %v", err)
	}
}

func TestValidateCompressionLevelOnlyForSlowCodecs(t *testing.T) {
	level := 5
	for _, tc := range []struct {
		compression Compression
		ok          bool
	}{
		{CompressionZstd, true},
		{CompressionGzip, true},
		{CompressionBrotli, true},
		{CompressionSnappy, false},
		{CompressionNone, false},
		{CompressionLz4, false},
	} {
		cfg := validConfig()
		cfg.Compression = tc.compression
		cfg.CompressionLevel = &level
		err := Validate(&cfg)
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.compression, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s: --compression-level should be rejected", tc.compression)
		}
	}
}

func TestResolvePageSizeUsesSmallerPagesForSlowCompressors(t *testing.T) {
	three := 3
	one := 1
	for _, tc := range []struct {
		compression Compression
		level       *int
		want        int64
	}{
		{CompressionGzip, nil, slowCompressorPage},
		{CompressionBrotli, nil, slowCompressorPage},
		{CompressionZstd, &three, slowCompressorPage},
		{CompressionZstd, &one, defaultPageSize},
		{CompressionZstd, nil, defaultPageSize},
		{CompressionSnappy, nil, defaultPageSize},
	} {
		if got := ResolvePageSize(0, tc.compression, tc.level); got != tc.want {
			t.Fatalf("%s level=%v: want %d, got %d", tc.compression, tc.level, tc.want, got)
		}
	}
	// An explicit configured size always wins.
	if got := ResolvePageSize(4096, CompressionGzip, nil); got != 4096 {
		t.Fatalf("configured size should win, got %d", got)
	}
}

func TestClampCompressionLevel(t *testing.T) {
	if got := ClampCompressionLevel(99, CompressionZstd); got != 22 {
		t.Fatalf("zstd clamp: want 22, got %d", got)
	}
	if got := ClampCompressionLevel(0, CompressionGzip); got != 1 {
		t.Fatalf("gzip clamp: want 1, got %d", got)
	}
	if got := ClampCompressionLevel(42, CompressionLz4); got != 42 {
		t.Fatalf("non-leveled codec should pass through, got %d", got)
	}
}
