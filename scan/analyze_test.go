package scan

import (
	"bytes"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"pdf-quickcheck/config"
)

func deflate(t testing.TB, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}
	return buf.Bytes()
}

// buildPDF wraps each payload in a /FlateDecode stream object.
func buildPDF(eol string, payloads ...[]byte) []byte {
	var b bytes.Buffer
	b.WriteString("%PDF-1.7\n")
	for i, p := range payloads {
		fmt.Fprintf(&b, "%d 0 obj\n<< /Length %d /Filter /FlateDecode >>\nstream%s", i+1, len(p), eol)
		b.Write(p)
		b.WriteString(eol + "endstream\nendobj\n")
	}
	b.WriteString("%%EOF\n")
	return b.Bytes()
}

func indicator(t *testing.T, res *Result, id string) IndicatorResult {
	t.Helper()
	for _, r := range res.Indicators {
		if r.ID == id {
			return r
		}
	}
	t.Fatalf("indicator %q missing", id)
	return IndicatorResult{}
}

func TestAnalyzeJavaScriptInRawView(t *testing.T) {
	data := []byte("%PDF-1.4\n1 0 obj << /S /JavaScript /JS (app.alert(1)) >> endobj\n")

	res, err := Analyze(data, "js.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	js := indicator(t, res, "javascript")
	if !js.Hit || js.Weight != 30 || js.Count != 2 {
		t.Fatalf("javascript = %+v, want hit with weight 30 and count 2", js)
	}
	if res.Meta.PDFVersion != "1.4" {
		t.Fatalf("version = %q, want 1.4", res.Meta.PDFVersion)
	}
	if len(res.Context) == 0 || !strings.HasPrefix(res.Context[0], "[JavaScript] …") {
		t.Fatalf("context = %q, want a [JavaScript] snippet first", res.Context)
	}
	// 30 for JavaScript plus the uncertainty penalty.
	if res.Score.Value != 33 || res.Level() != LevelMedium {
		t.Fatalf("score = %+v, want 33 medium", res.Score)
	}
}

func TestAnalyzeInflatesStreams(t *testing.T) {
	data := buildPDF("\n", deflate(t, "BT (see http://example.com/a now) Tj ET"))

	res, err := Analyze(data, "stream.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f := res.Meta.Flate
	if f.StreamsFound != 1 || f.StreamsInflated != 1 {
		t.Fatalf("flate = %+v, want 1 found and 1 inflated", f)
	}
	if !f.DecompressionAvailable || f.Truncated {
		t.Fatalf("flate = %+v, want available and not truncated", f)
	}
	if !reflect.DeepEqual(res.URLs, []string{"http://example.com/a"}) {
		t.Fatalf("urls = %q", res.URLs)
	}
	// locator bonus only, no penalty
	if res.Score.Value != 2 {
		t.Fatalf("score = %d, want 2", res.Score.Value)
	}
	last := res.Context[len(res.Context)-1]
	if last != "[URLs] http://example.com/a" {
		t.Fatalf("last context entry = %q", last)
	}
}

func TestAnalyzeCRLFStream(t *testing.T) {
	data := buildPDF("\r\n", deflate(t, "/OpenAction 5 0 R"))

	res, err := Analyze(data, "crlf.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Meta.Flate.StreamsInflated != 1 {
		t.Fatalf("flate = %+v, want 1 inflated", res.Meta.Flate)
	}
	if !indicator(t, res, "openaction").Hit {
		t.Fatal("openaction inside the stream should hit")
	}
}

func TestAnalyzeCorruptStream(t *testing.T) {
	data := buildPDF("\n", []byte("definitely not zlib"))

	res, err := Analyze(data, "broken.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := res.Meta.Flate
	if f.StreamsFound != 1 || f.StreamsInflated != 0 || f.BytesInflated != 0 {
		t.Fatalf("flate = %+v, want 1 found, 0 inflated", f)
	}
	if res.Score.Value != 3 {
		t.Fatalf("score = %d, want the uncertainty penalty of 3", res.Score.Value)
	}
}

func TestAnalyzeStreamWithTrailingGarbage(t *testing.T) {
	payload := append(deflate(t, "/Launch /F (cmd.exe)"), "GARBAGE"...)
	data := buildPDF("\n", payload)

	res, err := Analyze(data, "junk.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Meta.Flate.StreamsFound != 1 || res.Meta.Flate.StreamsInflated != 0 {
		t.Fatalf("flate = %+v, want 1 found, 0 inflated", res.Meta.Flate)
	}
	if indicator(t, res, "launch").Hit {
		t.Fatal("launch hidden in a malformed stream should not count")
	}
}

func TestZlibInflaterTrailingBytes(t *testing.T) {
	z := deflate(t, "hello")
	tests := []struct {
		name    string
		trailer string
		wantErr error
	}{
		{name: "none", trailer: ""},
		{name: "eol and spaces", trailer: " \r\n \t"},
		{name: "garbage", trailer: "GARBAGE", wantErr: ErrTrailingData},
		{name: "garbage after eol", trailer: "\r\nx", wantErr: ErrTrailingData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := append(append([]byte{}, z...), tt.trailer...)
			out, err := ZlibInflater{}.Inflate(payload, 1024)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && string(out) != "hello" {
				t.Fatalf("out = %q", out)
			}
		})
	}
}

func TestAnalyzeMissingEndstream(t *testing.T) {
	data := []byte("%PDF-1.5\n<< /Filter /FlateDecode >>\nstream\n")
	data = append(data, deflate(t, "hello")...)

	res, err := Analyze(data, "open.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Meta.Flate.StreamsFound != 1 || res.Meta.Flate.StreamsInflated != 0 {
		t.Fatalf("flate = %+v, want 1 found, 0 inflated", res.Meta.Flate)
	}
}

func TestAnalyzeZeroBytes(t *testing.T) {
	res, err := Analyze(make([]byte, 1024), "zeros.bin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range res.Indicators {
		if r.Hit || r.Count != 0 {
			t.Fatalf("indicator %s should miss: %+v", r.ID, r)
		}
	}
	if len(res.Indicators) != len(Rules) {
		t.Fatalf("got %d indicators, want %d", len(res.Indicators), len(Rules))
	}
	if res.Meta.PDFVersion != UnknownVersion {
		t.Fatalf("version = %q, want %q", res.Meta.PDFVersion, UnknownVersion)
	}
	if res.URLs == nil || len(res.URLs) != 0 {
		t.Fatalf("urls = %#v, want empty non-nil", res.URLs)
	}
	if res.Context == nil || len(res.Context) != 0 {
		t.Fatalf("context = %#v, want empty non-nil", res.Context)
	}
	if res.Meta.SizeBytes != 1024 {
		t.Fatalf("size = %d", res.Meta.SizeBytes)
	}
}

func TestAnalyzeEmptyInput(t *testing.T) {
	res, err := Analyze(nil, "empty.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	const emptySHA = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if res.Meta.SHA256 != emptySHA {
		t.Fatalf("sha256 = %s", res.Meta.SHA256)
	}
	if res.Score.Value != 3 || res.Score.Label != "Low Risk (3/100)" {
		t.Fatalf("score = %+v", res.Score)
	}
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	data := buildPDF("\n",
		deflate(t, "/JavaScript www.example.org /Launch"),
		deflate(t, "mailto:ops@example.org /AcroForm"))

	a, err := Analyze(data, "same.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Analyze(data, "same.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("results differ:\n%+v\n%+v", a, b)
	}
}

func TestAnalyzeWithoutInflater(t *testing.T) {
	data := buildPDF("\n", deflate(t, "http://example.com/hidden"))

	an := &Analyzer{}
	res, err := an.Analyze(context.Background(), Document{Name: "x.pdf", Data: data})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := res.Meta.Flate
	if f.DecompressionAvailable || f.StreamsFound != 1 || f.StreamsInflated != 0 {
		t.Fatalf("flate = %+v, want unavailable with 1 found", f)
	}
	if len(res.URLs) != 0 {
		t.Fatalf("urls = %q, want none without decompression", res.URLs)
	}
}

func TestAnalyzeStreamCap(t *testing.T) {
	data := buildPDF("\n", deflate(t, "a"), deflate(t, "b"), deflate(t, "c"))

	lim := config.DefaultLimits()
	lim.MaxStreams = 2
	res, err := NewAnalyzer(lim).Analyze(context.Background(), Document{Name: "cap.pdf", Data: data})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := res.Meta.Flate
	if f.StreamsFound != 2 || f.StreamsInflated != 2 || !f.Truncated {
		t.Fatalf("flate = %+v, want 2 found, 2 inflated, truncated", f)
	}
}

func TestAnalyzeInflateBudget(t *testing.T) {
	data := buildPDF("\n", deflate(t, "short"), deflate(t, strings.Repeat("x", 500)), deflate(t, "tail"))

	lim := config.DefaultLimits()
	lim.MaxInflatedBytes = 100
	res, err := NewAnalyzer(lim).Analyze(context.Background(), Document{Name: "budget.pdf", Data: data})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := res.Meta.Flate
	if f.StreamsInflated != 1 || f.BytesInflated != len("short") || !f.Truncated {
		t.Fatalf("flate = %+v, want only the first stream counted", f)
	}
	if f.StreamsFound != 2 {
		t.Fatalf("streams found = %d, want scan to stop at the overflowing stream", f.StreamsFound)
	}
}

func TestAnalyzeLookahead(t *testing.T) {
	payload := deflate(t, "x")
	data := []byte("%PDF-1.7\n<< /Filter /FlateDecode /Length 1" + strings.Repeat(" ", 50) + ">>\nstream\n")
	data = append(data, payload...)
	data = append(data, "\nendstream\n"...)

	lim := config.DefaultLimits()
	lim.StreamLookahead = 10
	res, err := NewAnalyzer(lim).Analyze(context.Background(), Document{Name: "far.pdf", Data: data})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Meta.Flate.StreamsFound != 0 {
		t.Fatalf("found %d streams beyond the lookahead", res.Meta.Flate.StreamsFound)
	}

	res, err = Analyze(data, "far.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Meta.Flate.StreamsInflated != 1 {
		t.Fatalf("flate = %+v, want 1 inflated with default lookahead", res.Meta.Flate)
	}
}

func TestAnalyzeCanceledContext(t *testing.T) {
	data := buildPDF("\n", deflate(t, "/Launch"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewAnalyzer(config.DefaultLimits()).Analyze(ctx, Document{Name: "late.pdf", Data: data})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := res.Meta.Flate
	if !f.Truncated || f.StreamsInflated != 0 {
		t.Fatalf("flate = %+v, want truncated without inflated streams", f)
	}
	if indicator(t, res, "launch").Hit {
		t.Fatal("launch is only inside the skipped stream")
	}
}

func TestAnalyzeSnippetCaps(t *testing.T) {
	data := []byte("%PDF-1.3\n" + strings.Repeat("/JS x ", 40))

	res, err := Analyze(data, "many.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	js := indicator(t, res, "javascript")
	if js.Count != 30 {
		t.Fatalf("count = %d, want the per-pattern cap of 30", js.Count)
	}
	if len(res.Context) != 8 {
		t.Fatalf("context has %d entries, want 8", len(res.Context))
	}
}

func TestPDFVersionWindow(t *testing.T) {
	data := append(bytes.Repeat([]byte{' '}, 3000), "%PDF-1.6"...)
	if v := pdfVersion(data, 2048); v != UnknownVersion {
		t.Fatalf("version = %q, want header outside the window ignored", v)
	}
	if v := pdfVersion([]byte("junk%PDF-2.0\n"), 2048); v != "2.0" {
		t.Fatalf("version = %q, want 2.0", v)
	}
}

func BenchmarkAnalyze(b *testing.B) {
	const targetSize = 1 << 20 // ~1MB
	var sb strings.Builder
	sb.Grow(targetSize + 128)
	sb.WriteString("%PDF-1.7\n1 0 obj << /OpenAction 2 0 R /AcroForm 3 0 R >> endobj\n")
	fill := "BT /F1 12 Tf (lorem ipsum dolor sit amet https://example.com/x) Tj ET\n"
	for sb.Len() < targetSize {
		sb.WriteString(fill)
	}
	data := append([]byte(sb.String()), buildPDF("\n", deflate(b, "/JavaScript app.launchURL()"))...)

	an := NewAnalyzer(config.DefaultLimits())
	doc := Document{Name: "bench.pdf", Data: data}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := an.Analyze(context.Background(), doc); err != nil {
			b.Fatal(err)
		}
	}
}

func TestNameTokenBoundaries(t *testing.T) {
	tests := []struct {
		token   string
		rule    string
		wantHit bool
	}{
		{token: "/Annots [1 0 R]", rule: "richmedia", wantHit: false},
		{token: "/JSFoo 1", rule: "javascript", wantHit: false},
		{token: "/AAPL 2", rule: "openaction", wantHit: false},
		{token: "/XRefStm 118", rule: "objstm", wantHit: false},
		{token: "/EncryptMetadata false", rule: "encrypt", wantHit: false},
		{token: "/JS)", rule: "javascript", wantHit: true},
		{token: "/AA<</O 3 0 R>>", rule: "openaction", wantHit: true},
		{token: "/annot ", rule: "richmedia", wantHit: true},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			res, err := Analyze([]byte("%PDF-1.4\n<< "+tt.token+" >>\n"), "names.pdf")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := indicator(t, res, tt.rule)
			if got.Hit != tt.wantHit {
				t.Fatalf("%s on %q: hit = %v (count %d), want %v", tt.rule, tt.token, got.Hit, got.Count, tt.wantHit)
			}
		})
	}
}

func TestNameTokensIgnoreNonASCIIFolding(t *testing.T) {
	// U+017F folds to s under Unicode case rules.
	for _, ind := range matchIndicators("/Jſ /Launch", Rules, 30) {
		want := ind.ID == "launch"
		if ind.Hit != want {
			t.Fatalf("%s hit = %v, want %v", ind.ID, ind.Hit, want)
		}
	}
}
