package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Faultbox/reliefmesh/internal/relief"
	"github.com/Faultbox/reliefmesh/internal/store"
)

func createTestPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 40, 20))
	for y := range 20 {
		for x := range 40 {
			img.SetGray(x, y, color.Gray{Y: uint8(x * 6)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type testEnv struct {
	srv       *Server
	outputDir string
	uploadDir string
	inputPath string
}

func newTestEnv(t *testing.T, withStore bool) *testEnv {
	t.Helper()
	root := t.TempDir()
	env := &testEnv{
		outputDir: filepath.Join(root, "out"),
		uploadDir: filepath.Join(root, "uploads"),
		inputPath: filepath.Join(root, "input.png"),
	}
	if err := os.WriteFile(env.inputPath, createTestPNG(t), 0644); err != nil {
		t.Fatal(err)
	}

	var st *store.Store
	var rec relief.Recorder
	if withStore {
		var err error
		st, err = store.Open(filepath.Join(root, "records.db"))
		if err != nil {
			t.Fatalf("opening store: %v", err)
		}
		t.Cleanup(func() { st.Close() })
		rec = st
	}

	defaults := relief.DefaultRequest()
	defaults.DetailLevel = 0.1

	conv := relief.NewConverter(relief.Options{OutputDir: env.outputDir, Verify: true}, nil, rec)
	env.srv = New(Options{
		Mode:      gin.TestMode,
		OutputDir: env.outputDir,
		UploadDir: env.uploadDir,
		Defaults:  defaults,
	}, conv, st)
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) relief.Result {
	t.Helper()
	var res relief.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decoding response %q: %v", w.Body.String(), err)
	}
	return res
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false)
	w := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestConvert_Form(t *testing.T) {
	env := newTestEnv(t, true)

	form := url.Values{
		"image_path":   {env.inputPath},
		"model_width":  {"20"},
		"skip_depth":   {"true"},
		"invert_depth": {"false"},
	}
	req := httptest.NewRequest(http.MethodPost, "/convert", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := env.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	res := decodeResult(t, w)
	if res.Status != relief.StatusSuccess {
		t.Fatalf("expected success, got %+v", res)
	}
	if _, err := os.Stat(res.MeshPath); err != nil {
		t.Errorf("mesh missing: %v", err)
	}

	// The record is retrievable.
	w = env.do(httptest.NewRequest(http.MethodGet, "/conversions/"+res.ID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var rec store.Conversion
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.Source != env.inputPath || rec.Status != relief.StatusSuccess {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestConvert_JSON(t *testing.T) {
	env := newTestEnv(t, false)

	body, _ := json.Marshal(map[string]any{
		"image_path":   env.inputPath,
		"detail_level": 0.2,
	})
	req := httptest.NewRequest(http.MethodPost, "/convert", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := env.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	// 40x20 at detail 0.2 fits a 64 sample box.
	if res := decodeResult(t, w); res.Width != 64 || res.Height != 32 {
		t.Errorf("expected 64x32 grid, got %dx%d", res.Width, res.Height)
	}
}

func TestConvert_Upload(t *testing.T) {
	env := newTestEnv(t, false)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "photo.PNG")
	if err != nil {
		t.Fatal(err)
	}
	part.Write(createTestPNG(t))
	mw.WriteField("invert_depth", "true")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/convert", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := env.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	entries, _ := os.ReadDir(env.uploadDir)
	if len(entries) != 0 {
		t.Errorf("expected uploads to be removed, found %d", len(entries))
	}
}

func TestConvert_Failures(t *testing.T) {
	env := newTestEnv(t, false)

	tests := []struct {
		name string
		form url.Values
		code int
		kind relief.Kind
	}{
		{"missing file", url.Values{"image_path": {"/does/not/exist.png"}}, http.StatusUnprocessableEntity, relief.KindInputNotFound},
		{"no input", url.Values{"model_width": {"10"}}, http.StatusUnprocessableEntity, relief.KindInvalidInputSpecifier},
		{"bad size", url.Values{"image_path": {env.inputPath}, "base_thickness": {"0"}}, http.StatusUnprocessableEntity, relief.KindInvalidSizeParameter},
		{"oversized grid", url.Values{"image_path": {env.inputPath}, "detail_level": {"5000"}}, http.StatusUnprocessableEntity, relief.KindInvalidSizeParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/convert", strings.NewReader(tt.form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

			w := env.do(req)
			if w.Code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, w.Code)
			}
			res := decodeResult(t, w)
			if res.Status != relief.StatusFailed || res.ErrorKind != tt.kind {
				t.Errorf("expected failed/%s, got %s/%s", tt.kind, res.Status, res.ErrorKind)
			}
		})
	}
}

func TestConvert_BadBinding(t *testing.T) {
	env := newTestEnv(t, false)
	req := httptest.NewRequest(http.MethodPost, "/convert", strings.NewReader("model_width=wide"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if w := env.do(req); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestArtifacts(t *testing.T) {
	env := newTestEnv(t, false)

	form := url.Values{"image_path": {env.inputPath}}
	req := httptest.NewRequest(http.MethodPost, "/convert", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res := decodeResult(t, env.do(req))
	if !res.OK() {
		t.Fatalf("conversion failed: %+v", res)
	}

	w := env.do(httptest.NewRequest(http.MethodGet, "/artifacts/"+filepath.Base(res.MeshPath), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.HasPrefix(w.Body.String(), "solid relief_model") {
		t.Errorf("unexpected artifact body prefix %q", w.Body.String()[:20])
	}

	tests := []struct {
		path string
		code int
	}{
		{"/artifacts/nope.stl", http.StatusNotFound},
		{"/artifacts/.hidden", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if w := env.do(httptest.NewRequest(http.MethodGet, tt.path, nil)); w.Code != tt.code {
			t.Errorf("GET %s: expected %d, got %d", tt.path, tt.code, w.Code)
		}
	}
}

func TestConversions(t *testing.T) {
	env := newTestEnv(t, true)

	for _, p := range []string{env.inputPath, "/missing.png"} {
		form := url.Values{"image_path": {p}}
		req := httptest.NewRequest(http.MethodPost, "/convert", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		env.do(req)
	}

	w := env.do(httptest.NewRequest(http.MethodGet, "/conversions", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var list struct {
		Conversions []store.Conversion `json:"conversions"`
		Count       int                `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Count != 2 {
		t.Errorf("expected 2 records, got %d", list.Count)
	}

	w = env.do(httptest.NewRequest(http.MethodGet, "/conversions?status=failed", nil))
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Count != 1 || list.Conversions[0].ErrorKind != string(relief.KindInputNotFound) {
		t.Errorf("unexpected failed list %+v", list)
	}

	if w := env.do(httptest.NewRequest(http.MethodGet, "/conversions/unknown", nil)); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestConversions_Disabled(t *testing.T) {
	env := newTestEnv(t, false)
	if w := env.do(httptest.NewRequest(http.MethodGet, "/conversions", nil)); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
