package routes

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

type testValidator struct {
	validator *validator.Validate
}

func (cv *testValidator) Validate(i any) error {
	return cv.validator.Struct(i)
}

func newUploadRequest(t *testing.T, fieldName string, fileName string, content string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if fileName != "" {
		part, err := writer.CreateFormFile(fieldName, fileName)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/corpora", &buf)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

func TestUploadCorpusHandlerRejectsBadUploads(t *testing.T) {
	tests := []struct {
		name        string
		fieldName   string
		fileName    string
		content     string
		wantMessage string
	}{
		{
			name:        "missing file",
			fieldName:   "other",
			fileName:    "",
			wantMessage: "Missing corpus file",
		},
		{
			name:        "wrong form field",
			fieldName:   "file",
			fileName:    "corpus.txt",
			content:     "Subject: Hi",
			wantMessage: "Missing corpus file",
		},
		{
			name:        "pdf upload",
			fieldName:   "corpus",
			fileName:    "corpus.pdf",
			content:     "%PDF-1.4",
			wantMessage: "Only .csv and .txt corpus files are accepted",
		},
		{
			name:        "no extension",
			fieldName:   "corpus",
			fileName:    "corpus",
			content:     "Subject: Hi",
			wantMessage: "Only .csv and .txt corpus files are accepted",
		},
		{
			name:        "oversized corpus",
			fieldName:   "corpus",
			fileName:    "corpus.txt",
			content:     strings.Repeat("a", maxCorpusSize+1),
			wantMessage: "Corpus file exceeds the 10MB limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.Validator = &testValidator{validator: validator.New()}

			req := newUploadRequest(t, tt.fieldName, tt.fileName, tt.content)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			if err := UploadCorpusHandler(c); err != nil {
				t.Fatalf("UploadCorpusHandler() error = %v", err)
			}
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}

			var res struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
				t.Fatal(err)
			}
			if res.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", res.Message, tt.wantMessage)
			}
		})
	}
}
