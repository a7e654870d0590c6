package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/doecerto/doecerto/internal/upload"
)

// newUploadTestHandlers builds handlers around a service that is never
// asked to talk to real storage in these tests.
func newUploadTestHandlers(t *testing.T) *UploadHandlers {
	t.Helper()

	service, err := upload.NewService(upload.ServiceConfig{
		BucketName:      "test-bucket",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		Endpoint:        "https://test.r2.cloudflarestorage.com",
		MaxSizeMB:       15,
	})
	if err != nil {
		t.Fatalf("failed to create upload service: %v", err)
	}
	return NewUploadHandlers(service)
}

func signUpload(t *testing.T, handlers *UploadHandlers, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/uploads/sign", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handlers.SignUpload(w, req)
	return w
}

func decodeUploadError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()

	var errResp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return errResp
}

func TestSignUpload_InvalidJSON(t *testing.T) {
	handlers := newUploadTestHandlers(t)

	w := signUpload(t, handlers, []byte("invalid json"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
	if errResp := decodeUploadError(t, w); errResp.Error.Code != ErrCodeBadRequest {
		t.Errorf("expected error code %s, got %s", ErrCodeBadRequest, errResp.Error.Code)
	}
}

func TestSignUpload_MissingContentType(t *testing.T) {
	handlers := newUploadTestHandlers(t)

	body, _ := json.Marshal(SignUploadRequest{SizeBytes: 1024, Kind: upload.KindAvatar})
	w := signUpload(t, handlers, body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
	if errResp := decodeUploadError(t, w); errResp.Error.Code != ErrCodeValidation {
		t.Errorf("expected error code %s, got %s", ErrCodeValidation, errResp.Error.Code)
	}
}

func TestSignUpload_InvalidSize(t *testing.T) {
	handlers := newUploadTestHandlers(t)

	for _, size := range []int64{0, -1} {
		body, _ := json.Marshal(SignUploadRequest{ContentType: "image/jpeg", SizeBytes: size, Kind: upload.KindAvatar})
		w := signUpload(t, handlers, body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("size %d: expected status 400, got %d", size, w.Code)
		}
	}
}

func TestSignUpload_UnsupportedType(t *testing.T) {
	handlers := newUploadTestHandlers(t)

	body, _ := json.Marshal(SignUploadRequest{ContentType: "image/gif", SizeBytes: 1024 * 1024, Kind: upload.KindAvatar})
	w := signUpload(t, handlers, body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
	if errResp := decodeUploadError(t, w); errResp.Error.Code != ErrCodeUnsupportedType {
		t.Errorf("expected error code %s, got %s", ErrCodeUnsupportedType, errResp.Error.Code)
	}
}

func TestSignUpload_FileTooLarge(t *testing.T) {
	handlers := newUploadTestHandlers(t)

	// 20MB exceeds the configured 15MB limit.
	body, _ := json.Marshal(SignUploadRequest{ContentType: "image/jpeg", SizeBytes: 20 * 1024 * 1024, Kind: upload.KindAvatar})
	w := signUpload(t, handlers, body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}

	errResp := decodeUploadError(t, w)
	if errResp.Error.Code != ErrCodeValidation {
		t.Errorf("expected error code %s, got %s", ErrCodeValidation, errResp.Error.Code)
	}
	if errResp.Error.Message != "File size exceeds maximum allowed" {
		t.Errorf("unexpected error message: %s", errResp.Error.Message)
	}
}

func TestSignUpload_InvalidKind(t *testing.T) {
	handlers := newUploadTestHandlers(t)

	body, _ := json.Marshal(SignUploadRequest{ContentType: "image/png", SizeBytes: 1024, Kind: "documents"})
	w := signUpload(t, handlers, body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
	if errResp := decodeUploadError(t, w); errResp.Error.Code != ErrCodeValidation {
		t.Errorf("expected error code %s, got %s", ErrCodeValidation, errResp.Error.Code)
	}
}
