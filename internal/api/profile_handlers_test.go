package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/doecerto/doecerto/internal/profile"
)

func upsertOngProfile(t *testing.T, handlers *ProfileHandlers, ongUserID int64, req OngProfileRequest) *profile.OngProfile {
	t.Helper()

	body, _ := json.Marshal(req)
	w := httptest.NewRecorder()
	handlers.UpsertMyProfile(w, authedRequest(http.MethodPut, "/me/profile", body, ongUserID, "ong"))
	if w.Code != http.StatusOK {
		t.Fatalf("upsert profile: expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var p profile.OngProfile
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatalf("failed to decode profile: %v", err)
	}
	return &p
}

func TestUpsertMyProfile_Ong(t *testing.T) {
	handlers := NewProfileHandlers(profile.NewInMemoryRepository())

	bio := "Acolhemos crianças em situação de rua desde 2003."
	site := "https://esperanca.org"
	p := upsertOngProfile(t, handlers, 10, OngProfileRequest{
		Bio:         &bio,
		WebsiteURL:  &site,
		CategoryIDs: []int64{1, 3},
	})

	if p.OngID != 10 {
		t.Errorf("expected profile for ONG 10, got %d", p.OngID)
	}
	if p.Bio == nil || *p.Bio != bio {
		t.Errorf("bio not stored: %+v", p.Bio)
	}
	if len(p.CategoryIDs) != 2 {
		t.Errorf("expected two categories, got %v", p.CategoryIDs)
	}
}

func TestUpsertMyProfile_Donor(t *testing.T) {
	handlers := NewProfileHandlers(profile.NewInMemoryRepository())

	bio := "Doo mensalmente para causas animais."
	body, _ := json.Marshal(DonorProfileRequest{Bio: &bio})
	w := httptest.NewRecorder()
	handlers.UpsertMyProfile(w, authedRequest(http.MethodPut, "/me/profile", body, 5, "donor"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var p profile.DonorProfile
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatalf("failed to decode profile: %v", err)
	}
	if p.DonorID != 5 || p.Bio == nil || *p.Bio != bio {
		t.Errorf("unexpected donor profile: %+v", p)
	}
}

func TestUpsertMyProfile_AdminForbidden(t *testing.T) {
	handlers := NewProfileHandlers(profile.NewInMemoryRepository())

	w := httptest.NewRecorder()
	handlers.UpsertMyProfile(w, authedRequest(http.MethodPut, "/me/profile", []byte(`{}`), 99, "admin"))
	if w.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", w.Code)
	}
}

func TestSetMyOngMedia(t *testing.T) {
	handlers := NewProfileHandlers(profile.NewInMemoryRepository())
	upsertOngProfile(t, handlers, 10, OngProfileRequest{})

	avatar := "ongs/10/avatar.webp"
	body, _ := json.Marshal(OngMediaRequest{AvatarURL: &avatar})
	w := httptest.NewRecorder()
	handlers.SetMyOngMedia(w, authedRequest(http.MethodPut, "/me/profile/media", body, 10, "ong"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var p profile.OngProfile
	if err := json.NewDecoder(w.Body).Decode(&p); err != nil {
		t.Fatalf("failed to decode profile: %v", err)
	}
	if p.AvatarURL == nil || *p.AvatarURL != avatar {
		t.Errorf("avatar not stored: %+v", p.AvatarURL)
	}
	if p.BannerURL != nil {
		t.Errorf("banner should stay unset, got %v", *p.BannerURL)
	}
}

func TestSetMyOngMedia_NoProfile(t *testing.T) {
	handlers := NewProfileHandlers(profile.NewInMemoryRepository())

	avatar := "ongs/10/avatar.webp"
	body, _ := json.Marshal(OngMediaRequest{AvatarURL: &avatar})
	w := httptest.NewRecorder()
	handlers.SetMyOngMedia(w, authedRequest(http.MethodPut, "/me/profile/media", body, 10, "ong"))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestGetOngProfile_Public(t *testing.T) {
	handlers := NewProfileHandlers(profile.NewInMemoryRepository())
	upsertOngProfile(t, handlers, 10, OngProfileRequest{CategoryIDs: []int64{2}})

	w := httptest.NewRecorder()
	handlers.GetOngProfile(w, httptest.NewRequest(http.MethodGet, "/ongs/10/profile", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handlers.GetOngProfile(w, httptest.NewRequest(http.MethodGet, "/ongs/404/profile", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for unknown ONG, got %d", w.Code)
	}
}

func TestGetDonorProfile_Public(t *testing.T) {
	handlers := NewProfileHandlers(profile.NewInMemoryRepository())

	bio := "Voluntário aos fins de semana."
	body, _ := json.Marshal(DonorProfileRequest{Bio: &bio})
	w := httptest.NewRecorder()
	handlers.UpsertMyProfile(w, authedRequest(http.MethodPut, "/me/profile", body, 5, "donor"))
	if w.Code != http.StatusOK {
		t.Fatalf("upsert: expected status 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handlers.GetDonorProfile(w, httptest.NewRequest(http.MethodGet, "/donors/5/profile", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handlers.GetDonorProfile(w, httptest.NewRequest(http.MethodGet, "/donors/abc/profile", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for bad id, got %d", w.Code)
	}
}
