package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/doecerto/doecerto/internal/category"
)

func TestListCategories_SortedByName(t *testing.T) {
	categories := category.NewInMemoryRepository()
	for _, name := range []string{"Saúde", "Animais", "Educação"} {
		if err := categories.Create(context.Background(), &category.Category{Name: name}); err != nil {
			t.Fatalf("failed to create category %s: %v", name, err)
		}
	}
	handlers := NewCategoryHandlers(categories)

	req := httptest.NewRequest(http.MethodGet, "/categories", nil)
	w := httptest.NewRecorder()
	handlers.ListCategories(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var response struct {
		Categories []category.Category `json:"categories"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	want := []string{"Animais", "Educação", "Saúde"}
	if len(response.Categories) != len(want) {
		t.Fatalf("expected %d categories, got %d", len(want), len(response.Categories))
	}
	for i, name := range want {
		if response.Categories[i].Name != name {
			t.Errorf("position %d: expected %s, got %s", i, name, response.Categories[i].Name)
		}
	}
}

func TestCreateCategory_DuplicateName(t *testing.T) {
	categories := category.NewInMemoryRepository()
	handlers := NewCategoryHandlers(categories)

	send := func() *httptest.ResponseRecorder {
		body, _ := json.Marshal(CreateCategoryRequest{Name: "Educação"})
		req := httptest.NewRequest(http.MethodPost, "/admin/categories", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		handlers.CreateCategory(w, req)
		return w
	}

	if w := send(); w.Code != http.StatusCreated {
		t.Fatalf("first create: expected status 201, got %d", w.Code)
	}
	w := send()
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate create: expected status 409, got %d", w.Code)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if errResp.Error.Code != ErrCodeConflict {
		t.Errorf("expected error code %s, got %s", ErrCodeConflict, errResp.Error.Code)
	}
}

func TestCreateCategory_BlankName(t *testing.T) {
	handlers := NewCategoryHandlers(category.NewInMemoryRepository())

	body, _ := json.Marshal(CreateCategoryRequest{Name: "   "})
	req := httptest.NewRequest(http.MethodPost, "/admin/categories", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handlers.CreateCategory(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestCreateCategory_InvalidColor(t *testing.T) {
	handlers := NewCategoryHandlers(category.NewInMemoryRepository())

	body, _ := json.Marshal(CreateCategoryRequest{Name: "Saúde", Color: "blue"})
	req := httptest.NewRequest(http.MethodPost, "/admin/categories", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handlers.CreateCategory(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	body, _ = json.Marshal(CreateCategoryRequest{Name: "Saúde", Color: "#2E8540"})
	req = httptest.NewRequest(http.MethodPost, "/admin/categories", bytes.NewReader(body))
	w = httptest.NewRecorder()
	handlers.CreateCategory(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var c category.Category
	if err := json.NewDecoder(w.Body).Decode(&c); err != nil {
		t.Fatalf("failed to decode category: %v", err)
	}
	if c.Color != "#2E8540" {
		t.Errorf("expected color stored, got %q", c.Color)
	}
}

func TestDeleteCategory(t *testing.T) {
	categories := category.NewInMemoryRepository()
	c := &category.Category{Name: "Educação"}
	if err := categories.Create(context.Background(), c); err != nil {
		t.Fatalf("failed to create category: %v", err)
	}
	handlers := NewCategoryHandlers(categories)

	req := httptest.NewRequest(http.MethodDelete, "/admin/categories/1", nil)
	w := httptest.NewRecorder()
	handlers.DeleteCategory(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/admin/categories/1", nil)
	w = httptest.NewRecorder()
	handlers.DeleteCategory(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for deleted category, got %d", w.Code)
	}
}
