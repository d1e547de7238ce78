package http

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"harmonia/internal/domain"
	"harmonia/internal/imaging"
	"harmonia/internal/service"
	"harmonia/internal/vision"
)

type mockRatingRepo struct {
	ratings []domain.Rating
}

func (m *mockRatingRepo) CreateBatch(_ context.Context, ratings []domain.Rating) error {
	m.ratings = append(m.ratings, ratings...)
	return nil
}

func (m *mockRatingRepo) ListByUser(_ context.Context, userID string) ([]domain.Rating, error) {
	var out []domain.Rating
	for _, r := range m.ratings {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockProfileRepo struct {
	profiles map[string]domain.PreferenceProfile
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{profiles: make(map[string]domain.PreferenceProfile)}
}

func (m *mockProfileRepo) Upsert(_ context.Context, profile domain.PreferenceProfile) error {
	m.profiles[profile.UserID] = profile
	return nil
}

func (m *mockProfileRepo) GetByUserID(_ context.Context, userID string) (domain.PreferenceProfile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return domain.PreferenceProfile{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockProfileRepo) Nearest(_ context.Context, _ pgvector.Vector, excludeUserID string, k int) ([]domain.PreferenceProfile, error) {
	var out []domain.PreferenceProfile
	for _, p := range m.profiles {
		if p.UserID == excludeUserID {
			continue
		}
		out = append(out, p)
		if len(out) == k {
			break
		}
	}
	return out, nil
}

func writeTestPNG(t *testing.T, dir, name string, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("create image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode image: %v", err)
	}
}

type calibrationFixture struct {
	router   *gin.Engine
	users    *mockUserRepo
	ratings  *mockRatingRepo
	profiles *mockProfileRepo
	token    string
	userID   string
	imageIDs []string
}

func setupCalibrationFixture(t *testing.T) *calibrationFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	names := []string{"p01.png", "p02.png", "p03.png", "p04.png"}
	for i, name := range names {
		writeTestPNG(t, dir, name, color.RGBA{R: uint8(40 * i), G: 90, B: 200, A: 255})
	}
	catalog := imaging.NewCatalog(dir)

	logger := zap.NewNop()
	extractor := service.NewExtractionService(
		logger,
		&vision.MockBackbone{},
		vision.NewMemoryFeatureCache(),
		catalog,
		2,
		5*time.Second,
		0.8,
	)
	calSvc := service.NewCalibrationService(logger, extractor, vision.NewSeededGenerator(7), 0.5)

	users := newMockUserRepo()
	userID := "user-1"
	if err := users.Create(context.Background(), domain.User{
		ID:       userID,
		Email:    "user@example.com",
		Username: "tester",
		Gender:   "male",
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	jwtSvc := newTestJWTService()
	pair, err := jwtSvc.GeneratePair(domain.User{ID: userID, Email: "user@example.com"})
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}

	ratings := &mockRatingRepo{}
	profiles := newMockProfileRepo()
	h := NewCalibrationHandler(logger, calSvc, catalog, ratings, profiles, users, len(names))

	r := gin.New()
	group := r.Group("/api/calibration", JWTAuthMiddleware(jwtSvc))
	group.GET("/images", h.Images)
	group.GET("/images/:filename", h.ImageFile)
	group.POST("/submit", h.Submit)
	group.GET("/vector", h.Vector)
	group.GET("/matches", h.Matches)

	return &calibrationFixture{
		router:   r,
		users:    users,
		ratings:  ratings,
		profiles: profiles,
		token:    pair.AccessToken,
		userID:   userID,
		imageIDs: []string{"p01", "p02", "p03", "p04"},
	}
}

func (f *calibrationFixture) fullRatings() map[string]int {
	ratings := make(map[string]int, len(f.imageIDs))
	for i, id := range f.imageIDs {
		ratings[id] = (i % 5) + 1
	}
	return ratings
}

func TestCalibrationHandlerImages(t *testing.T) {
	f := setupCalibrationFixture(t)

	rec := performRequest(f.router, http.MethodGet, "/api/calibration/images", nil, f.token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Images []domain.CalibrationImage `json:"images"`
		Total  int                       `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 4 || len(resp.Images) != 4 {
		t.Fatalf("expected 4 images, got %d", resp.Total)
	}

	rec = performRequest(f.router, http.MethodGet, "/api/calibration/images", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("sin token: expected 401, got %d", rec.Code)
	}
}

func TestCalibrationHandlerImageFile(t *testing.T) {
	f := setupCalibrationFixture(t)

	rec := performRequest(f.router, http.MethodGet, "/api/calibration/images/p01.png", nil, f.token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Fatalf("expected image bytes")
	}

	rec = performRequest(f.router, http.MethodGet, "/api/calibration/images/missing.png", nil, f.token)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCalibrationHandlerSubmit(t *testing.T) {
	f := setupCalibrationFixture(t)

	rec := performRequest(f.router, http.MethodPost, "/api/calibration/submit", map[string]any{
		"ratings": f.fullRatings(),
	}, f.token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		VisualVector domain.VisualVector `json:"visual_vector"`
		Confidence   float64             `json:"confidence"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.VisualVector.Meta.UserID != f.userID {
		t.Fatalf("unexpected user in document: %q", resp.VisualVector.Meta.UserID)
	}
	if len(resp.VisualVector.SelfAnalysis.EmbeddingVector) != domain.FeatureDim {
		t.Fatalf("embedding dim = %d", len(resp.VisualVector.SelfAnalysis.EmbeddingVector))
	}
	if len(resp.VisualVector.PreferenceModel.IdealVector) != domain.FeatureDim {
		t.Fatalf("ideal dim = %d", len(resp.VisualVector.PreferenceModel.IdealVector))
	}

	if len(f.ratings.ratings) != 4 {
		t.Fatalf("expected 4 persisted ratings, got %d", len(f.ratings.ratings))
	}
	if _, ok := f.profiles.profiles[f.userID]; !ok {
		t.Fatalf("expected persisted profile")
	}
	if user, _ := f.users.GetByID(context.Background(), f.userID); !user.CalibrationComplete {
		t.Fatalf("expected calibration_complete flag")
	}
}

func TestCalibrationHandlerSubmit_Validation(t *testing.T) {
	f := setupCalibrationFixture(t)

	// Set incompleto: faltan imagenes asignadas.
	rec := performRequest(f.router, http.MethodPost, "/api/calibration/submit", map[string]any{
		"ratings": map[string]int{"p01": 5},
	}, f.token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	// Estrellas fuera de rango.
	ratings := f.fullRatings()
	ratings["p01"] = 9
	rec = performRequest(f.router, http.MethodPost, "/api/calibration/submit", map[string]any{
		"ratings": ratings,
	}, f.token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	if len(f.ratings.ratings) != 0 {
		t.Fatalf("no deberia persistir ratings de requests invalidos")
	}
}

func TestCalibrationHandlerVector(t *testing.T) {
	f := setupCalibrationFixture(t)

	rec := performRequest(f.router, http.MethodGet, "/api/calibration/vector", nil, f.token)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("antes de calibrar: expected 404, got %d", rec.Code)
	}

	rec = performRequest(f.router, http.MethodPost, "/api/calibration/submit", map[string]any{
		"ratings": f.fullRatings(),
	}, f.token)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d", rec.Code)
	}

	rec = performRequest(f.router, http.MethodGet, "/api/calibration/vector", nil, f.token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		VisualVector domain.VisualVector `json:"visual_vector"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.VisualVector.Meta.UserID != f.userID {
		t.Fatalf("unexpected document owner: %q", resp.VisualVector.Meta.UserID)
	}
}

func TestCalibrationHandlerMatches(t *testing.T) {
	f := setupCalibrationFixture(t)

	rec := performRequest(f.router, http.MethodGet, "/api/calibration/matches", nil, f.token)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("antes de calibrar: expected 404, got %d", rec.Code)
	}

	// Otro perfil ya calibrado para que haya candidatos.
	f.profiles.profiles["user-2"] = domain.PreferenceProfile{
		ID:     "p2",
		UserID: "user-2",
		Document: domain.VisualVector{
			PreferenceModel: domain.PreferenceModel{CalibrationConfidence: 0.4},
		},
	}

	rec = performRequest(f.router, http.MethodPost, "/api/calibration/submit", map[string]any{
		"ratings": f.fullRatings(),
	}, f.token)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d", rec.Code)
	}

	rec = performRequest(f.router, http.MethodGet, "/api/calibration/matches", nil, f.token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Matches []struct {
			UserID string `json:"user_id"`
		} `json:"matches"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Matches) != 1 || resp.Matches[0].UserID != "user-2" {
		t.Fatalf("unexpected matches: %+v", resp.Matches)
	}
}
