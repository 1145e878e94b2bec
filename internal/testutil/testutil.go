package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/mevamscale/internal/auth"
	"github.com/hugh/mevamscale/internal/database"
	"github.com/hugh/mevamscale/internal/database/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database with foreign keys on, so
// the cascade constraints behave as they do in Postgres.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:?_foreign_keys=on"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Every connection to :memory: is a separate database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// TestLogger discards all output.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// CreateTestUser creates a user with password "testpassword123".
func CreateTestUser(t *testing.T, db *gorm.DB, name string, role models.GlobalRole) *models.User {
	t.Helper()

	hash, err := auth.HashPassword("testpassword123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Base: models.Base{
			ID: uuid.New(),
		},
		Email:        "test-" + uuid.New().String()[:8] + "@example.com",
		PasswordHash: hash,
		Name:         name,
		Role:         role,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// CreateTestProject creates a project with the given memberships.
func CreateTestProject(t *testing.T, db *gorm.DB, name string, members ...models.Membership) *models.Project {
	t.Helper()

	project := &models.Project{Name: name}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("failed to create test project: %v", err)
	}

	for _, m := range members {
		m.ProjectID = project.ID
		if err := db.Create(&m).Error; err != nil {
			t.Fatalf("failed to create test membership: %v", err)
		}
	}

	return project
}

// Member builds a membership with one role per domain: sound, worship,
// projection.
func Member(userID uuid.UUID, sound, worship, projection models.ProjectRole) models.Membership {
	return models.Membership{
		UserID:         userID,
		RoleSound:      sound,
		RoleWorship:    worship,
		RoleProjection: projection,
	}
}

// CreateTestTeam creates a team whose members join in the given order.
func CreateTestTeam(t *testing.T, db *gorm.DB, projectID uuid.UUID, name string, members ...models.TeamMembership) *models.Team {
	t.Helper()

	team := &models.Team{ProjectID: projectID, Name: name}
	if err := db.Create(team).Error; err != nil {
		t.Fatalf("failed to create test team: %v", err)
	}

	joined := time.Now().UTC()
	for i, m := range members {
		m.TeamID = team.ID
		m.CreatedAt = joined.Add(time.Duration(i) * time.Millisecond)
		if err := db.Create(&m).Error; err != nil {
			t.Fatalf("failed to create test team member: %v", err)
		}
	}

	return team
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken generates a valid JWT token for the given user
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateToken(user.ID, user.Role)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	return token
}

// Principal returns the authenticated identity of user.
func Principal(user *models.User) *auth.Principal {
	return &auth.Principal{UserID: user.ID, Role: user.Role}
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestSetup holds all the common test dependencies
type TestSetup struct {
	DB         *gorm.DB
	JWTService *auth.JWTService
	Logger     *slog.Logger
	User       *models.User
	Token      string
}

// NewTestContext creates a complete test setup with DB, a volunteer user
// and their token.
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	user := CreateTestUser(t, db, "Test User", models.GlobalRoleVolunteer)
	token := GenerateTestToken(t, jwtService, user)

	return &TestSetup{
		DB:         db,
		JWTService: jwtService,
		Logger:     TestLogger(),
		User:       user,
		Token:      token,
	}
}

// TokenFor issues a token for another user of the same setup.
func (ts *TestSetup) TokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	return GenerateTestToken(t, ts.JWTService, user)
}
