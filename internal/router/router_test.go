package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/database"
	"github.com/stemsi/exstem-proctor/internal/handler"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/repository/memstore"
	"github.com/stemsi/exstem-proctor/internal/scorer"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stemsi/exstem-proctor/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

type api struct {
	t      *testing.T
	router *gin.Engine
	rdb    *redis.Client
}

func (a *api) do(method, path, token string, body any) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, validator.Setup())

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := &config.Config{
		GinMode:                gin.TestMode,
		JWTSecret:              "router-test-secret",
		JWTExpiry:              time.Hour,
		BcryptCost:             bcrypt.MinCost,
		AllowAdminRegistration: true,
		AuthRateLimit:          1000,
	}
	log := zerolog.Nop()
	store := memstore.New().Repositories()
	bus := nopEmitter{}

	sc, err := scorer.NewGeminiScorer(context.Background(), "", "", log)
	require.NoError(t, err)

	authService := service.NewAuthService(cfg, rdb, store, log)
	examService := service.NewExamService(store, log)
	questionService := service.NewQuestionService(store)
	sessionService := service.NewExamSessionService(store, bus, rdb, time.Minute, log)
	riskService := service.NewRiskService(store, sessionService, bus, log)
	cameraService := service.NewCameraCheckService(store, riskService, bus, log)
	integrityService := service.NewIntegrityService(store, sc, log)
	analysisService := service.NewAnalysisService(sc, log)
	studentService := service.NewStudentService(store)
	monitorService := service.NewMonitorService(store, rdb)

	handlers := &Handlers{
		Auth:          handler.NewAuthHandler(authService),
		StudentPortal: handler.NewStudentPortalHandler(examService, sessionService, riskService, cameraService),
		StudentMgmt:   handler.NewStudentManagementHandler(studentService),
		Exam:          handler.NewExamHandler(examService),
		Question:      handler.NewQuestionHandler(questionService),
		Proctoring:    handler.NewProctoringHandler(sessionService, cameraService, integrityService, analysisService),
		Monitor:       handler.NewMonitorHandler(monitorService, log),
		WS:            handler.NewWSHandler(sessionService, riskService, nil, log),
		System:        handler.NewSystemHandler(database.NewHealth(nil, rdb), rdb, log),
	}

	return &api{t: t, router: SetupRouter(authService, handlers, cfg, rdb, log), rdb: rdb}
}

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, model.MonitorEvent) {}

var (
	phoneOne = model.DeviceInfo{DeviceID: "D1", OS: "android", OSVersion: "14", ScreenWidth: 1080, ScreenHeight: 2400}
	phoneTwo = model.DeviceInfo{DeviceID: "D2", OS: "android", OSVersion: "14", ScreenWidth: 1080, ScreenHeight: 2400}
)

type authData struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID string `json:"id"`
	} `json:"user"`
}

func TestExamLifecycle(t *testing.T) {
	a := newAPI(t)

	// Register on D1, log in again on D1, then try D2.
	status, env := a.do(http.MethodPost, "/api/v1/auth/student/register", "", model.StudentRegisterRequest{
		FullName: "Ada Lovelace", RollNumber: "CS-001", Department: "CS", Semester: 3,
		Password: "secret123", DeviceInfo: phoneOne,
	})
	require.Equal(t, http.StatusCreated, status)
	registered := decode[authData](t, env)

	status, env = a.do(http.MethodPost, "/api/v1/auth/student/login", "", model.StudentLoginRequest{
		RollNumber: "CS-001", Password: "secret123", DeviceInfo: phoneOne,
	})
	require.Equal(t, http.StatusOK, status)
	studentToken := decode[authData](t, env).AccessToken

	status, env = a.do(http.MethodPost, "/api/v1/auth/student/login", "", model.StudentLoginRequest{
		RollNumber: "CS-001", Password: "secret123", DeviceInfo: phoneTwo,
	})
	require.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "DEVICE_MISMATCH", env.Error.Code)

	// The registration token was replaced by the second login.
	status, env = a.do(http.MethodGet, "/api/v1/student/exams", registered.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "SESSION_INVALIDATED", env.Error.Code)

	// Admin builds an exam with one MCQ worth 5.
	status, env = a.do(http.MethodPost, "/api/v1/auth/admin/register", "", model.AdminRegisterRequest{
		FullName: "Grace Hopper", Email: "grace@example.edu", Password: "secret123",
	})
	require.Equal(t, http.StatusCreated, status)
	adminToken := decode[authData](t, env).AccessToken

	now := time.Now()
	status, env = a.do(http.MethodPost, "/api/v1/admin/exams", adminToken, model.CreateExamRequest{
		Title: "Data Structures", DurationMinutes: 60, TotalMarks: 5, Department: "CS", Semester: 3,
		StartTime: now.Add(-time.Hour), EndTime: now.Add(2 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, status)
	exam := decode[struct {
		Exam model.Exam `json:"exam"`
	}](t, env).Exam

	status, env = a.do(http.MethodPost, "/api/v1/admin/exams/"+exam.ID.String()+"/questions", adminToken, model.CreateQuestionRequest{
		QuestionText: "Which structure is LIFO?",
		QuestionType: model.QuestionTypeMCQ,
		Marks:        5,
		Options: []model.OptionInput{
			{ID: "A", Text: "Queue"},
			{ID: "B", Text: "Stack", IsCorrect: true},
		},
	})
	require.Equal(t, http.StatusCreated, status)
	question := decode[struct {
		Question model.Question `json:"question"`
	}](t, env).Question

	// Student takes the exam.
	status, env = a.do(http.MethodGet, "/api/v1/student/exams", studentToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), exam.ID.String())

	examPath := "/api/v1/student/exams/" + exam.ID.String()
	status, env = a.do(http.MethodPost, examPath+"/start", studentToken, nil)
	require.Equal(t, http.StatusCreated, status)
	assert.NotContains(t, string(env.Data), "is_correct")
	started := decode[model.StartExamResult](t, env)
	require.Len(t, started.Questions, 1)

	status, _ = a.do(http.MethodPost, examPath+"/answers", studentToken, model.SubmitAnswerRequest{
		QuestionID: question.ID, Answer: "B", TimeTakenSeconds: 12,
	})
	require.Equal(t, http.StatusOK, status)

	status, env = a.do(http.MethodPost, examPath+"/submit", studentToken, nil)
	require.Equal(t, http.StatusOK, status)
	submitted := decode[struct {
		Status        model.SessionStatus `json:"status"`
		MarksObtained *int                `json:"marks_obtained"`
	}](t, env)
	assert.Equal(t, model.SessionStatusCompleted, submitted.Status)
	require.NotNil(t, submitted.MarksObtained)
	assert.Equal(t, 5, *submitted.MarksObtained)

	status, env = a.do(http.MethodPost, examPath+"/start", studentToken, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "EXAM_ALREADY_COMPLETED", env.Error.Code)

	// The rejected device shows up for the admin.
	status, env = a.do(http.MethodGet, "/api/v1/admin/students/"+registered.User.ID+"/security-logs", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	logs := decode[struct {
		SecurityLogs []model.SecurityLog `json:"security_logs"`
	}](t, env).SecurityLogs
	require.Len(t, logs, 1)
	assert.Equal(t, model.SecurityEventUnauthorizedLogin, logs[0].EventType)

	status, env = a.do(http.MethodGet, "/api/v1/admin/sessions/"+started.Session.ID.String()+"/integrity-report", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"ai_generated_probability":0`)
}

func TestRoleSeparation(t *testing.T) {
	a := newAPI(t)

	status, env := a.do(http.MethodPost, "/api/v1/auth/student/register", "", model.StudentRegisterRequest{
		FullName: "Alan Turing", RollNumber: "CS-002", Department: "CS", Semester: 3,
		Password: "secret123", DeviceInfo: phoneOne,
	})
	require.Equal(t, http.StatusCreated, status)
	studentToken := decode[authData](t, env).AccessToken

	status, env = a.do(http.MethodGet, "/api/v1/admin/exams", studentToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "ADMIN_ACCESS_ONLY", env.Error.Code)

	status, env = a.do(http.MethodGet, "/api/v1/admin/exams", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "TOKEN_REQUIRED", env.Error.Code)

	status, env = a.do(http.MethodGet, "/api/v1/auth/me", studentToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"role":"student"`)
}

func TestStudentRequestFromForeignDeviceIsRejected(t *testing.T) {
	a := newAPI(t)

	_, env := a.do(http.MethodPost, "/api/v1/auth/student/register", "", model.StudentRegisterRequest{
		FullName: "Alan Turing", RollNumber: "CS-003", Department: "CS", Semester: 3,
		Password: "secret123", DeviceInfo: phoneOne,
	})
	token := decode[authData](t, env).AccessToken

	req := httptest.NewRequest(http.MethodGet, "/api/v1/student/exams", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Device-Fingerprint", phoneTwo.Fingerprint())
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "DEVICE_MISMATCH"))
}

func TestValidationErrorsListFields(t *testing.T) {
	a := newAPI(t)

	status, env := a.do(http.MethodPost, "/api/v1/auth/student/login", "", map[string]any{"roll_number": "CS-001"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestHealth(t *testing.T) {
	a := newAPI(t)

	status, env := a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"redis":"ok"`)
}
