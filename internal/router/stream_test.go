package router

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
	ws "github.com/stemsi/exstem-proctor/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runningExam struct {
	studentToken string
	adminToken   string
	exam         model.Exam
	question     model.Question
	session      *model.ExamSession
}

// startRunningExam registers both roles, builds a one-question exam and
// starts it for the student.
func startRunningExam(t *testing.T, a *api) runningExam {
	t.Helper()

	status, env := a.do(http.MethodPost, "/api/v1/auth/student/register", "", model.StudentRegisterRequest{
		FullName: "Edsger Dijkstra", RollNumber: "CS-010", Department: "CS", Semester: 3,
		Password: "secret123", DeviceInfo: phoneOne,
	})
	require.Equal(t, http.StatusCreated, status)
	studentToken := decode[authData](t, env).AccessToken

	status, env = a.do(http.MethodPost, "/api/v1/auth/admin/register", "", model.AdminRegisterRequest{
		FullName: "Barbara Liskov", Email: "liskov@example.edu", Password: "secret123",
	})
	require.Equal(t, http.StatusCreated, status)
	adminToken := decode[authData](t, env).AccessToken

	now := time.Now()
	status, env = a.do(http.MethodPost, "/api/v1/admin/exams", adminToken, model.CreateExamRequest{
		Title: "Algorithms", DurationMinutes: 60, TotalMarks: 5, Department: "CS", Semester: 3,
		StartTime: now.Add(-time.Hour), EndTime: now.Add(2 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, status)
	exam := decode[struct {
		Exam model.Exam `json:"exam"`
	}](t, env).Exam

	status, env = a.do(http.MethodPost, "/api/v1/admin/exams/"+exam.ID.String()+"/questions", adminToken, model.CreateQuestionRequest{
		QuestionText: "Which structure is FIFO?",
		QuestionType: model.QuestionTypeMCQ,
		Marks:        5,
		Options: []model.OptionInput{
			{ID: "A", Text: "Queue", IsCorrect: true},
			{ID: "B", Text: "Stack"},
		},
	})
	require.Equal(t, http.StatusCreated, status)
	question := decode[struct {
		Question model.Question `json:"question"`
	}](t, env).Question

	status, env = a.do(http.MethodPost, "/api/v1/student/exams/"+exam.ID.String()+"/start", studentToken, nil)
	require.Equal(t, http.StatusCreated, status)
	started := decode[model.StartExamResult](t, env)

	return runningExam{
		studentToken: studentToken,
		adminToken:   adminToken,
		exam:         exam,
		question:     question,
		session:      started.Session,
	}
}

func dialExamStream(t *testing.T, srv *httptest.Server, examID uuid.UUID, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/v1/student/exams/" + examID.String() + "/stream?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame[T any](t *testing.T, conn *websocket.Conn) T {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var out T
	require.NoError(t, conn.ReadJSON(&out))
	return out
}

func TestExamStream_AutoSubmitClosesSocket(t *testing.T) {
	a := newAPI(t)
	run := startRunningExam(t, a)
	srv := httptest.NewServer(a.router)
	defer srv.Close()

	conn := dialExamStream(t, srv, run.exam.ID, run.studentToken)

	require.NoError(t, conn.WriteJSON(ws.RequestPayload{Action: ws.ActionPing}))
	assert.Equal(t, ws.EventPong, readFrame[ws.PongResponse](t, conn).Event)

	require.NoError(t, conn.WriteJSON(ws.RequestPayload{
		Action: ws.ActionAnswer, QuestionID: run.question.ID, Answer: "A", TimeTakenSeconds: 9,
	}))
	saved := readFrame[ws.SavedResponse](t, conn)
	assert.Equal(t, ws.EventSaved, saved.Event)
	assert.Equal(t, run.question.ID, saved.QuestionID)

	require.NoError(t, conn.WriteJSON(ws.RequestPayload{
		Action: ws.ActionFraud, FraudType: model.FraudTypeTabSwitch, RiskDelta: 50,
	}))
	risk := readFrame[ws.RiskResponse](t, conn)
	assert.Equal(t, ws.EventRisk, risk.Event)
	assert.Equal(t, 50, risk.RiskScore)
	assert.False(t, risk.AutoSubmitted)

	require.NoError(t, conn.WriteJSON(ws.RequestPayload{
		Action: ws.ActionFraud, FraudType: model.FraudTypeDeviceChange, RiskDelta: 40,
	}))
	risk = readFrame[ws.RiskResponse](t, conn)
	assert.Equal(t, 90, risk.RiskScore)
	assert.True(t, risk.AutoSubmitted)
	assert.Equal(t, model.SessionStatusAutoSubmitted, risk.Status)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err, "server closes the stream once the session is finalized")

	// A new stream for the finished session is refused.
	again := dialExamStream(t, srv, run.exam.ID, run.studentToken)
	refused := readFrame[ws.ErrorResponse](t, again)
	assert.Equal(t, ws.EventError, refused.Event)
	assert.Equal(t, "NO_ACTIVE_SESSION", refused.Code)
}

func TestExamStream_SubmitReturnsMarksAndCloses(t *testing.T) {
	a := newAPI(t)
	run := startRunningExam(t, a)
	srv := httptest.NewServer(a.router)
	defer srv.Close()

	conn := dialExamStream(t, srv, run.exam.ID, run.studentToken)

	require.NoError(t, conn.WriteJSON(ws.RequestPayload{
		Action: ws.ActionAnswer, QuestionID: run.question.ID, Answer: "A",
	}))
	readFrame[ws.SavedResponse](t, conn)

	require.NoError(t, conn.WriteJSON(ws.RequestPayload{Action: ws.ActionSubmit}))
	submitted := readFrame[ws.SubmittedResponse](t, conn)
	assert.Equal(t, ws.EventSubmitted, submitted.Event)
	assert.Equal(t, model.SessionStatusCompleted, submitted.Status)
	require.NotNil(t, submitted.MarksObtained)
	assert.Equal(t, 5, *submitted.MarksObtained)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestMonitorStream_SendsSnapshotThenForwardsEvents(t *testing.T) {
	a := newAPI(t)
	run := startRunningExam(t, a)
	srv := httptest.NewServer(a.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		srv.URL+"/api/v1/admin/monitor/stream?exam_id="+run.exam.ID.String(), nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+run.adminToken)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan []byte, 8)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			if data, ok := strings.CutPrefix(scanner.Text(), "data: "); ok {
				events <- []byte(data)
			}
		}
	}()

	next := func() []byte {
		t.Helper()
		select {
		case data, ok := <-events:
			require.True(t, ok, "stream ended early")
			return data
		case <-time.After(5 * time.Second):
			t.Fatal("no SSE event received")
			return nil
		}
	}

	var first struct {
		Type     string             `json:"type"`
		Snapshot model.LiveSnapshot `json:"snapshot"`
	}
	require.NoError(t, json.Unmarshal(next(), &first))
	assert.Equal(t, "snapshot", first.Type)
	assert.Equal(t, 1, first.Snapshot.TotalActive)
	require.Len(t, first.Snapshot.ActiveSessions, 1)
	assert.Equal(t, run.session.ID, first.Snapshot.ActiveSessions[0].SessionID)

	// The subscription starts after the snapshot, so publish until it lands.
	payload, err := json.Marshal(model.MonitorEvent{
		Type: model.MonitorFraudRecorded, ExamID: run.exam.ID, SessionID: run.session.ID, RiskScore: 20,
	})
	require.NoError(t, err)
	channel := config.CacheKey.ExamMonitorChannel(run.exam.ID.String())
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(25 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				a.rdb.Publish(context.Background(), channel, payload)
			}
		}
	}()

	var forwarded model.MonitorEvent
	require.NoError(t, json.Unmarshal(next(), &forwarded))
	assert.Equal(t, model.MonitorFraudRecorded, forwarded.Type)
	assert.Equal(t, run.session.ID, forwarded.SessionID)
	assert.Equal(t, 20, forwarded.RiskScore)
}
