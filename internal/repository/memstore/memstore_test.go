package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedExam(t *testing.T, s *Store) *model.Exam {
	t.Helper()
	now := time.Now()
	e := &model.Exam{
		Title:           "Algorithms",
		DurationMinutes: 60,
		TotalMarks:      10,
		Department:      "CS",
		Semester:        3,
		StartTime:       now.Add(-time.Hour),
		EndTime:         now.Add(time.Hour),
		IsActive:        true,
	}
	require.NoError(t, s.Exams().Create(context.Background(), e))
	return e
}

func seedSession(t *testing.T, s *Store, examID uuid.UUID) *model.ExamSession {
	t.Helper()
	sess := &model.ExamSession{StudentID: uuid.New(), ExamID: examID}
	created, err := s.Sessions().Create(context.Background(), sess)
	require.NoError(t, err)
	require.True(t, created)
	return sess
}

func TestStudents_DuplicateRollNumber(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Students().Create(ctx, &model.Student{RollNumber: "R1"}))
	err := s.Students().Create(ctx, &model.Student{RollNumber: "R1"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestQuestions_OrderNumAppends(t *testing.T) {
	s := New()
	ctx := context.Background()
	e := seedExam(t, s)

	q1 := &model.Question{ExamID: e.ID, QuestionText: "one"}
	q2 := &model.Question{ExamID: e.ID, QuestionText: "two"}
	require.NoError(t, s.Questions().CreateBatch(ctx, []*model.Question{q1, q2}))
	q3 := &model.Question{ExamID: e.ID, QuestionText: "three"}
	require.NoError(t, s.Questions().Create(ctx, q3))

	assert.Equal(t, 0, q1.OrderNum)
	assert.Equal(t, 1, q2.OrderNum)
	assert.Equal(t, 2, q3.OrderNum)

	got, err := s.Exams().GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.QuestionCount)
}

func TestSessions_CreateIsUniquePerStudentAndExam(t *testing.T) {
	s := New()
	ctx := context.Background()
	e := seedExam(t, s)
	studentID := uuid.New()

	var wg sync.WaitGroup
	results := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := s.Sessions().Create(ctx, &model.ExamSession{StudentID: studentID, ExamID: e.ID})
			assert.NoError(t, err)
			results <- created
		}()
	}
	wg.Wait()
	close(results)

	n := 0
	for created := range results {
		if created {
			n++
		}
	}
	assert.Equal(t, 1, n)
}

func TestSessions_FraudRiskIsClamped(t *testing.T) {
	s := New()
	ctx := context.Background()
	sess := seedSession(t, s, seedExam(t, s).ID)

	score, err := s.Sessions().AppendFraudEvent(ctx, &model.FraudEvent{SessionID: sess.ID, Type: "tab_switch", RiskDelta: 70})
	require.NoError(t, err)
	assert.Equal(t, 70, score)

	score, err = s.Sessions().AppendFraudEvent(ctx, &model.FraudEvent{SessionID: sess.ID, Type: "tab_switch", RiskDelta: 70})
	require.NoError(t, err)
	assert.Equal(t, 100, score)

	events, err := s.Sessions().ListFraudEvents(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestSessions_FinalizeOnceAndFreezesAnswers(t *testing.T) {
	s := New()
	ctx := context.Background()
	sess := seedSession(t, s, seedExam(t, s).ID)

	require.NoError(t, s.Sessions().UpsertAnswer(ctx, &model.Answer{SessionID: sess.ID, QuestionID: uuid.New(), Answer: "a"}))

	grade := func(answers []model.Answer) int { return len(answers) }
	done, err := s.Sessions().Finalize(ctx, sess.ID, model.SessionStatusCompleted, grade)
	require.NoError(t, err)
	require.NotNil(t, done.MarksObtained)
	assert.Equal(t, 1, *done.MarksObtained)
	assert.NotNil(t, done.EndTime)

	_, err = s.Sessions().Finalize(ctx, sess.ID, model.SessionStatusAutoSubmitted, grade)
	assert.ErrorIs(t, err, repository.ErrSessionFinalized)

	err = s.Sessions().UpsertAnswer(ctx, &model.Answer{SessionID: sess.ID, QuestionID: uuid.New(), Answer: "late"})
	assert.ErrorIs(t, err, repository.ErrSessionNotActive)

	_, err = s.Sessions().AppendFraudEvent(ctx, &model.FraudEvent{SessionID: sess.ID, Type: "tab_switch", RiskDelta: 5})
	assert.ErrorIs(t, err, repository.ErrSessionNotActive)
}

func TestSessions_ListOverdue(t *testing.T) {
	s := New()
	ctx := context.Background()
	e := seedExam(t, s)
	sess := seedSession(t, s, e.ID)

	ids, err := s.Sessions().ListOverdue(ctx, time.Now(), time.Minute)
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = s.Sessions().ListOverdue(ctx, time.Now().Add(62*time.Minute), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{sess.ID}, ids)
}

func TestCameraChecks_CompleteOnlyOnce(t *testing.T) {
	s := New()
	ctx := context.Background()
	sess := seedSession(t, s, seedExam(t, s).ID)

	c := &model.CameraCheck{SessionID: sess.ID, RequestedBy: uuid.New()}
	require.NoError(t, s.CameraChecks().Create(ctx, c))
	assert.Equal(t, model.CameraCheckPending, c.Status)

	done, err := s.CameraChecks().Complete(ctx, c.ID, 2, "two people", time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.CameraCheckCompleted, done.Status)
	require.NotNil(t, done.FacesDetected)
	assert.Equal(t, 2, *done.FacesDetected)

	_, err = s.CameraChecks().Complete(ctx, c.ID, 1, "", time.Now())
	assert.ErrorIs(t, err, repository.ErrCheckNotPending)
}

func TestCameraChecks_CompleteRequiresOpenSession(t *testing.T) {
	s := New()
	ctx := context.Background()
	sess := seedSession(t, s, seedExam(t, s).ID)

	c := &model.CameraCheck{SessionID: sess.ID, RequestedBy: uuid.New()}
	require.NoError(t, s.CameraChecks().Create(ctx, c))

	_, err := s.Sessions().Finalize(ctx, sess.ID, model.SessionStatusCompleted, func([]model.Answer) int { return 0 })
	require.NoError(t, err)

	_, err = s.CameraChecks().Complete(ctx, c.ID, 3, "", time.Now())
	assert.ErrorIs(t, err, repository.ErrSessionNotActive)

	stored, err := s.CameraChecks().GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CameraCheckPending, stored.Status)
}

func TestExams_DeleteCascades(t *testing.T) {
	s := New()
	ctx := context.Background()
	e := seedExam(t, s)
	q := &model.Question{ExamID: e.ID, QuestionText: "q"}
	require.NoError(t, s.Questions().Create(ctx, q))
	sess := seedSession(t, s, e.ID)
	require.NoError(t, s.Sessions().UpsertAnswer(ctx, &model.Answer{SessionID: sess.ID, QuestionID: q.ID, Answer: "x"}))
	_, err := s.Sessions().AppendFraudEvent(ctx, &model.FraudEvent{SessionID: sess.ID, Type: "copy_paste", RiskDelta: 10})
	require.NoError(t, err)
	require.NoError(t, s.CameraChecks().Create(ctx, &model.CameraCheck{SessionID: sess.ID}))

	require.NoError(t, s.Exams().Delete(ctx, e.ID))

	_, err = s.Questions().GetByID(ctx, q.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = s.Sessions().GetByID(ctx, sess.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	answers, _ := s.Sessions().ListAnswers(ctx, sess.ID)
	assert.Empty(t, answers)
	events, _ := s.Sessions().ListFraudEvents(ctx, sess.ID)
	assert.Empty(t, events)
	checks, _ := s.CameraChecks().ListBySession(ctx, sess.ID)
	assert.Empty(t, checks)

	assert.ErrorIs(t, s.Exams().Delete(ctx, e.ID), repository.ErrNotFound)
}

func TestMonitor_FraudAlerts(t *testing.T) {
	s := New()
	ctx := context.Background()
	e := seedExam(t, s)
	quiet := seedSession(t, s, e.ID)
	flagged := seedSession(t, s, e.ID)
	_, err := s.Sessions().AppendFraudEvent(ctx, &model.FraudEvent{SessionID: flagged.ID, Type: "window_blur", RiskDelta: 5})
	require.NoError(t, err)

	alerts, err := s.Monitor().ListFraudAlerts(ctx, 30, 50)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, flagged.ID, alerts[0].SessionID)

	live, err := s.Monitor().ListLive(ctx, &e.ID)
	require.NoError(t, err)
	require.Len(t, live, 2)
	assert.Equal(t, flagged.ID, live[0].SessionID)
	assert.Equal(t, quiet.ID, live[1].SessionID)
}
