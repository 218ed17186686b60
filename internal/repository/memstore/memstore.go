// Package memstore is an in-memory implementation of the repository
// interfaces. A single mutex guards all data, so every operation is atomic
// with respect to every other one.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-proctor/internal/integrity"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/repository"
)

type answerKey struct {
	session  uuid.UUID
	question uuid.UUID
}

// Store holds every table in memory.
type Store struct {
	mu  sync.Mutex
	now func() time.Time

	students     map[uuid.UUID]*model.Student
	admins       map[uuid.UUID]*model.Admin
	exams        map[uuid.UUID]*model.Exam
	questions    map[uuid.UUID]*model.Question
	sessions     map[uuid.UUID]*model.ExamSession
	answers      map[answerKey]*model.Answer
	fraudEvents  []*model.FraudEvent
	cameraChecks map[uuid.UUID]*model.CameraCheck
	securityLogs []*model.SecurityLog
	reports      map[uuid.UUID]*model.IntegrityReport
}

// New returns an empty store that stamps records with time.Now.
func New() *Store {
	return &Store{
		now:          time.Now,
		students:     make(map[uuid.UUID]*model.Student),
		admins:       make(map[uuid.UUID]*model.Admin),
		exams:        make(map[uuid.UUID]*model.Exam),
		questions:    make(map[uuid.UUID]*model.Question),
		sessions:     make(map[uuid.UUID]*model.ExamSession),
		answers:      make(map[answerKey]*model.Answer),
		cameraChecks: make(map[uuid.UUID]*model.CameraCheck),
		reports:      make(map[uuid.UUID]*model.IntegrityReport),
	}
}

// SetClock replaces the time source used for generated timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Repositories bundles typed views of s into a repository.Store.
func (s *Store) Repositories() *repository.Store {
	return &repository.Store{
		Students:         s.Students(),
		Admins:           s.Admins(),
		Exams:            s.Exams(),
		Questions:        s.Questions(),
		Sessions:         s.Sessions(),
		Monitor:          s.Monitor(),
		CameraChecks:     s.CameraChecks(),
		SecurityLogs:     s.SecurityLogs(),
		IntegrityReports: s.IntegrityReports(),
	}
}

func (s *Store) Students() *Students                 { return &Students{s} }
func (s *Store) Admins() *Admins                     { return &Admins{s} }
func (s *Store) Exams() *Exams                       { return &Exams{s} }
func (s *Store) Questions() *Questions               { return &Questions{s} }
func (s *Store) Sessions() *Sessions                 { return &Sessions{s} }
func (s *Store) Monitor() *Monitor                   { return &Monitor{s} }
func (s *Store) CameraChecks() *CameraChecks         { return &CameraChecks{s} }
func (s *Store) SecurityLogs() *SecurityLogs         { return &SecurityLogs{s} }
func (s *Store) IntegrityReports() *IntegrityReports { return &IntegrityReports{s} }

func copyPtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneSession(in *model.ExamSession) *model.ExamSession {
	out := *in
	out.EndTime = copyPtr(in.EndTime)
	out.MarksObtained = copyPtr(in.MarksObtained)
	out.QuestionOrder = append([]uuid.UUID(nil), in.QuestionOrder...)
	return &out
}

func cloneQuestion(in *model.Question) *model.Question {
	out := *in
	out.Options = append([]model.Option{}, in.Options...)
	out.CorrectAnswer = copyPtr(in.CorrectAnswer)
	out.ImageBase64 = copyPtr(in.ImageBase64)
	return &out
}

// ─── Students ────────────────────────────────────────────────────────────

type Students struct{ s *Store }

func (r *Students) Create(_ context.Context, st *model.Student) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.students {
		if existing.RollNumber == st.RollNumber {
			return repository.ErrDuplicate
		}
	}
	now := r.s.now()
	st.ID = uuid.New()
	st.CreatedAt, st.UpdatedAt = now, now
	c := *st
	r.s.students[st.ID] = &c
	return nil
}

func (r *Students) GetByID(_ context.Context, id uuid.UUID) (*model.Student, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.students[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *st
	return &c, nil
}

func (r *Students) GetByRollNumber(_ context.Context, rollNumber string) (*model.Student, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, st := range r.s.students {
		if st.RollNumber == rollNumber {
			c := *st
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Students) List(_ context.Context, limit, offset int) ([]model.Student, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := make([]model.Student, 0, len(r.s.students))
	for _, st := range r.s.students {
		all = append(all, *st)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].RollNumber < all[j].RollNumber })
	return page(all, limit, offset), len(all), nil
}

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}

// ─── Admins ──────────────────────────────────────────────────────────────

type Admins struct{ s *Store }

func (r *Admins) Create(_ context.Context, a *model.Admin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.admins {
		if strings.EqualFold(existing.Email, a.Email) {
			return repository.ErrDuplicate
		}
	}
	now := r.s.now()
	a.ID = uuid.New()
	a.CreatedAt, a.UpdatedAt = now, now
	c := *a
	r.s.admins[a.ID] = &c
	return nil
}

func (r *Admins) GetByID(_ context.Context, id uuid.UUID) (*model.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.admins[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (r *Admins) GetByEmail(_ context.Context, email string) (*model.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.admins {
		if strings.EqualFold(a.Email, email) {
			c := *a
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ─── Exams ───────────────────────────────────────────────────────────────

type Exams struct{ s *Store }

// withCount must be called with the lock held.
func (s *Store) withCount(e *model.Exam) model.Exam {
	c := *e
	c.QuestionCount = 0
	for _, q := range s.questions {
		if q.ExamID == e.ID {
			c.QuestionCount++
		}
	}
	return c
}

func (r *Exams) Create(_ context.Context, e *model.Exam) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	e.ID = uuid.New()
	e.CreatedAt, e.UpdatedAt = now, now
	c := *e
	r.s.exams[e.ID] = &c
	return nil
}

func (r *Exams) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.exams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := r.s.withCount(e)
	return &c, nil
}

func (r *Exams) List(_ context.Context) ([]model.Exam, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.Exam, 0, len(r.s.exams))
	for _, e := range r.s.exams {
		out = append(out, r.s.withCount(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *Exams) ListAvailable(_ context.Context, department string, semester int, now time.Time) ([]model.Exam, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.Exam, 0)
	for _, e := range r.s.exams {
		if e.EligibleFor(department, semester) && e.OpenAt(now) {
			out = append(out, r.s.withCount(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *Exams) Update(_ context.Context, e *model.Exam) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.exams[e.ID]
	if !ok {
		return repository.ErrNotFound
	}
	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = r.s.now()
	c := *e
	r.s.exams[e.ID] = &c
	return nil
}

// Delete cascades to questions, sessions and every per-session record.
func (r *Exams) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.exams[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.exams, id)
	for qid, q := range r.s.questions {
		if q.ExamID == id {
			delete(r.s.questions, qid)
		}
	}
	for sid, sess := range r.s.sessions {
		if sess.ExamID == id {
			r.s.deleteSession(sid)
		}
	}
	return nil
}

// deleteSession must be called with the lock held.
func (s *Store) deleteSession(id uuid.UUID) {
	delete(s.sessions, id)
	delete(s.reports, id)
	for k := range s.answers {
		if k.session == id {
			delete(s.answers, k)
		}
	}
	for cid, c := range s.cameraChecks {
		if c.SessionID == id {
			delete(s.cameraChecks, cid)
		}
	}
	kept := s.fraudEvents[:0]
	for _, ev := range s.fraudEvents {
		if ev.SessionID != id {
			kept = append(kept, ev)
		}
	}
	s.fraudEvents = kept
}

// ─── Questions ───────────────────────────────────────────────────────────

type Questions struct{ s *Store }

// insert must be called with the lock held.
func (r *Questions) insert(q *model.Question) error {
	if _, ok := r.s.exams[q.ExamID]; !ok {
		return repository.ErrNotFound
	}
	next := 0
	for _, existing := range r.s.questions {
		if existing.ExamID == q.ExamID && existing.OrderNum >= next {
			next = existing.OrderNum + 1
		}
	}
	if q.Options == nil {
		q.Options = []model.Option{}
	}
	q.ID = uuid.New()
	q.OrderNum = next
	q.CreatedAt = r.s.now()
	r.s.questions[q.ID] = cloneQuestion(q)
	return nil
}

func (r *Questions) Create(_ context.Context, q *model.Question) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.insert(q)
}

// CreateBatch is all-or-nothing.
func (r *Questions) CreateBatch(_ context.Context, qs []*model.Question) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, q := range qs {
		if _, ok := r.s.exams[q.ExamID]; !ok {
			return repository.ErrNotFound
		}
	}
	for i, q := range qs {
		if err := r.insert(q); err != nil {
			return fmt.Errorf("insert question %d: %w", i, err)
		}
	}
	return nil
}

func (r *Questions) GetByID(_ context.Context, id uuid.UUID) (*model.Question, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	q, ok := r.s.questions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneQuestion(q), nil
}

func (r *Questions) ListByExam(_ context.Context, examID uuid.UUID) ([]model.Question, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.Question, 0)
	for _, q := range r.s.questions {
		if q.ExamID == examID {
			out = append(out, *cloneQuestion(q))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderNum != out[j].OrderNum {
			return out[i].OrderNum < out[j].OrderNum
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Questions) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.questions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.questions, id)
	return nil
}

// ─── Sessions ────────────────────────────────────────────────────────────

type Sessions struct{ s *Store }

func (r *Sessions) Create(_ context.Context, sess *model.ExamSession) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.sessions {
		if existing.StudentID == sess.StudentID && existing.ExamID == sess.ExamID {
			return false, nil
		}
	}
	now := r.s.now()
	sess.ID = uuid.New()
	sess.Status = model.SessionStatusInProgress
	sess.RiskScore = 0
	sess.StartTime, sess.CreatedAt = now, now
	r.s.sessions[sess.ID] = cloneSession(sess)
	return true, nil
}

func (r *Sessions) GetByID(_ context.Context, id uuid.UUID) (*model.ExamSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneSession(sess), nil
}

func (r *Sessions) GetByStudentAndExam(_ context.Context, studentID, examID uuid.UUID) (*model.ExamSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sess := range r.s.sessions {
		if sess.StudentID == studentID && sess.ExamID == examID {
			return cloneSession(sess), nil
		}
	}
	return nil, repository.ErrNotFound
}

// byStudent must be called with the lock held.
func (s *Store) byStudent(studentID uuid.UUID) []*model.ExamSession {
	out := make([]*model.ExamSession, 0)
	for _, sess := range s.sessions {
		if sess.StudentID == studentID {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out
}

func (r *Sessions) ListByStudent(_ context.Context, studentID uuid.UUID) ([]model.ExamSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.ExamSession, 0)
	for _, sess := range r.s.byStudent(studentID) {
		out = append(out, *cloneSession(sess))
	}
	return out, nil
}

func (r *Sessions) ListHistory(_ context.Context, studentID uuid.UUID) ([]model.StudentExamHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.StudentExamHistory, 0)
	for _, sess := range r.s.byStudent(studentID) {
		e, ok := r.s.exams[sess.ExamID]
		if !ok {
			continue
		}
		out = append(out, model.StudentExamHistory{
			SessionID:     sess.ID,
			ExamID:        sess.ExamID,
			ExamTitle:     e.Title,
			Status:        sess.Status,
			RiskScore:     sess.RiskScore,
			MarksObtained: copyPtr(sess.MarksObtained),
			TotalMarks:    e.TotalMarks,
			StartTime:     sess.StartTime,
			EndTime:       copyPtr(sess.EndTime),
		})
	}
	return out, nil
}

func (r *Sessions) UpsertAnswer(_ context.Context, a *model.Answer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[a.SessionID]
	if !ok {
		return repository.ErrNotFound
	}
	if sess.Status != model.SessionStatusInProgress {
		return repository.ErrSessionNotActive
	}
	a.SubmittedAt = r.s.now()
	c := *a
	r.s.answers[answerKey{a.SessionID, a.QuestionID}] = &c
	return nil
}

// answersOf must be called with the lock held.
func (s *Store) answersOf(sessionID uuid.UUID) []model.Answer {
	out := make([]model.Answer, 0)
	for k, a := range s.answers {
		if k.session == sessionID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].QuestionID.String() < out[j].QuestionID.String()
	})
	return out
}

func (r *Sessions) ListAnswers(_ context.Context, sessionID uuid.UUID) ([]model.Answer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.answersOf(sessionID), nil
}

func (r *Sessions) ListPeerAnswers(_ context.Context, examID, excludeSessionID uuid.UUID) (map[uuid.UUID][]model.Answer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	peers := make(map[uuid.UUID][]model.Answer)
	for id, sess := range r.s.sessions {
		if sess.ExamID != examID || id == excludeSessionID {
			continue
		}
		if answers := r.s.answersOf(id); len(answers) > 0 {
			peers[id] = answers
		}
	}
	return peers, nil
}

func (r *Sessions) AppendFraudEvent(_ context.Context, ev *model.FraudEvent) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[ev.SessionID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	if sess.Status != model.SessionStatusInProgress {
		return 0, repository.ErrSessionNotActive
	}
	sess.RiskScore = integrity.NextRisk(sess.RiskScore, ev.RiskDelta)
	ev.ID = uuid.New()
	ev.Timestamp = r.s.now()
	c := *ev
	r.s.fraudEvents = append(r.s.fraudEvents, &c)
	return sess.RiskScore, nil
}

func (r *Sessions) ListFraudEvents(_ context.Context, sessionID uuid.UUID) ([]model.FraudEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.FraudEvent, 0)
	for _, ev := range r.s.fraudEvents {
		if ev.SessionID == sessionID {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (r *Sessions) Finalize(_ context.Context, sessionID uuid.UUID, status model.SessionStatus, grade repository.GradeFunc) (*model.ExamSession, error) {
	if !status.Terminal() {
		return nil, fmt.Errorf("finalize to non-terminal status %q", status)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if sess.Status != model.SessionStatusInProgress {
		return nil, repository.ErrSessionFinalized
	}
	marks := grade(r.s.answersOf(sessionID))
	now := r.s.now()
	sess.Status = status
	sess.EndTime = &now
	sess.MarksObtained = &marks
	return cloneSession(sess), nil
}

func (r *Sessions) ListOverdue(_ context.Context, now time.Time, grace time.Duration) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]uuid.UUID, 0)
	for id, sess := range r.s.sessions {
		if sess.Status != model.SessionStatusInProgress {
			continue
		}
		e, ok := r.s.exams[sess.ExamID]
		if !ok {
			continue
		}
		deadline := sess.StartTime.Add(time.Duration(e.DurationMinutes)*time.Minute + grace)
		if now.After(deadline) || now.After(e.EndTime.Add(grace)) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *Sessions) ListAtRisk(_ context.Context, minScore int) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]uuid.UUID, 0)
	for id, sess := range r.s.sessions {
		if sess.Status == model.SessionStatusInProgress && sess.RiskScore >= minScore {
			out = append(out, id)
		}
	}
	return out, nil
}

// ─── Monitor ─────────────────────────────────────────────────────────────

type Monitor struct{ s *Store }

func (r *Monitor) ListLive(_ context.Context, examID *uuid.UUID) ([]model.LiveSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.LiveSession, 0)
	for id, sess := range r.s.sessions {
		if sess.Status != model.SessionStatusInProgress {
			continue
		}
		if examID != nil && sess.ExamID != *examID {
			continue
		}
		live := model.LiveSession{
			SessionID:    id,
			StudentID:    sess.StudentID,
			ExamID:       sess.ExamID,
			RiskScore:    sess.RiskScore,
			FraudCount:   r.s.fraudCount(id),
			AnswersCount: len(r.s.answersOf(id)),
			StartTime:    sess.StartTime,
		}
		if st, ok := r.s.students[sess.StudentID]; ok {
			live.StudentName, live.RollNumber = st.FullName, st.RollNumber
		}
		if e, ok := r.s.exams[sess.ExamID]; ok {
			live.ExamTitle = e.Title
		}
		for _, c := range r.s.cameraChecks {
			if c.SessionID == id && c.Status == model.CameraCheckPending {
				live.PendingCameraChecks++
			}
		}
		out = append(out, live)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RiskScore != out[j].RiskScore {
			return out[i].RiskScore > out[j].RiskScore
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}

// fraudCount must be called with the lock held.
func (s *Store) fraudCount(sessionID uuid.UUID) int {
	n := 0
	for _, ev := range s.fraudEvents {
		if ev.SessionID == sessionID {
			n++
		}
	}
	return n
}

func (r *Monitor) ListFraudAlerts(_ context.Context, minScore, limit int) ([]model.FraudAlert, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.FraudAlert, 0)
	for id, sess := range r.s.sessions {
		count := r.s.fraudCount(id)
		if sess.RiskScore < minScore && count == 0 {
			continue
		}
		alert := model.FraudAlert{
			SessionID:  id,
			StudentID:  sess.StudentID,
			ExamID:     sess.ExamID,
			RiskScore:  sess.RiskScore,
			Status:     sess.Status,
			FraudCount: count,
			StartTime:  sess.StartTime,
		}
		if st, ok := r.s.students[sess.StudentID]; ok {
			alert.StudentName, alert.RollNumber = st.FullName, st.RollNumber
		}
		if e, ok := r.s.exams[sess.ExamID]; ok {
			alert.ExamTitle = e.Title
		}
		out = append(out, alert)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return page(out, limit, 0), nil
}

// ─── Camera checks ───────────────────────────────────────────────────────

type CameraChecks struct{ s *Store }

func (r *CameraChecks) Create(_ context.Context, c *model.CameraCheck) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sessions[c.SessionID]; !ok {
		return repository.ErrNotFound
	}
	c.ID = uuid.New()
	c.Status = model.CameraCheckPending
	c.RequestedAt = r.s.now()
	cp := *c
	r.s.cameraChecks[c.ID] = &cp
	return nil
}

func (r *CameraChecks) GetByID(_ context.Context, id uuid.UUID) (*model.CameraCheck, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.cameraChecks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *CameraChecks) ListBySession(_ context.Context, sessionID uuid.UUID) ([]model.CameraCheck, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.CameraCheck, 0)
	for _, c := range r.s.cameraChecks {
		if c.SessionID == sessionID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, nil
}

func (r *CameraChecks) Complete(_ context.Context, id uuid.UUID, facesDetected int, notes string, at time.Time) (*model.CameraCheck, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.cameraChecks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if c.Status != model.CameraCheckPending {
		return nil, repository.ErrCheckNotPending
	}
	if sess, ok := r.s.sessions[c.SessionID]; !ok || sess.Status != model.SessionStatusInProgress {
		return nil, repository.ErrSessionNotActive
	}
	c.Status = model.CameraCheckCompleted
	c.FacesDetected = &facesDetected
	c.Notes = notes
	c.CompletedAt = &at
	cp := *c
	return &cp, nil
}

// ─── Security logs ───────────────────────────────────────────────────────

type SecurityLogs struct{ s *Store }

func (r *SecurityLogs) Create(_ context.Context, l *model.SecurityLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l.ID = uuid.New()
	l.Timestamp = r.s.now()
	c := *l
	r.s.securityLogs = append(r.s.securityLogs, &c)
	return nil
}

func (r *SecurityLogs) ListByStudent(_ context.Context, studentID uuid.UUID) ([]model.SecurityLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.SecurityLog, 0)
	for i := len(r.s.securityLogs) - 1; i >= 0; i-- {
		if l := r.s.securityLogs[i]; l.StudentID == studentID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *SecurityLogs) CountByStudentBetween(_ context.Context, studentID uuid.UUID, from, to time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, l := range r.s.securityLogs {
		if l.StudentID == studentID && !l.Timestamp.Before(from) && !l.Timestamp.After(to) {
			n++
		}
	}
	return n, nil
}

// ─── Integrity reports ───────────────────────────────────────────────────

type IntegrityReports struct{ s *Store }

func (r *IntegrityReports) Upsert(_ context.Context, rep *model.IntegrityReport) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *rep
	r.s.reports[rep.SessionID] = &c
	return nil
}

func (r *IntegrityReports) Get(_ context.Context, sessionID uuid.UUID) (*model.IntegrityReport, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rep, ok := r.s.reports[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *rep
	return &c, nil
}

var (
	_ repository.StudentRepo         = (*Students)(nil)
	_ repository.AdminRepo           = (*Admins)(nil)
	_ repository.ExamRepo            = (*Exams)(nil)
	_ repository.QuestionRepo        = (*Questions)(nil)
	_ repository.ExamSessionRepo     = (*Sessions)(nil)
	_ repository.MonitorRepo         = (*Monitor)(nil)
	_ repository.CameraCheckRepo     = (*CameraChecks)(nil)
	_ repository.SecurityLogRepo     = (*SecurityLogs)(nil)
	_ repository.IntegrityReportRepo = (*IntegrityReports)(nil)
)
