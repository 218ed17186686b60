package integrity

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/stemsi/exstem-proctor/internal/model"
)

// Event types folded into each report counter.
var (
	focusLossTypes = map[string]bool{
		model.FraudTypeAppBackgrounded: true,
		model.FraudTypeWindowBlur:      true,
		model.FraudTypeTabSwitch:       true,
		model.FraudTypeFocusLost:       true,
	}
	deviceChangeTypes = map[string]bool{
		model.FraudTypeDeviceChange: true,
	}
)

const (
	aiSampleMaxAnswers = 3
	aiSampleMinLength  = 50
)

// Input is a read-only snapshot of everything a report is derived from.
type Input struct {
	Session          *model.ExamSession
	Exam             *model.Exam
	Student          *model.Student
	Answers          []model.Answer
	Events           []model.FraudEvent
	CameraChecks     []model.CameraCheck
	SecurityLogCount int
	Peers            []PeerAnswers
	AIProbability    float64
	GeneratedAt      time.Time
}

// AISample concatenates up to the first three answers longer than fifty
// characters. It returns false when none qualify.
func AISample(answers []model.Answer) (string, bool) {
	ordered := make([]model.Answer, len(answers))
	copy(ordered, answers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SubmittedAt.Before(ordered[j].SubmittedAt)
	})

	var parts []string
	for _, a := range ordered {
		text := strings.TrimSpace(a.Answer)
		if len([]rune(text)) <= aiSampleMinLength {
			continue
		}
		parts = append(parts, text)
		if len(parts) == aiSampleMaxAnswers {
			break
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "\n\n"), true
}

// Build derives the integrity report for in.Session. It performs no I/O.
func Build(in Input) model.IntegrityReport {
	s := in.Session
	r := model.IntegrityReport{
		SessionID:              s.ID,
		StudentID:              s.StudentID,
		ExamID:                 s.ExamID,
		Status:                 s.Status,
		RiskScore:              s.RiskScore,
		RiskLevel:              Level(s.RiskScore),
		MarksObtained:          s.MarksObtained,
		AIGeneratedProbability: clampProbability(in.AIProbability),
		PeerSimilarityIndex:    PeerSimilarityIndex(in.Answers, in.Peers),
		DeviceChangeAttempts:   in.SecurityLogCount,
		GeneratedAt:            in.GeneratedAt,
	}
	if in.Student != nil {
		r.StudentName = in.Student.FullName
		r.RollNumber = in.Student.RollNumber
	}
	if in.Exam != nil {
		r.ExamTitle = in.Exam.Title
	}
	if s.EndTime != nil {
		r.TotalDurationSeconds = int64(s.EndTime.Sub(s.StartTime) / time.Second)
	}

	r.QuestionTimings = make([]model.QuestionTiming, 0, len(in.Answers))
	for _, a := range in.Answers {
		r.QuestionTimings = append(r.QuestionTimings, model.QuestionTiming{
			QuestionID:       a.QuestionID,
			TimeTakenSeconds: a.TimeTakenSeconds,
			SubmittedAt:      a.SubmittedAt,
		})
	}

	for _, e := range in.Events {
		switch {
		case focusLossTypes[e.Type]:
			r.FocusLossCount++
		case deviceChangeTypes[e.Type]:
			r.DeviceChangeAttempts++
		case e.Type == model.FraudTypeBluetoothDetected:
			r.BluetoothDetected = true
		case e.Type == model.FraudTypeHotspotDetected:
			r.HotspotDetected = true
		case e.Type == model.FraudTypeOrientationChange:
			r.OrientationChanges++
		}
	}

	for _, c := range in.CameraChecks {
		r.Camera.Requested++
		if c.Status != model.CameraCheckCompleted {
			r.Camera.Pending++
			continue
		}
		r.Camera.Completed++
		if c.FacesDetected != nil && *c.FacesDetected > 1 {
			r.Camera.MultipleFaceHits++
		}
	}

	r.FraudTimeline = make([]model.FraudEvent, len(in.Events))
	copy(r.FraudTimeline, in.Events)
	sort.SliceStable(r.FraudTimeline, func(i, j int) bool {
		return r.FraudTimeline[i].Timestamp.Before(r.FraudTimeline[j].Timestamp)
	})

	r.Narrative = narrative(&r)
	return r
}

func clampProbability(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func narrative(r *model.IntegrityReport) string {
	var b strings.Builder

	name := r.StudentName
	if name == "" {
		name = "The student"
	}
	fmt.Fprintf(&b, "%s finished with a risk score of %d (%s risk)", name, r.RiskScore, r.RiskLevel)
	if r.Status == model.SessionStatusAutoSubmitted {
		b.WriteString(" and the session was auto-submitted after crossing the risk threshold")
	}
	b.WriteString(". ")

	if r.TotalDurationSeconds > 0 {
		fmt.Fprintf(&b, "The attempt lasted %s across %d answered questions. ",
			(time.Duration(r.TotalDurationSeconds) * time.Second).String(), len(r.QuestionTimings))
	} else {
		fmt.Fprintf(&b, "The attempt is still open with %d answered questions. ", len(r.QuestionTimings))
	}

	fmt.Fprintf(&b, "%d fraud events were recorded", len(r.FraudTimeline))
	if r.FocusLossCount > 0 {
		fmt.Fprintf(&b, ", including %d focus losses", r.FocusLossCount)
	}
	b.WriteString(". ")

	var flags []string
	if r.DeviceChangeAttempts > 0 {
		flags = append(flags, fmt.Sprintf("%d device change attempts", r.DeviceChangeAttempts))
	}
	if r.BluetoothDetected {
		flags = append(flags, "bluetooth activity")
	}
	if r.HotspotDetected {
		flags = append(flags, "hotspot activity")
	}
	if r.OrientationChanges > 0 {
		flags = append(flags, fmt.Sprintf("%d orientation changes", r.OrientationChanges))
	}
	if r.Camera.MultipleFaceHits > 0 {
		flags = append(flags, fmt.Sprintf("%d camera checks with multiple faces", r.Camera.MultipleFaceHits))
	}
	if len(flags) > 0 {
		fmt.Fprintf(&b, "Device signals: %s. ", strings.Join(flags, "; "))
	}

	if r.PeerSimilarityIndex > 0 {
		fmt.Fprintf(&b, "Answers closely match other students (similarity index %.1f). ", r.PeerSimilarityIndex)
	}
	if r.AIGeneratedProbability >= 50 {
		fmt.Fprintf(&b, "Long-form answers look machine-generated (%.0f%% probability).", r.AIGeneratedProbability)
	} else {
		fmt.Fprintf(&b, "AI-generated text probability is %.0f%%.", r.AIGeneratedProbability)
	}

	return strings.TrimSpace(b.String())
}
