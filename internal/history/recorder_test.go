package history

import (
	"context"
	"errors"
	"testing"

	"prepdeck/internal/model"
)

type stubLocal struct {
	id      int64
	err     error
	stored  []model.QuizResult
	student int64
}

func (s *stubLocal) AppendResult(studentID int64, r model.QuizResult) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.student = studentID
	s.stored = append(s.stored, r)
	return s.id, nil
}

type stubRemote struct {
	err    error
	pushed []model.QuizResult
}

func (s *stubRemote) PushResult(_ context.Context, _ string, r model.QuizResult) error {
	if s.err != nil {
		return s.err
	}
	s.pushed = append(s.pushed, r)
	return nil
}

func testUser() *model.User {
	return &model.User{ID: 7, Username: "alice"}
}

func testResult() model.QuizResult {
	return model.QuizResult{Subject: "math", PaperID: "2024-1", Score: 6, Total: 10}
}

func TestRecordDualWrite(t *testing.T) {
	local := &stubLocal{id: 42}
	remote := &stubRemote{}
	rec := NewRecorder(local, remote)

	out := rec.Record(context.Background(), testUser(), testResult())
	if out.LocalErr != nil || out.RemoteErr != nil {
		t.Fatalf("unexpected errors: %+v", out)
	}
	if out.ResultID != 42 {
		t.Errorf("ResultID = %d, want 42", out.ResultID)
	}
	if local.student != 7 {
		t.Errorf("local keyed by %d, want user ID 7", local.student)
	}
	if len(remote.pushed) != 1 {
		t.Errorf("remote pushes = %d, want 1", len(remote.pushed))
	}
	if !out.Stored() {
		t.Error("Stored() = false after clean dual write")
	}
}

func TestRecordRemoteFailureKeepsLocal(t *testing.T) {
	local := &stubLocal{id: 1}
	remote := &stubRemote{err: errors.New("connection refused")}
	rec := NewRecorder(local, remote)

	out := rec.Record(context.Background(), testUser(), testResult())
	if out.LocalErr != nil {
		t.Fatalf("local write failed: %v", out.LocalErr)
	}
	if out.RemoteErr == nil {
		t.Fatal("remote failure not reported")
	}
	if len(local.stored) != 1 {
		t.Errorf("local writes = %d, want 1 despite remote failure", len(local.stored))
	}
	if !out.Stored() {
		t.Error("Stored() = false with a surviving local copy")
	}
}

func TestRecordLocalFailureStillPushesRemote(t *testing.T) {
	local := &stubLocal{err: errors.New("disk full")}
	remote := &stubRemote{}
	rec := NewRecorder(local, remote)

	out := rec.Record(context.Background(), testUser(), testResult())
	if out.LocalErr == nil {
		t.Fatal("local failure not reported")
	}
	if len(remote.pushed) != 1 {
		t.Errorf("remote pushes = %d, want 1 despite local failure", len(remote.pushed))
	}
	if !out.Stored() {
		t.Error("Stored() = false with a surviving remote copy")
	}
}

func TestRecordWithoutRemote(t *testing.T) {
	local := &stubLocal{id: 9}
	rec := NewRecorder(local, nil)

	out := rec.Record(context.Background(), testUser(), testResult())
	if out.LocalErr != nil || out.RemoteErr != nil {
		t.Fatalf("unexpected errors: %+v", out)
	}
	if out.ResultID != 9 {
		t.Errorf("ResultID = %d, want 9", out.ResultID)
	}
}

func TestRecordBothFail(t *testing.T) {
	rec := NewRecorder(&stubLocal{err: errors.New("disk full")}, &stubRemote{err: errors.New("down")})
	out := rec.Record(context.Background(), testUser(), testResult())
	if out.Stored() {
		t.Error("Stored() = true with no surviving copy")
	}
}
