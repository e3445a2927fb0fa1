// Package history persists submitted results: an append-only local mirror
// plus a best-effort push to the remote store. The two writes are
// independent; neither failure rolls back the other.
package history

import (
	"context"
	"log/slog"

	"prepdeck/internal/model"
)

// LocalStore is the slice of the SQLite store the recorder writes to.
type LocalStore interface {
	AppendResult(studentID int64, r model.QuizResult) (int64, error)
}

// RemoteSink is the remote store write contract.
type RemoteSink interface {
	PushResult(ctx context.Context, student string, r model.QuizResult) error
}

// Outcome reports both halves of the dual write. Callers choose what to do
// with a remote failure; nothing is silently swallowed here.
type Outcome struct {
	ResultID  int64
	LocalErr  error
	RemoteErr error
}

// Stored reports whether at least one copy of the result survived.
func (o Outcome) Stored() bool {
	return o.LocalErr == nil || o.RemoteErr == nil
}

// Recorder dual-writes results. remote may be nil for offline deployments.
type Recorder struct {
	local  LocalStore
	remote RemoteSink
}

func NewRecorder(local LocalStore, remote RemoteSink) *Recorder {
	return &Recorder{local: local, remote: remote}
}

// Record appends the result locally and pushes its projection remotely.
// Failures are logged with enough context to reconstruct the missing write
// and reported in the Outcome; there is no retry here.
func (rec *Recorder) Record(ctx context.Context, student *model.User, r model.QuizResult) Outcome {
	var out Outcome

	out.ResultID, out.LocalErr = rec.local.AppendResult(student.ID, r)
	if out.LocalErr != nil {
		slog.Error("local history append failed",
			"student", student.Username, "subject", r.Subject, "paper", r.PaperID,
			"score", r.Score, "total", r.Total, "error", out.LocalErr)
	}

	if rec.remote != nil {
		out.RemoteErr = rec.remote.PushResult(ctx, student.Username, r)
		if out.RemoteErr != nil {
			slog.Warn("remote result push failed",
				"student", student.Username, "subject", r.Subject, "paper", r.PaperID,
				"score", r.Score, "total", r.Total, "time_spent", r.TimeSpent,
				"timestamp", r.Timestamp, "error", out.RemoteErr)
		}
	}

	return out
}
