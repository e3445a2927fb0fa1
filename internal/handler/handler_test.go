package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"prepdeck/internal/history"
	appI18n "prepdeck/internal/i18n"
	"prepdeck/internal/model"
	"prepdeck/internal/question"
	"prepdeck/internal/quiz"
	"prepdeck/internal/report"
	"prepdeck/internal/store"
)

const testPassword = "correct-horse"

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()

	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("i18n init: %v", err)
	}

	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	createStudent(t, s, "alice")

	for i := 0; i < 2; i++ {
		if _, err := s.InsertQuestion(model.Question{
			Subject: "math",
			PaperID: "2024-1",
			Text:    fmt.Sprintf("question %d", i+1),
			Options: []string{"a", "b", "c", "d"},
			Answer:  1,
		}); err != nil {
			t.Fatalf("insert question: %v", err)
		}
	}

	sessions := quiz.NewManager()
	t.Cleanup(sessions.Shutdown)

	h := New(
		s,
		sessions,
		question.NewResolver(question.NewBank(s), question.NewCache(s)),
		history.NewRecorder(s, nil),
		nil,
		nil,
		report.NewExporter("PrepDeck", "", nil),
		Config{LeaderboardN: 5},
	)

	r := chi.NewRouter()
	r.Use(appI18n.Middleware("en"))
	h.Routes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, s
}

func createStudent(t *testing.T, s *store.Store, username string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if _, err := s.CreateUser(model.User{
		Username:     username,
		DisplayName:  "Test " + username,
		PasswordHash: string(hash),
		Role:         model.UserRoleStudent,
		Active:       true,
	}); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func postJSON(t *testing.T, c *http.Client, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := c.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func login(t *testing.T, c *http.Client, baseURL, username string) {
	t.Helper()
	resp := postJSON(t, c, baseURL+"/login", loginRequest{Username: username, Password: testPassword})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s status = %d", username, resp.StatusCode)
	}
}

func TestLogin(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newClient(t)

	resp := postJSON(t, c, srv.URL+"/login", loginRequest{Username: "alice", Password: "wrong"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad password status = %d, want 401", resp.StatusCode)
	}

	login(t, c, srv.URL, "alice")

	// The cookie now opens protected routes.
	resp, err := c.Get(srv.URL + "/results")
	if err != nil {
		t.Fatalf("GET /results: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("results status = %d, want 200", resp.StatusCode)
	}
}

func TestRequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newClient(t)

	resp, err := c.Get(srv.URL + "/analytics")
	if err != nil {
		t.Fatalf("GET /analytics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without a session", resp.StatusCode)
	}
}

func TestQuizFlow(t *testing.T) {
	srv, db := newTestServer(t)
	c := newClient(t)
	login(t, c, srv.URL, "alice")

	var started startQuizResponse
	resp := postJSON(t, c, srv.URL+"/quiz/start", startQuizRequest{Subject: "math", PaperID: "2024-1"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start status = %d, want 201", resp.StatusCode)
	}
	decodeInto(t, resp, &started)
	if started.Session.Total != 2 || started.Session.State != quiz.StateInProgress {
		t.Fatalf("unexpected session: %+v", started.Session)
	}
	if len(started.Questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(started.Questions))
	}
	// The answer key must not be serialized to the client.
	for _, q := range started.Questions {
		if len(q.Options) != model.OptionCount {
			t.Errorf("question options lost: %+v", q)
		}
	}

	base := srv.URL + "/quiz/" + started.Session.ID
	var snap quiz.Snapshot
	resp = postJSON(t, c, base+"/answer", answerRequest{Index: 0, Option: 1})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("answer status = %d", resp.StatusCode)
	}
	decodeInto(t, resp, &snap)
	if snap.Answers[0] != 1 {
		t.Errorf("answer not recorded: %v", snap.Answers)
	}

	idx := 1
	resp = postJSON(t, c, base+"/navigate", navigateRequest{Index: &idx})
	decodeInto(t, resp, &snap)
	if snap.CurrentIndex != 1 {
		t.Errorf("navigate did not move cursor: %+v", snap)
	}

	var submitted submitResponse
	resp = postJSON(t, c, base+"/submit", struct{}{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}
	decodeInto(t, resp, &submitted)
	if submitted.Result.Score != 1 || submitted.Result.Total != 2 {
		t.Errorf("result = %d/%d, want 1/2", submitted.Result.Score, submitted.Result.Total)
	}
	if !submitted.Saved {
		t.Error("local save reported as failed")
	}
	if submitted.RemoteSaved {
		t.Error("remote save reported without a remote store")
	}
	if submitted.Message != "Your result has been saved: 1/2." {
		t.Errorf("message = %q", submitted.Message)
	}

	// The session is gone after submission.
	resp = postJSON(t, c, base+"/submit", struct{}{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second submit status = %d, want 404", resp.StatusCode)
	}

	// The result landed in the local history.
	user, err := db.GetUserByUsername("alice")
	if err != nil || user == nil {
		t.Fatalf("look up user: %v", err)
	}
	results, err := db.ListResults(user.ID)
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(results) != 1 || results[0].Score != 1 {
		t.Errorf("history = %+v", results)
	}

	// Analytics reflects the attempt.
	var analyticsSnap model.AnalyticsSnapshot
	resp, err = c.Get(srv.URL + "/analytics")
	if err != nil {
		t.Fatalf("GET /analytics: %v", err)
	}
	decodeInto(t, resp, &analyticsSnap)
	if analyticsSnap.Accuracy != 50 {
		t.Errorf("accuracy = %d, want 50", analyticsSnap.Accuracy)
	}
	if analyticsSnap.XP != 60 {
		t.Errorf("xp = %d, want 60", analyticsSnap.XP)
	}
}

func TestForeignSessionRejected(t *testing.T) {
	srv, db := newTestServer(t)
	createStudent(t, db, "mallory")

	alice := newClient(t)
	login(t, alice, srv.URL, "alice")

	var started startQuizResponse
	resp := postJSON(t, alice, srv.URL+"/quiz/start", startQuizRequest{Subject: "math", PaperID: "2024-1"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start status = %d", resp.StatusCode)
	}
	decodeInto(t, resp, &started)
	base := srv.URL + "/quiz/" + started.Session.ID

	mallory := newClient(t)
	login(t, mallory, srv.URL, "mallory")

	// Every session operation reads as not found for anyone but the owner.
	for _, attempt := range []struct {
		name string
		do   func() *http.Response
	}{
		{"state", func() *http.Response {
			resp, err := mallory.Get(base)
			if err != nil {
				t.Fatalf("GET session: %v", err)
			}
			return resp
		}},
		{"answer", func() *http.Response {
			return postJSON(t, mallory, base+"/answer", answerRequest{Index: 0, Option: 1})
		}},
		{"submit", func() *http.Response {
			return postJSON(t, mallory, base+"/submit", struct{}{})
		}},
		{"abandon", func() *http.Response {
			req, err := http.NewRequest(http.MethodDelete, base, nil)
			if err != nil {
				t.Fatalf("build DELETE: %v", err)
			}
			resp, err := mallory.Do(req)
			if err != nil {
				t.Fatalf("DELETE session: %v", err)
			}
			return resp
		}},
	} {
		resp := attempt.do()
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s on a foreign session: status = %d, want 404", attempt.name, resp.StatusCode)
		}
	}

	// No history was recorded for either student.
	for _, username := range []string{"alice", "mallory"} {
		user, err := db.GetUserByUsername(username)
		if err != nil || user == nil {
			t.Fatalf("look up %s: %v", username, err)
		}
		count, err := db.ResultCount(user.ID)
		if err != nil {
			t.Fatalf("ResultCount: %v", err)
		}
		if count != 0 {
			t.Errorf("%s history = %d results, want 0", username, count)
		}
	}

	// The owner can still finish the attempt.
	resp = postJSON(t, alice, base+"/submit", struct{}{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("owner submit status = %d, want 200", resp.StatusCode)
	}
}

func TestStartQuizWithoutQuestions(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newClient(t)
	login(t, c, srv.URL, "alice")

	resp := postJSON(t, c, srv.URL+"/quiz/start", startQuizRequest{Subject: "history", PaperID: "none"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for an empty paper", resp.StatusCode)
	}
	var e errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if e.Error != "no_questions" {
		t.Errorf("error code = %q, want no_questions", e.Error)
	}
}

func TestResultReportDownload(t *testing.T) {
	srv, db := newTestServer(t)
	c := newClient(t)
	login(t, c, srv.URL, "alice")

	user, _ := db.GetUserByUsername("alice")
	id, err := db.AppendResult(user.ID, model.QuizResult{
		Subject:   "math",
		PaperID:   "2024-1",
		Score:     1,
		Total:     2,
		Answers:   []int{1, model.AnswerSkipped},
		Timestamp: 1700000000000,
		TimeSpent: 100,
	})
	if err != nil {
		t.Fatalf("AppendResult: %v", err)
	}

	resp, err := c.Get(fmt.Sprintf("%s/report/%d", srv.URL, id))
	if err != nil {
		t.Fatalf("GET report: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != `attachment; filename="math_mock_test_report.pdf"` {
		t.Errorf("content disposition = %q", cd)
	}
}

func TestAdminRoutesForbiddenForStudents(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newClient(t)
	login(t, c, srv.URL, "alice")

	resp, err := c.Get(srv.URL + "/admin/users")
	if err != nil {
		t.Fatalf("GET /admin/users: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}
