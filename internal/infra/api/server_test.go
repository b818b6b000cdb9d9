package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"ai-chat-backend/internal/domain"
	"ai-chat-backend/internal/domain/model"
)

type fakeVerifier struct{ users map[string]string }

func (v *fakeVerifier) Verify(_ context.Context, token string) (string, error) {
	if u, ok := v.users[token]; ok {
		return u, nil
	}
	return "", domain.ErrUnauthorized
}

type fakeSessionUC struct {
	sessions map[string]*model.Session
}

func newFakeSessionUC() *fakeSessionUC {
	return &fakeSessionUC{sessions: make(map[string]*model.Session)}
}

func (f *fakeSessionUC) add(s *model.Session) { f.sessions[s.ID] = s }

func (f *fakeSessionUC) ResolveCurrent(ctx context.Context, userID string) (*model.Session, error) {
	for _, s := range f.sessions {
		if s.UserID == userID && s.IsActive {
			return s, nil
		}
	}
	return f.Create(ctx, userID, "")
}

func (f *fakeSessionUC) Create(_ context.Context, userID, title string) (*model.Session, error) {
	s := model.NewSession("sess-"+userID, userID, title)
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeSessionUC) List(_ context.Context, userID string) ([]*model.Session, error) {
	var out []*model.Session
	for _, s := range f.sessions {
		if s.UserID == userID && s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessionUC) History(_ context.Context, userID, sessionID string) (*model.Session, error) {
	s, ok := f.sessions[sessionID]
	if !ok || s.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakeSessionUC) Delete(_ context.Context, userID, sessionID string) error {
	s, ok := f.sessions[sessionID]
	if !ok || s.UserID != userID {
		return domain.ErrNotFound
	}
	s.Deactivate()
	return nil
}

type fakePipeline struct{ err error }

func (f *fakePipeline) Accept(_ context.Context, _, sessionID, content string) (*model.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	m := model.NewMessage(sessionID, model.SenderUser, content, 0)
	return &m, nil
}

func (f *fakePipeline) Respond(_ context.Context, _, sessionID string) (*model.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	m := model.NewMessage(sessionID, model.SenderAssistant, "reply", 5)
	return &m, nil
}

func (f *fakePipeline) Submit(ctx context.Context, userID, sessionID, content string) (*model.Message, error) {
	if _, err := f.Accept(ctx, userID, sessionID, content); err != nil {
		return nil, err
	}
	return f.Respond(ctx, userID, sessionID)
}

func newTestServer(uc *fakeSessionUC, p *fakePipeline) *httptest.Server {
	nop := zerolog.Nop()
	v := &fakeVerifier{users: map[string]string{"good-token": "u1"}}
	srv := NewServer(v, uc, p, nil, &nop)
	return httptest.NewServer(srv.Handler())
}

func doReq(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	var rdr *strings.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	} else {
		rdr = strings.NewReader("")
	}
	req, err := http.NewRequest(method, url, rdr)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestServer_Auth(t *testing.T) {
	ts := newTestServer(newFakeSessionUC(), &fakePipeline{})
	defer ts.Close()

	t.Run("missing token", func(t *testing.T) {
		resp := doReq(t, http.MethodGet, ts.URL+"/api/v1/sessions", "", "")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("status = %d", resp.StatusCode)
		}
	})
	t.Run("bad token", func(t *testing.T) {
		resp := doReq(t, http.MethodGet, ts.URL+"/api/v1/sessions", "wrong", "")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("status = %d", resp.StatusCode)
		}
	})
	t.Run("health needs no auth", func(t *testing.T) {
		resp := doReq(t, http.MethodGet, ts.URL+"/healthz", "", "")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
	})
}

func TestServer_Sessions(t *testing.T) {
	t.Run("create returns 201 with the session", func(t *testing.T) {
		ts := newTestServer(newFakeSessionUC(), &fakePipeline{})
		defer ts.Close()

		resp := doReq(t, http.MethodPost, ts.URL+"/api/v1/sessions", "good-token", `{"title":"notes"}`)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		var s model.Session
		if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
			t.Fatal(err)
		}
		if s.Title != "notes" || s.UserID != "u1" {
			t.Fatalf("session = %+v", s)
		}
	})

	t.Run("list returns empty array not null", func(t *testing.T) {
		ts := newTestServer(newFakeSessionUC(), &fakePipeline{})
		defer ts.Close()

		resp := doReq(t, http.MethodGet, ts.URL+"/api/v1/sessions", "good-token", "")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		var list []*model.Session
		if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
			t.Fatal(err)
		}
		if list == nil {
			t.Fatal("body decoded to null, want []")
		}
	})

	t.Run("get foreign session is 404", func(t *testing.T) {
		uc := newFakeSessionUC()
		uc.add(model.NewSession("other", "someone-else", ""))
		ts := newTestServer(uc, &fakePipeline{})
		defer ts.Close()

		resp := doReq(t, http.MethodGet, ts.URL+"/api/v1/sessions/other", "good-token", "")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("status = %d", resp.StatusCode)
		}
	})

	t.Run("delete twice returns 204 both times", func(t *testing.T) {
		uc := newFakeSessionUC()
		uc.add(model.NewSession("mine", "u1", ""))
		ts := newTestServer(uc, &fakePipeline{})
		defer ts.Close()

		for i := 0; i < 2; i++ {
			resp := doReq(t, http.MethodDelete, ts.URL+"/api/v1/sessions/mine", "good-token", "")
			resp.Body.Close()
			if resp.StatusCode != http.StatusNoContent {
				t.Fatalf("delete %d: status = %d", i+1, resp.StatusCode)
			}
		}
	})
}

func TestServer_SendMessage(t *testing.T) {
	t.Run("returns the assistant message", func(t *testing.T) {
		uc := newFakeSessionUC()
		uc.add(model.NewSession("mine", "u1", ""))
		ts := newTestServer(uc, &fakePipeline{})
		defer ts.Close()

		resp := doReq(t, http.MethodPost, ts.URL+"/api/v1/sessions/mine/messages", "good-token", `{"message":"hi"}`)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		var m model.Message
		if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
			t.Fatal(err)
		}
		if m.Sender != model.SenderAssistant || m.Content != "reply" {
			t.Fatalf("message = %+v", m)
		}
	})

	t.Run("error mapping", func(t *testing.T) {
		cases := []struct {
			name string
			err  error
			want int
		}{
			{"inactive session", domain.ErrSessionInactive, http.StatusUnprocessableEntity},
			{"unknown session", domain.ErrNotFound, http.StatusNotFound},
			{"generation failed", domain.ErrGenerationFailed, http.StatusBadGateway},
			{"store down", domain.ErrStoreUnavailable, http.StatusServiceUnavailable},
			{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				uc := newFakeSessionUC()
				uc.add(model.NewSession("mine", "u1", ""))
				ts := newTestServer(uc, &fakePipeline{err: tc.err})
				defer ts.Close()

				resp := doReq(t, http.MethodPost, ts.URL+"/api/v1/sessions/mine/messages", "good-token", `{"message":"hi"}`)
				resp.Body.Close()
				if resp.StatusCode != tc.want {
					t.Fatalf("status = %d, want %d", resp.StatusCode, tc.want)
				}
			})
		}
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		ts := newTestServer(newFakeSessionUC(), &fakePipeline{})
		defer ts.Close()

		resp := doReq(t, http.MethodPost, ts.URL+"/api/v1/sessions/x/messages", "good-token", `{`)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d", resp.StatusCode)
		}
	})
}
